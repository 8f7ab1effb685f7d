package analytics

import "sort"

// NumPockets is the number of pockets on a single-zero wheel.
const NumPockets = 37

// WheelEU is the physical pocket order of a European wheel, clockwise from zero.
var WheelEU = [NumPockets]int{
	0, 32, 15, 19, 4, 21, 2, 25, 17, 34, 6, 27, 13, 36, 11, 30, 8, 23, 10,
	5, 24, 16, 33, 1, 20, 14, 31, 9, 22, 18, 29, 7, 28, 12, 35, 3, 26,
}

var redPockets = [NumPockets]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true, 14: true, 16: true, 18: true,
	19: true, 21: true, 23: true, 25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

var wheelIndex [NumPockets]int

func init() {
	for i, n := range WheelEU {
		wheelIndex[n] = i
	}
}

// IsRed reports whether n is one of the 18 red pockets. Zero is neither red nor black.
func IsRed(n int) bool {
	return n >= 0 && n < NumPockets && redPockets[n]
}

// WheelIndex returns the physical position of outcome n on the wheel.
func WheelIndex(n int) (int, bool) {
	if n < 0 || n >= NumPockets {
		return 0, false
	}
	return wheelIndex[n], true
}

// NeighborsOf returns the 2k+1 pockets physically around n, ordered by
// offset -k..+k. Unknown outcomes yield an empty slice.
func NeighborsOf(n, k int) []int {
	i, ok := WheelIndex(n)
	if !ok || k < 0 {
		return []int{}
	}
	out := make([]int, 0, 2*k+1)
	for d := -k; d <= k; d++ {
		out = append(out, WheelEU[((i+d)%NumPockets+NumPockets)%NumPockets])
	}
	return out
}

// SectorHotness credits every pocket within radius k of each hit, the hit included.
func SectorHotness(window []int, k int) [NumPockets]int {
	var score [NumPockets]int
	for _, n := range window {
		for _, x := range NeighborsOf(n, k) {
			score[x]++
		}
	}
	return score
}

// Hot is one ranked entry of a per-pocket count.
type Hot struct {
	N     int `json:"n"`
	Count int `json:"c"`
}

// TopHot ranks pockets by descending score. Ties keep ascending pocket order.
func TopHot(score [NumPockets]int, limit int) []Hot {
	entries := make([]Hot, NumPockets)
	for n, c := range score {
		entries[n] = Hot{N: n, Count: c}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if limit >= 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}
