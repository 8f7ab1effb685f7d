package monitor

import (
	"math"

	"github.com/rewired-gh/roulettemon/internal/models"
)

const (
	Epsilon = 1e-9
	// MinSigma keeps score z-values finite for tables whose scores never move.
	MinSigma = 1.0
)

func UpdateWelford(state *models.TableState, score float64) {
	state.WelfordCount++
	delta := score - state.WelfordMean
	state.WelfordMean += delta / float64(state.WelfordCount)
	delta2 := score - state.WelfordMean
	state.WelfordM2 += delta * delta2
}

func GetSigma(state *models.TableState) float64 {
	if state.WelfordCount < 2 {
		return MinSigma
	}
	variance := state.WelfordM2 / float64(state.WelfordCount-1)
	return math.Max(math.Sqrt(variance), MinSigma)
}

// ScoreZ is how unusual score is against the table's own history.
// Tables with fewer than two observations report 0.
func ScoreZ(state *models.TableState, score float64) float64 {
	if state.WelfordCount < 2 {
		return 0
	}
	return (score - state.WelfordMean) / (GetSigma(state) + Epsilon)
}
