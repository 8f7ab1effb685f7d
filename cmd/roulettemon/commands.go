package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rewired-gh/roulettemon/internal/analytics"
	"github.com/rewired-gh/roulettemon/internal/config"
	"github.com/rewired-gh/roulettemon/internal/ingest"
	"github.com/rewired-gh/roulettemon/internal/logger"
	"github.com/rewired-gh/roulettemon/internal/models"
	"github.com/rewired-gh/roulettemon/internal/simulate"
	"github.com/rewired-gh/roulettemon/internal/storage"
)

func runTable(store *storage.Storage, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "add":
		if len(args) < 3 {
			return errUsage
		}
		table := &models.Table{ID: args[1], Name: strings.Join(args[2:], " "), CreatedAt: time.Now()}
		if err := store.AddTable(table); err != nil {
			return err
		}
		logger.Info("Added table %s (%s)", table.ID, table.Name)
		return nil
	case "list":
		tables, err := store.ListTables()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSPINS\tCREATED")
		for _, t := range tables {
			n, err := store.CountSpins(t.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", t.ID, t.Name, n, t.CreatedAt.Format(time.DateTime))
		}
		return w.Flush()
	case "rename":
		if len(args) < 3 {
			return errUsage
		}
		return store.RenameTable(args[1], strings.Join(args[2:], " "))
	case "rm":
		if len(args) != 2 {
			return errUsage
		}
		return store.DeleteTable(args[1])
	default:
		return errUsage
	}
}

func runSpin(store *storage.Storage, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	fs := flag.NewFlagSet("spin "+args[0], flag.ContinueOnError)
	tableID := fs.String("table", "", "Table id (optional when only one table exists)")
	var limit *int
	if args[0] == "list" {
		limit = fs.Int("n", 20, "Number of latest spins to show (0 = all)")
	}
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}
	id, err := resolveTable(store, *tableID)
	if err != nil {
		return err
	}

	switch args[0] {
	case "add":
		outcomes := make([]int, 0, fs.NArg())
		for _, a := range fs.Args() {
			n, err := strconv.Atoi(a)
			if err != nil {
				return fmt.Errorf("invalid outcome %q: %w", a, err)
			}
			outcomes = append(outcomes, n)
		}
		if len(outcomes) == 0 {
			return errUsage
		}
		spins, err := store.AddSpins(id, outcomes, time.Now())
		if err != nil {
			return err
		}
		logger.Info("Recorded %d spins on table %s", len(spins), id)
		return nil
	case "undo":
		spin, err := store.UndoLastSpin(id)
		if err != nil {
			return err
		}
		logger.Info("Removed %d from table %s", spin.Outcome, id)
		return nil
	case "clear":
		return store.ClearSpins(id)
	case "list":
		spins, err := store.RecentSpins(id, *limit)
		if err != nil {
			return err
		}
		return printSpins(os.Stdout, spins)
	default:
		return errUsage
	}
}

// printSpins lists spins newest first with their color, dozen and column.
func printSpins(out io.Writer, spins []models.Spin) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tN\tCOLOR\tDOZEN\tCOLUMN\tRECORDED")
	for i := len(spins) - 1; i >= 0; i-- {
		sp := spins[i]
		dozen, column := "-", "-"
		if d := analytics.DozenOf(sp.Outcome); d > 0 {
			dozen = strconv.Itoa(d)
		}
		if c := analytics.ColumnOf(sp.Outcome); c > 0 {
			column = strconv.Itoa(c)
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n", len(spins)-i, sp.Outcome,
			analytics.ColorOf(sp.Outcome), dozen, column, sp.RecordedAt.Format(time.DateTime))
	}
	return w.Flush()
}

func runAlerts(store *storage.Storage, args []string) error {
	fs := flag.NewFlagSet("alerts", flag.ContinueOnError)
	k := fs.Int("k", 10, "Number of highest-scoring alerts to show")
	clearLog := fs.Bool("clear", false, "Delete the alert log")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *clearLog {
		if err := store.ClearAlerts(); err != nil {
			return err
		}
		logger.Info("Cleared alert log")
		return nil
	}
	alerts, err := store.GetTopAlerts(*k)
	if err != nil {
		return err
	}
	return printAlerts(os.Stdout, alerts)
}

func printAlerts(out io.Writer, alerts []models.Alert) error {
	if len(alerts) == 0 {
		_, err := fmt.Fprintln(out, "No alerts recorded")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DETECTED\tTABLE\tSCORE\tLABEL\tZ\tSENT\tFLAGS")
	for _, a := range alerts {
		sent := "no"
		if a.Notified {
			sent = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%+.2f\t%s\t%s\n", a.DetectedAt.Format(time.DateTime),
			a.TableID, a.Score, a.Label, a.ScoreZ, sent, strings.Join(a.Flags, "; "))
	}
	return w.Flush()
}

// resolveTable returns id, or the only registered table when id is empty.
func resolveTable(store *storage.Storage, id string) (string, error) {
	if id != "" {
		if _, err := store.GetTable(id); err != nil {
			return "", err
		}
		return id, nil
	}
	tables, err := store.ListTables()
	if err != nil {
		return "", err
	}
	if len(tables) != 1 {
		return "", fmt.Errorf("-table is required when %d tables exist", len(tables))
	}
	return tables[0].ID, nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func readOutcomes(path string, strict bool) ([]int, error) {
	r, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if strict {
		return ingest.ParseStrict(string(data))
	}
	return ingest.ParseOutcomes(string(data)), nil
}

func runImport(store *storage.Storage, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	tableID := fs.String("table", "", "Table id (optional when only one table exists)")
	strict := fs.Bool("strict", false, "Reject numbers outside 0..36 instead of skipping them")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	id, err := resolveTable(store, *tableID)
	if err != nil {
		return err
	}
	outcomes, err := readOutcomes(fs.Arg(0), *strict)
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		return errors.New("no outcomes found in input")
	}
	if _, err := store.AddSpins(id, outcomes, time.Now()); err != nil {
		return err
	}
	logger.Info("Imported %d spins into table %s", len(outcomes), id)
	return nil
}

func runExport(store *storage.Storage, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	active := fs.String("active", "", "Table id recorded as active in the backup")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	w := io.Writer(os.Stdout)
	if path := fs.Arg(0); path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create backup file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return store.Export(w, *active)
}

func runRestore(store *storage.Storage, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	r, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer r.Close()
	b, err := store.Import(r)
	if err != nil {
		return err
	}
	logger.Info("Restored %d tables (active: %s)", len(b.Tables), b.ActiveID)
	return nil
}

func runAnalyze(cfg *config.Config, store *storage.Storage, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	tableID := fs.String("table", "", "Table id (optional when only one table exists)")
	input := fs.String("input", "", "Analyze outcomes parsed from a file (- for stdin) instead of a table")
	window := fs.Int("window", cfg.Monitor.WindowSize, "Number of latest spins to analyze (0 = all)")
	asJSON := fs.Bool("json", false, "Print the full result as JSON")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var outcomes []int
	var err error
	if *input != "" {
		outcomes, err = readOutcomes(*input, false)
		if err != nil {
			return err
		}
		if *window > 0 && len(outcomes) > *window {
			outcomes = outcomes[len(outcomes)-*window:]
		}
	} else {
		id, err := resolveTable(store, *tableID)
		if err != nil {
			return err
		}
		outcomes, err = store.RecentOutcomes(id, *window)
		if err != nil {
			return err
		}
	}

	result := analytics.Analyze(outcomes, cfg.Analytics.Options())
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printReport(os.Stdout, result)
	return nil
}

func printReport(w io.Writer, r analytics.Result) {
	m := r.Metrics
	fmt.Fprintf(w, "Spins: %d\n", m.N)
	fmt.Fprintf(w, "Score: %d/100 (%s)\n", r.Score, r.Label)
	for _, f := range r.Flags {
		fmt.Fprintf(w, "  ! %s\n", f)
	}
	fmt.Fprintf(w, "Chi-square: %.2f (p=%.4f)  G: %.2f  Entropy: %.3f bits\n", m.Chi, m.ChiP, m.G, m.Entropy)
	fmt.Fprintf(w, "Runs z: color %.2f, high/low %.2f  CUSUM z: %.2f\n", m.RunsColor, m.RunsHighLow, m.Cusum)

	ac := make([]string, len(m.AC))
	for i, v := range m.AC {
		ac[i] = fmt.Sprintf("%.2f", v)
	}
	fmt.Fprintf(w, "Autocorrelation: [%s]\n", strings.Join(ac, " "))

	b := r.Breakdown
	fmt.Fprintf(w, "Colors: red %d, black %d, green %d  Longest streak: %s x%d\n",
		b.Colors.Red, b.Colors.Black, b.Colors.Green, b.ColorStreak.Value, b.ColorStreak.Length)
	fmt.Fprintf(w, "Hot sectors: %s\n", formatHot(m.TopHot))
	fmt.Fprintf(w, "Most frequent: %s\n", formatHot(b.TopFrequent))
	fmt.Fprintf(w, "Coldest (spins since seen): %s\n", formatHot(b.ColdByAge))

	bayes := make([]string, len(b.TopBayes))
	for i, d := range b.TopBayes {
		bayes[i] = fmt.Sprintf("%d(%+.4f)", d.N, d.Delta)
	}
	fmt.Fprintf(w, "Posterior over uniform: %s\n", strings.Join(bayes, " "))
}

func formatHot(hot []analytics.Hot) string {
	parts := make([]string, len(hot))
	for i, h := range hot {
		parts[i] = fmt.Sprintf("%d(%d)", h.N, h.Count)
	}
	return strings.Join(parts, " ")
}

func runSimulate(args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	kind := fs.String("kind", string(simulate.EvenMoney), "Bet kind: even or dozen")
	sims := fs.Int("sims", 1000, "Number of simulated sessions")
	horizon := fs.Int("horizon", 200, "Bets per session")
	stake := fs.Float64("stake", 1, "Flat stake per bet")
	seed := fs.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")
	asJSON := fs.Bool("json", false, "Print the summary as JSON")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	paths, err := simulate.Run(simulate.Config{
		Kind:    simulate.Kind(*kind),
		Sims:    *sims,
		Horizon: *horizon,
		Stake:   *stake,
		Seed:    *seed,
	})
	if err != nil {
		return err
	}
	summary := simulate.Summarize(paths)
	ev, err := simulate.ExpectedValue(simulate.Kind(*kind), *horizon, *stake)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			simulate.Summary
			ExpectedValue float64 `json:"expected_value"`
		}{summary, ev})
	}
	fmt.Printf("Final equity over %d sessions of %d bets (stake %.2f):\n", *sims, *horizon, *stake)
	fmt.Printf("  mean %.2f  median %.2f  p5 %.2f  p95 %.2f\n", summary.Mean, summary.Median, summary.P5, summary.P95)
	fmt.Printf("  mean max drawdown %.2f  expected %.2f\n", summary.MeanMaxDrawdown, ev)
	return nil
}
