// The budget binary answers "what should I buy" from the command line: it
// runs the suggestion engine against the latest published snapshot and
// prints the chosen cards.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"cardpulse/internal/aggregator"
	"cardpulse/internal/config"
	"cardpulse/internal/infrastructure"
	"cardpulse/internal/optimizer"
)

func main() {
	budget := flag.Float64("budget", 0, "budget in USD (required)")
	maxCount := flag.Int("max", 0, "maximum number of cards, 0 for no cap")
	snapshotPath := flag.String("snapshot", "", "snapshot file (defaults to paths.snapshot_file)")
	asJSON := flag.Bool("json", false, "print the raw result as JSON")
	flag.Parse()

	_ = godotenv.Load()

	if *budget <= 0 {
		fmt.Fprintln(os.Stderr, "a positive -budget is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	if *snapshotPath == "" {
		*snapshotPath = cfg.Paths.SnapshotFile
	}

	if err := run(cfg, logger, *snapshotPath, *budget, *maxCount, *asJSON); err != nil {
		logger.Error("suggestion failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, snapshotPath string, budget float64, maxCount int, asJSON bool) error {
	store := aggregator.NewStore(snapshotPath)
	snap, err := store.Load()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		return fmt.Errorf("no snapshot at %s, run the aggregator first", snapshotPath)
	}

	candidates := optimizer.CandidatesFromRecords(snap.Records)
	engine := optimizer.NewEngine(cfg.Optimizer.MaxTableCells,
		optimizer.TieBreakByName(cfg.Optimizer.TieBreak), logger)

	result, err := engine.Suggest(candidates, budget, maxCount)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(result, len(candidates))
	return nil
}

func printResult(result *optimizer.KnapsackResult, candidates int) {
	if len(result.Chosen) == 0 {
		fmt.Printf("Nothing affordable among %d candidates.\n", candidates)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CARD\tSPORT\tPRICE\tSCORE")
	for _, item := range result.Chosen {
		fmt.Fprintf(w, "%s\t%s\t$%.2f\t%.1f\n", item.Name, item.Sport, item.Price, item.ValueScore)
	}
	w.Flush()

	fmt.Printf("\n%d of %d candidates picked, spent $%.2f, leftover $%.2f, total score %.1f\n",
		len(result.Chosen), candidates,
		float64(result.SpentCents)/100,
		float64(result.Leftover())/100,
		result.TotalValue)
}
