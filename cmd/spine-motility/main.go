package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/lmittmann/tint"

	"github.com/ironsheep/spine-tools/internal/annotation"
	"github.com/ironsheep/spine-tools/internal/config"
	"github.com/ironsheep/spine-tools/internal/motility"
	"github.com/ironsheep/spine-tools/internal/store"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `spine-motility - motility of dendritic spines from length CSVs

Usage: spine-motility [options] <file.csv|folder>...

Each CSV needs a spine column and a length column. A time column is used
when present; otherwise rows are placed by frame label (or row order) times
-frame-interval.

Options:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Fprintf(stdout, "spine-motility %s\n", Version)
			fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
			return 0
		}
	}

	fs := flag.NewFlagSet("spine-motility", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		delta    = fs.Int("delta", 1, "lag in frame steps for the lagged method (at least 1)")
		method   = fs.String("method", string(motility.Lagged), "lagged or absolute")
		period   = fs.Float64("period", 0, "ignore samples after this time (0 keeps all)")
		interval = fs.Float64("frame-interval", 1, "time between frames when the CSV has no time column")
		output   = fs.String("output", "", "write per-spine results to this CSV")
		chart    = fs.String("chart", "", "write a per-file bar chart to this PNG")
		html     = fs.String("html", "", "write an interactive chart page to this HTML file")
		history  = fs.String("history", "", "record the run in this SQLite database")
	)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(config.DefaultConfigPath)
	if err != nil {
		fmt.Fprintf(stderr, "spine-motility: %v\n", err)
		return 1
	}
	logger := slog.New(tint.NewHandler(stderr, &tint.Options{
		Level:      cfg.Level(),
		TimeFormat: "15:04:05",
	}))

	m, err := motility.ParseMethod(*method)
	if err != nil {
		logger.Error("bad -method", "err", err)
		return 2
	}
	if m == motility.Lagged && *delta < 1 {
		logger.Error("bad -delta", "err", fmt.Errorf("%w: %d", motility.ErrInvalidLag, *delta))
		return 2
	}

	opts := motility.Options{
		Delta:  *delta,
		Method: m,
		Read:   motility.ReadOptions{FrameInterval: *interval, Period: *period},
	}
	report, err := motility.Analyze(fs.Args(), opts)
	if err != nil {
		logger.Error("analysis failed", "err", err)
		return 1
	}
	logger.Debug("analyzed", "files", len(report.Files), "spines", len(report.Results))
	for _, s := range report.Skipped {
		logger.Warn("skipped spine", "reason", s)
	}

	printReport(stdout, report)

	if *output != "" {
		if err := annotation.WriteFileAtomic(*output, func(w io.Writer) error {
			return motility.WriteResults(w, report.Results)
		}); err != nil {
			logger.Error("failed to write results", "path", *output, "err", err)
			return 1
		}
		logger.Info("results written", "path", *output)
	}
	if *chart != "" {
		if err := motility.PlotSummary(*chart, report.Summaries, m.AxisLabel()); err != nil {
			logger.Error("failed to write chart", "path", *chart, "err", err)
			return 1
		}
		logger.Info("chart written", "path", *chart)
	}
	if *html != "" {
		if err := annotation.WriteFileAtomic(*html, func(w io.Writer) error {
			return motility.RenderHTML(w, report.Results, report.Summaries, m.AxisLabel())
		}); err != nil {
			logger.Error("failed to write chart page", "path", *html, "err", err)
			return 1
		}
		logger.Info("chart page written", "path", *html)
	}
	if *history != "" {
		db, err := store.Open(*history)
		if err != nil {
			logger.Error("failed to open history", "path", *history, "err", err)
			return 1
		}
		defer db.Close()
		run, err := db.RecordRun(report, opts)
		if err != nil {
			logger.Error("failed to record run", "path", *history, "err", err)
			return 1
		}
		fmt.Fprintf(stdout, "\nrun %s recorded in %s\n", run.RunID, *history)
	}
	return 0
}

func printReport(w io.Writer, report *motility.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSPINE\tPOINTS\tMOTILITY")
	for _, r := range report.Results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.4f\n", r.Source, r.Spine, r.Points, r.Motility)
	}
	tw.Flush()

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSPINES\tMEAN\tSEM")
	for _, s := range report.Summaries {
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%.4f\n", s.Source, s.Spines, s.Mean, s.SEM)
	}
	tw.Flush()
}
