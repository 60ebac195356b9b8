package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/ingestion"
	"github.com/poiesic/equiptrack/reindex"
	"github.com/urfave/cli/v2"
)

// fileArg returns the directory and name of the single FILE argument.
// The importer only accepts paths below its base directory, so the CLI
// roots it at the file's own directory.
func fileArg(c *cli.Context) (dir, name string, err error) {
	if c.NArg() != 1 {
		return "", "", errors.New("exactly one FILE argument is required")
	}
	abs, err := filepath.Abs(c.Args().First())
	if err != nil {
		return "", "", err
	}
	return filepath.Dir(abs), filepath.Base(abs), nil
}

func queryArg(c *cli.Context) (string, error) {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return "", errors.New("a QUERY argument is required")
	}
	return query, nil
}

func importCommand(c *cli.Context) error {
	dir, name, err := fileArg(c)
	if err != nil {
		return err
	}
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	importer, err := app.NewImporter(ingestion.WithBaseDir(dir))
	if err != nil {
		return fmt.Errorf("failed to create importer: %w", err)
	}

	result, runErr := importer.ImportFile(c.Context, name, ingestion.ImportOptions{
		FailOnError: c.Bool("fail-on-error"),
		ImportedBy:  c.String("imported-by"),
	})
	if result != nil {
		printImportResult(c.App.Writer, result)
		if err := writeFailedReport(c, importer, result.FailedRecords); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("import failed: %w", runErr)
	}
	return nil
}

func printImportResult(w io.Writer, r *ingestion.ImportResult) {
	fmt.Fprintln(w, r.Message)
	if r.HistoryID != 0 {
		fmt.Fprintf(w, "History ID: %d\n", r.HistoryID)
	}
	if r.Encoding != "" {
		fmt.Fprintf(w, "Encoding: %s, delimiter: %q\n", r.Encoding, r.Delimiter)
	}
	fmt.Fprintf(w, "Time: %.2fs\n", r.ProcessingTimeSeconds)
	if r.Truncated {
		fmt.Fprintln(w, "Row limit reached; remaining rows were not read")
	}
	if r.IndexFailures > 0 {
		fmt.Fprintf(w, "%d problems could not be indexed; run 'equiptrack reindex'\n", r.IndexFailures)
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warning := range r.Warnings {
			fmt.Fprintf(w, "  %s\n", warning)
		}
	}
	if len(r.FailedRecords) > 0 {
		fmt.Fprintln(w, "Failed rows:")
		for i := range r.FailedRecords {
			rec := &r.FailedRecords[i]
			fmt.Fprintf(w, "  row %d: %s\n", rec.RowNumber, rec.ErrorInfo())
		}
	}
}

func writeFailedReport(c *cli.Context, importer *ingestion.Importer, records []core.FailedRecord) error {
	if len(records) == 0 {
		return nil
	}
	output := c.String("report")
	if output == "" && !c.Bool("save-failed") {
		return nil
	}
	if output != "" {
		abs, err := filepath.Abs(output)
		if err != nil {
			return err
		}
		output = abs
	}
	path, err := importer.SaveFailedRecords(records, output)
	if err != nil {
		return fmt.Errorf("failed to write failed-records report: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Failed rows written to %s\n", path)
	return nil
}

func validateCommand(c *cli.Context) error {
	dir, name, err := fileArg(c)
	if err != nil {
		return err
	}
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	importer, err := app.NewImporter(ingestion.WithBaseDir(dir))
	if err != nil {
		return fmt.Errorf("failed to create importer: %w", err)
	}
	report, err := importer.ValidateHeader(name)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintln(c.App.Writer, report.Message)
	fmt.Fprintf(c.App.Writer, "Headers: %s\n", strings.Join(report.Headers, ", "))
	if !report.Valid {
		return fmt.Errorf("%w: %v", ingestion.ErrMissingHeaders, report.Missing)
	}
	return nil
}

func historyCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	runs, err := app.Store().ListImportRuns(c.Context, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list import runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(c.App.Writer, "No imports recorded")
		return nil
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tSTATUS\tIMPORTED\tFAILED\tSKIPPED\tTOTAL\tSTARTED\tDURATION")
	for _, run := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			run.Id, run.Filename, run.Status, run.ImportedCount, run.FailedCount, run.SkippedCount,
			run.TotalRows, run.StartedAt.Local().Format(time.DateTime), run.Duration().Round(time.Millisecond))
	}
	return tw.Flush()
}

func searchCommand(c *cli.Context) error {
	query, err := queryArg(c)
	if err != nil {
		return err
	}
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	searcher, err := app.NewSearcher()
	if err != nil {
		return err
	}
	matches, err := searcher.FindSimilar(c.Context, query, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Found %d hits\n", len(matches))
	for i, m := range matches {
		p := m.Problem
		fmt.Fprintf(c.App.Writer, "%d: '%s' (%d)[%0.3f] %s/%s/%s\n",
			i+1, p.Title, p.Id, m.Score, orNone(m.EquipmentTypeName), p.Phase, p.Priority)
	}
	return nil
}

func suggestCommand(c *cli.Context) error {
	query, err := queryArg(c)
	if err != nil {
		return err
	}
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	searcher, err := app.NewSearcher()
	if err != nil {
		return err
	}
	suggestion, err := searcher.SuggestDesign(c.Context, query)
	if err != nil {
		return fmt.Errorf("suggestion failed: %w", err)
	}

	fmt.Fprintln(c.App.Writer, suggestion.Text)
	if len(suggestion.Similar) > 0 {
		fmt.Fprintln(c.App.Writer)
		fmt.Fprintln(c.App.Writer, "Based on:")
		for _, m := range suggestion.Similar {
			fmt.Fprintf(c.App.Writer, "  (%d) %s [%0.3f]\n", m.Problem.Id, m.Problem.Title, m.Similarity)
		}
	}
	return nil
}

func reindexConfig(c *cli.Context) (*reindex.Config, error) {
	cfg := &reindex.Config{
		BatchSize:      c.Int("batch-size"),
		Workers:        c.Int("workers"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Clear:          c.Bool("clear"),
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch-size must be greater than 0")
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative")
	}
	if cfg.ReportInterval <= 0 {
		return nil, fmt.Errorf("report-interval must be greater than 0")
	}
	if cfg.MaxRetries <= 0 {
		return nil, fmt.Errorf("max-retries must be greater than 0")
	}
	return cfg, nil
}

func reindexCommand(c *cli.Context) error {
	cfg, err := reindexConfig(c)
	if err != nil {
		return err
	}
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	reindexer, err := app.NewReindexer(cfg, os.Stderr)
	if err != nil {
		return err
	}
	report, err := reindexer.Run(c.Context)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	for _, f := range report.Failures {
		fmt.Fprintf(c.App.Writer, "problem %d: %v\n", f.ID, f.Err)
	}
	if report.Failed() > 0 {
		return fmt.Errorf("%d of %d problems could not be indexed", report.Failed(), report.Total)
	}
	return nil
}

func serveCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	cfg := app.Config()
	addr := cfg.Server.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}

	srv, err := app.NewServer()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.ReindexSchedule != "" {
		scheduler, err := scheduleReindex(ctx, app, cfg.Server.ReindexSchedule)
		if err != nil {
			return err
		}
		defer func() { <-scheduler.Stop().Done() }()
	}

	return srv.Run(ctx, addr)
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
