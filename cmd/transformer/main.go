package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"betascale/internal/betas"
	"betascale/internal/config"
	"betascale/internal/dataprocessing"
	"betascale/internal/exporter"
	"betascale/internal/infrastructure"
)

func main() {
	in := flag.String("in", "", "input table (.csv, .tsv or .xlsx)")
	sheet := flag.String("sheet", "", "worksheet name for Excel inputs (defaults to the first sheet)")
	out := flag.String("out", "", "output directory (defaults to the configured output dir)")
	format := flag.String("format", "", "output format: csv, xlsx or both (defaults to the input format)")
	dateTag := flag.String("date", "", "date tag for output file names, YYYY_MM_DD (defaults to one found in the input name)")
	summary := flag.Bool("summary", true, "write the run summary file next to the outputs")
	concurrency := flag.Int("concurrency", 0, "max concurrent factor columns (defaults to the configured value)")
	timeout := flag.Duration("timeout", 0, "run timeout (defaults to the configured value)")
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "usage: transformer -in <table> [-sheet name] [-out dir] [-format csv|xlsx|both]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	paths, err := config.NewPaths(cfg.Paths)
	if err != nil {
		slog.Error("failed to resolve paths", "error", err)
		os.Exit(1)
	}

	outDir := *out
	if outDir == "" {
		outDir = paths.OutputDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		slog.Error("failed to create output directory", "error", err, "dir", outDir)
		os.Exit(1)
	}

	formats, err := resolveFormats(*format, *in)
	if err != nil {
		slog.Error("invalid format", "error", err)
		os.Exit(2)
	}

	tag := *dateTag
	if tag == "" {
		tag = dataprocessing.ExtractDateTag(filepath.Base(*in))
	}

	runTimeout := *timeout
	if runTimeout <= 0 {
		runTimeout = cfg.Pipeline.RunTimeout
	}
	workers := *concurrency
	if workers <= 0 {
		workers = cfg.Pipeline.MaxConcurrency
	}

	ctx := context.Background()
	start := time.Now()

	fmt.Printf("Reading %s\n", *in)
	reader := dataprocessing.NewReader(logger)
	matrix, err := reader.ReadFile(ctx, *in, *sheet)
	if err != nil {
		slog.Error("failed to read input table", "error", err, "file", *in)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d rows, %d factors\n", matrix.Rows(), matrix.FactorCount())

	pipeline := betas.NewPipeline(logger)
	pipeline.SetMaxConcurrency(workers)
	pipeline.SetTimeout(runTimeout)
	pipeline.SetProgressFunc(printProgress())

	result, err := pipeline.Run(ctx, matrix)
	if err != nil {
		slog.Error("transformation failed", "error", err)
		os.Exit(1)
	}

	writer := exporter.NewResultWriter(logger)
	var written []string
	for _, f := range formats {
		files, err := writer.WriteBatch(ctx, outDir, tag, f, result)
		if err != nil {
			slog.Error("failed to write outputs", "error", err, "format", string(f))
			os.Exit(1)
		}
		written = append(written, files...)
	}

	if *summary {
		path := filepath.Join(outDir, exporter.SummaryFileName(tag))
		if err := writeSummaryFile(path, result.Report); err != nil {
			slog.Error("failed to write summary", "error", err, "file", path)
			os.Exit(1)
		}
		written = append(written, path)
	}

	report := result.Report
	fmt.Printf("\nTransformed %d rows x %d factors in %s\n",
		report.Rows, report.Factors, time.Since(start).Round(time.Millisecond))
	fmt.Printf("Population size: %d, undefined cells: %d\n",
		report.PopulationSize, report.TransformedUndefined)
	if len(report.DegenerateFactors) > 0 {
		fmt.Printf("Degenerate factors (constant or empty): %s\n",
			strings.Join(report.DegenerateFactors, ", "))
	}
	printFactorBreakdown(report)
	fmt.Println("\nOutput files:")
	for _, f := range written {
		fmt.Printf("  %s\n", f)
	}
}

// resolveFormats maps the -format flag to exporter formats, deriving from
// the input file name when the flag is empty.
func resolveFormats(flagValue, inputFile string) ([]exporter.Format, error) {
	switch flagValue {
	case "":
		return []exporter.Format{exporter.FormatForInput(inputFile)}, nil
	case string(exporter.FormatCSV):
		return []exporter.Format{exporter.FormatCSV}, nil
	case string(exporter.FormatExcel):
		return []exporter.Format{exporter.FormatExcel}, nil
	case "both":
		return []exporter.Format{exporter.FormatCSV, exporter.FormatExcel}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want csv, xlsx or both)", flagValue)
	}
}

// printFactorBreakdown lists undefined-cell counts per factor, limited to
// the factors that actually have any.
func printFactorBreakdown(report betas.Report) {
	var affected []betas.FactorQuality
	for _, q := range report.FactorQuality {
		if q.InputUndefined > 0 || q.StandardizedUndefined > 0 || q.TransformedUndefined > 0 {
			affected = append(affected, q)
		}
	}
	if len(affected) == 0 {
		return
	}
	fmt.Println("\nFactors with undefined cells (input / standardized / transformed):")
	for _, q := range affected {
		flag := ""
		if q.Degenerate {
			flag = "  [degenerate]"
		}
		fmt.Printf("  %s: %d / %d / %d%s\n",
			q.Factor, q.InputUndefined, q.StandardizedUndefined, q.TransformedUndefined, flag)
	}
}

// printProgress reports each stage once at completion. The pipeline
// invokes the callback from its column workers, so access is locked.
func printProgress() betas.ProgressFunc {
	var mu sync.Mutex
	done := make(map[betas.Stage]bool)
	return func(stage betas.Stage, percent int) {
		mu.Lock()
		defer mu.Unlock()
		if percent >= 100 && !done[stage] {
			done[stage] = true
			fmt.Printf("Stage %s complete\n", stage)
		}
	}
}

func writeSummaryFile(path string, report betas.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := exporter.WriteSummary(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
