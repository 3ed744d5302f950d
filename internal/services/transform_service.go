package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"betascale/internal/betas"
	"betascale/internal/config"
	"betascale/internal/dataprocessing"
	"betascale/internal/exporter"
	"betascale/internal/infrastructure"
	"betascale/internal/runstore"
	"betascale/pkg/contracts/events"
)

// Output format selectors accepted by a transform request.
const (
	FormatCSV   = "csv"
	FormatExcel = "xlsx"
	FormatBoth  = "both"
)

// TransformRequest describes one uploaded table to transform.
type TransformRequest struct {
	// Source streams the raw upload; Filename decides the parse format.
	Source   io.Reader
	Filename string

	// Sheet selects the workbook sheet for Excel inputs; empty means the
	// first sheet.
	Sheet string

	// Format is csv, xlsx or both. Empty derives the format from the
	// input file name.
	Format string

	// DateTag stamps output file names. Empty derives it from the input
	// file name, falling back to today.
	DateTag string

	// WriteOutputs persists result files to the output directory. Preview
	// requests leave it false.
	WriteOutputs bool

	// WriteSummary also writes the text quality report. Ignored unless
	// WriteOutputs is set.
	WriteSummary bool
}

// RunResult bundles everything a caller needs after a successful run.
type RunResult struct {
	RunID       string
	DateTag     string
	Format      exporter.Format
	Result      *betas.Result
	OutputFiles []string
	Duration    time.Duration
}

// TransformDeps carries the dependencies of a TransformService. Store, Hub
// and Metrics may be nil; the service then runs without history, progress
// events or instrument recording.
type TransformDeps struct {
	Reader   *dataprocessing.Reader
	Writer   *exporter.ResultWriter
	Store    *runstore.Store
	Hub      RunBroadcaster
	Metrics  *infrastructure.RunMetrics
	Paths    *config.Paths
	Pipeline config.PipelineConfig
	Logger   *slog.Logger
}

// TransformService orchestrates a full transformation run: parse, execute
// the standardize/rank pipeline, write outputs, record the run and
// broadcast progress.
type TransformService struct {
	reader   *dataprocessing.Reader
	writer   *exporter.ResultWriter
	store    *runstore.Store
	hub      RunBroadcaster
	metrics  *infrastructure.RunMetrics
	paths    *config.Paths
	pipeline config.PipelineConfig
	logger   *slog.Logger
}

// NewTransformService validates deps and creates the service.
func NewTransformService(deps TransformDeps) (*TransformService, error) {
	if deps.Reader == nil {
		return nil, fmt.Errorf("transform service requires a reader")
	}
	if deps.Writer == nil {
		return nil, fmt.Errorf("transform service requires a result writer")
	}
	if deps.Paths == nil {
		return nil, fmt.Errorf("transform service requires resolved paths")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &TransformService{
		reader:   deps.Reader,
		writer:   deps.Writer,
		store:    deps.Store,
		hub:      deps.Hub,
		metrics:  deps.Metrics,
		paths:    deps.Paths,
		pipeline: deps.Pipeline,
		logger:   logger.With(slog.String("component", "transform_service")),
	}, nil
}

// Transform executes one run end to end and returns its result. The error
// carries the domain failure unchanged so callers can branch on it.
func (s *TransformService) Transform(ctx context.Context, req TransformRequest) (*RunResult, error) {
	if req.Source == nil {
		return nil, ErrNoSource
	}

	start := time.Now()
	runID := uuid.New().String()
	traceID := infrastructure.GetTraceID(ctx)

	dateTag := req.DateTag
	if dateTag == "" {
		dateTag = dataprocessing.ExtractDateTag(req.Filename)
	}

	formats, primary, err := resolveFormats(req.Format, req.Filename)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "transformation run started",
		slog.String("run_id", runID),
		slog.String("file", req.Filename),
		slog.String("date_tag", dateTag),
		slog.String("format", string(primary)))

	if s.metrics != nil {
		s.metrics.ActiveRuns.Add(ctx, 1)
		defer s.metrics.ActiveRuns.Add(ctx, -1)
	}

	if s.store != nil {
		record := runstore.Run{
			ID:         runID,
			SourceFile: req.Filename,
			DateTag:    dateTag,
			Format:     formatLabel(req.Format, primary),
		}
		if err := s.store.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("record run start: %w", err)
		}
	}

	tracker := newRunTracker(runID, s.hub, traceID)
	tracker.runStarted()

	tracker.stageStarted(events.StageParse, req.Filename)
	matrix, err := s.reader.Read(ctx, req.Source, req.Filename, req.Sheet)
	if err != nil {
		return nil, s.failRun(ctx, tracker, events.StageParse, primary, start, err)
	}
	tracker.stageCompleted(events.StageParse,
		fmt.Sprintf("%d rows, %d factors", matrix.Rows(), matrix.FactorCount()))

	// The pipeline holds per-run progress state, so each run gets its own.
	pipeline := betas.NewPipeline(s.logger)
	pipeline.SetMaxConcurrency(s.pipeline.MaxConcurrency)
	pipeline.SetTimeout(s.pipeline.RunTimeout)
	pipeline.SetProgressFunc(tracker.pipelineProgress)

	tracker.stageStarted(events.StageStandardize, "")
	result, err := pipeline.Run(ctx, matrix)
	if err != nil {
		stage := events.StageStandardize
		if tracker.currentStage() == events.StageRank {
			stage = events.StageRank
		}
		return nil, s.failRun(ctx, tracker, stage, primary, start, err)
	}
	tracker.stageCompleted(events.StageStandardize, "")
	tracker.stageCompleted(events.StageRank,
		fmt.Sprintf("population of %d", result.Report.PopulationSize))

	var outputs []string
	if req.WriteOutputs {
		tracker.stageStarted(events.StageWrite, "")
		for _, format := range formats {
			files, err := s.writer.WriteBatch(ctx, s.paths.OutputDir, dateTag, format, result)
			if err != nil {
				return nil, s.failRun(ctx, tracker, events.StageWrite, primary, start, err)
			}
			outputs = append(outputs, files...)
		}
		if req.WriteSummary {
			path := s.paths.OutputPath(exporter.SummaryFileName(dateTag))
			if err := writeSummaryFile(path, result.Report); err != nil {
				return nil, s.failRun(ctx, tracker, events.StageWrite, primary, start, err)
			}
			outputs = append(outputs, path)
		}
		tracker.stageCompleted(events.StageWrite,
			fmt.Sprintf("%d files written", len(outputs)))
	} else {
		tracker.stageSkipped(events.StageWrite)
	}

	duration := time.Since(start)

	if s.store != nil {
		record := runstore.Run{
			Rows:                  result.Report.Rows,
			Factors:               result.Report.Factors,
			PopulationSize:        result.Report.PopulationSize,
			InputUndefined:        result.Report.InputUndefined,
			StandardizedUndefined: result.Report.StandardizedUndefined,
			TransformedUndefined:  result.Report.TransformedUndefined,
			DegenerateFactors:     result.Report.DegenerateFactors,
			OutputFiles:           outputs,
			Duration:              duration.Milliseconds(),
		}
		if err := s.store.Complete(ctx, runID, record); err != nil {
			s.logger.WarnContext(ctx, "failed to record run completion",
				slog.String("run_id", runID),
				slog.String("error", err.Error()))
		}
	}

	infrastructure.RecordRun(ctx, s.metrics, string(primary), duration,
		result.Report.TotalCells(), result.Report.TransformedUndefined, nil)
	tracker.runCompleted(result.Report)

	s.logger.InfoContext(ctx, "transformation run completed",
		slog.String("run_id", runID),
		slog.Int("rows", result.Report.Rows),
		slog.Int("factors", result.Report.Factors),
		slog.Int("population_size", result.Report.PopulationSize),
		slog.Int("output_files", len(outputs)),
		slog.Duration("duration", duration))

	return &RunResult{
		RunID:       runID,
		DateTag:     dateTag,
		Format:      primary,
		Result:      result,
		OutputFiles: outputs,
		Duration:    duration,
	}, nil
}

// failRun finalizes a failed run across the tracker, the store and the
// instruments, and returns the original error wrapped with run context.
func (s *TransformService) failRun(ctx context.Context, tracker *runTracker, stage string, format exporter.Format, start time.Time, err error) error {
	duration := time.Since(start)
	runID := tracker.runID()

	s.logger.ErrorContext(ctx, "transformation run failed",
		slog.String("run_id", runID),
		slog.String("stage", stage),
		slog.String("error", err.Error()),
		slog.Duration("duration", duration))

	tracker.runFailed(stage, err)

	if s.store != nil {
		if serr := s.store.Fail(ctx, runID, err, duration.Milliseconds()); serr != nil {
			s.logger.WarnContext(ctx, "failed to record run failure",
				slog.String("run_id", runID),
				slog.String("error", serr.Error()))
		}
	}

	infrastructure.RecordRun(ctx, s.metrics, string(format), duration, 0, 0, err)

	return fmt.Errorf("transform run %s: %w", runID, err)
}

// resolveFormats expands the requested format selector into the write list
// and the primary format used for streaming responses.
func resolveFormats(format, filename string) ([]exporter.Format, exporter.Format, error) {
	switch format {
	case "":
		f := exporter.FormatForInput(filename)
		return []exporter.Format{f}, f, nil
	case FormatCSV:
		return []exporter.Format{exporter.FormatCSV}, exporter.FormatCSV, nil
	case FormatExcel:
		return []exporter.Format{exporter.FormatExcel}, exporter.FormatExcel, nil
	case FormatBoth:
		primary := exporter.FormatForInput(filename)
		return []exporter.Format{exporter.FormatCSV, exporter.FormatExcel}, primary, nil
	default:
		return nil, "", &betas.ValidationError{
			Field:   "format",
			Message: "must be csv, xlsx or both",
			Value:   format,
		}
	}
}

// formatLabel is what the run record stores: the caller's selector when
// given, otherwise the derived format.
func formatLabel(requested string, primary exporter.Format) string {
	if requested != "" {
		return requested
	}
	return string(primary)
}

func writeSummaryFile(path string, report betas.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary file: %w", err)
	}
	if err := exporter.WriteSummary(f, report); err != nil {
		f.Close()
		return fmt.Errorf("write summary file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close summary file: %w", err)
	}
	return nil
}

func runMessage(report betas.Report) string {
	return fmt.Sprintf("%d rows x %d factors transformed, %d undefined cells",
		report.Rows, report.Factors, report.TransformedUndefined)
}
