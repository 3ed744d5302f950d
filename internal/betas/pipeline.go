package betas

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ProgressFunc observes coarse progress while a run executes. Implementations
// must be safe for concurrent use; percent is 0-100 within the given stage.
type ProgressFunc func(stage Stage, percent int)

// Pipeline executes the standardize -> pool -> rank -> rescale transformation
// for one input table.
type Pipeline struct {
	logger         *slog.Logger
	maxConcurrency int
	timeout        time.Duration
	progress       ProgressFunc
}

// NewPipeline creates a pipeline with default concurrency and timeout.
func NewPipeline(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:         logger,
		maxConcurrency: DefaultMaxConcurrency,
		timeout:        DefaultRunTimeout,
	}
}

// SetMaxConcurrency bounds the number of factor columns processed in
// parallel. Values below 1 restore the default.
func (p *Pipeline) SetMaxConcurrency(n int) {
	if n < 1 {
		n = DefaultMaxConcurrency
	}
	p.maxConcurrency = n
}

// SetTimeout bounds a single run. Non-positive values restore the default.
func (p *Pipeline) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultRunTimeout
	}
	p.timeout = d
}

// SetProgressFunc installs a progress observer for run stages.
func (p *Pipeline) SetProgressFunc(fn ProgressFunc) {
	p.progress = fn
}

// Run executes one transformation run and returns the standardized table,
// the transformed table and a data quality report. The input is not
// modified. Columns are processed concurrently, but every output cell
// depends only on its own column's moments and the shared pooled
// population, so scheduling never changes the result.
func (p *Pipeline) Run(ctx context.Context, input *Matrix) (*Result, error) {
	start := time.Now()

	p.logger.InfoContext(ctx, "starting beta transformation run",
		"rows", input.Rows(),
		"factors", input.FactorCount(),
		"timeout", p.timeout,
	)

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := input.Validate(); err != nil {
		p.logger.ErrorContext(ctx, "input validation failed", "error", err)
		return nil, fmt.Errorf("validate input: %w", err)
	}

	standardized, degenerate, err := p.standardize(runCtx, input)
	if err != nil {
		return nil, fmt.Errorf("standardize columns: %w", err)
	}
	if len(degenerate) > 0 {
		p.logger.WarnContext(ctx, "degenerate factor columns carry no scores",
			"factors", degenerate,
		)
	}

	population := BuildPopulation(standardized)
	if len(population) < MinPopulationSize {
		p.logger.WarnContext(ctx, "pooled population too small for exclusive ranks",
			"population_size", len(population),
		)
	}

	transformed, err := p.transform(runCtx, standardized, population)
	if err != nil {
		return nil, fmt.Errorf("rank and rescale: %w", err)
	}

	result := &Result{
		Standardized: standardized,
		Transformed:  transformed,
		Report: buildReport(
			input, standardized, transformed,
			degenerate, len(population), time.Since(start),
		),
	}

	p.logger.InfoContext(ctx, "beta transformation run completed",
		"duration", result.Report.Duration,
		"population_size", result.Report.PopulationSize,
		"transformed_undefined", result.Report.TransformedUndefined,
	)

	return result, nil
}

// standardize computes z-scores for every factor column and reports the
// names of degenerate columns in header order.
func (p *Pipeline) standardize(ctx context.Context, input *Matrix) (*Matrix, []string, error) {
	out := emptyLike(input)
	cols := input.FactorCount()
	degenerateByCol := make([]bool, cols)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers(cols))

	var done atomic.Int64
	for j := 0; j < cols; j++ {
		j := j
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			scores, ok := StandardizeColumn(input.Column(j))
			for i, v := range scores {
				out.Cells[i][j] = v
			}
			degenerateByCol[j] = !ok

			p.reportProgress(StageStandardize, int(done.Add(1)), cols)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var degenerate []string
	for j, d := range degenerateByCol {
		if d {
			degenerate = append(degenerate, input.Factors[j])
		}
	}
	return out, degenerate, nil
}

// transform ranks every standardized cell against the pooled population and
// rescales the rank in the same pass.
func (p *Pipeline) transform(ctx context.Context, standardized *Matrix, population []float64) (*Matrix, error) {
	out := emptyLike(standardized)
	cols := standardized.FactorCount()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers(cols))

	var done atomic.Int64
	for j := 0; j < cols; j++ {
		j := j
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			for i := range standardized.Cells {
				out.Cells[i][j] = Rescale(PercentRankExc(population, standardized.Cells[i][j]))
			}

			p.reportProgress(StageRank, int(done.Add(1)), cols)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) workers(cols int) int {
	n := p.maxConcurrency
	if n > cols {
		n = cols
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (p *Pipeline) reportProgress(stage Stage, done, total int) {
	if p.progress == nil || total == 0 {
		return
	}
	p.progress(stage, done*100/total)
}
