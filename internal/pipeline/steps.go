package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/ledger/internal/analytics"
	"github.com/dvloznov/ledger/internal/domain"
	"github.com/dvloznov/ledger/internal/logger"
)

// Step represents a single stage of an analysis run.
type Step interface {
	Stage() Stage
	Execute(ctx context.Context, run *Run) error
}

// Run holds the request-scoped state shared across all steps.
type Run struct {
	ID       string
	Filename string
	PDF      []byte

	Pages       [][]byte
	Raw         []domain.RawTransaction
	Taxonomy    domain.Taxonomy
	Categorized []domain.CategorizedTransaction
	Result      domain.AnalysisResult

	// Stage is the current state; StageDone or StageFailed once finished.
	Stage Stage
	Err   *Error
}

// ValidateStep rejects bad uploads before any external call.
type ValidateStep struct {
	MaxBytes int64
}

func (s *ValidateStep) Stage() Stage { return StageValidating }

func (s *ValidateStep) Execute(ctx context.Context, run *Run) error {
	return validateUpload(run.Filename, run.PDF, s.MaxBytes)
}

// RasterizeStep renders every page to PNG.
type RasterizeStep struct {
	Rasterizer Rasterizer
	DPI        int
}

func (s *RasterizeStep) Stage() Stage { return StageRasterizing }

func (s *RasterizeStep) Execute(ctx context.Context, run *Run) error {
	pages, err := s.Rasterizer.Render(ctx, run.PDF, s.DPI)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return newError(KindDocument, StageRasterizing, "document has no pages")
	}
	run.Pages = pages
	return nil
}

// ExtractStep reads transactions off the rendered pages.
type ExtractStep struct {
	Extractor Extractor
	Timeout   time.Duration
	// Mock is set when Extractor is the credential-less fallback.
	Mock bool
}

func (s *ExtractStep) Stage() Stage { return StageExtracting }

func (s *ExtractStep) Execute(ctx context.Context, run *Run) error {
	if s.Mock {
		log := logger.FromContext(ctx)
		log.Warn().Msg("No model credential configured - using mock transactions")
	}

	var raw []domain.RawTransaction
	err := withStageTimeout(ctx, s.Timeout, func(ctx context.Context) error {
		var err error
		raw, err = s.Extractor.Extract(ctx, run.Pages)
		return err
	})
	if err != nil {
		return err
	}
	if err := validateExtracted(raw); err != nil {
		return err
	}
	run.Raw = raw
	return nil
}

// GateStep stops the run when nothing was extracted.
type GateStep struct{}

func (s *GateStep) Stage() Stage { return StageGating }

func (s *GateStep) Execute(ctx context.Context, run *Run) error {
	if len(run.Raw) == 0 {
		return newError(KindNoTransactions, StageGating, msgNoTransactions)
	}
	return nil
}

// CategorizeStep labels every transaction with a per-statement taxonomy.
type CategorizeStep struct {
	Categorizer Categorizer
	Timeout     time.Duration
	Mock        bool
}

func (s *CategorizeStep) Stage() Stage { return StageCategorizing }

func (s *CategorizeStep) Execute(ctx context.Context, run *Run) error {
	log := logger.FromContext(ctx)
	if s.Mock {
		log.Warn().Msg("No model credential configured - using mock categorization")
	}

	var (
		taxonomy domain.Taxonomy
		labelled []domain.CategorizedTransaction
	)
	err := withStageTimeout(ctx, s.Timeout, func(ctx context.Context) error {
		var err error
		taxonomy, labelled, err = s.Categorizer.Categorize(ctx, run.Raw)
		return err
	})
	if err != nil {
		return err
	}

	v := NewTaxonomyValidator(taxonomy)
	// The mock keyword table has a fixed label set of its own.
	if n := len(v.Taxonomy()); !s.Mock && (n < MinTaxonomySize || n > MaxTaxonomySize) {
		log.Warn().
			Int("labels", n).
			Strs("taxonomy", v.Taxonomy()).
			Msgf("Taxonomy size outside %d-%d", MinTaxonomySize, MaxTaxonomySize)
	}

	categorized, err := validateCategorized(run.Raw, v, labelled)
	if err != nil {
		return err
	}
	run.Taxonomy = v.Taxonomy()
	run.Categorized = categorized
	return nil
}

// AnalyzeStep computes the report.
type AnalyzeStep struct {
	Options analytics.Options
}

func (s *AnalyzeStep) Stage() Stage { return StageAnalyzing }

func (s *AnalyzeStep) Execute(ctx context.Context, run *Run) error {
	run.Result = analytics.Analyze(run.Categorized, s.Options)
	return nil
}

// withStageTimeout runs fn under its own deadline. A deadline hit on the
// stage context is reported as context.DeadlineExceeded even when the
// callee wrapped it into something else.
func withStageTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(stageCtx)
	if err != nil && ctx.Err() == nil && errors.Is(stageCtx.Err(), context.DeadlineExceeded) &&
		!errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}
