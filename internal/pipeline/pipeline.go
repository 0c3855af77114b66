// Package pipeline runs one uploaded statement through validation,
// rasterization, extraction, gating, categorization and analytics, in that
// order, and reports either a complete AnalysisResult or a typed *Error.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/dvloznov/ledger/internal/analytics"
	"github.com/dvloznov/ledger/internal/domain"
	"github.com/dvloznov/ledger/internal/logger"
	"github.com/dvloznov/ledger/internal/mock"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dvloznov/ledger/internal/pipeline"

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps    []Step
	recorder Recorder
	tracer   trace.Tracer
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(recorder Recorder, steps ...Step) *Pipeline {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Pipeline{
		steps:    steps,
		recorder: recorder,
		tracer:   otel.Tracer(tracerName),
	}
}

// Execute runs all steps sequentially. The first failure ends the run; no
// later step is started and no partial result is kept.
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	log := logger.FromContext(ctx)

	for _, step := range p.steps {
		run.Stage = step.Stage()
		log.Debug().Str("stage", string(run.Stage)).Msg("Entering stage")

		start := time.Now()
		err := p.runStep(ctx, step, run)
		p.recorder.ObserveStage(step.Stage(), time.Since(start))

		if err != nil {
			perr := classify(ctx, step.Stage(), err)
			run.Stage = StageFailed
			run.Err = perr
			run.Result = domain.AnalysisResult{}
			p.recorder.RunFinished(string(perr.Kind))
			return perr
		}
		if step.Stage() == StageExtracting {
			p.recorder.ObserveExtracted(len(run.Raw))
		}
	}

	run.Stage = StageDone
	p.recorder.RunFinished("ok")
	return nil
}

// runStep executes one step inside a span, converting a panic into an
// internal error.
func (p *Pipeline) runStep(ctx context.Context, step Step, run *Run) (err error) {
	ctx, span := p.tracer.Start(ctx, "pipeline."+string(step.Stage()),
		trace.WithAttributes(attribute.String("run.id", run.ID)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			log := logger.FromContext(ctx)
			log.Error().
				Interface("panic", r).
				Str("stage", string(step.Stage())).
				Str("stack", string(debug.Stack())).
				Msg("Recovered panic in pipeline step")
			err = &Error{
				Kind:    KindInternal,
				Stage:   step.Stage(),
				Message: fmt.Sprintf("internal error during %s: %v", step.Stage(), r),
			}
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	return step.Execute(ctx, run)
}

// Options are the immutable numeric settings of an Analyzer.
type Options struct {
	MaxPDFBytes  int64
	DPI          int
	StageTimeout time.Duration
	Analytics    analytics.Options
}

// DefaultOptions returns the stock limits.
func DefaultOptions() Options {
	return Options{
		MaxPDFBytes:  DefaultMaxPDFBytes,
		DPI:          DefaultDPI,
		StageTimeout: DefaultStageTimeout,
		Analytics:    analytics.DefaultOptions(),
	}
}

// Deps are the collaborators of an Analyzer. A nil Extractor or Categorizer
// selects the mock fallback for that stage.
type Deps struct {
	Rasterizer  Rasterizer
	Extractor   Extractor
	Categorizer Categorizer
	Recorder    Recorder
}

// Analyzer is the entry point for analysing one statement.
type Analyzer struct {
	pipeline *Pipeline
	mock     bool
}

// NewAnalyzer builds the standard six-step analysis pipeline.
func NewAnalyzer(opts Options, deps Deps) (*Analyzer, error) {
	if deps.Rasterizer == nil {
		return nil, errors.New("NewAnalyzer: rasterizer is required")
	}

	extractor, mockExtract := deps.Extractor, false
	if extractor == nil {
		extractor, mockExtract = mock.NewExtractor(), true
	}
	categorizer, mockCategorize := deps.Categorizer, false
	if categorizer == nil {
		categorizer, mockCategorize = mock.NewCategorizer(nil), true
	}

	p := NewPipeline(deps.Recorder,
		&ValidateStep{MaxBytes: opts.MaxPDFBytes},
		&RasterizeStep{Rasterizer: deps.Rasterizer, DPI: opts.DPI},
		&ExtractStep{Extractor: extractor, Timeout: opts.StageTimeout, Mock: mockExtract},
		&GateStep{},
		&CategorizeStep{Categorizer: categorizer, Timeout: opts.StageTimeout, Mock: mockCategorize},
		&AnalyzeStep{Options: opts.Analytics},
	)
	return &Analyzer{pipeline: p, mock: mockExtract && mockCategorize}, nil
}

// MockMode reports whether both model stages use the fallback.
func (a *Analyzer) MockMode() bool {
	return a.mock
}

// Analyze runs one statement end to end. The returned error is always a
// *Error.
func (a *Analyzer) Analyze(ctx context.Context, filename string, pdf []byte) (domain.AnalysisResult, error) {
	run := &Run{
		ID:       uuid.New().String(),
		Filename: filename,
		PDF:      pdf,
	}

	ctx, log := logger.WithRun(ctx, run.ID, filename)

	if err := a.pipeline.Execute(ctx, run); err != nil {
		var perr *Error
		errors.As(err, &perr)
		log.Error().
			Err(perr.Err).
			Str("kind", string(perr.Kind)).
			Str("stage", string(perr.Stage)).
			Msg(perr.Message)
		return domain.AnalysisResult{}, perr
	}

	log.Info().
		Int("transactions", run.Result.TransactionCount).
		Int("categories", len(run.Result.Categories)).
		Strs("taxonomy", run.Taxonomy).
		Float64("investable_surplus", run.Result.IdleCash.InvestableSurplus).
		Msg("Analysis complete")

	return run.Result, nil
}
