package pipeline_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/ledger/internal/domain"
	"github.com/dvloznov/ledger/internal/gemini"
	"github.com/dvloznov/ledger/internal/logger"
	"github.com/dvloznov/ledger/internal/pipeline"
	"github.com/dvloznov/ledger/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRasterizer is a mock implementation of Rasterizer for testing.
type MockRasterizer struct {
	RenderFunc func(ctx context.Context, pdf []byte, dpi int) ([][]byte, error)
	calls      int
}

func (m *MockRasterizer) Render(ctx context.Context, pdf []byte, dpi int) ([][]byte, error) {
	m.calls++
	if m.RenderFunc != nil {
		return m.RenderFunc(ctx, pdf, dpi)
	}
	return [][]byte{[]byte("page-1"), []byte("page-2")}, nil
}

// MockExtractor is a mock implementation of Extractor for testing.
type MockExtractor struct {
	ExtractFunc func(ctx context.Context, pages [][]byte) ([]domain.RawTransaction, error)
}

func (m *MockExtractor) Extract(ctx context.Context, pages [][]byte) ([]domain.RawTransaction, error) {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, pages)
	}
	return sample(), nil
}

// MockCategorizer is a mock implementation of Categorizer for testing.
type MockCategorizer struct {
	CategorizeFunc func(ctx context.Context, txns []domain.RawTransaction) (domain.Taxonomy, []domain.CategorizedTransaction, error)
	calls          int
}

func (m *MockCategorizer) Categorize(ctx context.Context, txns []domain.RawTransaction) (domain.Taxonomy, []domain.CategorizedTransaction, error) {
	m.calls++
	if m.CategorizeFunc != nil {
		return m.CategorizeFunc(ctx, txns)
	}
	out := make([]domain.CategorizedTransaction, len(txns))
	for i, t := range txns {
		cat := "Dining"
		if t.Direction == domain.Credit {
			cat = "Income"
		}
		out[i] = t.WithCategory(cat)
	}
	return domain.Taxonomy{"Dining", "Income"}, out, nil
}

// recorder captures metrics hooks.
type recorder struct {
	mu        sync.Mutex
	stages    []pipeline.Stage
	extracted []int
	finished  []string
}

func (r *recorder) ObserveStage(s pipeline.Stage, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, s)
}

func (r *recorder) ObserveExtracted(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extracted = append(r.extracted, n)
}

func (r *recorder) RunFinished(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, kind)
}

func sample() []domain.RawTransaction {
	return []domain.RawTransaction{
		{Date: "2026-10-01", Description: "Zomato", Amount: 685, Direction: domain.Debit},
		{Date: "2026-10-02", Description: "Salary", Amount: 5000, Direction: domain.Credit},
	}
}

var pdf = []byte("%PDF-1.4 fake")

func newAnalyzer(t *testing.T, opts pipeline.Options, deps pipeline.Deps) *pipeline.Analyzer {
	t.Helper()
	if deps.Rasterizer == nil {
		deps.Rasterizer = &MockRasterizer{}
	}
	a, err := pipeline.NewAnalyzer(opts, deps)
	require.NoError(t, err)
	return a
}

func requireKind(t *testing.T, err error, kind pipeline.Kind, status int) *pipeline.Error {
	t.Helper()
	var perr *pipeline.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, kind, perr.Kind)
	assert.Equal(t, status, perr.StatusCode())
	return perr
}

func TestAnalyzer_Success(t *testing.T) {
	rec := &recorder{}
	cat := &MockCategorizer{}
	a := newAnalyzer(t, pipeline.DefaultOptions(), pipeline.Deps{
		Extractor:   &MockExtractor{},
		Categorizer: cat,
		Recorder:    rec,
	})
	assert.False(t, a.MockMode())

	got, err := a.Analyze(context.Background(), "statement.pdf", pdf)
	require.NoError(t, err)

	assert.Equal(t, 2, got.TransactionCount)
	assert.Equal(t, "October 2026", got.Period)
	assert.Equal(t, 4315.0, got.IdleCash.Balance)
	require.Len(t, got.Categories, 1)
	assert.Equal(t, "Dining", got.Categories[0].Name)
	assert.Equal(t, 1, cat.calls)

	assert.Equal(t, []pipeline.Stage{
		pipeline.StageValidating, pipeline.StageRasterizing, pipeline.StageExtracting,
		pipeline.StageGating, pipeline.StageCategorizing, pipeline.StageAnalyzing,
	}, rec.stages)
	assert.Equal(t, []int{2}, rec.extracted)
	assert.Equal(t, []string{"ok"}, rec.finished)
}

func TestAnalyzer_PassesPagesAndDPI(t *testing.T) {
	var gotDPI int
	var gotPages [][]byte
	opts := pipeline.DefaultOptions()
	opts.DPI = 200

	a := newAnalyzer(t, opts, pipeline.Deps{
		Rasterizer: &MockRasterizer{RenderFunc: func(_ context.Context, _ []byte, dpi int) ([][]byte, error) {
			gotDPI = dpi
			return [][]byte{[]byte("a"), []byte("b"), []byte("c")}, nil
		}},
		Extractor: &MockExtractor{ExtractFunc: func(_ context.Context, pages [][]byte) ([]domain.RawTransaction, error) {
			gotPages = pages
			return sample(), nil
		}},
		Categorizer: &MockCategorizer{},
	})

	_, err := a.Analyze(context.Background(), "s.pdf", pdf)
	require.NoError(t, err)
	assert.Equal(t, 200, gotDPI)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, gotPages)
}

func TestAnalyzer_InputValidationHappensBeforeRendering(t *testing.T) {
	opts := pipeline.DefaultOptions()
	opts.MaxPDFBytes = 8

	tests := []struct {
		name     string
		filename string
		data     []byte
		kind     pipeline.Kind
		status   int
	}{
		{name: "wrong type", filename: "statement.png", data: pdf[:4], kind: pipeline.KindUnsupportedFileType, status: 415},
		{name: "empty", filename: "statement.pdf", data: nil, kind: pipeline.KindEmptyFile, status: 400},
		{name: "too large", filename: "statement.pdf", data: make([]byte, 9), kind: pipeline.KindFileTooLarge, status: 413},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &MockRasterizer{}
			a := newAnalyzer(t, opts, pipeline.Deps{Rasterizer: r})

			got, err := a.Analyze(context.Background(), tt.filename, tt.data)
			perr := requireKind(t, err, tt.kind, tt.status)
			assert.Equal(t, pipeline.StageValidating, perr.Stage)
			assert.Equal(t, 0, r.calls)
			assert.Zero(t, got.TransactionCount)
		})
	}
}

func TestAnalyzer_NoTransactionsNeverCategorizes(t *testing.T) {
	cat := &MockCategorizer{}
	rec := &recorder{}
	a := newAnalyzer(t, pipeline.DefaultOptions(), pipeline.Deps{
		Extractor: &MockExtractor{ExtractFunc: func(context.Context, [][]byte) ([]domain.RawTransaction, error) {
			return []domain.RawTransaction{}, nil
		}},
		Categorizer: cat,
		Recorder:    rec,
	})

	_, err := a.Analyze(context.Background(), "statement.pdf", pdf)
	perr := requireKind(t, err, pipeline.KindNoTransactions, 422)

	assert.Equal(t, pipeline.StageGating, perr.Stage)
	assert.Equal(t, "No transactions found. Please upload a valid bank statement PDF.", perr.Error())
	assert.Equal(t, 0, cat.calls)
	assert.Equal(t, []string{"no_transactions"}, rec.finished)
}

func TestAnalyzer_MockModeIsDeterministic(t *testing.T) {
	a := newAnalyzer(t, pipeline.DefaultOptions(), pipeline.Deps{})
	require.True(t, a.MockMode())

	first, err := a.Analyze(context.Background(), "statement.pdf", pdf)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), "statement.pdf", pdf)
	require.NoError(t, err)

	b1, err := json.Marshal(first)
	require.NoError(t, err)
	b2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(b1), string(b2))

	assert.Equal(t, 20, first.TransactionCount)
	assert.Equal(t, "October 2026", first.Period)
	assert.Equal(t, 42717.0, first.IdleCash.MonthlyBurn)
	assert.Equal(t, 100253.0, first.IdleCash.TotalIncome)
	assert.Equal(t, 46028.8, first.IdleCash.InvestableSurplus)
	require.NotNil(t, first.IdleCash.Recommendation)
	assert.Contains(t, *first.IdleCash.Recommendation, "46,029")
	assert.Len(t, first.Subscriptions, 4)
	assert.Equal(t, "Investments", first.Categories[0].Name)
}

func TestAnalyzer_ErrorClassification(t *testing.T) {
	boom := errors.New("connection reset by peer")

	tests := []struct {
		name   string
		deps   pipeline.Deps
		kind   pipeline.Kind
		status int
		stage  pipeline.Stage
	}{
		{
			name: "unrenderable document",
			deps: pipeline.Deps{Rasterizer: &MockRasterizer{RenderFunc: func(context.Context, []byte, int) ([][]byte, error) {
				return nil, fmt.Errorf("%w: bad xref", render.ErrInvalidDocument)
			}}},
			kind: pipeline.KindDocument, status: 500, stage: pipeline.StageRasterizing,
		},
		{
			name: "zero pages",
			deps: pipeline.Deps{Rasterizer: &MockRasterizer{RenderFunc: func(context.Context, []byte, int) ([][]byte, error) {
				return nil, nil
			}}},
			kind: pipeline.KindDocument, status: 500, stage: pipeline.StageRasterizing,
		},
		{
			name: "model call fails",
			deps: pipeline.Deps{Extractor: &MockExtractor{ExtractFunc: func(context.Context, [][]byte) ([]domain.RawTransaction, error) {
				return nil, boom
			}}},
			kind: pipeline.KindUpstream, status: 500, stage: pipeline.StageExtracting,
		},
		{
			name: "schema violation",
			deps: pipeline.Deps{Extractor: &MockExtractor{ExtractFunc: func(context.Context, [][]byte) ([]domain.RawTransaction, error) {
				return nil, fmt.Errorf("Extract: %w: unexpected field", gemini.ErrSchemaViolation)
			}}},
			kind: pipeline.KindSchema, status: 500, stage: pipeline.StageExtracting,
		},
		{
			name: "invalid extracted row",
			deps: pipeline.Deps{Extractor: &MockExtractor{ExtractFunc: func(context.Context, [][]byte) ([]domain.RawTransaction, error) {
				return []domain.RawTransaction{{Date: "yesterday", Description: "x", Amount: 1, Direction: domain.Debit}}, nil
			}}},
			kind: pipeline.KindSchema, status: 500, stage: pipeline.StageExtracting,
		},
		{
			name: "categorizer drops a row",
			deps: pipeline.Deps{Categorizer: &MockCategorizer{CategorizeFunc: func(_ context.Context, txns []domain.RawTransaction) (domain.Taxonomy, []domain.CategorizedTransaction, error) {
				return domain.Taxonomy{"Dining"}, []domain.CategorizedTransaction{txns[0].WithCategory("Dining")}, nil
			}}},
			kind: pipeline.KindSchema, status: 500, stage: pipeline.StageCategorizing,
		},
		{
			name: "categorizer panics",
			deps: pipeline.Deps{Categorizer: &MockCategorizer{CategorizeFunc: func(context.Context, []domain.RawTransaction) (domain.Taxonomy, []domain.CategorizedTransaction, error) {
				panic("nil map write")
			}}},
			kind: pipeline.KindInternal, status: 500, stage: pipeline.StageCategorizing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAnalyzer(t, pipeline.DefaultOptions(), tt.deps)

			got, err := a.Analyze(context.Background(), "statement.pdf", pdf)
			perr := requireKind(t, err, tt.kind, tt.status)
			assert.Equal(t, tt.stage, perr.Stage)
			assert.NotEmpty(t, perr.Error())
			assert.Zero(t, got.TransactionCount)
			assert.Nil(t, got.Transactions)
		})
	}
}

func TestAnalyzer_UpstreamErrorKeepsCause(t *testing.T) {
	boom := errors.New("quota exceeded")
	a := newAnalyzer(t, pipeline.DefaultOptions(), pipeline.Deps{
		Extractor: &MockExtractor{ExtractFunc: func(context.Context, [][]byte) ([]domain.RawTransaction, error) {
			return nil, boom
		}},
	})

	_, err := a.Analyze(context.Background(), "statement.pdf", pdf)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestAnalyzer_StageTimeout(t *testing.T) {
	opts := pipeline.DefaultOptions()
	opts.StageTimeout = 20 * time.Millisecond

	a := newAnalyzer(t, opts, pipeline.Deps{
		Extractor: &MockExtractor{ExtractFunc: func(ctx context.Context, _ [][]byte) ([]domain.RawTransaction, error) {
			<-ctx.Done()
			return nil, fmt.Errorf("generate content: %w", ctx.Err())
		}},
	})

	_, err := a.Analyze(context.Background(), "statement.pdf", pdf)
	perr := requireKind(t, err, pipeline.KindUpstreamTimeout, 504)
	assert.Equal(t, pipeline.StageExtracting, perr.Stage)
}

func TestAnalyzer_StageTimeoutWithOpaqueError(t *testing.T) {
	opts := pipeline.DefaultOptions()
	opts.StageTimeout = 20 * time.Millisecond

	a := newAnalyzer(t, opts, pipeline.Deps{
		Categorizer: &MockCategorizer{CategorizeFunc: func(ctx context.Context, _ []domain.RawTransaction) (domain.Taxonomy, []domain.CategorizedTransaction, error) {
			<-ctx.Done()
			return nil, nil, errors.New("stream closed")
		}},
	})

	_, err := a.Analyze(context.Background(), "statement.pdf", pdf)
	perr := requireKind(t, err, pipeline.KindUpstreamTimeout, 504)
	assert.Equal(t, pipeline.StageCategorizing, perr.Stage)
}

func TestAnalyzer_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	a := newAnalyzer(t, pipeline.DefaultOptions(), pipeline.Deps{
		Extractor: &MockExtractor{ExtractFunc: func(ctx context.Context, _ [][]byte) ([]domain.RawTransaction, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		}},
	})

	_, err := a.Analyze(ctx, "statement.pdf", pdf)
	requireKind(t, err, pipeline.KindUpstream, 500)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzer_TaxonomySizeIsAdvisory(t *testing.T) {
	a := newAnalyzer(t, pipeline.DefaultOptions(), pipeline.Deps{
		Extractor: &MockExtractor{},
		Categorizer: &MockCategorizer{CategorizeFunc: func(_ context.Context, txns []domain.RawTransaction) (domain.Taxonomy, []domain.CategorizedTransaction, error) {
			out := make([]domain.CategorizedTransaction, len(txns))
			for i, t := range txns {
				out[i] = t.WithCategory("everything")
			}
			return domain.Taxonomy{"Everything", "EVERYTHING"}, out, nil
		}},
	})

	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf))

	got, err := a.Analyze(ctx, "statement.pdf", pdf)
	require.NoError(t, err)
	for _, tx := range got.Transactions {
		assert.Equal(t, "Everything", tx.Category)
	}
	assert.Contains(t, buf.String(), "Taxonomy size outside 5-8")
}

func TestAnalyzer_MockTaxonomySkipsSizeWarning(t *testing.T) {
	a := newAnalyzer(t, pipeline.DefaultOptions(), pipeline.Deps{})

	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf))

	_, err := a.Analyze(ctx, "statement.pdf", pdf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "using mock categorization")
	assert.NotContains(t, buf.String(), "Taxonomy size outside")
}

func TestNewAnalyzer_RequiresRasterizer(t *testing.T) {
	_, err := pipeline.NewAnalyzer(pipeline.DefaultOptions(), pipeline.Deps{})
	assert.Error(t, err)
}

func TestPipeline_StopsAtFirstFailure(t *testing.T) {
	var ran []string
	step := func(name string, fail bool) pipeline.Step {
		return stepFunc{stage: pipeline.Stage(name), fn: func(context.Context, *pipeline.Run) error {
			ran = append(ran, name)
			if fail {
				return errors.New(name + " failed")
			}
			return nil
		}}
	}

	p := pipeline.NewPipeline(nil, step("one", false), step("two", true), step("three", false))
	run := &pipeline.Run{ID: "r1"}

	err := p.Execute(context.Background(), run)
	require.Error(t, err)
	assert.Equal(t, []string{"one", "two"}, ran)
	assert.Equal(t, pipeline.StageFailed, run.Stage)
	require.NotNil(t, run.Err)
	assert.Equal(t, pipeline.KindInternal, run.Err.Kind)
	assert.Equal(t, pipeline.Stage("two"), run.Err.Stage)
}

type stepFunc struct {
	stage pipeline.Stage
	fn    func(context.Context, *pipeline.Run) error
}

func (s stepFunc) Stage() pipeline.Stage { return s.stage }

func (s stepFunc) Execute(ctx context.Context, run *pipeline.Run) error { return s.fn(ctx, run) }
