package pipeline

import (
	"context"
	"time"

	"github.com/dvloznov/ledger/internal/domain"
)

// Rasterizer renders a PDF into one PNG per page, in page order.
type Rasterizer interface {
	Render(ctx context.Context, pdf []byte, dpi int) ([][]byte, error)
}

// Extractor reads transaction rows off page images.
// This interface enables swapping the model for the mock fallback in tests
// and in credential-less deployments.
type Extractor interface {
	Extract(ctx context.Context, pages [][]byte) ([]domain.RawTransaction, error)
}

// Categorizer invents a taxonomy for one statement and labels every row.
type Categorizer interface {
	Categorize(ctx context.Context, txns []domain.RawTransaction) (domain.Taxonomy, []domain.CategorizedTransaction, error)
}

// Recorder receives run measurements. internal/metrics provides the
// Prometheus implementation.
type Recorder interface {
	ObserveStage(stage Stage, d time.Duration)
	ObserveExtracted(n int)
	RunFinished(kind string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStage(Stage, time.Duration) {}
func (nopRecorder) ObserveExtracted(int)              {}
func (nopRecorder) RunFinished(string)                {}
