package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dvloznov/ledger/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RunFinished(t *testing.T) {
	m := New()

	m.RunFinished("ok")
	m.RunFinished("ok")
	m.RunFinished(string(pipeline.KindNoTransactions))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("no_transactions")))
}

func TestMetrics_Histograms(t *testing.T) {
	m := New()

	m.ObserveStage(pipeline.StageExtracting, 1500*time.Millisecond)
	m.ObserveStage(pipeline.StageCategorizing, 200*time.Millisecond)
	m.ObserveExtracted(20)

	assert.Equal(t, 2, testutil.CollectAndCount(m.stageDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.extracted))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RunFinished("ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ledger_analysis_runs_total{outcome="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
