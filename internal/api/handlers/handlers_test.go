package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dvloznov/ledger/internal/api/middleware"
	"github.com/dvloznov/ledger/internal/domain"
	"github.com/dvloznov/ledger/internal/jobs"
	"github.com/dvloznov/ledger/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRunner is a mock implementation of jobs.Runner for testing.
type MockRunner struct {
	RunFunc func(ctx context.Context, job *jobs.AnalyzeJob) (domain.AnalysisResult, error)
	gotJob  *jobs.AnalyzeJob
}

func (m *MockRunner) Run(ctx context.Context, job *jobs.AnalyzeJob) (domain.AnalysisResult, error) {
	m.gotJob = job
	if m.RunFunc != nil {
		return m.RunFunc(ctx, job)
	}
	return domain.AnalysisResult{TransactionCount: 1}, nil
}

func (m *MockRunner) Stop(ctx context.Context) error { return nil }

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) middleware.ErrorBody {
	t.Helper()
	var body middleware.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAnalyze_Success(t *testing.T) {
	runner := &MockRunner{
		RunFunc: func(_ context.Context, job *jobs.AnalyzeJob) (domain.AnalysisResult, error) {
			return domain.AnalysisResult{
				Transactions:     []domain.CategorizedTransaction{{Date: "2026-10-01", Description: "Zomato", Amount: 685, Direction: domain.Debit, Category: "Dining"}},
				Categories:       []domain.CategorySummary{},
				Subscriptions:    []domain.SubscriptionItem{},
				TransactionCount: 1,
				Period:           "October 2026",
			}, nil
		},
	}
	h := NewAnalyzeHandler(runner, 20*1024*1024)

	rec := httptest.NewRecorder()
	h.Analyze(rec, uploadRequest(t, "file", "statement.pdf", []byte("%PDF-1.4")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "statement.pdf", runner.gotJob.Filename)
	assert.Equal(t, []byte("%PDF-1.4"), runner.gotJob.PDF)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "October 2026", got["period"])
	assert.EqualValues(t, 1, got["transaction_count"])
	txn := got["transactions"].([]any)[0].(map[string]any)
	assert.Equal(t, "Zomato", txn["desc"])
	assert.Equal(t, "Debit", txn["type"])
	idle := got["idle_cash"].(map[string]any)
	assert.Contains(t, idle, "recommendation")
	assert.Nil(t, idle["recommendation"])
}

func TestAnalyze_PipelineErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{
			name:       "no transactions",
			err:        &pipeline.Error{Kind: pipeline.KindNoTransactions, Message: "No transactions found. Please upload a valid bank statement PDF."},
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "no_transactions",
		},
		{
			name:       "unsupported type",
			err:        &pipeline.Error{Kind: pipeline.KindUnsupportedFileType, Message: "Unsupported File Format"},
			wantStatus: http.StatusUnsupportedMediaType,
			wantKind:   "unsupported_file_type",
		},
		{
			name:       "upstream timeout",
			err:        &pipeline.Error{Kind: pipeline.KindUpstreamTimeout, Message: "extracting timed out"},
			wantStatus: http.StatusGatewayTimeout,
			wantKind:   "upstream_timeout",
		},
		{
			name:       "queue closed",
			err:        jobs.ErrClosed,
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   "unavailable",
		},
		{
			name:       "unexpected",
			err:        assert.AnError,
			wantStatus: http.StatusInternalServerError,
			wantKind:   "internal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &MockRunner{RunFunc: func(context.Context, *jobs.AnalyzeJob) (domain.AnalysisResult, error) {
				return domain.AnalysisResult{}, tt.err
			}}
			h := NewAnalyzeHandler(runner, 20*1024*1024)

			rec := httptest.NewRecorder()
			h.Analyze(rec, uploadRequest(t, "file", "statement.pdf", []byte("x")))

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.wantKind, body.Kind)
			assert.NotEmpty(t, body.Detail)
		})
	}
}

func TestAnalyze_MissingFileField(t *testing.T) {
	runner := &MockRunner{}
	h := NewAnalyzeHandler(runner, 20*1024*1024)

	rec := httptest.NewRecorder()
	h.Analyze(rec, uploadRequest(t, "document", "statement.pdf", []byte("x")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, runner.gotJob)
}

func TestAnalyze_BodyTooLarge(t *testing.T) {
	runner := &MockRunner{}
	h := NewAnalyzeHandler(runner, 1024)

	rec := httptest.NewRecorder()
	h.Analyze(rec, uploadRequest(t, "file", "statement.pdf", make([]byte, 2*1024*1024)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "file_too_large", decodeError(t, rec).Kind)
	assert.Nil(t, runner.gotJob)
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler(false, "gemini-3-flash-preview", "2.0.0")

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","ai_enabled":false,"model":"gemini-3-flash-preview","version":"2.0.0"}`, rec.Body.String())
}
