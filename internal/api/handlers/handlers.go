package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/dvloznov/ledger/internal/api/middleware"
	"github.com/dvloznov/ledger/internal/jobs"
	"github.com/dvloznov/ledger/internal/logger"
	"github.com/dvloznov/ledger/internal/pipeline"
)

// multipartOverhead is allowed on top of the file cap for form boundaries
// and headers.
const multipartOverhead = 1 << 20

// AnalyzeHandler handles statement uploads.
type AnalyzeHandler struct {
	runner   jobs.Runner
	maxBytes int64
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(runner jobs.Runner, maxBytes int64) *AnalyzeHandler {
	return &AnalyzeHandler{
		runner:   runner,
		maxBytes: maxBytes,
	}
}

// Analyze handles POST /api/analyze with a multipart "file" field.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	limit := h.maxBytes + multipartOverhead
	if r.ContentLength > limit {
		h.writeTooLarge(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeTooLarge(w)
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Multipart field 'file' is required.", "bad_request")
		return
	}
	defer file.Close()

	pdf, err := io.ReadAll(file)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read upload")
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read uploaded file.", "bad_request")
		return
	}

	log.Info().
		Str("filename", header.Filename).
		Str("size", humanize.Bytes(uint64(len(pdf)))).
		Msg("Received statement")

	result, err := h.runner.Run(ctx, &jobs.AnalyzeJob{Filename: header.Filename, PDF: pdf})
	if err != nil {
		writeRunError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

func (h *AnalyzeHandler) writeTooLarge(w http.ResponseWriter) {
	middleware.WriteError(w, http.StatusRequestEntityTooLarge,
		fmt.Sprintf("File exceeds %d MB limit.", h.maxBytes/(1024*1024)), string(pipeline.KindFileTooLarge))
}

func writeRunError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var perr *pipeline.Error
	switch {
	case errors.As(err, &perr):
		middleware.WriteError(w, perr.StatusCode(), perr.Message, string(perr.Kind))
	case errors.Is(err, jobs.ErrClosed):
		middleware.WriteError(w, http.StatusServiceUnavailable, "Server is shutting down.", "unavailable")
	case r.Context().Err() != nil:
		log.Warn().Err(err).Msg("Client went away before analysis finished")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Request cancelled.", "cancelled")
	default:
		log.Error().Err(err).Msg("Analysis failed")
		middleware.WriteError(w, http.StatusInternalServerError, err.Error(), string(pipeline.KindInternal))
	}
}

// Health is the body of GET /api/health.
type Health struct {
	Status    string `json:"status"`
	AIEnabled bool   `json:"ai_enabled"`
	Model     string `json:"model"`
	Version   string `json:"version"`
}

// HealthHandler reports process configuration.
type HealthHandler struct {
	health Health
}

// NewHealth builds the health document for a running process.
func NewHealth(aiEnabled bool, model, version string) Health {
	return Health{
		Status:    "ok",
		AIEnabled: aiEnabled,
		Model:     model,
		Version:   version,
	}
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(aiEnabled bool, model, version string) *HealthHandler {
	return &HealthHandler{health: NewHealth(aiEnabled, model, version)}
}

// Health handles GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.health)
}
