package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dvloznov/ledger/internal/gemini"
	"github.com/dvloznov/ledger/internal/render"
)

// Kind classifies a failed run.
type Kind string

const (
	KindUnsupportedFileType Kind = "unsupported_file_type"
	KindEmptyFile           Kind = "empty_file"
	KindFileTooLarge        Kind = "file_too_large"
	KindNoTransactions      Kind = "no_transactions"
	KindDocument            Kind = "document"
	KindSchema              Kind = "schema"
	KindUpstream            Kind = "upstream"
	KindUpstreamTimeout     Kind = "upstream_timeout"
	KindInternal            Kind = "internal"
)

// Client-facing messages for the input and gating failures.
const (
	msgUnsupportedFileType = "Unsupported File Format — only PDF bank statements accepted."
	msgEmptyFile           = "Uploaded file is empty."
	msgNoTransactions      = "No transactions found. Please upload a valid bank statement PDF."
)

// Error is the terminal failure of a run.
type Error struct {
	Kind    Kind
	Stage   Stage
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode maps the kind to an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindUnsupportedFileType:
		return http.StatusUnsupportedMediaType
	case KindEmptyFile:
		return http.StatusBadRequest
	case KindFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindNoTransactions:
		return http.StatusUnprocessableEntity
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, stage Stage, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// classify turns a step error into an *Error. parent is the run context,
// used to tell a stage deadline from caller cancellation.
func classify(parent context.Context, stage Stage, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		if pe.Stage == "" {
			pe.Stage = stage
		}
		return pe
	}

	kind := KindInternal
	switch {
	case errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil:
		kind = KindUpstreamTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = KindUpstream
	case errors.Is(err, render.ErrInvalidDocument), errors.Is(err, render.ErrPageRender):
		kind = KindDocument
	case errors.Is(err, gemini.ErrSchemaViolation), errors.Is(err, gemini.ErrEmptyResponse):
		kind = KindSchema
	case stage == StageExtracting || stage == StageCategorizing:
		kind = KindUpstream
	}

	msg := err.Error()
	if kind == KindUpstreamTimeout {
		msg = fmt.Sprintf("%s timed out: %v", stage, err)
	}
	return &Error{Kind: kind, Stage: stage, Message: msg, Err: err}
}
