// Package gemini talks to the Gemini structured-generation API. Both calls
// declare a response schema up front and reject any reply that does not
// decode cleanly into it.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/ledger/internal/logger"
	"google.golang.org/genai"
)

// MaxOutputTokens bounds every generation request.
const MaxOutputTokens = 8192

var (
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("gemini: empty response from model")
	// ErrSchemaViolation is returned when the reply does not match the
	// declared response schema.
	ErrSchemaViolation = errors.New("gemini: response does not match schema")
)

// Model is the subset of the genai Models service used here. *genai.Models
// satisfies it.
type Model interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client sends schema-constrained requests to one model.
type Client struct {
	models Model
	model  string
}

// NewClient creates a Gemini API client for the given key and model name.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("NewClient: api key is empty")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewClient: create genai client: %w", err)
	}
	return New(c.Models, model), nil
}

// New wraps an existing Model implementation.
func New(models Model, model string) *Client {
	return &Client{models: models, model: model}
}

// ModelName returns the configured model identity.
func (c *Client) ModelName() string {
	return c.model
}

// request describes one structured generation call.
type request struct {
	system      string
	temperature float32
	schema      *genai.Schema
	parts       []*genai.Part
}

// generateJSON runs the request and strictly decodes the reply into out.
func (c *Client) generateJSON(ctx context.Context, req request, out any) error {
	log := logger.FromContext(ctx)

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.system, genai.RoleUser),
		Temperature:       genai.Ptr(req.temperature),
		MaxOutputTokens:   MaxOutputTokens,
		ResponseMIMEType:  "application/json",
		ResponseSchema:    req.schema,
	}
	contents := []*genai.Content{genai.NewContentFromParts(req.parts, genai.RoleUser)}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return fmt.Errorf("generateJSON: generate content: %w", err)
	}
	if resp == nil {
		return ErrEmptyResponse
	}
	if resp.UsageMetadata != nil {
		log.Debug().
			Str("model", c.model).
			Int32("total_tokens", resp.UsageMetadata.TotalTokenCount).
			Msg("Model call finished")
	}

	raw := resp.Text()
	if raw == "" {
		return ErrEmptyResponse
	}
	if err := decodeStrict(cleanModelJSON(raw), out); err != nil {
		log.Error().Err(err).Str("raw_response", truncate(raw, 512)).Msg("Model reply rejected")
		return err
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
