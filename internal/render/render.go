// Package render turns PDF statements into per-page PNG images using PDFium
// compiled to WebAssembly, so the binary needs no cgo or system library.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/dvloznov/ledger/internal/logger"
	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

var (
	// ErrInvalidDocument is returned when the bytes cannot be opened as a PDF
	// or the document has no pages.
	ErrInvalidDocument = errors.New("render: invalid PDF document")
	// ErrPageRender is returned when a single page fails to render or encode.
	ErrPageRender = errors.New("render: page render failed")
)

// Config sizes the PDFium instance pool.
type Config struct {
	// Instances is the number of PDFium runtimes kept warm.
	Instances int
	// AcquireTimeout bounds the wait for a free instance.
	AcquireTimeout time.Duration
}

// Rasterizer renders documents on a pool of PDFium instances.
type Rasterizer struct {
	pool    pdfium.Pool
	timeout time.Duration
}

// New starts the PDFium pool. Close must be called to release it.
func New(cfg Config) (*Rasterizer, error) {
	if cfg.Instances < 1 {
		cfg.Instances = 1
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 30 * time.Second
	}

	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  cfg.Instances,
		MaxTotal: cfg.Instances,
	})
	if err != nil {
		return nil, fmt.Errorf("render.New: init pdfium: %w", err)
	}
	return &Rasterizer{pool: pool, timeout: cfg.AcquireTimeout}, nil
}

// Close shuts down the instance pool.
func (r *Rasterizer) Close() error {
	return r.pool.Close()
}

// Render returns one PNG per page, in page order, rendered at dpi with no
// rotation. Either every page is returned or none.
func (r *Rasterizer) Render(ctx context.Context, pdf []byte, dpi int) ([][]byte, error) {
	log := logger.FromContext(ctx)

	instance, err := r.pool.GetInstance(r.timeout)
	if err != nil {
		return nil, fmt.Errorf("Render: acquire pdfium instance: %w", err)
	}
	defer instance.Close()

	doc, err := instance.OpenDocument(&requests.OpenDocument{File: &pdf})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})

	count, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{Document: doc.Document})
	if err != nil {
		return nil, fmt.Errorf("%w: page count: %v", ErrInvalidDocument, err)
	}
	if count.PageCount == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrInvalidDocument)
	}

	pages := make([][]byte, 0, count.PageCount)
	for i := 0; i < count.PageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := renderPage(instance, doc.Document, i, dpi)
		if err != nil {
			return nil, err
		}
		pages = append(pages, img)
	}

	log.Info().
		Int("pages", len(pages)).
		Int("dpi", dpi).
		Msg("Rendered statement pages")

	return pages, nil
}

func renderPage(instance pdfium.Pdfium, doc references.FPDF_DOCUMENT, index, dpi int) ([]byte, error) {
	rendered, err := instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI: dpi,
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: doc,
				Index:    index,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", ErrPageRender, index+1, err)
	}
	defer rendered.Cleanup()

	var buf bytes.Buffer
	if err := png.Encode(&buf, rendered.Result.Image); err != nil {
		return nil, fmt.Errorf("%w: page %d: encode png: %v", ErrPageRender, index+1, err)
	}
	return buf.Bytes(), nil
}
