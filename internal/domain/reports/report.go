package reports

import (
	"context"
	"fmt"
	"io"
)

// Title printed on the first page of every generated report.
const Title = "Plant Analysis Report"

// Image is a decoded inline image destined for a report page.
type Image struct {
	ContentType string
	Data        []byte
}

// Report is assembled on demand from a result text and an optional image.
// It is never persisted server-side beyond the response stream.
type Report struct {
	Title string
	Body  string
	Image *Image
}

// Renderer port. Render starts writing as soon as drawing begins; once the
// first byte reaches w there is no way to roll the document back.
type Renderer interface {
	Render(ctx context.Context, r Report, w io.Writer) error
	RenderProbe(ctx context.Context, w io.Writer) error
}

// RenderError covers document generation failures that happen after the
// report content was accepted.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string { return fmt.Sprintf("report render failed: %v", e.Err) }
func (e *RenderError) Unwrap() error { return e.Err }
