package reports

import (
	"context"
	"io"

	domain "github.com/verdantlab/plantscan/internal/domain/reports"
)

type Service struct {
	renderer domain.Renderer
}

func NewService(renderer domain.Renderer) *Service {
	return &Service{renderer: renderer}
}

// Download assembles a report from the result text and an optional inline
// image, then streams it to w. An empty result is still a valid report.
// The data URL is decoded before any PDF byte is written, so malformed
// input fails while a structured error can still reach the client.
func (s *Service) Download(ctx context.Context, result, imageDataURL string, w io.Writer) error {
	rep := domain.Report{Title: domain.Title, Body: result}
	if imageDataURL != "" {
		img, err := domain.ParseImageDataURL(imageDataURL)
		if err != nil {
			return err
		}
		rep.Image = img
	}
	return s.renderer.Render(ctx, rep, w)
}

// Probe renders the fixed diagnostic document. It exercises the renderer
// path only and depends on no other collaborator.
func (s *Service) Probe(ctx context.Context, w io.Writer) error {
	return s.renderer.RenderProbe(ctx, w)
}
