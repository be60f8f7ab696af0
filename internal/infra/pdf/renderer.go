package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/wudi/pdfkit/builder"
	"github.com/wudi/pdfkit/ir/semantic"
	"github.com/wudi/pdfkit/writer"

	"github.com/verdantlab/plantscan/internal/domain/reports"
)

// A4 in points
const (
	pageWidth  = 595.0
	pageHeight = 842.0

	marginX    = 50.0
	titleY     = 780.0
	bodyTop    = 740.0
	bodyBottom = 60.0

	titleSize  = 20.0
	bodySize   = 11.0
	lineHeight = 16.0

	// body lines are wrapped to this many characters; Helvetica at 11pt
	// keeps ~90 chars inside the text column
	wrapWidth = 88

	// bounding box for the optional image page
	imageBoxWidth  = 500.0
	imageBoxHeight = 300.0
)

// Renderer draws reports with the pdfkit builder. The writer runs in
// deterministic mode so the probe document is byte-stable across calls.
type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

// Render lays out the title and body on the first page, flowing long bodies
// onto continuation pages, then draws the optional image on its own page
// scaled into a 500x300 box.
func (r *Renderer) Render(ctx context.Context, rep reports.Report, w io.Writer) error {
	var pdfImg *semantic.Image
	var imgW, imgH int
	if rep.Image != nil {
		src, _, err := image.Decode(bytes.NewReader(rep.Image.Data))
		if err != nil {
			return fmt.Errorf("%w: %v", reports.ErrBadImage, err)
		}
		pdfImg = builder.FromImage(src)
		imgW, imgH = src.Bounds().Dx(), src.Bounds().Dy()
	}

	b := builder.NewBuilder()
	b.SetInfo(&semantic.DocumentInfo{Title: rep.Title})

	page := b.NewPage(pageWidth, pageHeight).
		DrawText(rep.Title, marginX, titleY, builder.TextOptions{FontSize: titleSize})

	y := bodyTop
	for _, line := range wrapText(rep.Body, wrapWidth) {
		if y < bodyBottom {
			b = page.Finish()
			page = b.NewPage(pageWidth, pageHeight)
			y = titleY
		}
		if line != "" {
			page.DrawText(line, marginX, y, builder.TextOptions{FontSize: bodySize})
		}
		y -= lineHeight
	}
	b = page.Finish()

	if pdfImg != nil {
		w2, h2 := fitBox(float64(imgW), float64(imgH), imageBoxWidth, imageBoxHeight)
		b.NewPage(pageWidth, pageHeight).
			DrawImage(pdfImg, marginX, titleY-h2, w2, h2, builder.ImageOptions{}).
			Finish()
	}

	return write(ctx, b, w)
}

// RenderProbe produces the fixed single-page diagnostic document.
func (r *Renderer) RenderProbe(ctx context.Context, w io.Writer) error {
	b := builder.NewBuilder()
	b.SetInfo(&semantic.DocumentInfo{Title: reports.Title})
	b.NewPage(pageWidth, pageHeight).
		DrawText(reports.Title, marginX, titleY, builder.TextOptions{FontSize: titleSize}).
		DrawText("Renderer self-test: this document was generated without any external dependency.",
			marginX, bodyTop, builder.TextOptions{FontSize: bodySize}).
		Finish()
	return write(ctx, b, w)
}

func write(ctx context.Context, b builder.PDFBuilder, w io.Writer) error {
	doc, err := b.Build()
	if err != nil {
		return &reports.RenderError{Err: err}
	}
	pw := (&writer.WriterBuilder{}).Build()
	if err := pw.Write(ctx, doc, w, writer.Config{Deterministic: true}); err != nil {
		return &reports.RenderError{Err: err}
	}
	return nil
}

// fitBox scales (w, h) down to fit inside (boxW, boxH) preserving aspect
// ratio. Images smaller than the box keep their natural size.
func fitBox(w, h, boxW, boxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return boxW, boxH
	}
	scale := 1.0
	if s := boxW / w; s < scale {
		scale = s
	}
	if s := boxH / h; s < scale {
		scale = s
	}
	return w * scale, h * scale
}

// wrapText breaks a body into lines no longer than width characters,
// honoring explicit newlines. Words longer than the width get a line of
// their own rather than being split.
func wrapText(text string, width int) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			if len(line)+1+len(word) > width {
				out = append(out, line)
				line = word
				continue
			}
			line += " " + word
		}
		out = append(out, line)
	}
	return out
}
