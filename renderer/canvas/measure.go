package canvasrenderer

import (
	"github.com/tdewolff/canvas"

	"github.com/epbkit/linefit/layout"
)

// Measurer measures text with a real font face. canvas reports widths in
// millimetres; MeasureWidth converts them to pixels at 96 DPI.
type Measurer struct {
	face *canvas.FontFace
}

var _ layout.Measurer = (*Measurer)(nil)

// NewMeasurer loads the renderer's font and returns a measurer at sizePt.
func (r *Renderer) NewMeasurer(sizePt float64) (*Measurer, error) {
	family, err := r.fontFamily()
	if err != nil {
		return nil, err
	}
	if sizePt <= 0 {
		sizePt = layout.DefaultFontSize
	}
	return &Measurer{face: family.Face(sizePt, inkColor, canvas.FontRegular, canvas.FontNormal)}, nil
}

// MeasureWidth implements layout.Measurer.
func (m *Measurer) MeasureWidth(text string) float64 {
	if text == "" {
		return 0
	}
	return m.face.TextWidth(text) * layout.MmToPx
}
