package canvasrenderer

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/epbkit/linefit/fit"
	"github.com/epbkit/linefit/layout"
	"github.com/epbkit/linefit/renderer"
)

// Letter page in millimetres.
const (
	pageWidth  = 215.9
	pageHeight = 279.4
	margin     = 19.05
	labelGap   = 1.5
	blockGap   = 8.0
	ruleWidth  = 0.2
)

// DefaultFamilies are the system font families tried, in order, when no font
// file is configured.
var DefaultFamilies = []string{"Times New Roman", "Times", "Liberation Serif", "Nimbus Roman", "DejaVu Serif"}

// ErrNoFont is returned when neither a font file nor a system serif font is available.
var ErrNoFont = errors.New("canvas: no usable font")

var (
	inkColor      = canvas.RGBA(30.0/255, 30.0/255, 30.0/255, 1)
	mutedColor    = canvas.RGBA(110.0/255, 110.0/255, 110.0/255, 1)
	overflowColor = canvas.RGBA(200.0/255, 30.0/255, 30.0/255, 1)
	compressColor = canvas.RGBA(15.0/255, 98.0/255, 254.0/255, 1)
)

// Renderer draws fitted statements to a PDF via github.com/tdewolff/canvas.
type Renderer struct {
	fontPath string
	fontData []byte
	families []string

	fontMu sync.Mutex
	family *canvas.FontFamily
}

var _ renderer.Renderer = (*Renderer)(nil)

// Options configures the canvas renderer. FontData wins over FontPath; with
// neither set the renderer looks up Families among system fonts.
type Options struct {
	FontPath string
	FontData []byte
	Families []string
}

// NewRenderer creates a renderer.
func NewRenderer(opts Options) *Renderer {
	families := opts.Families
	if len(families) == 0 {
		families = DefaultFamilies
	}
	return &Renderer{fontPath: opts.FontPath, fontData: opts.FontData, families: families}
}

// Render renders the document into a PDF byte slice.
func (r *Renderer) Render(doc *renderer.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("预览文档为空")
	}
	if len(doc.Statements) == 0 {
		return nil, fmt.Errorf("缺少可渲染的语句")
	}
	family, err := r.fontFamily()
	if err != nil {
		return nil, err
	}
	size := doc.FontSize
	if size <= 0 {
		size = layout.DefaultFontSize
	}
	body := family.Face(size, inkColor, canvas.FontRegular, canvas.FontNormal)
	small := family.Face(size*0.75, mutedColor, canvas.FontRegular, canvas.FontNormal)
	lineHeight := body.Metrics().LineHeight

	var buf bytes.Buffer
	writer := pdf.New(&buf, pageWidth, pageHeight, nil)
	writer.SetInfo(doc.Title, doc.Subject, "", doc.Author, "linefit")

	c := canvas.New(pageWidth, pageHeight)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // origin top-left, y grows downwards

	y := margin
	if doc.Title != "" {
		title := family.Face(size*1.25, inkColor, canvas.FontRegular, canvas.FontNormal)
		y += title.Metrics().Ascent
		ctx.DrawText(margin, y, canvas.NewTextLine(title, doc.Title, canvas.Left))
		y += blockGap
	}
	for _, st := range doc.Statements {
		rows := len(st.Report.Rows)
		if rows == 0 {
			rows = 1
		}
		need := small.Metrics().LineHeight + float64(rows)*lineHeight + blockGap
		if y+need > pageHeight-margin {
			c.RenderTo(writer)
			writer.NewPage(pageWidth, pageHeight)
			c = canvas.New(pageWidth, pageHeight)
			ctx = canvas.NewContext(c)
			ctx.SetCoordSystem(canvas.CartesianIV)
			y = margin
		}
		y = r.drawStatement(ctx, st, doc.LineWidth, body, small, y)
	}
	c.RenderTo(writer)

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// drawStatement draws the label, one framed row per visual line and a usage
// footer. It returns the y position below the block.
func (r *Renderer) drawStatement(ctx *canvas.Context, st renderer.Statement, defaultWidth float64, body, small *canvas.FontFace, y float64) float64 {
	rep := st.Report
	widthPx := rep.LineWidth
	if widthPx <= 0 {
		widthPx = defaultWidth
	}
	boxWidth := pageWidth - 2*margin
	if widthPx > 0 {
		boxWidth = widthPx * layout.PxToMm
	}
	lineHeight := body.Metrics().LineHeight

	label := st.Label
	if label == "" {
		label = rep.Slot
	}
	y += small.Metrics().Ascent
	ctx.DrawText(margin, y, canvas.NewTextLine(small, label+"  "+usage(rep), canvas.Left))
	y += labelGap

	rows := rep.Rows
	if len(rows) == 0 {
		rows = []fit.Row{{}}
	}
	top := y
	for _, row := range rows {
		if row.Exists {
			text := strings.TrimRightFunc(row.Segment.Text, layout.IsBreakSpace)
			ctx.DrawText(margin, y+body.Metrics().Ascent, canvas.NewTextLine(body, text, canvas.Left))
			if row.Segment.Overflow {
				drawBar(ctx, margin+boxWidth+1, y, lineHeight, overflowColor)
			} else if row.Segment.Compressed {
				drawBar(ctx, margin+boxWidth+1, y, lineHeight, compressColor)
			}
		}
		y += lineHeight
	}

	frame := rep.LineLimit
	if frame <= 0 || frame > len(rows) {
		frame = len(rows)
	}
	stroke := mutedColor
	if rep.OverBudget {
		stroke = overflowColor
	}
	ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
	ctx.SetStrokeColor(stroke)
	ctx.SetStrokeWidth(ruleWidth)
	ctx.DrawPath(margin, top, canvas.Rectangle(boxWidth, float64(frame)*lineHeight))
	return y + blockGap
}

func drawBar(ctx *canvas.Context, x, y, h float64, col color.Color) {
	ctx.SetFillColor(col)
	ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	ctx.DrawPath(x, y, canvas.Rectangle(0.8, h))
}

func usage(rep fit.Report) string {
	var parts []string
	if rep.CharLimit > 0 {
		parts = append(parts, strconv.Itoa(rep.UsedChars)+"/"+strconv.Itoa(rep.CharLimit)+" chars")
	} else {
		parts = append(parts, strconv.Itoa(rep.UsedChars)+" chars")
	}
	if rep.LineLimit > 0 {
		parts = append(parts, strconv.Itoa(rep.UsedLines)+"/"+strconv.Itoa(rep.LineLimit)+" lines")
	} else {
		parts = append(parts, strconv.Itoa(rep.UsedLines)+" lines")
	}
	if rep.OverBudget {
		parts = append(parts, "over budget")
	}
	return strings.Join(parts, ", ")
}

func (r *Renderer) fontFamily() (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if r.family != nil {
		return r.family, nil
	}
	family := canvas.NewFontFamily("linefit")
	data := r.fontData
	if len(data) == 0 && r.fontPath != "" {
		b, err := os.ReadFile(r.fontPath)
		if err != nil {
			return nil, fmt.Errorf("读取字体失败: %w", err)
		}
		data = b
	}
	if len(data) > 0 {
		if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
			return nil, fmt.Errorf("加载字体失败: %w", err)
		}
		r.family = family
		return family, nil
	}
	for _, name := range r.families {
		if err := family.LoadSystemFont(name, canvas.FontRegular); err == nil {
			r.family = family
			return family, nil
		}
	}
	return nil, fmt.Errorf("%w: tried %s", ErrNoFont, strings.Join(r.families, ", "))
}
