package layout

import (
	"sync"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/epbkit/linefit/fonts"
)

// DefaultFontSize 为 AF1206 / EPB 使用的字号（pt）。
const DefaultFontSize = 12.0

// TableMeasurer 基于字宽表估算文本宽度，不调用真实的字体渲染。
// 目标是稳定、可复现的估算，而非逐像素排版。
type TableMeasurer struct {
	table *fonts.Table
	size  float64 // pt
	scale float64 // 每个表单位对应的 px
}

var _ Measurer = (*TableMeasurer)(nil)

// NewTableMeasurer 以给定字宽表与字号（pt）创建测量器。size<=0 时使用 12pt。
func NewTableMeasurer(table *fonts.Table, size float64) *TableMeasurer {
	if size <= 0 {
		size = DefaultFontSize
	}
	upm := 1000.0
	if table != nil && table.UnitsPerEm > 0 {
		upm = table.UnitsPerEm
	}
	return &TableMeasurer{
		table: table,
		size:  size,
		scale: size * PtToPx / upm,
	}
}

var (
	defaultOnce     sync.Once
	defaultMeasurer *TableMeasurer
)

// DefaultMeasurer 返回 Times New Roman 12pt 的共享测量器。
func DefaultMeasurer() *TableMeasurer {
	defaultOnce.Do(func() {
		defaultMeasurer = NewTableMeasurer(fonts.MustLoad(fonts.DefaultTable), DefaultFontSize)
	})
	return defaultMeasurer
}

// Size 返回字号（pt）。
func (m *TableMeasurer) Size() float64 { return m.size }

// MeasureWidth 实现 Measurer 接口。
func (m *TableMeasurer) MeasureWidth(text string) float64 {
	units := 0.0
	for _, r := range text {
		units += m.units(r)
	}
	return units * m.scale
}

// RuneWidth 返回单个字符的宽度（px）。
func (m *TableMeasurer) RuneWidth(r rune) float64 { return m.units(r) * m.scale }

func (m *TableMeasurer) units(r rune) float64 {
	switch r {
	case '\n', '\r', '\u200b', '\ufeff':
		return 0
	case '\t':
		return 4 * m.units(' ')
	}
	if w, ok := m.table.Width(r); ok {
		return w
	}
	// 带重音的字母按基础字母计宽，例如 é → e。
	if d := norm.NFD.String(string(r)); d != string(r) {
		if base, _ := utf8.DecodeRuneInString(d); base != utf8.RuneError {
			if w, ok := m.table.Width(base); ok {
				return w
			}
		}
	}
	if m.table == nil {
		return 500
	}
	return m.table.Default
}
