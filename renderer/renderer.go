package renderer

import "github.com/epbkit/linefit/fit"

// Renderer 将适配结果输出为最终文件，例如 PDF 预览。
// Render 返回生成的二进制数据（例如 PDF 字节切片）以及可能的错误。
type Renderer interface {
	Render(doc *Document) ([]byte, error)
}

// Document 是一份待预览的表单：若干语句及其分行结果。
type Document struct {
	Title    string
	Subject  string
	Author   string
	FontSize float64 // pt
	// LineWidth 为默认行宽（px）；语句自身的 Report.LineWidth 优先。
	LineWidth  float64
	Statements []Statement
}

// Statement 为单条语句的预览数据。
type Statement struct {
	Label  string
	Report fit.Report
}
