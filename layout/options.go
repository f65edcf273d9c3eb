package layout

// Measurer 负责测量单行文本（不折行）在目标字体下的渲染宽度，单位为 px。
// 实现必须是纯函数：同一输入总是返回同一宽度，且接受任意字符串（包括空串）。
type Measurer interface {
	MeasureWidth(text string) float64
}

// MeasureFunc 让普通函数满足 Measurer 接口。
type MeasureFunc func(text string) float64

func (f MeasureFunc) MeasureWidth(text string) float64 { return f(text) }
