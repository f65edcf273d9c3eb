package layout

// 该文件定义折行结果，供分行、适配控制器与调试 JSON 共用。

// Segment 表示一行可视文本及其在原文中的位置。
// Start/End 为 rune 下标（左闭右开）；折行处的空白不属于任何一行。
type Segment struct {
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Width      float64 `json:"width"`              // 不含行尾悬挂空白的宽度（px）
	Compressed bool    `json:"compressed"`         // 行内至少包含一个压缩标记
	Overflow   bool    `json:"overflow,omitempty"` // 单个词宽度超过预算，独占一行
	Forced     bool    `json:"forced,omitempty"`   // 行尾为显式换行
}

// Len 返回该行的字符数。
func (s Segment) Len() int { return s.End - s.Start }
