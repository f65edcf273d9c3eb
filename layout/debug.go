package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DebugLine 为调试输出中的一行：折行结果加上标记数与剩余宽度。
type DebugLine struct {
	Segment
	Markers int     `json:"markers"`
	Slack   float64 `json:"slack"` // budget - Width，不限宽时为 0
}

// DebugDump 记录一次折行的输入与结果，便于比对不同测量器或行宽。
type DebugDump struct {
	Budget float64     `json:"budget"`
	Text   string      `json:"text"`
	Lines  []DebugLine `json:"lines"`
}

// NewDebugDump 由折行结果构造调试数据。
func NewDebugDump(text string, budget float64, segs []Segment) DebugDump {
	d := DebugDump{Budget: budget, Text: text, Lines: make([]DebugLine, len(segs))}
	for i, s := range segs {
		d.Lines[i] = DebugLine{Segment: s, Markers: ThinSpace.Count(s.Text)}
		if budget > 0 {
			d.Lines[i].Slack = budget - s.Width
		}
	}
	return d
}

// WriteDebugJSON 将 v（折行结果或任意报告）输出为缩进 JSON，必要时创建目录。
func WriteDebugJSON(v any, path string) error {
	if v == nil {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("编码调试 JSON 失败: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
