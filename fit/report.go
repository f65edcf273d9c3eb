package fit

import (
	"unicode/utf16"

	"github.com/epbkit/linefit/layout"
)

// Row 是编辑器中固定显示的一行。Exists 为 false 表示补齐的空行，不能切换。
type Row struct {
	Index   int            `json:"index"`
	Exists  bool           `json:"exists"`
	Segment layout.Segment `json:"segment"`
}

// Report 是槽位当前的用量快照。
type Report struct {
	Slot       string           `json:"slot"`
	State      State            `json:"-"`
	StateName  string           `json:"state"`
	Generation uint64           `json:"generation"`
	Text       string           `json:"text"`
	UsedChars  int              `json:"usedChars"`
	UsedLines  int              `json:"usedLines"`
	CharLimit  int              `json:"charLimit,omitempty"`
	LineLimit  int              `json:"lineLimit,omitempty"`
	LineWidth  float64          `json:"lineWidth,omitempty"`
	OverChars  int              `json:"overChars,omitempty"` // 超出的字符数
	OverLines  int              `json:"overLines,omitempty"` // 超出的行数
	OverBudget bool             `json:"overBudget"`
	Dirty      bool             `json:"dirty"`
	Revising   bool             `json:"revising"`
	Segments   []layout.Segment `json:"segments"`
	Rows       []Row            `json:"rows"`
}

// CompressedLines 返回含窄空格的行号。
func (r Report) CompressedLines() []int {
	var out []int
	for i, seg := range r.Segments {
		if seg.Compressed {
			out = append(out, i)
		}
	}
	return out
}

// Report 返回当前用量。
func (s *Slot) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reportLocked()
}

// UsedChars 按 UTF-16 码元计数，与表单输入框的字数上限一致：
// 窄空格各计一个字符，基本平面以外的字符（如 emoji）计两个。
func UsedChars(text string) int {
	n := 0
	for _, r := range text {
		n += utf16.RuneLen(r)
	}
	return n
}

func (s *Slot) reportLocked() Report {
	b := s.budget
	r := Report{
		Slot:       s.name,
		State:      s.state,
		StateName:  s.state.String(),
		Generation: s.gen,
		Text:       s.text,
		UsedChars:  UsedChars(s.text),
		UsedLines:  len(s.segs),
		CharLimit:  b.CharLimit,
		LineLimit:  b.Lines,
		LineWidth:  b.LineWidth,
		Dirty:      s.dirty,
		Revising:   s.revising,
		Segments:   append([]layout.Segment(nil), s.segs...),
	}
	if b.CharLimit > 0 && r.UsedChars > b.CharLimit {
		r.OverChars = r.UsedChars - b.CharLimit
	}
	if b.Lines > 0 && r.UsedLines > b.Lines {
		r.OverLines = r.UsedLines - b.Lines
	}
	r.OverBudget = r.OverChars > 0 || r.OverLines > 0

	rows := b.Lines
	if len(s.segs) > rows {
		rows = len(s.segs)
	}
	r.Rows = make([]Row, rows)
	for i := range r.Rows {
		r.Rows[i].Index = i
		if i < len(s.segs) {
			r.Rows[i].Exists = true
			r.Rows[i].Segment = s.segs[i]
		}
	}
	return r
}
