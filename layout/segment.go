package layout

import (
	"math"
	"strings"
	"unicode"
)

type span struct{ start, end int }

// SegmentLines 使用贪心换行把文本拆成渲染器会得到的可视行。
// 约定：
//   - 空文本或纯空白返回 nil（零行），调用方需要自行补齐固定行数；
//   - 宽于预算的单词独占一行并标记 Overflow，不做连字符拆分；
//   - 首行从 0 开始、末行到文本结尾，保留首尾空白；折行处的空白不属于任何一行；
//   - 显式换行强制断行，同一空白段中的额外换行产生空行；
//     首个单词前、末个单词后的换行同样各产生一行。
//
// budget<=0 视为不限宽度。
func SegmentLines(text string, budget float64, m Measurer) []Segment {
	if m == nil {
		m = DefaultMeasurer()
	}
	if budget <= 0 {
		budget = math.MaxFloat64
	}
	runes := []rune(text)
	words := scanWords(runes)
	if len(words) == 0 {
		return nil
	}

	var out []Segment
	emit := func(start, end int, forced bool) {
		out = append(out, buildSegment(runes, start, end, budget, m, forced))
	}

	// 首个单词之前的每个换行各结束一行（通常为空行）
	lineStart := 0
	for nl := indexNewline(runes, 0, words[0].start); nl >= 0; nl = indexNewline(runes, nl+1, words[0].start) {
		emit(lineStart, nl, true)
		lineStart = nl + 1
	}
	lineEnd := words[0].end
	for i := 1; i < len(words); i++ {
		gapStart, gapEnd := words[i-1].end, words[i].start
		if breaks := countNewlines(runes[gapStart:gapEnd]); breaks > 0 {
			emit(lineStart, lineEnd, true)
			pos := gapStart
			for k := 1; k < breaks; k++ {
				pos = afterNewline(runes, pos, gapEnd)
				out = append(out, Segment{Start: pos, End: pos, Forced: true})
			}
			lineStart, lineEnd = words[i].start, words[i].end
			continue
		}
		if m.MeasureWidth(string(runes[lineStart:words[i].end])) <= budget {
			lineEnd = words[i].end
			continue
		}
		emit(lineStart, lineEnd, false)
		lineStart, lineEnd = words[i].start, words[i].end
	}
	// 末个单词之后的换行同理，最后一行延伸到文本结尾
	for nl := indexNewline(runes, lineEnd, len(runes)); nl >= 0; nl = indexNewline(runes, nl+1, len(runes)) {
		emit(lineStart, nl, true)
		lineStart = nl + 1
	}
	emit(lineStart, len(runes), false)
	return out
}

// LineCount 返回文本折行后的行数。
func LineCount(text string, budget float64, m Measurer) int {
	return len(SegmentLines(text, budget, m))
}

// Fits 判断文本在 budget 宽度下能否容纳于 lines 行内；lines<=0 表示不限行数。
func Fits(text string, budget float64, lines int, m Measurer) bool {
	if lines <= 0 {
		return true
	}
	return LineCount(text, budget, m) <= lines
}

// JoinSegments 按顺序拼接各行，软换行处补回一个普通空格，显式换行处补回 "\n"。
func JoinSegments(segs []Segment) string {
	var b strings.Builder
	for i, s := range segs {
		if i > 0 {
			if segs[i-1].Forced {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// IsBreakSpace 判断字符是否为可断行的空白。不换行空格（NBSP 等）视为词的一部分。
func IsBreakSpace(r rune) bool {
	switch r {
	case '\u00a0', '\u2007', '\u202f':
		return false
	}
	return unicode.IsSpace(r)
}

func buildSegment(runes []rune, start, end int, budget float64, m Measurer, forced bool) Segment {
	text := string(runes[start:end])
	visible := strings.TrimRightFunc(text, IsBreakSpace)
	width := m.MeasureWidth(visible)
	return Segment{
		Text:       text,
		Start:      start,
		End:        end,
		Width:      width,
		Compressed: ThinSpace.In(text),
		Overflow:   width > budget,
		Forced:     forced,
	}
}

func scanWords(runes []rune) []span {
	var words []span
	start := -1
	for i, r := range runes {
		if IsBreakSpace(r) {
			if start >= 0 {
				words = append(words, span{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, span{start, len(runes)})
	}
	return words
}

func countNewlines(gap []rune) int {
	n := 0
	for _, r := range gap {
		if r == '\n' {
			n++
		}
	}
	return n
}

func afterNewline(runes []rune, from, limit int) int {
	for i := from; i < limit; i++ {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	return limit
}

// indexNewline 返回 [from,limit) 中第一个换行的下标，没有时返回 -1。
func indexNewline(runes []rune, from, limit int) int {
	for i := from; i < limit; i++ {
		if runes[i] == '\n' {
			return i
		}
	}
	return -1
}
