package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/epbkit/linefit/density"
	"github.com/epbkit/linefit/fit"
	"github.com/epbkit/linefit/layout"
)

// table 按显示宽度对齐输出列，兼容中文表头。
type table struct {
	header []string
	rows   [][]string
}

func newTable(header ...string) *table { return &table{header: header} }

func (t *table) add(cols ...string) { t.rows = append(t.rows, cols) }

func (t *table) render(w io.Writer) error {
	widths := make([]int, len(t.header))
	for _, row := range append([][]string{t.header}, t.rows...) {
		for i, c := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(c))
			}
		}
	}
	for _, row := range append([][]string{t.header}, t.rows...) {
		cells := make([]string, len(row))
		for i, c := range row {
			if i < len(row)-1 && i < len(widths) {
				c = runewidth.FillRight(c, widths[i])
			}
			cells[i] = c
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "  ")); err != nil {
			return err
		}
	}
	return nil
}

// visible 将窄空格显示为中点，便于在终端中辨认。
func visible(text string) string {
	return strings.ReplaceAll(text, density.Marker.String(), "\u00b7")
}

func ratio(used, limit int) string {
	if limit <= 0 {
		return strconv.Itoa(used)
	}
	return fmt.Sprintf("%d/%d", used, limit)
}

// status 汇总一条语句的状态，例如 "fitting 超出 12 字符"。
func status(rep fit.Report) string {
	parts := []string{rep.StateName}
	if rep.OverChars > 0 {
		parts = append(parts, fmt.Sprintf("超出 %d 字符", rep.OverChars))
	}
	if rep.OverLines > 0 {
		parts = append(parts, fmt.Sprintf("超出 %d 行", rep.OverLines))
	}
	return strings.Join(parts, " ")
}

func summary(rep fit.Report) string {
	return fmt.Sprintf("%s  字符 %s  行 %s  %s", rep.Slot, ratio(rep.UsedChars, rep.CharLimit), ratio(rep.UsedLines, rep.LineLimit), status(rep))
}

func segmentFlags(seg layout.Segment) string {
	var b strings.Builder
	if seg.Compressed {
		b.WriteByte('c')
	}
	if seg.Overflow {
		b.WriteByte('o')
	}
	if seg.Forced {
		b.WriteByte('n')
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

// writeRows 输出每一行（含补齐的空行）的位置、宽度与文本。
func writeRows(w io.Writer, rows []fit.Row) error {
	t := newTable("#", "起", "止", "宽度", "标记", "文本")
	for _, row := range rows {
		if !row.Exists {
			t.add(strconv.Itoa(row.Index), "-", "-", "-", "-", "")
			continue
		}
		seg := row.Segment
		t.add(strconv.Itoa(row.Index), strconv.Itoa(seg.Start), strconv.Itoa(seg.End),
			strconv.FormatFloat(seg.Width, 'f', 1, 64), segmentFlags(seg), visible(seg.Text))
	}
	return t.render(w)
}

func writeReport(w io.Writer, rep fit.Report) error {
	if _, err := fmt.Fprintln(w, summary(rep)); err != nil {
		return err
	}
	return writeRows(w, rep.Rows)
}
