package layout

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDebugDump(t *testing.T) {
	text := "Led 12\u2009Airmen through UCI prep"
	segs := SegmentLines(text, 200, DefaultMeasurer())
	d := NewDebugDump(text, 200, segs)
	if len(d.Lines) != 2 {
		t.Fatalf("unexpected line count %d", len(d.Lines))
	}
	markers := 0
	for i, l := range d.Lines {
		markers += l.Markers
		if l.Slack != 200-segs[i].Width {
			t.Fatalf("line %d slack %g, want %g", i, l.Slack, 200-segs[i].Width)
		}
	}
	if markers != 1 {
		t.Fatalf("markers = %d, want 1", markers)
	}
	if unlimited := NewDebugDump(text, 0, segs); unlimited.Lines[0].Slack != 0 {
		t.Fatalf("slack without a budget should be 0")
	}
}

func TestWriteDebugJSONCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dump.json")
	d := NewDebugDump("Led 12 Airmen", 680, SegmentLines("Led 12 Airmen", 680, DefaultMeasurer()))
	if err := WriteDebugJSON(d, path); err != nil {
		t.Fatalf("WriteDebugJSON: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got struct {
		Budget float64 `json:"budget"`
		Lines  []struct {
			Text  string `json:"text"`
			Start int    `json:"start"`
		} `json:"lines"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Budget != 680 || len(got.Lines) != 1 || got.Lines[0].Text != "Led 12 Airmen" {
		t.Fatalf("unexpected dump: %+v", got)
	}
	if err := WriteDebugJSON(nil, path); err != nil {
		t.Fatalf("nil value should be a no-op: %v", err)
	}
}
