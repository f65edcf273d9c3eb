package binding

import (
	"strings"
	"testing"
)

func TestInterpolateNestedPaths(t *testing.T) {
	data := map[string]interface{}{
		"slot": map[string]interface{}{
			"name":  "narrative",
			"lines": []interface{}{"first", "second"},
		},
		"limits": map[string]string{"chars": "250"},
		"tags":   []string{"MPA", "EXEC"},
	}
	got, err := Interpolate("${slot.name}: ${slot.lines[1]} / ${limits.chars} / ${tags[0]}", data)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	if want := "narrative: second / 250 / MPA"; got != want {
		t.Fatalf("Interpolate = %q, want %q", got, want)
	}
}

func TestInterpolateReportsMissing(t *testing.T) {
	out, err := Interpolate("${a} ${b} ${c[3]}", map[string]interface{}{"a": 1, "c": []interface{}{}})
	if err == nil {
		t.Fatalf("expected error for unresolved placeholders")
	}
	if !strings.Contains(err.Error(), "b") || !strings.Contains(err.Error(), "c[3]") {
		t.Fatalf("error should list missing paths, got %v", err)
	}
	if out != "1 ${b} ${c[3]}" {
		t.Fatalf("unresolved placeholders should be kept, got %q", out)
	}
	if _, err := Interpolate("nil ${x}", nil); err == nil {
		t.Fatalf("nil data should report the placeholder as missing")
	}
	if _, err := Interpolate("${ }", map[string]interface{}{}); err == nil {
		t.Fatalf("empty path should be reported")
	}
}

func TestInterpolateDoesNotRescanValues(t *testing.T) {
	data := map[string]interface{}{"text": "${other}", "other": "boom"}
	got, err := Interpolate("[${text}]", data)
	if err != nil || got != "[${other}]" {
		t.Fatalf("values must be inserted verbatim, got %q, %v", got, err)
	}
}
