package fonts

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmbeddedTimes(t *testing.T) {
	for _, path := range []string{"embed:times-roman", "times-roman", "embed:times-roman.json"} {
		tbl, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q) 失败: %v", path, err)
		}
		if tbl.UnitsPerEm != 1000 {
			t.Fatalf("unitsPerEm 期望 1000，实际 %g", tbl.UnitsPerEm)
		}
		space, ok := tbl.Width(' ')
		if !ok || space != 250 {
			t.Fatalf("空格宽度期望 250，实际 %g (ok=%v)", space, ok)
		}
		thin, ok := tbl.Width('\u2009')
		if !ok || thin <= 0 || thin >= space {
			t.Fatalf("窄空格宽度必须在 (0, %g) 之间，实际 %g", space, thin)
		}
	}
}

func TestLoadMissingEmbedded(t *testing.T) {
	if _, err := Load("embed:helvetica"); err == nil {
		t.Fatalf("expected error for unknown embedded table")
	}
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.json")
	body := `{"name":"mono","unitsPerEm":1000,"widths":{"a":600," ":600}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tbl, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Default != 500 {
		t.Fatalf("missing default should be half an em, got %g", tbl.Default)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 widths, got %d", tbl.Len())
	}
}

func TestParseRejectsMultiRuneKeys(t *testing.T) {
	if _, err := Parse([]byte(`{"name":"bad","unitsPerEm":1000,"widths":{"ab":1}}`)); err == nil {
		t.Fatalf("expected error for multi-rune key")
	}
	if _, err := Parse([]byte(`{"name":"bad","widths":{}}`)); err == nil {
		t.Fatalf("expected error for missing unitsPerEm")
	}
}
