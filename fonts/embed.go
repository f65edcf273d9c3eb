package fonts

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

//go:embed tables/*.json
var tableFS embed.FS

// DefaultTable 是内置的 Times New Roman 宽度表名称。
const DefaultTable = "times-roman"

// Table 为按字符查询的字宽表，宽度单位为 1/UnitsPerEm em。
type Table struct {
	Name       string
	Family     string
	UnitsPerEm float64
	Default    float64
	widths     map[rune]float64
}

type tableFile struct {
	Name       string             `json:"name"`
	Family     string             `json:"family"`
	UnitsPerEm float64            `json:"unitsPerEm"`
	Default    float64            `json:"default"`
	Widths     map[string]float64 `json:"widths"`
}

// Width 返回字符宽度，未收录时 ok 为 false。
func (t *Table) Width(r rune) (float64, bool) {
	if t == nil {
		return 0, false
	}
	w, ok := t.widths[r]
	return w, ok
}

// Len 返回收录的字符数量。
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.widths)
}

// Load 读取宽度表，path 可写为 "embed:times-roman"、"times-roman" 或磁盘上的 JSON 文件路径。
func Load(path string) (*Table, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(path, "embed:") || !strings.ContainsAny(path, "/\\."):
		name := strings.TrimSuffix(strings.TrimPrefix(path, "embed:"), ".json")
		target := "tables/" + name + ".json"
		data, err = tableFS.ReadFile(target)
		if err != nil {
			return nil, fmt.Errorf("读取内置字宽表 %s 失败: %w", target, err)
		}
	default:
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取字宽表 %s 失败: %w", path, err)
		}
	}
	return Parse(data)
}

// MustLoad 与 Load 相同，失败时 panic，仅用于内置表。
func MustLoad(path string) *Table {
	t, err := Load(path)
	if err != nil {
		panic(err)
	}
	return t
}

// Parse 解析 JSON 格式的字宽表。
func Parse(data []byte) (*Table, error) {
	var raw tableFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("解析字宽表失败: %w", err)
	}
	if raw.UnitsPerEm <= 0 {
		return nil, fmt.Errorf("字宽表 %s 缺少 unitsPerEm", raw.Name)
	}
	t := &Table{
		Name:       raw.Name,
		Family:     raw.Family,
		UnitsPerEm: raw.UnitsPerEm,
		Default:    raw.Default,
		widths:     make(map[rune]float64, len(raw.Widths)),
	}
	if t.Default <= 0 {
		t.Default = raw.UnitsPerEm / 2
	}
	for key, w := range raw.Widths {
		if utf8.RuneCountInString(key) != 1 {
			return nil, fmt.Errorf("字宽表 %s 的键 %q 必须是单个字符", raw.Name, key)
		}
		if w < 0 {
			return nil, fmt.Errorf("字宽表 %s 中 %q 的宽度为负数", raw.Name, key)
		}
		r, _ := utf8.DecodeRuneInString(key)
		t.widths[r] = w
	}
	return t, nil
}
