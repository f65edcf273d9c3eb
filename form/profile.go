// Package form 将表单配置（dsl）构建为可用的 Profile：字体、字号、行宽与各槽位预算。
package form

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/epbkit/linefit/density"
	"github.com/epbkit/linefit/dsl"
	"github.com/epbkit/linefit/fit"
	"github.com/epbkit/linefit/fonts"
	"github.com/epbkit/linefit/layout"
)

// AF1206LineWidth 为 AF Form 1206 叙述栏的标准行宽（px，96 DPI）。
const AF1206LineWidth = 680.0

//go:embed builtin.form
var builtinSource string

var ErrUnknownForm = errors.New("form: unknown form")

// Slot 为一个语句槽位的定义。
type Slot struct {
	Name   string     `json:"name"`
	Label  string     `json:"label,omitempty"`
	Budget fit.Budget `json:"budget"`
}

// Profile 为构建后的表单。
type Profile struct {
	Name          string                 `json:"name"`
	Version       string                 `json:"version,omitempty"`
	Title         string                 `json:"title,omitempty"`
	Font          string                 `json:"font"`               // 字宽表，fonts.Load 的参数
	FontFile      string                 `json:"fontFile,omitempty"` // 可选 TTF/OTF，用于预览与精确测量
	Size          float64                `json:"size"`               // pt
	LineWidth     float64                `json:"lineWidth"`          // px，0 表示不限
	Abbreviations []density.Abbreviation `json:"abbreviations,omitempty"`
	Slots         []Slot                 `json:"slots"`
}

// Slot 按名称查找槽位。
func (p *Profile) Slot(name string) (Slot, bool) {
	for _, s := range p.Slots {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Slot{}, false
}

// Measurer 加载字宽表并按字号构建测量器。
func (p *Profile) Measurer() (*layout.TableMeasurer, error) {
	table, err := fonts.Load(p.Font)
	if err != nil {
		return nil, fmt.Errorf("form %s: %w", p.Name, err)
	}
	return layout.NewTableMeasurer(table, p.Size), nil
}

// Abbreviator 返回自定义缩写优先、内置缩写兜底的改写器。
func (p *Profile) Abbreviator() *density.Abbreviator {
	pairs := make([]density.Abbreviation, 0, len(p.Abbreviations)+len(density.DefaultAbbreviations))
	pairs = append(pairs, p.Abbreviations...)
	pairs = append(pairs, density.DefaultAbbreviations...)
	return density.NewAbbreviator(pairs)
}

// NewSlot 按槽位定义创建 fit.Slot；opts 中未设置的测量器与缩写表取自 Profile。
func (p *Profile) NewSlot(name string, opts fit.Options) (*fit.Slot, error) {
	def, ok := p.Slot(name)
	if !ok {
		return nil, fmt.Errorf("form %s: 未定义的槽位 %q", p.Name, name)
	}
	if opts.Measurer == nil {
		m, err := p.Measurer()
		if err != nil {
			return nil, err
		}
		opts.Measurer = m
	}
	if opts.Abbreviator == nil {
		opts.Abbreviator = p.Abbreviator()
	}
	return fit.New(def.Name, def.Budget, opts), nil
}

// Build 将解析结果构建为 Profile 列表。
func Build(file *dsl.File) ([]*Profile, error) {
	if file == nil || len(file.Forms) == 0 {
		return nil, errors.New("form: 配置中没有 form 定义")
	}
	seen := make(map[string]bool, len(file.Forms))
	out := make([]*Profile, 0, len(file.Forms))
	for _, f := range file.Forms {
		key := strings.ToLower(f.Name)
		if seen[key] {
			return nil, fmt.Errorf("%s: 重复的 form %q", f.Pos, f.Name)
		}
		seen[key] = true
		p, err := buildForm(f)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Parse 解析并构建配置文本。
func Parse(src string) ([]*Profile, error) {
	file, err := dsl.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("解析表单配置失败: %w", err)
	}
	return Build(file)
}

// LoadFile 读取并构建配置文件。
func LoadFile(path string) ([]*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取表单配置失败: %w", err)
	}
	defer f.Close()
	file, err := dsl.Parse(path, f)
	if err != nil {
		return nil, fmt.Errorf("解析表单配置失败: %w", err)
	}
	return Build(file)
}

var builtins = mustBuiltins()

func mustBuiltins() []*Profile {
	profiles, err := Parse(builtinSource)
	if err != nil {
		panic(fmt.Sprintf("form: builtin profiles: %v", err))
	}
	return profiles
}

// Builtins 返回内置表单（AF1206、EPB）的副本。
func Builtins() []*Profile {
	out := make([]*Profile, len(builtins))
	for i, p := range builtins {
		out[i] = p.clone()
	}
	return out
}

// Lookup 在 profiles 中按名称（不区分大小写）查找；profiles 为空时查找内置表单。
func Lookup(name string, profiles ...*Profile) (*Profile, error) {
	if len(profiles) == 0 {
		profiles = builtins
	}
	for _, p := range profiles {
		if strings.EqualFold(p.Name, name) {
			return p.clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownForm, name)
}

func (p *Profile) clone() *Profile {
	cp := *p
	cp.Abbreviations = append([]density.Abbreviation(nil), p.Abbreviations...)
	cp.Slots = append([]Slot(nil), p.Slots...)
	return &cp
}

func buildForm(f *dsl.Form) (*Profile, error) {
	p := &Profile{
		Name:    f.Name,
		Version: f.Version,
		Font:    "embed:" + fonts.DefaultTable,
		Size:    layout.DefaultFontSize,
	}
	for _, e := range f.Entries {
		switch {
		case e.Property != nil:
			if err := applyFormProperty(p, e.Property); err != nil {
				return nil, err
			}
		case e.Abbreviations != nil:
			for _, pair := range e.Abbreviations.Pairs {
				long, short := strings.TrimSpace(string(pair.Long)), strings.TrimSpace(string(pair.Short))
				if long == "" || short == "" {
					return nil, fmt.Errorf("form %s: 缩写不能为空", f.Name)
				}
				p.Abbreviations = append(p.Abbreviations, density.Abbreviation{Long: long, Short: short})
			}
		case e.Slot != nil:
			if _, dup := p.Slot(e.Slot.Name); dup {
				return nil, fmt.Errorf("%s: 重复的槽位 %q", e.Slot.Pos, e.Slot.Name)
			}
			s, err := buildSlot(p, e.Slot)
			if err != nil {
				return nil, err
			}
			p.Slots = append(p.Slots, s)
		}
	}
	if len(p.Slots) == 0 {
		return nil, fmt.Errorf("%s: form %q 至少需要一个 slot", f.Pos, f.Name)
	}
	// 未单独设置宽度的槽位继承表单行宽
	for i := range p.Slots {
		if p.Slots[i].Budget.LineWidth == 0 {
			p.Slots[i].Budget.LineWidth = p.LineWidth
		}
	}
	return p, nil
}

func applyFormProperty(p *Profile, prop *dsl.Property) error {
	raw := prop.Value.Raw()
	switch prop.Key {
	case "title":
		p.Title = raw
	case "font":
		p.Font = raw
	case "font-file":
		p.FontFile = raw
	case "size":
		size, err := parseFontSize(prop.Pos, raw)
		if err != nil {
			return err
		}
		p.Size = size
	case "line-width":
		w, err := parseWidth(prop.Pos, raw)
		if err != nil {
			return err
		}
		p.LineWidth = w
	default:
		return fmt.Errorf("%s: 未知的表单属性 %q", prop.Pos, prop.Key)
	}
	return nil
}

func buildSlot(p *Profile, decl *dsl.SlotDecl) (Slot, error) {
	s := Slot{Name: decl.Name}
	for _, prop := range decl.Props {
		raw := prop.Value.Raw()
		switch prop.Key {
		case "label":
			s.Label = raw
		case "lines":
			n, err := parseCount(prop.Pos, raw)
			if err != nil {
				return Slot{}, err
			}
			s.Budget.Lines = n
		case "limit":
			n, err := parseCount(prop.Pos, raw)
			if err != nil {
				return Slot{}, err
			}
			s.Budget.CharLimit = n
		case "width":
			w, err := parseWidth(prop.Pos, raw)
			if err != nil {
				return Slot{}, err
			}
			s.Budget.LineWidth = w
		default:
			return Slot{}, fmt.Errorf("%s: 槽位 %s 的未知属性 %q", prop.Pos, decl.Name, prop.Key)
		}
	}
	return s, nil
}

func parseCount(pos lexer.Position, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: 需要非负整数，得到 %q", pos, raw)
	}
	return n, nil
}

// parseWidth 解析长度并转换为 px；不带单位视为 px。
func parseWidth(pos lexer.Position, raw string) (float64, error) {
	l, ok := layout.ParseLength(raw)
	if !ok || l.Value < 0 {
		return 0, fmt.Errorf("%s: 无效的长度 %q", pos, raw)
	}
	return roundPx(l.PX()), nil
}

// parseFontSize 解析字号并转换为 pt；不带单位视为 pt。
func parseFontSize(pos lexer.Position, raw string) (float64, error) {
	l, ok := layout.ParseLength(raw)
	if !ok || l.Value <= 0 {
		return 0, fmt.Errorf("%s: 无效的字号 %q", pos, raw)
	}
	if l.Unit == layout.UnitNone || l.Unit == layout.UnitPT {
		return l.Value, nil
	}
	return l.PT(), nil
}

func roundPx(v float64) float64 { return math.Round(v*1000) / 1000 }
