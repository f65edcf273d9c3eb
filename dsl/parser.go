// Package dsl 解析表单配置文件：表单名、字体、行宽，以及各语句槽位的字符/行数预算。
//
//	form AF1206 v1 {
//	  font: "embed:times-roman"
//	  size: 12pt
//	  line-width: 680px
//	  slot narrative { lines: 2; limit: 250 }
//	}
package dsl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	dslLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `(?:\d+\.\d+|\d+)(?:px|pt|mm|cm|in)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[=:;,]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	fileParser = participle.MustBuild[File](
		participle.Lexer(dslLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// File 为配置文件根节点，可包含多个表单。
type File struct {
	Forms []*Form `parser:"Newline* ( @@ Newline* )*"`
}

// Form 描述一种表单。
type Form struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Name    string         `parser:"'form' @Ident"`
	Version string         `parser:"@Ident?"`
	Entries []*Entry       `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Entry 为表单体中的一项。
type Entry struct {
	Slot          *SlotDecl    `parser:"  @@"`
	Abbreviations *AbbrevBlock `parser:"| @@"`
	Property      *Property    `parser:"| @@"`
}

// Kind 返回条目类型名。
func (e *Entry) Kind() string {
	switch {
	case e == nil:
		return "unknown"
	case e.Slot != nil:
		return "slot"
	case e.Abbreviations != nil:
		return "abbreviations"
	case e.Property != nil:
		return "property"
	default:
		return "unknown"
	}
}

// SlotDecl 声明一个语句槽位。
type SlotDecl struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"'slot' @Ident"`
	Props []*Property    `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// AbbrevBlock 列出额外的缩写对："long" = "short"。
type AbbrevBlock struct {
	Pairs []*AbbrevPair `parser:"'abbreviations' '{' Newline* ( @@ ( ';' | ',' | Newline )* )* '}'"`
}

// AbbrevPair 为一组全称/缩写。
type AbbrevPair struct {
	Long  StringLiteral `parser:"@String"`
	Short StringLiteral `parser:"'=' @String"`
}

// Property 使用冒号语法（key: value）。
type Property struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident"`
	Value *Value         `parser:"':' @@"`
}

// Value 为属性值。
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Bool   *string        `parser:"| @( 'true' | 'false' )"`
	Ident  *string        `parser:"| @Ident"`
}

// Raw 返回值的文本形式。
func (v *Value) Raw() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Bool != nil:
		return *v.Bool
	case v.Ident != nil:
		return *v.Ident
	default:
		return ""
	}
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Parse 从 io.Reader 解析配置；filename 仅用于错误信息。
func Parse(filename string, r io.Reader) (*File, error) {
	return fileParser.Parse(filename, r)
}

// ParseString 解析配置字符串。
func ParseString(input string) (*File, error) {
	return fileParser.ParseString("", input)
}
