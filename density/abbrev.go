package density

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/epbkit/linefit/layout"
)

// Abbreviation pairs a long form with the short form used on performance
// statements.
type Abbreviation struct {
	Long  string
	Short string
}

// DefaultAbbreviations is the word list used by Shorten and Lengthen.
var DefaultAbbreviations = []Abbreviation{
	{"and", "&"},
	{"with", "w/"},
	{"without", "w/o"},
	{"through", "thru"},
	{"maintenance", "maint"},
	{"management", "mgmt"},
	{"operations", "ops"},
	{"operational", "ops"},
	{"squadron", "sq"},
	{"training", "trng"},
	{"equipment", "equip"},
	{"personnel", "pers"},
	{"government", "gov't"},
	{"hours", "hrs"},
	{"months", "mos"},
	{"information", "info"},
	{"inspection", "insp"},
	{"communications", "comm"},
	{"administration", "admin"},
	{"organization", "org"},
	{"requirements", "reqs"},
	{"program", "prgm"},
	{"approximately", "~"},
}

// Abbreviator rewrites whole words using a fixed table.
type Abbreviator struct {
	short map[string]string
	long  map[string]string
}

// NewAbbreviator builds an Abbreviator. When two long forms share a short
// form the first one wins for Lengthen.
func NewAbbreviator(pairs []Abbreviation) *Abbreviator {
	a := &Abbreviator{
		short: make(map[string]string, len(pairs)),
		long:  make(map[string]string, len(pairs)),
	}
	for _, p := range pairs {
		a.short[strings.ToLower(p.Long)] = p.Short
		key := strings.ToLower(p.Short)
		if _, ok := a.long[key]; !ok {
			a.long[key] = p.Long
		}
	}
	return a
}

var defaultAbbreviator = NewAbbreviator(DefaultAbbreviations)

// Shorten replaces long forms with their abbreviations.
func Shorten(text string) string { return defaultAbbreviator.Shorten(text) }

// Lengthen replaces abbreviations with their long forms.
func Lengthen(text string) string { return defaultAbbreviator.Lengthen(text) }

// Shorten replaces long forms with their abbreviations.
func (a *Abbreviator) Shorten(text string) string { return rewriteWords(text, a.short) }

// Lengthen replaces abbreviations with their long forms.
func (a *Abbreviator) Lengthen(text string) string { return rewriteWords(text, a.long) }

// rewriteWords walks whitespace-delimited tokens, keeping whitespace and
// surrounding punctuation exactly as they were.
func rewriteWords(text string, table map[string]string) string {
	var b strings.Builder
	b.Grow(len(text))
	var word strings.Builder
	flush := func() {
		if word.Len() == 0 {
			return
		}
		b.WriteString(rewriteToken(word.String(), table))
		word.Reset()
	}
	for _, r := range text {
		if layout.IsBreakSpace(r) {
			flush()
			b.WriteRune(r)
			continue
		}
		word.WriteRune(r)
	}
	flush()
	return b.String()
}

func rewriteToken(token string, table map[string]string) string {
	core := strings.TrimLeft(token, `"'(`)
	prefix := token[:len(token)-len(core)]
	trimmed := strings.TrimRight(core, `,.;:!?)"'`)
	suffix := core[len(trimmed):]
	if trimmed == "" {
		return token
	}
	repl, ok := table[strings.ToLower(trimmed)]
	if !ok {
		return token
	}
	return prefix + matchCase(trimmed, repl) + suffix
}

// matchCase carries the capitalisation of src over to repl: all caps stays
// all caps, a leading capital stays a leading capital.
func matchCase(src, repl string) string {
	if utf8.RuneCountInString(src) > 1 && strings.ToUpper(src) == src && strings.ToLower(src) != src {
		return strings.ToUpper(repl)
	}
	first, _ := utf8.DecodeRuneInString(src)
	if unicode.IsUpper(first) {
		r, size := utf8.DecodeRuneInString(repl)
		return string(unicode.ToUpper(r)) + repl[size:]
	}
	return repl
}
