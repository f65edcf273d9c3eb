// Package density rewrites statement text to change how much of it fits on a
// visual line without changing what it says.
//
// Compress and Normalize are inverse, idempotent rewrites of inter-word
// spaces. Shorten and Lengthen swap whole words for standard abbreviations.
// All functions work on rune offsets so callers can apply them to one wrapped
// line of a larger statement and splice the result back.
package density

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/epbkit/linefit/layout"
)

// Marker is the narrow-space rune written by Compress.
const Marker = layout.ThinSpace

// ErrRange reports a rune range that does not fit the text.
var ErrRange = errors.New("density: range out of bounds")

// Compress replaces every ordinary space that is safe to narrow with Marker
// and returns the rune offsets it touched. A space is safe when both
// neighbours are visible characters, it does not sit between two digits and
// it is not next to a dash or slash. Text that is already fully compressed is
// returned unchanged with no offsets.
func Compress(text string) (string, []int) {
	runes := []rune(text)
	var touched []int
	for i, r := range runes {
		if r != ' ' || !safeToNarrow(runes, i) {
			continue
		}
		runes[i] = Marker.Rune()
		touched = append(touched, i)
	}
	if len(touched) == 0 {
		return text, nil
	}
	return string(runes), touched
}

// Normalize replaces every Marker with an ordinary space.
func Normalize(text string) string {
	if !Marker.In(text) {
		return text
	}
	return strings.ReplaceAll(text, Marker.String(), " ")
}

// IsCompressed reports whether text carries at least one Marker.
func IsCompressed(text string) bool { return Marker.In(text) }

// CompressRange compresses runes [start, end) of text and splices the result
// back. Offsets returned are relative to the whole text.
func CompressRange(text string, start, end int) (string, []int, error) {
	runes := []rune(text)
	if err := checkRange(len(runes), start, end); err != nil {
		return text, nil, err
	}
	part, touched := Compress(string(runes[start:end]))
	for i := range touched {
		touched[i] += start
	}
	return splice(runes, start, end, part), touched, nil
}

// NormalizeRange normalizes runes [start, end) of text.
func NormalizeRange(text string, start, end int) (string, error) {
	return ApplyRange(text, start, end, Normalize)
}

// ApplyRange rewrites runes [start, end) of text with fn.
func ApplyRange(text string, start, end int, fn func(string) string) (string, error) {
	runes := []rune(text)
	if err := checkRange(len(runes), start, end); err != nil {
		return text, err
	}
	return splice(runes, start, end, fn(string(runes[start:end]))), nil
}

// Splice replaces runes [start, end) of text with repl.
func Splice(text string, start, end int, repl string) (string, error) {
	runes := []rune(text)
	if err := checkRange(len(runes), start, end); err != nil {
		return text, err
	}
	return splice(runes, start, end, repl), nil
}

func splice(runes []rune, start, end int, repl string) string {
	var b strings.Builder
	b.Grow(len(runes) + len(repl))
	b.WriteString(string(runes[:start]))
	b.WriteString(repl)
	b.WriteString(string(runes[end:]))
	return b.String()
}

func checkRange(n, start, end int) error {
	if start < 0 || end < start || end > n {
		return fmt.Errorf("%w: [%d,%d) of %d", ErrRange, start, end, n)
	}
	return nil
}

func safeToNarrow(runes []rune, i int) bool {
	if i == 0 || i == len(runes)-1 {
		return false
	}
	prev, next := runes[i-1], runes[i+1]
	if layout.IsBreakSpace(prev) || layout.IsBreakSpace(next) {
		return false
	}
	if unicode.IsDigit(prev) && unicode.IsDigit(next) {
		return false
	}
	return !isSpacingPunct(prev) && !isSpacingPunct(next)
}

func isSpacingPunct(r rune) bool {
	switch r {
	case '-', '\u2010', '\u2011', '\u2013', '\u2014', '/':
		return true
	}
	return false
}
