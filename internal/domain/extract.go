package domain

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// DefaultPrefixWidth is the rune width of the lead word that opens every
	// post in the feed, e.g. "bugün".
	DefaultPrefixWidth = 5

	// DefaultScanStart is the first rune index searched for a word boundary
	// when a post has no comma. The shortest place phrases in the feed end
	// past this point.
	DefaultScanStart = 20
)

// Extractor pulls a candidate address fragment out of a lower-cased post.
// The zero value is not usable; use NewExtractor.
type Extractor struct {
	Table       AbbreviationTable
	PrefixWidth int
	ScanStart   int
}

// NewExtractor returns an Extractor with the feed's default offsets. A nil
// table selects TurkishAbbreviations.
func NewExtractor(table AbbreviationTable) *Extractor {
	if table == nil {
		table = TurkishAbbreviations
	}
	return &Extractor{
		Table:       table,
		PrefixWidth: DefaultPrefixWidth,
		ScanStart:   DefaultScanStart,
	}
}

var defaultExtractor = NewExtractor(nil)

// ExtractAddress runs the default Turkish extractor over text.
func ExtractAddress(text string) string {
	return defaultExtractor.Extract(text)
}

// LowerText folds text with Turkish casing rules (I -> ı, İ -> i), which is
// what the abbreviation table is written against.
func LowerText(text string) string {
	// cases.Caser is stateful; one per call keeps LowerText goroutine-safe.
	return cases.Lower(language.Turkish).String(text)
}

// Extract returns the address fragment of text, which must already be lower
// case. It never panics: inputs too short for the offsets, or with no word
// boundary after ScanStart, yield "".
//
// Extract is not idempotent. Its output is an address, not a post, and feeding
// it back in re-applies the prefix cut and the abbreviation table.
func (e *Extractor) Extract(text string) string {
	address := e.fragment([]rune(text))
	if address == "" {
		return ""
	}

	address = e.Table.Expand(address)

	// Anything after a hyphen or a leftover period is trailing commentary.
	if i := strings.IndexByte(address, '-'); i >= 0 {
		address = address[:i]
	}
	if i := strings.IndexByte(address, '.'); i >= 0 {
		address = address[:i]
	}

	address = strings.ReplaceAll(address, "  ", " ")
	return strings.ReplaceAll(address, "#", "")
}

// fragment cuts the place phrase out of the post using the comma or the first
// word boundary after ScanStart.
func (e *Extractor) fragment(runes []rune) string {
	if len(runes) <= e.PrefixWidth {
		return ""
	}

	if !slices.Contains(runes, ',') {
		for i := max(e.ScanStart, 0); i < len(runes); i++ {
			if runes[i] == ' ' {
				if i <= e.PrefixWidth {
					return ""
				}
				return string(runes[e.PrefixWidth:i])
			}
		}
		return ""
	}

	rest := string(runes[e.PrefixWidth:])
	head, _, _ := strings.Cut(rest, ",")
	return head
}
