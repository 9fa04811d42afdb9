package domain

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Abbreviation is a literal substring replacement applied to a fragment.
type Abbreviation struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// AbbreviationTable is an ordered list of replacements. Entries run in order,
// each over the output of the previous one, so a specific pattern must come
// before any generic pattern that is a substring of it.
type AbbreviationTable []Abbreviation

// TurkishAbbreviations is the table for the Istanbul news feed. The trailing
// spaces in replacements are intentional: they keep an expansion from gluing
// onto the next word, and doubled spaces are collapsed afterwards.
var TurkishAbbreviations = AbbreviationTable{
	{Pattern: "ist.", Replacement: "istanbul "},
	{Pattern: "adl.", Replacement: "adliyesi "},
	{Pattern: "gs myd.", Replacement: "galatasaray meydanı"},
	{Pattern: " myd.", Replacement: " meydanı "},
	{Pattern: "cd.", Replacement: "caddesi "},
	{Pattern: " cd ", Replacement: "caddesi "},
	{Pattern: "sk.", Replacement: "sokağı "},
	{Pattern: " sk ", Replacement: "sokağı "},
	{Pattern: " gs ", Replacement: "galatasaray "},
	{Pattern: "uni.", Replacement: "üniversitesi "},
	{Pattern: "üni.", Replacement: "üniversitesi "},
	{Pattern: "mah.", Replacement: "mahallesi "},
	{Pattern: "blv.", Replacement: "bulvarı "},
}

// Expand applies every replacement in table order.
func (t AbbreviationTable) Expand(s string) string {
	for _, a := range t {
		s = strings.ReplaceAll(s, a.Pattern, a.Replacement)
	}
	return s
}

// LoadAbbreviations reads a YAML sequence of pattern/replacement mappings,
// e.g. `[{pattern: "cd.", replacement: "caddesi "}]`. Entry order is kept.
func LoadAbbreviations(r io.Reader) (AbbreviationTable, error) {
	var table AbbreviationTable
	if err := yaml.NewDecoder(r).Decode(&table); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("abbreviation table is empty")
		}
		return nil, fmt.Errorf("decode abbreviation table: %w", err)
	}
	if len(table) == 0 {
		return nil, errors.New("abbreviation table is empty")
	}
	for i, a := range table {
		if a.Pattern == "" {
			return nil, fmt.Errorf("abbreviation %d: pattern is empty", i)
		}
	}
	return table, nil
}
