package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/ruslano69/tradesync/pkg/dataset"
)

// NumberStyle describes the punctuation of numeric values in a locale.
type NumberStyle struct {
	ThousandsSep rune
	DecimalSep   rune
}

// EuropeanStyle is the dot-thousands / comma-decimal convention used by the
// bank exports this engine was built for ("1.234,56").
var EuropeanStyle = NumberStyle{ThousandsSep: '.', DecimalSep: ','}

// DefaultDateFormats is the priority order for parsing the date column.
// First match wins.
var DefaultDateFormats = []string{
	"2006-01-02",
	"02.01.2006",
	"2006-01-02 15:04:05",
}

// Config defines which columns receive numeric and date treatment.
type Config struct {
	// NumericFields are the columns rewritten to canonical decimal-dot form.
	NumericFields []string

	// DateField is the column parsed for sorting.
	DateField string

	// DateFormats is the ordered list of accepted date layouts.
	// Empty uses DefaultDateFormats.
	DateFormats []string

	// Style is the numeric punctuation of the input. Zero value uses
	// EuropeanStyle.
	Style NumberStyle
}

// Normalizer canonicalizes row values so that equivalent transactions
// compare equal regardless of source formatting. Both datasets of a merge
// must be normalized by the same Normalizer or fingerprints are not
// comparable.
type Normalizer struct {
	numericFields map[string]bool
	dateField     string
	dateFormats   []string
	style         NumberStyle
}

// New creates a Normalizer from config.
func New(cfg Config) *Normalizer {
	style := cfg.Style
	if style.ThousandsSep == 0 && style.DecimalSep == 0 {
		style = EuropeanStyle
	}
	formats := cfg.DateFormats
	if len(formats) == 0 {
		formats = DefaultDateFormats
	}

	fields := make(map[string]bool, len(cfg.NumericFields))
	for _, f := range cfg.NumericFields {
		fields[f] = true
	}

	return &Normalizer{
		numericFields: fields,
		dateField:     cfg.DateField,
		dateFormats:   formats,
		style:         style,
	}
}

// DateField returns the configured date column name.
func (n *Normalizer) DateField() string {
	return n.dateField
}

// IsNumericField reports whether a column receives numeric normalization.
func (n *Normalizer) IsNumericField(column string) bool {
	return n.numericFields[column]
}

// Value normalizes a single cell: every value is trimmed, numeric-field
// values are additionally rewritten to canonical decimal-dot form.
// The date column keeps its trimmed original text; parsing happens
// separately via Date so the output never loses the source representation.
func (n *Normalizer) Value(column, value string) string {
	trimmed := strings.TrimSpace(value)
	if n.numericFields[column] {
		return n.Number(trimmed)
	}
	return trimmed
}

// Number rewrites a locale-formatted numeric string to decimal-dot form:
// "1.234,56" becomes "1234.56". When the rewrite does not parse as a
// number the input is returned unchanged. Input already in decimal-dot
// form ("1234.56", no decimal separator of the configured style present)
// passes through untouched.
func (n *Normalizer) Number(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	thousands := string(n.style.ThousandsSep)
	decimal := string(n.style.DecimalSep)

	if strings.Contains(trimmed, decimal) {
		candidate := strings.ReplaceAll(trimmed, thousands, "")
		candidate = strings.Replace(candidate, decimal, ".", 1)
		if _, err := strconv.ParseFloat(candidate, 64); err == nil {
			return candidate
		}
		return trimmed
	}

	// No decimal separator. "1.234" is thousands grouping, "1234.56" is
	// already canonical: only proper groups of three are stripped.
	if isGroupedThousands(trimmed, thousands) {
		return strings.ReplaceAll(trimmed, thousands, "")
	}

	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return trimmed
	}

	candidate := strings.ReplaceAll(trimmed, thousands, "")
	if _, err := strconv.ParseFloat(candidate, 64); err == nil {
		return candidate
	}

	return trimmed
}

// isGroupedThousands reports whether a value is digits in groups of three
// separated by sep, e.g. "1.234" or "-12.345.678".
func isGroupedThousands(value, sep string) bool {
	value = strings.TrimPrefix(value, "-")
	parts := strings.Split(value, sep)
	if len(parts) < 2 {
		return false
	}
	for i, p := range parts {
		if i == 0 {
			if len(p) < 1 || len(p) > 3 || !allDigits(p) {
				return false
			}
			continue
		}
		if len(p) != 3 || !allDigits(p) {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// Date parses a date value against the configured layouts in priority
// order. The second result is false when no layout matches; callers use
// the zero time as the sort sentinel and keep the original text for
// output.
func (n *Normalizer) Date(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range n.dateFormats {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Row normalizes every value of a row positioned against the header.
// A new slice is returned; the input row is not modified.
func (n *Normalizer) Row(header, row []string) []string {
	out := make([]string, len(header))
	for i, column := range header {
		var v string
		if i < len(row) {
			v = row[i]
		}
		out[i] = n.Value(column, v)
	}
	return out
}

// Dataset returns a normalized copy of a dataset. The input is never
// mutated.
func (n *Normalizer) Dataset(d *dataset.Dataset) *dataset.Dataset {
	out := dataset.New(d.Header)
	out.Rows = make([][]string, len(d.Rows))
	for i, row := range d.Rows {
		out.Rows[i] = n.Row(d.Header, row)
	}
	return out
}
