package normalize

import (
	"testing"
	"time"
)

func TestNumber(t *testing.T) {
	n := New(Config{NumericFields: []string{"Valore"}})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"thousands and decimal", "1.234,56", "1234.56"},
		{"decimal only", "10,00", "10.00"},
		{"already canonical", "1234.56", "1234.56"},
		{"thousands only", "1.234", "1234"},
		{"negative", "-1.234,56", "-1234.56"},
		{"plain integer", "42", "42"},
		{"not a number", "N/A", "N/A"},
		{"text with comma", "hello, world", "hello, world"},
		{"empty", "", ""},
		{"whitespace", "  10,50  ", "10.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Number(tt.input); got != tt.want {
				t.Errorf("Number(%q) = %q, expected %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDateFormatPriority(t *testing.T) {
	n := New(Config{DateField: "Data"})

	tests := []struct {
		input string
		want  time.Time
		ok    bool
	}{
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"15.01.2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"2024-01-15 10:30:00", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), true},
		{"not a date", time.Time{}, false},
		{"", time.Time{}, false},
		{"15/01/2024", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := n.Date(tt.input)
		if ok != tt.ok {
			t.Errorf("Date(%q): expected ok=%v, got %v", tt.input, tt.ok, ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("Date(%q) = %v, expected %v", tt.input, got, tt.want)
		}
	}
}

func TestValueTrimsEverything(t *testing.T) {
	n := New(Config{NumericFields: []string{"Valore"}, DateField: "Data"})

	if got := n.Value("Note", "  some text  "); got != "some text" {
		t.Errorf("expected trimmed text, got %q", got)
	}
	if got := n.Value("Valore", " 1.000,50 "); got != "1000.50" {
		t.Errorf("expected canonical number, got %q", got)
	}
	// Date column keeps the original (trimmed) text.
	if got := n.Value("Data", " 2024-01-15 "); got != "2024-01-15" {
		t.Errorf("expected trimmed date text, got %q", got)
	}
}

func TestRowAlignsToHeader(t *testing.T) {
	n := New(Config{NumericFields: []string{"Valore"}})
	header := []string{"Data", "Valore", "Note"}

	row := n.Row(header, []string{"2024-01-15", "10,00"})
	if len(row) != 3 {
		t.Fatalf("expected 3 values, got %d", len(row))
	}
	if row[1] != "10.00" {
		t.Errorf("expected normalized number, got %q", row[1])
	}
	if row[2] != "" {
		t.Errorf("expected empty value for missing column, got %q", row[2])
	}
}
