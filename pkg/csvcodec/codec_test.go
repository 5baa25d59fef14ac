package csvcodec

import (
	"errors"
	"strings"
	"testing"

	"github.com/ruslano69/tradesync/pkg/dataset"
	"github.com/ruslano69/tradesync/pkg/normalize"
)

func testCodec() *Codec {
	norm := normalize.New(normalize.Config{
		NumericFields: []string{"Valore", "Commissioni", "Tasse"},
		DateField:     "Data",
	})
	return New(Config{}, norm)
}

func TestDecode(t *testing.T) {
	c := testCodec()

	input := "Data;Tipo;Valore\n2024-01-15;Buy;1.234,56\n2024-01-16;Sell;10,00\n"
	ds, err := c.Decode([]byte(input))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(ds.Header) != 3 || ds.Header[0] != "Data" {
		t.Fatalf("unexpected header: %v", ds.Header)
	}
	if ds.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", ds.Len())
	}
	// Decoding keeps values verbatim; normalization is a separate step.
	if ds.Rows[0][2] != "1.234,56" {
		t.Errorf("decode must not rewrite values, got %q", ds.Rows[0][2])
	}
}

func TestDecodeEmptyContent(t *testing.T) {
	c := testCodec()

	for _, input := range []string{"", "   \n  \n"} {
		ds, err := c.Decode([]byte(input))
		if err != nil {
			t.Fatalf("decode(%q) failed: %v", input, err)
		}
		if ds.Len() != 0 {
			t.Errorf("expected no rows, got %d", ds.Len())
		}
		if len(ds.Header) != len(DefaultHeader) || ds.Header[0] != "Data" {
			t.Errorf("expected default header, got %v", ds.Header)
		}
	}
}

func TestDecodeSkipsEmptyRows(t *testing.T) {
	c := testCodec()

	input := "Data;Tipo\n2024-01-15;Buy\n;\n \n2024-01-16;Sell\n"
	ds, err := c.Decode([]byte(input))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("expected empty rows skipped, got %d rows", ds.Len())
	}
}

func TestDecodeInvalidUTF8(t *testing.T) {
	c := testCodec()

	_, err := c.Decode([]byte{'D', 'a', 't', 'a', ';', 0xFF, 0xFE})
	if err == nil {
		t.Fatal("expected error for invalid UTF-8")
	}
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FormatError, got %T", err)
	}
}

func TestDecodeLatin1(t *testing.T) {
	norm := normalize.New(normalize.Config{DateField: "Data"})
	c := New(Config{Encoding: "latin-1"}, norm)

	// 0xE8 is "è" in ISO-8859-1.
	input := append([]byte("Data;Note\n2024-01-15;caff"), 0xE8, '\n')
	ds, err := c.Decode(input)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if ds.Rows[0][1] != "caffè" {
		t.Errorf("expected transcoded value, got %q", ds.Rows[0][1])
	}
}

func TestDecodeStripsBOM(t *testing.T) {
	c := testCodec()

	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Data;Tipo\n2024-01-15;Buy\n")...)
	ds, err := c.Decode(input)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if ds.Header[0] != "Data" {
		t.Errorf("BOM leaked into header: %q", ds.Header[0])
	}
}

func TestEncode(t *testing.T) {
	c := testCodec()

	ds := dataset.New([]string{"Data", "Tipo", "Valore"})
	ds.Append([]string{"2024-01-15", "Buy", "1234.56"})
	ds.Append([]string{"garbage date", "Sell", "N/A"})

	out, err := c.Encode(ds)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), out)
	}
	if lines[0] != "Data;Tipo;Valore" {
		t.Errorf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "2024-01-15 00:00:00;Buy;1234,56" {
		t.Errorf("unexpected row: %q", lines[1])
	}
	// Unparseable date and non-numeric value pass through untouched.
	if lines[2] != "garbage date;Sell;N/A" {
		t.Errorf("unexpected row: %q", lines[2])
	}
}

func TestEncodeEmptyDataset(t *testing.T) {
	c := testCodec()

	out, err := c.Encode(dataset.New([]string{"Data", "Tipo"}))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if strings.TrimRight(string(out), "\n") != "Data;Tipo" {
		t.Errorf("expected header-only output, got %q", out)
	}
}

func TestRoundTripStable(t *testing.T) {
	c := testCodec()

	ds := dataset.New([]string{"Data", "Valore", "Note"})
	ds.Append([]string{"2024-01-15", "1000.50", "coffee; beans"})

	first, err := c.Encode(ds)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := c.Decode(first)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	// Re-normalize before re-encoding, as the pipeline does.
	norm := normalize.New(normalize.Config{NumericFields: []string{"Valore"}, DateField: "Data"})
	second, err := c.Encode(norm.Dataset(decoded))
	if err != nil {
		t.Fatalf("second encode failed: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("round trip is not stable:\n%q\n%q", first, second)
	}
}
