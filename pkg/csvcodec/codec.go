package csvcodec

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/ruslano69/tradesync/pkg/dataset"
	"github.com/ruslano69/tradesync/pkg/normalize"
)

// DefaultHeader is the well-known ledger column set, used when the input
// carries no header row at all (empty content).
var DefaultHeader = []string{"Data", "Tipo", "Valore", "Note", "ISIN", "Azioni", "Commissioni", "Tasse"}

// DateOutputFormat is the canonical rendering of parseable dates on encode.
const DateOutputFormat = "2006-01-02 15:04:05"

// Config defines the wire format of the delimited exports.
type Config struct {
	// Delimiter separates fields. Default ';'.
	Delimiter rune

	// Encoding of the input bytes: "utf-8" (default) or "latin-1".
	// Output is always UTF-8.
	Encoding string

	// DefaultHeader replaces DefaultHeader when set.
	DefaultHeader []string

	// DecimalSep is the decimal separator re-applied to numeric fields on
	// encode. Default ','.
	DecimalSep rune
}

// Codec parses and serializes delimited transaction exports. Decoding
// keeps values verbatim; encoding re-applies the configured locale to the
// numeric-field set and renders parseable dates canonically.
type Codec struct {
	cfg  Config
	norm *normalize.Normalizer
}

// New creates a codec. The normalizer supplies the numeric-field set and
// date formats used on encode.
func New(cfg Config, norm *normalize.Normalizer) *Codec {
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ';'
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "utf-8"
	}
	if cfg.DecimalSep == 0 {
		cfg.DecimalSep = ','
	}
	if len(cfg.DefaultHeader) == 0 {
		cfg.DefaultHeader = DefaultHeader
	}
	return &Codec{cfg: cfg, norm: norm}
}

// Decode parses raw export bytes into a dataset. The first record is the
// header. Empty or whitespace-only content yields an empty dataset with
// the default header. Rows with no values at all are skipped. Undecodable
// input fails with *FormatError and nothing else.
func (c *Codec) Decode(data []byte) (*dataset.Dataset, error) {
	decoded, err := c.toUTF8(data)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(decoded)) == 0 {
		return dataset.New(c.cfg.DefaultHeader), nil
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = c.cfg.Delimiter
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, &FormatError{Op: "decode", Reason: "unreadable header row", Err: err}
	}

	ds := dataset.New(header)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &FormatError{Op: "decode", Reason: "malformed record", Err: err}
		}
		if isEmptyRecord(record) {
			continue
		}
		ds.Append(record)
	}

	return ds, nil
}

// Encode serializes a dataset: header row first, columns in header order
// exactly. Numeric fields are rendered with the configured decimal
// separator regardless of internal representation; the date field is
// rendered canonically when parseable, otherwise its text is preserved.
// Output is UTF-8.
func (c *Codec) Encode(ds *dataset.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.Comma = c.cfg.Delimiter

	if err := writer.Write(ds.Header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	dateCol := -1
	if c.norm != nil && c.norm.DateField() != "" {
		dateCol = ds.ColumnIndex(c.norm.DateField())
	}

	out := make([]string, len(ds.Header))
	for _, row := range ds.Rows {
		for i, column := range ds.Header {
			v := ds.Value(row, i)
			switch {
			case i == dateCol:
				if t, ok := c.norm.Date(v); ok {
					v = t.Format(DateOutputFormat)
				}
			case c.norm != nil && c.norm.IsNumericField(column):
				v = c.renderNumber(v)
			}
			out[i] = v
		}
		if err := writer.Write(out); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush output: %w", err)
	}
	return buf.Bytes(), nil
}

// renderNumber re-applies the output decimal separator to a canonical
// decimal-dot value. Non-numeric values pass through unchanged, and
// thousands grouping is intentionally not restored.
func (c *Codec) renderNumber(value string) string {
	if value == "" || c.cfg.DecimalSep == '.' {
		return value
	}
	if _, err := strconv.ParseFloat(value, 64); err != nil {
		return value
	}
	return strings.Replace(value, ".", string(c.cfg.DecimalSep), 1)
}

// toUTF8 validates or transcodes input bytes to UTF-8.
func (c *Codec) toUTF8(data []byte) ([]byte, error) {
	switch strings.ToLower(c.cfg.Encoding) {
	case "", "utf-8", "utf8":
		// Strip a UTF-8 BOM some exporters prepend.
		data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
		if !utf8.Valid(data) {
			return nil, &FormatError{Op: "decode", Reason: "input is not valid UTF-8"}
		}
		return data, nil

	case "latin-1", "latin1", "iso-8859-1":
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, &FormatError{Op: "decode", Reason: "latin-1 transcode failed", Err: err}
		}
		return decoded, nil

	default:
		return nil, &FormatError{Op: "decode", Reason: fmt.Sprintf("unsupported encoding %q", c.cfg.Encoding)}
	}
}

func isEmptyRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
