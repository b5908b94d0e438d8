package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format identifies a spreadsheet encoding.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	// ErrUnsupportedFormat is returned for formats other than csv and xlsx.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrNoData is returned when the input has no header or no data rows.
	ErrNoData = errors.New("file must have a header and at least one data row")

	// ErrMissingColumns is returned when a required column is absent.
	ErrMissingColumns = errors.New("missing required columns")
)

// zipMagic starts every xlsx file.
var zipMagic = []byte("PK\x03\x04")

var utf8BOM = []byte("\xef\xbb\xbf")

// Row is one non-empty input row with its 1-based line number.
type Row struct {
	Line  int
	Cells []string
}

// RowError reports a row that was skipped.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// ParseFormat maps a query value such as "xlsx" to a Format.
// An empty string means csv.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type for downloads in this format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// DetectFormat guesses the format from the file name, then from the first
// bytes of content. Anything that is not recognisably xlsx is read as csv.
func DetectFormat(filename string, head []byte) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv", ".tsv", ".txt":
		return FormatCSV
	}
	if bytes.HasPrefix(head, zipMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

// ReadRows decodes r into rows. Blank rows are dropped; cells are trimmed.
// The first returned row is the header.
func ReadRows(r io.Reader, format Format) ([]Row, error) {
	var (
		rows []Row
		err  error
	)

	switch format {
	case FormatCSV, "":
		rows, err = readCSV(r)
	case FormatXLSX:
		rows, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) < 2 {
		return nil, ErrNoData
	}
	return rows, nil
}

func readCSV(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if row, ok := newRow(line, record); ok {
			rows = append(rows, row)
		}
	}

	return rows, nil
}

func readXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoData
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	rows := make([]Row, 0, len(records))
	for i, record := range records {
		if row, ok := newRow(i+1, record); ok {
			rows = append(rows, row)
		}
	}

	return rows, nil
}

func newRow(line int, record []string) (Row, bool) {
	cells := make([]string, len(record))
	empty := true
	for i, c := range record {
		cells[i] = strings.TrimSpace(c)
		if cells[i] != "" {
			empty = false
		}
	}
	return Row{Line: line, Cells: cells}, !empty
}

// sniffDelimiter picks the most frequent of comma, semicolon and tab on the
// first line, ignoring quoted text. Comma wins ties.
func sniffDelimiter(data []byte) rune {
	counts := map[rune]int{',': 0, ';': 0, '\t': 0}
	inQuotes := false

	for _, ch := range string(data) {
		if ch == '"' {
			inQuotes = !inQuotes
			continue
		}
		if inQuotes {
			continue
		}
		if ch == '\n' {
			break
		}
		if _, ok := counts[ch]; ok {
			counts[ch]++
		}
	}

	best := ','
	for _, d := range []rune{';', '\t'} {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}
