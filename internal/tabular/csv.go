package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/unicode/norm"

	"github.com/gochang/agri-notify/internal/project"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV reads a comma-separated source into text cells. UTF-8 (with or
// without BOM) and EUC-KR/CP949, as saved by Korean Excel, are accepted.
// All text is NFC-normalised so Hangul compares equal regardless of origin.
func ReadCSV(r io.Reader) (Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Sheet{}, fmt.Errorf("read csv: %w", err)
	}
	data, err = toUTF8(data)
	if err != nil {
		return Sheet{}, err
	}

	reader := csv.NewReader(bytes.NewReader(norm.NFC.Bytes(data)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return Sheet{}, fmt.Errorf("parse csv: %w", err)
	}

	sheet := Sheet{Name: "csv", Rows: make([]Row, 0, len(records))}
	for _, record := range records {
		row := make(Row, len(record))
		for i, field := range record {
			if field == "" {
				row[i] = Blank()
			} else {
				row[i] = Text(field)
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

func toUTF8(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		return data[len(utf8BOM):], nil
	}
	if utf8.Valid(data) {
		return data, nil
	}
	decoded, err := korean.EUCKR.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode csv as EUC-KR: %w", err)
	}
	if !utf8.Valid(decoded) {
		return nil, fmt.Errorf("csv is neither UTF-8 nor EUC-KR")
	}
	return decoded, nil
}

// WriteCSV writes the header and one line per project. Fields containing
// commas or quotes are quoted so the file imports back unchanged.
func WriteCSV(w io.Writer, projects []project.Project) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range projects {
		if err := cw.Write(ProjectToRecord(p)); err != nil {
			return fmt.Errorf("write csv row %s: %w", p.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
