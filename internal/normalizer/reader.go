package normalizer

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/finsight/finsight-go/internal/domain"
)

// Table is a parsed tabular file: a header row plus data rows keyed by
// header. Missing trailing cells are present as empty strings so downstream
// code never has to check for absent keys.
type Table struct {
	Headers []string
	Rows    []map[string]string
}

// ReadTable parses CSV or XLSX input based on the filename extension.
// Anything that is not .xlsx is treated as delimited text.
func ReadTable(r io.Reader, filename, delimiter string) (*Table, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return readXLSX(r, filename)
	}
	return readCSV(r, filename, delimiter)
}

func readCSV(r io.Reader, filename, delimiter string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiterRune(delimiter)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &domain.ErrInput{Source: domain.SourceKind(filename), Message: fmt.Sprintf("parse csv: %v", err)}
	}
	return buildTable(records, filename)
}

func readXLSX(r io.Reader, filename string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &domain.ErrInput{Source: domain.SourceKind(filename), Message: fmt.Sprintf("open workbook: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &domain.ErrInput{Source: domain.SourceKind(filename), Message: "workbook has no sheets"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &domain.ErrInput{Source: domain.SourceKind(filename), Message: fmt.Sprintf("read sheet %q: %v", sheets[0], err)}
	}
	return buildTable(rows, filename)
}

func buildTable(records [][]string, filename string) (*Table, error) {
	if len(records) == 0 {
		return nil, &domain.ErrInput{Source: domain.SourceKind(filename), Message: "file is empty"}
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	t := &Table{Headers: headers}
	for _, record := range records[1:] {
		if isBlankRow(record) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			} else {
				row[h] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func isBlankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func delimiterRune(name string) rune {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ",", "comma":
		return ','
	case "tab", "\t":
		return '\t'
	case "pipe", "|":
		return '|'
	case "semicolon", ";":
		return ';'
	default:
		return []rune(name)[0]
	}
}
