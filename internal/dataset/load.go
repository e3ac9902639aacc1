package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
)

// LoadOptions controls how an input file is read.
type LoadOptions struct {
	// Delimiter for CSV. If 0, '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// XLSX sheet selection. SheetIndex is 1-based and used when SheetName is empty.
	SheetName  string
	SheetIndex int
}

// Load reads path and validates it against sch. The returned frame holds only
// the schema's columns, in schema order, with the schema's types.
func Load(path string, sch Schema, opt LoadOptions) (dataframe.DataFrame, error) {
	rows, lines, err := readRows(path, opt)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	records, err := project(path, sch, rows, lines)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.WithTypes(sch.Types()),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, &FormatError{Path: path, Reason: "build " + sch.Name + " table", Err: df.Err}
	}
	return df, nil
}

// readRows returns the raw records and, for CSV input, the file line on which
// each record starts. lines is nil when records map one-to-one onto rows.
func readRows(path string, opt LoadOptions) (rows [][]string, lines []int, err error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, &FormatError{Path: path, Reason: "cannot open input", Err: err}
	}
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		rows, err := readXLSX(path, opt.SheetName, opt.SheetIndex)
		if err != nil {
			return nil, nil, &FormatError{Path: path, Reason: "read xlsx", Err: err}
		}
		return rows, nil, nil
	}
	return readCSV(path, opt.Delimiter)
}

func readCSV(path string, delim rune) ([][]string, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &FormatError{Path: path, Reason: "cannot open input", Err: err}
	}
	defer f.Close()

	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // column count is checked against the header in project
	r.TrimLeadingSpace = true
	r.Comma = delim

	var rows [][]string
	var lines []int
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			line := len(rows) + 1
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, nil, &FormatError{Path: path, Line: line, Reason: "malformed row", Err: err}
		}
		start, _ := r.FieldPos(0)
		rows = append(rows, rec)
		lines = append(lines, start)
	}
	return rows, lines, nil
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// project checks the header and every row against sch and returns the header
// plus rows restricted to the schema columns with canonicalized cells. lines
// gives the file line of each record; nil means record i is on line i+1.
func project(path string, sch Schema, rows [][]string, lines []int) ([][]string, error) {
	if len(rows) == 0 {
		return nil, &FormatError{Path: path, Reason: "empty file, expected a header row"}
	}
	header := rows[0]
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	pos := make([]int, len(sch.Columns))
	for i, c := range sch.Columns {
		j, ok := index[c.Name]
		if !ok {
			return nil, &FormatError{Path: path, Line: 1, Column: c.Name, Reason: "missing required column"}
		}
		pos[i] = j
	}
	if len(rows) == 1 {
		return nil, &FormatError{Path: path, Reason: "no data rows"}
	}

	out := make([][]string, 0, len(rows))
	out = append(out, sch.Names())
	for n, row := range rows[1:] {
		line := n + 2
		if lines != nil {
			line = lines[n+1]
		}
		if len(row) != len(header) {
			return nil, &FormatError{Path: path, Line: line, Reason: fmt.Sprintf("expected %d columns, got %d", len(header), len(row))}
		}
		rec := make([]string, len(sch.Columns))
		for i, c := range sch.Columns {
			v := strings.TrimSpace(row[pos[i]])
			if v == "" {
				return nil, &FormatError{Path: path, Line: line, Column: c.Name, Reason: "missing value"}
			}
			if c.Check != nil {
				cv, err := c.Check(v)
				if err != nil {
					return nil, &FormatError{Path: path, Line: line, Column: c.Name, Reason: "invalid value", Err: err}
				}
				v = cv
			}
			rec[i] = v
		}
		out = append(out, rec)
	}
	return out, nil
}
