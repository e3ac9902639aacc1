package dataset

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// readXLSX returns the raw cell text of one worksheet, one slice per row.
// If sheetName is empty, sheetIndex (1-based, default 1) selects the sheet.
func readXLSX(file, sheetName string, sheetIndex int) ([][]string, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	wb := workbook{zr: zr}
	target, err := wb.sheetPath(sheetName, sheetIndex)
	if err != nil {
		return nil, err
	}
	data := wb.entry(target)
	if data == nil {
		return nil, fmt.Errorf("worksheet %s not found", target)
	}
	rr := &rowReader{dec: xml.NewDecoder(bytes.NewReader(data)), shared: sharedStrings(wb.entry("xl/sharedStrings.xml"))}
	var rows [][]string
	for {
		row, ok := rr.next()
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type workbook struct {
	zr *zip.Reader
}

type sheetRef struct {
	name string
	rid  string
}

func (w workbook) entry(name string) []byte {
	for _, f := range w.zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		return b
	}
	return nil
}

func (w workbook) sheetPath(name string, index int) (string, error) {
	sheets := w.sheets()
	rels := w.relationships()
	if name != "" {
		var names []string
		for _, s := range sheets {
			if strings.EqualFold(s.name, name) {
				if t, ok := rels[s.rid]; ok {
					return zipPath(t), nil
				}
			}
			names = append(names, s.name)
		}
		return "", fmt.Errorf("sheet %q not found (available: %s)", name, strings.Join(names, ", "))
	}
	if index <= 0 {
		index = 1
	}
	if index <= len(sheets) {
		if t, ok := rels[sheets[index-1].rid]; ok {
			return zipPath(t), nil
		}
	}
	return fmt.Sprintf("xl/worksheets/sheet%d.xml", index), nil
}

func (w workbook) sheets() []sheetRef {
	var out []sheetRef
	walkStart(w.entry("xl/workbook.xml"), "sheet", func(attrs []xml.Attr) {
		var s sheetRef
		for _, a := range attrs {
			switch a.Name.Local {
			case "name":
				s.name = a.Value
			case "id":
				s.rid = a.Value
			}
		}
		out = append(out, s)
	})
	return out
}

func (w workbook) relationships() map[string]string {
	out := map[string]string{}
	walkStart(w.entry("xl/_rels/workbook.xml.rels"), "Relationship", func(attrs []xml.Attr) {
		var id, target string
		for _, a := range attrs {
			switch a.Name.Local {
			case "Id":
				id = a.Value
			case "Target":
				target = a.Value
			}
		}
		if id != "" && target != "" {
			out[id] = target
		}
	})
	return out
}

// walkStart calls fn with the attributes of every start element named local.
func walkStart(data []byte, local string, fn func([]xml.Attr)) {
	if len(data) == 0 {
		return
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == local {
			fn(se.Attr)
		}
	}
}

func sharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []string
	var buf strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "si":
				buf.Reset()
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "si":
				out = append(out, buf.String())
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}
}

// zipPath turns a relationship target into a zip entry name. Targets may be
// absolute ("/xl/worksheets/sheet1.xml") or relative to xl/.
func zipPath(target string) string {
	target = strings.TrimPrefix(target, "/")
	if strings.HasPrefix(target, "xl/") {
		return target
	}
	return path.Join("xl", target)
}

type rowReader struct {
	dec    *xml.Decoder
	shared []string
}

// next returns the following <row>, placing each cell at its column reference.
func (r *rowReader) next() ([]string, bool) {
	var row []string
	inRow := false
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "row":
				inRow = true
				row = row[:0]
			case inRow && t.Name.Local == "c":
				var ref, typ string
				for _, a := range t.Attr {
					switch a.Name.Local {
					case "r":
						ref = a.Value
					case "t":
						typ = a.Value
					}
				}
				col := columnIndex(ref)
				if col < 0 {
					col = len(row)
				}
				for len(row) <= col {
					row = append(row, "")
				}
				row[col] = r.cellValue(typ)
			}
		case xml.EndElement:
			if t.Name.Local == "row" && inRow {
				return row, true
			}
		}
	}
}

func (r *rowReader) cellValue(typ string) string {
	var val string
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return val
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "v" || t.Name.Local == "t" {
				var text string
				if err := r.dec.DecodeElement(&text, &t); err == nil {
					val = text
				}
			}
		case xml.EndElement:
			if t.Name.Local != "c" {
				continue
			}
			if typ == "s" {
				i := leadingInt(val)
				if i >= 0 && i < len(r.shared) {
					return r.shared[i]
				}
				return ""
			}
			return val
		}
	}
}

// columnIndex maps a cell reference such as "C12" to a 0-based column (2).
func columnIndex(ref string) int {
	idx := 0
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c >= 'A' && c <= 'Z':
			idx = idx*26 + int(c-'A'+1)
		case c >= 'a' && c <= 'z':
			idx = idx*26 + int(c-'a'+1)
		default:
			return idx - 1
		}
	}
	return idx - 1
}

func leadingInt(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}
