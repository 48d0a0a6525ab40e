// Package importer builds raw board records from an exported xlsx workbook
// so the same normalization and aggregation path serves offline files.
package importer

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/funnel-cli/internal/classify"
	"github.com/sells-group/funnel-cli/internal/model"
)

// Workbook is the parsed content of a board export: synthesized column
// metadata from the header row plus one raw record per data row.
type Workbook struct {
	SheetName string
	Columns   []model.ColumnMeta
	Records   []model.RawRecord
}

// Board exports repeat the header on the second row, so data starts on the
// third.
const skipRows = 2

// ReadWorkbook reads the first sheet of an xlsx board export. Header titles
// become column ids (normalized), remaining rows become records. Cells are
// kept as display strings; date parsing happens downstream where serial
// numbers are recognized.
func ReadWorkbook(path string) (*Workbook, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open workbook")
	}
	return parseFile(f)
}

func parseFile(f *xlsx.File) (*Workbook, error) {
	if len(f.Sheets) == 0 {
		return nil, eris.New("importer: workbook has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("importer: sheet is empty")
	}

	cols := headerColumns(rowToStrings(sheet.Rows[0]))
	if len(cols) == 0 {
		return nil, eris.New("importer: header row has no titles")
	}

	wb := &Workbook{SheetName: sheet.Name}
	for _, c := range cols {
		wb.Columns = append(wb.Columns, c.meta)
	}
	for i, row := range sheet.Rows {
		if i < skipRows {
			continue
		}
		rec, ok := toRecord(cols, rowToStrings(row))
		if !ok {
			continue
		}
		wb.Records = append(wb.Records, rec)
	}
	return wb, nil
}

// headerCol pairs synthesized column metadata with its cell position, which
// survives dropped duplicate or blank titles.
type headerCol struct {
	pos  int
	meta model.ColumnMeta
}

// headerColumns maps header titles to synthetic column metadata. The id is
// the normalized title so keyword matching works the same as for live
// board columns. Duplicate or blank titles are dropped; the first wins.
func headerColumns(header []string) []headerCol {
	seen := make(map[string]bool, len(header))
	var out []headerCol
	for pos, title := range header {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		id := columnID(title)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, headerCol{
			pos:  pos,
			meta: model.ColumnMeta{ID: id, Title: title, Type: model.ColumnTypeText},
		})
	}
	return out
}

func columnID(title string) string {
	return strings.ReplaceAll(classify.Norm(title), " ", "_")
}

// toRecord builds a raw record from one data row. The first column holds
// the deal name. Rows with every cell blank are skipped.
func toRecord(cols []headerCol, cells []string) (model.RawRecord, bool) {
	rec := model.RawRecord{Fields: make(map[string]model.FieldValue, len(cols))}
	empty := true
	for i, col := range cols {
		if col.pos >= len(cells) {
			continue
		}
		text := strings.TrimSpace(cells[col.pos])
		if text != "" {
			empty = false
		}
		if i == 0 {
			rec.Name = text
			continue
		}
		rec.Fields[col.meta.ID] = model.FieldValue{Text: text}
	}
	if empty {
		return model.RawRecord{}, false
	}
	return rec, true
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.String()
	}
	return cells
}
