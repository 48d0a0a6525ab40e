package model

import "encoding/json"

// ColumnType tags the representation of a board column.
type ColumnType string

const (
	ColumnTypeText       ColumnType = "text"
	ColumnTypeLongText   ColumnType = "long_text"
	ColumnTypeStatus     ColumnType = "status"
	ColumnTypeDate       ColumnType = "date"
	ColumnTypeNumbers    ColumnType = "numbers"
	ColumnTypePeople     ColumnType = "people"
	ColumnTypeConnect    ColumnType = "board_relation"
	ColumnTypeMirror     ColumnType = "mirror"
	ColumnTypeFormula    ColumnType = "formula"
	ColumnTypeDropdown   ColumnType = "dropdown"
	ColumnTypeDependency ColumnType = "dependency"
)

// IsRelation reports whether the column links records on another board.
func (t ColumnType) IsRelation() bool {
	return t == ColumnTypeConnect || t == ColumnTypeMirror || t == ColumnTypeDependency
}

// ColumnMeta describes a single board column.
type ColumnMeta struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Type     ColumnType      `json:"type"`
	Settings json.RawMessage `json:"settings_str,omitempty"`
}

// FieldValue is a single cell as returned by the board API. Depending on the
// column type the useful content lives in Text, Display, or the raw JSON
// payload. The resolver narrows this variant; nothing downstream should.
type FieldValue struct {
	Text    string          `json:"text"`
	Display string          `json:"display_value,omitempty"`
	Raw     json.RawMessage `json:"value,omitempty"`
}

// RawRecord is one board item with its fetched cells keyed by column id.
// A missing key means the column was not fetched, which is distinct from a
// fetched-but-empty value.
type RawRecord struct {
	ID     string                `json:"id"`
	Name   string                `json:"name"`
	Fields map[string]FieldValue `json:"fields"`
}

// Field returns the cell for a column id and whether it was fetched.
func (r RawRecord) Field(columnID string) (FieldValue, bool) {
	v, ok := r.Fields[columnID]
	return v, ok
}
