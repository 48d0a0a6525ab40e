package monday

import (
	"encoding/json"

	"github.com/sells-group/funnel-cli/internal/model"
)

// columnValueFields is the column_values selection shared by every item
// query. Mirror and relation columns need fragments for their display and
// link payloads.
const columnValueFields = `
  id
  text
  type
  value
  ... on MirrorValue {
    display_value
  }
  ... on BoardRelationValue {
    display_value
    linked_item_ids
  }`

const boardQuery = `
query ($boardID: [ID!]) {
  boards(ids: $boardID) {
    id
    name
    columns {
      id
      title
      type
      settings_str
    }
  }
}`

const itemsFirstPageQuery = `
query ($boardID: [ID!], $columnIDs: [String!], $limit: Int!) {
  boards(ids: $boardID) {
    items_page(limit: $limit) {
      cursor
      items {
        id
        name
        column_values(ids: $columnIDs) {` + columnValueFields + `
        }
      }
    }
  }
}`

const itemsNextPageQuery = `
query ($cursor: String!, $columnIDs: [String!], $limit: Int!) {
  next_items_page(cursor: $cursor, limit: $limit) {
    cursor
    items {
      id
      name
      column_values(ids: $columnIDs) {` + columnValueFields + `
      }
    }
  }
}`

const itemsByIDsQuery = `
query ($ids: [ID!], $columnIDs: [String!]) {
  items(ids: $ids) {
    id
    name
    column_values(ids: $columnIDs) {` + columnValueFields + `
    }
  }
}`

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors,omitempty"`
}

type board struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Columns []gqlColumn `json:"columns"`
}

type gqlColumn struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	SettingsStr string `json:"settings_str"`
}

type itemsPage struct {
	Cursor *string `json:"cursor"`
	Items  []item  `json:"items"`
}

type item struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	ColumnValues []columnValue `json:"column_values"`
}

type columnValue struct {
	ID            string          `json:"id"`
	Text          *string         `json:"text"`
	Type          string          `json:"type"`
	Value         json.RawMessage `json:"value"`
	DisplayValue  *string         `json:"display_value"`
	LinkedItemIDs []json.Number   `json:"linked_item_ids"`
}

func (b board) toBoard() *Board {
	out := &Board{ID: b.ID, Name: b.Name}
	for _, c := range b.Columns {
		meta := model.ColumnMeta{
			ID:    c.ID,
			Title: c.Title,
			Type:  model.ColumnType(c.Type),
		}
		if c.SettingsStr != "" && c.SettingsStr != "null" {
			meta.Settings = json.RawMessage(c.SettingsStr)
		}
		out.Columns = append(out.Columns, meta)
	}
	return out
}

func toRecords(items []item) []model.RawRecord {
	var out []model.RawRecord
	for _, it := range items {
		rec := model.RawRecord{
			ID:     it.ID,
			Name:   it.Name,
			Fields: make(map[string]model.FieldValue, len(it.ColumnValues)),
		}
		for _, cv := range it.ColumnValues {
			fv := model.FieldValue{Raw: unwrapValue(cv.Value)}
			if cv.Text != nil {
				fv.Text = *cv.Text
			}
			if cv.DisplayValue != nil {
				fv.Display = *cv.DisplayValue
			}
			if fv.Raw == nil && len(cv.LinkedItemIDs) > 0 {
				fv.Raw = linkedIDsPayload(cv.LinkedItemIDs)
			}
			rec.Fields[cv.ID] = fv
		}
		out = append(out, rec)
	}
	return out
}

// unwrapValue normalizes the JSON scalar the API returns for value: usually
// a string containing JSON, sometimes a bare object, often null.
func unwrapValue(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil || inner == "" || inner == "null" {
			return nil
		}
		return json.RawMessage(inner)
	}
	return raw
}

// linkedIDsPayload rebuilds the canonical relation payload for items whose
// value came back null but whose linked_item_ids field was populated.
func linkedIDsPayload(ids []json.Number) json.RawMessage {
	type link struct {
		LinkedPulseID json.Number `json:"linkedPulseId"`
	}
	links := make([]link, len(ids))
	for i, id := range ids {
		links[i] = link{LinkedPulseID: id}
	}
	b, err := json.Marshal(map[string]any{"linkedPulseIds": links})
	if err != nil {
		return nil
	}
	return b
}
