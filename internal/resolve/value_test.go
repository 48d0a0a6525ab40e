package resolve

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/funnel-cli/internal/model"
)

func fv(text, display, raw string) model.FieldValue {
	v := model.FieldValue{Text: text, Display: display}
	if raw != "" {
		v.Raw = json.RawMessage(raw)
	}
	return v
}

func TestValue_PriorityChain(t *testing.T) {
	tests := []struct {
		name     string
		value    model.FieldValue
		expected string
	}{
		{"plain text wins", fv("Acme Corp", "other", `{"label":"x"}`), "Acme Corp"},
		{"display when text blank", fv("  ", "Fintech", ""), "Fintech"},
		{"primitive payload stringified", fv("", "", `42`), "42"},
		{"string payload", fv("", "", `"Healthcare"`), "Healthcare"},
		{"object label key", fv("", "", `{"label":"Won"}`), "Won"},
		{"object nested value", fv("", "", `{"value":{"name":"Retail"}}`), "Retail"},
		{"candidate order prefers display_value", fv("", "", `{"display_value":"A","label":"B"}`), "A"},
		{"mirrored items joined", fv("", "", `{"mirrored_items":[{"display_value":"Banking"},{"display_value":"Insurance"}]}`), "Banking, Insurance"},
		{"label list joined", fv("", "", `{"labels":["Hot","Q4"]}`), "Hot, Q4"},
		{"id list joined", fv("", "", `{"ids":[11,12]}`), "11, 12"},
		{"empty everything", fv("", "", ""), ""},
		{"malformed payload", fv("", "", `{"label":`), ""},
		{"null payload", fv("", "", `null`), ""},
		{"unknown object keys", fv("", "", `{"foo":"bar"}`), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Value(tt.value))
		})
	}
}

func TestPrimaryToken(t *testing.T) {
	assert.Equal(t, "Banking", PrimaryToken("Banking, Insurance", "(blank)"))
	assert.Equal(t, "(blank)", PrimaryToken("   ", "(blank)"))
	assert.Equal(t, "(blank)", PrimaryToken(" , Insurance", "(blank)"))
	assert.Equal(t, "Solo", PrimaryToken("Solo", "(blank)"))
}
