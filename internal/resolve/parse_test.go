package resolve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/funnel-cli/internal/model"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected *model.Date
	}{
		{"iso", "2024-10-01", datePtr(2024, time.October, 1)},
		{"iso with time truncated", "2024-10-01 13:45:00", datePtr(2024, time.October, 1)},
		{"slash four digit year", "10/1/2024", datePtr(2024, time.October, 1)},
		{"slash two digit year", "3/7/25", datePtr(2025, time.March, 7)},
		{"xlsx serial", "45931", datePtr(2025, time.October, 1)},
		{"month name", "02 Jan 2025", datePtr(2025, time.January, 2)},
		{"blank", "   ", nil},
		{"garbage", "next tuesday", nil},
		{"impossible slash date", "13/45/2024", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.raw)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, got.Equal(*tt.expected), "got %s want %s", got, tt.expected)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw      string
		expected *float64
	}{
		{"$120,000", f64(120000)},
		{"120000.50", f64(120000.50)},
		{"-500", f64(-500)},
		{"USD 9 500", f64(9500)},
		{"", nil},
		{"tbd", nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseAmount(tt.raw)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.expected, *got, 0.001)
		})
	}
}

func TestParseDurationMonths(t *testing.T) {
	tests := []struct {
		raw      string
		expected *int
	}{
		{"6", intPtr(6)},
		{"6.4 months", intPtr(6)},
		{"0.3", intPtr(1)},
		{"about 2.5 yrs", intPtr(3)},
		{"0", nil},
		{"-3", nil},
		{"", nil},
		{"n/a", nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseDurationMonths(tt.raw))
		})
	}
}

func datePtr(y int, m time.Month, d int) *model.Date {
	dt := model.NewDate(y, m, d)
	return &dt
}

func f64(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
