package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Seller is one roster entry: the lowercase key token matched against owner
// text, and the canonical display label used in every aggregate view.
type Seller struct {
	Key   string `yaml:"key" mapstructure:"key" json:"key"`
	Label string `yaml:"label" mapstructure:"label" json:"label"`
}

// DefaultRoster is the seller roster used when configuration provides none.
var DefaultRoster = []Seller{
	{Key: "somya", Label: "Somya"},
	{Key: "akshay iyer", Label: "Akshay Iyer"},
	{Key: "abhinav kishore", Label: "Abhinav Kishore"},
	{Key: "maruti peri", Label: "Maruti Peri"},
	{Key: "vitor quirino", Label: "Vitor Quirino"},
}

// foldDiacritics maps accented letters onto their base form so that owner
// text like "Vítor Quirino" still matches the roster key.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func fold(s string) string {
	out, _, err := transform.String(foldDiacritics, s)
	if err != nil {
		return s
	}
	return out
}

// Roster matches free-text owner fields against known sellers.
type Roster struct {
	sellers []Seller
}

// NewRoster builds a roster, falling back to DefaultRoster when empty.
func NewRoster(sellers []Seller) *Roster {
	if len(sellers) == 0 {
		sellers = DefaultRoster
	}
	return &Roster{sellers: sellers}
}

// Labels returns the canonical seller labels in roster order.
func (r *Roster) Labels() []string {
	labels := make([]string, len(r.sellers))
	for i, s := range r.sellers {
		labels[i] = s.Label
	}
	return labels
}

// Match returns the labels of every seller whose key token appears in the
// owner text. Matching is case-insensitive, whitespace-collapsed, and
// diacritic-folded; a deal may match zero, one, or several sellers.
func (r *Roster) Match(owner string) []string {
	haystack := fold(Norm(owner))
	if haystack == "" {
		return nil
	}
	var matched []string
	for _, s := range r.sellers {
		if strings.Contains(haystack, fold(Norm(s.Key))) {
			matched = append(matched, s.Label)
		}
	}
	return matched
}
