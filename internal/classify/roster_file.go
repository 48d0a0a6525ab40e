package classify

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// RosterFile is a standalone seller roster, kept separate from the main
// config so sales ops can edit it without touching connection settings.
type RosterFile struct {
	Sellers []Seller       `yaml:"sellers"`
	SLADays map[string]int `yaml:"sla_days,omitempty"`
}

// LoadRosterFile reads a roster from a YAML file.
func LoadRosterFile(path string) (*RosterFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "roster: read %s", path)
	}

	// The YAML has a top-level "roster" key
	var wrapper struct {
		Roster RosterFile `yaml:"roster"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "roster: parse file")
	}

	rf := &wrapper.Roster
	if len(rf.Sellers) == 0 {
		return nil, eris.Errorf("roster: no sellers in %s", path)
	}
	// Entries without a display label reuse the key verbatim.
	for i, s := range rf.Sellers {
		if s.Label == "" {
			rf.Sellers[i].Label = s.Key
		}
	}
	return rf, nil
}
