package icloud

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/wesm/aliasvault/internal/alias"
	"github.com/wesm/aliasvault/internal/fileutil"
)

// fixtureFile is the on-disk shape of an offline alias set.
type fixtureFile struct {
	Aliases []alias.Record `json:"aliases"`
}

// LoadFixture returns a MockAPI seeded from a JSON file of the form
// {"aliases": [...]}. Records without an ID get "id-" plus their address and
// records without a status are active.
func LoadFixture(path string) (*MockAPI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read fixture %s", path)
	}
	var f fixtureFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "parse fixture %s", path)
	}
	for i := range f.Aliases {
		if f.Aliases[i].ID == "" {
			f.Aliases[i].ID = "id-" + f.Aliases[i].Address
		}
		if f.Aliases[i].Status == "" {
			f.Aliases[i].Status = alias.StatusActive
			continue
		}
		st, err := alias.ParseStatus(string(f.Aliases[i].Status))
		if err != nil {
			return nil, eris.Wrapf(err, "fixture %s: alias %s", path, f.Aliases[i].Address)
		}
		f.Aliases[i].Status = st
	}
	return NewMockAPI(f.Aliases...), nil
}

// SaveFixture writes the mock's current aliases to path atomically.
func (m *MockAPI) SaveFixture(path string) error {
	data, err := json.MarshalIndent(fixtureFile{Aliases: m.Aliases()}, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal fixture")
	}

	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), fileutil.PrivateFile); err != nil {
		return eris.Wrapf(err, "write fixture %s", path)
	}
	return nil
}
