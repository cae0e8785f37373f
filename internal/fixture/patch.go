package fixture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// PatchFile describes fixture types and a patch in YAML or TOML form:
//
//	types:
//	  - name: ledbar
//	    channels: [{name: Dimmer, offset: 0}, {name: Red, offset: 1}]
//	patch:
//	  - number: 1
//	    type: rgbpar
//	    universe: 0
//	    address: 1
type PatchFile struct {
	Types []*Type      `yaml:"types" toml:"types"`
	Patch []PatchEntry `yaml:"patch" toml:"patch"`
}

// PatchEntry is one fixture in a patch file.
type PatchEntry struct {
	Number   int    `yaml:"number" toml:"number"`
	Name     string `yaml:"name,omitempty" toml:"name"`
	Type     string `yaml:"type" toml:"type"`
	Universe int    `yaml:"universe" toml:"universe"`
	Address  int    `yaml:"address" toml:"address"`
}

// LoadPatchFile reads a patch file; the format is chosen by extension
// (.yaml/.yml or .toml).
func LoadPatchFile(path string) (*PatchFile, error) {
	var pf PatchFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &pf); err != nil {
			return nil, fmt.Errorf("failed to decode patch file %s: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read patch file: %w", err)
		}
		if err := yaml.Unmarshal(data, &pf); err != nil {
			return nil, fmt.Errorf("failed to decode patch file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported patch file format: %s", path)
	}
	return &pf, nil
}

// Resolve registers the file's types in the library and builds fixtures for
// the patch entries, in file order.
func (pf *PatchFile) Resolve(lib *Library) ([]*Fixture, error) {
	for _, t := range pf.Types {
		if err := lib.Register(t); err != nil {
			return nil, err
		}
	}

	fixtures := make([]*Fixture, 0, len(pf.Patch))
	for _, entry := range pf.Patch {
		if entry.Number <= 0 {
			return nil, fmt.Errorf("patch entry has invalid fixture number %d", entry.Number)
		}
		t, ok := lib.Lookup(entry.Type)
		if !ok {
			return nil, fmt.Errorf("fixture %d: unknown fixture type %q", entry.Number, entry.Type)
		}
		name := entry.Name
		if name == "" {
			name = fmt.Sprintf("%s %d", t.Name, entry.Number)
		}
		f := &Fixture{
			ID:       IDFor(entry.Number),
			Number:   entry.Number,
			Name:     name,
			Type:     t,
			Universe: entry.Universe,
			Address:  entry.Address,
		}
		if err := f.Validate(); err != nil {
			return nil, err
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, nil
}
