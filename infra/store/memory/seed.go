package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/evnav/core/model"
)

// Seed is the initial content of a Store.
type Seed struct {
	Stations []model.Station `json:"stations" yaml:"stations"`
	Vehicles []model.Vehicle `json:"vehicles" yaml:"vehicles"`
	Routes   []model.Route   `json:"routes" yaml:"routes"`
}

// LoadSeed loads a Seed from a JSON or YAML file.
func LoadSeed(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, err
	}
	defer f.Close()
	return DecodeSeed(f, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// DecodeSeed reads a Seed in the given format ("yaml", "yml" or "json").
func DecodeSeed(r io.Reader, format string) (Seed, error) {
	var seed Seed
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&seed); err != nil && err != io.EOF {
			return seed, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&seed); err != nil {
			return seed, err
		}
	default:
		return seed, fmt.Errorf("unsupported seed format: %s", format)
	}
	for _, v := range seed.Vehicles {
		if err := v.Validate(); err != nil {
			return seed, err
		}
	}
	return seed, nil
}
