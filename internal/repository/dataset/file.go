package dataset

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/knowwho/internal/domain/network"
)

//go:embed demo.yaml
var demoYAML []byte

// Demo returns the bundled sample dataset.
func Demo() (*network.Dataset, error) {
	return Decode(demoYAML)
}

// LoadFile reads a dataset from a YAML or JSON file.
func LoadFile(path string) (*network.Dataset, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("read dataset file: %w", err)
	}
	ds, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Decode parses YAML, which also accepts JSON documents. Unknown fields
// are rejected so that typos in metric names surface early.
func Decode(data []byte) (*network.Dataset, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var ds network.Dataset
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return &ds, nil
}
