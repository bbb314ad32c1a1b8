package store

import (
	"os"

	"github.com/pkg/errors"
	"github.com/serroba/rowquota/internal/records"
	"gopkg.in/yaml.v3"
)

// Fixture is a set of rows and key limits loaded into a store at startup.
type Fixture struct {
	Records   []records.Record `yaml:"records"`
	KeyLimits map[string]int   `yaml:"key_limits"`
}

// ParseFixture decodes a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, errors.WithMessage(err, "decode fixture")
	}

	for key, maxRows := range fixture.KeyLimits {
		if maxRows < 0 {
			return nil, errors.Errorf("fixture key limit for %s is negative", key)
		}
	}

	return &fixture, nil
}

// LoadFixture reads and decodes a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithMessage(err, "read fixture")
	}

	return ParseFixture(data)
}

// Apply loads the fixture into the memory store.
func (m *MemoryStore) Apply(fixture *Fixture) {
	for _, rec := range fixture.Records {
		m.Insert(rec)
	}

	for key, maxRows := range fixture.KeyLimits {
		m.SetKeyLimit(key, maxRows)
	}
}
