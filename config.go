package casreg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigError reports a problem loading or validating a Config/Seed
// document. Mirrors the pack's "construct an error value describing
// what went wrong, don't panic on bad user input" discipline for
// configuration loading (distinct from InvalidHistoryError, which is
// reserved for malformed *histories*, not malformed *configuration*).
type ConfigError struct {
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// SeedDocument is the YAML-serialisable form of a Seed[string, string],
// the common case where write-ids and values are both plain strings
// (e.g. fixtures hand-written for a test harness).
type SeedDocument struct {
	WriteID string `yaml:"write_id"`
	Value   string `yaml:"value"`
}

// ConfigDocument is the YAML-serialisable form of Config plus a Seed.
// Harnesses that already keep their run parameters in YAML (the
// convention this pack's scenario-driven test tooling uses throughout)
// can load a checker configuration directly instead of hand-assembling
// a Config and Seed in code.
type ConfigDocument struct {
	Concurrency int           `yaml:"concurrency"`
	Name        string        `yaml:"name,omitempty"`
	Seed        SeedDocument  `yaml:"seed"`
}

// LoadConfig parses a ConfigDocument from YAML bytes.
func LoadConfig(data []byte) (ConfigDocument, error) {
	var doc ConfigDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ConfigDocument{}, &ConfigError{Message: fmt.Sprintf("parsing config: %v", err)}
	}
	if doc.Concurrency <= 0 {
		return ConfigDocument{}, &ConfigError{Message: fmt.Sprintf("concurrency must be positive, got %d", doc.Concurrency)}
	}
	if doc.Seed.WriteID == "" {
		return ConfigDocument{}, &ConfigError{Message: "seed.write_id must be set"}
	}
	return doc, nil
}

// LoadConfigFile reads and parses a ConfigDocument from a YAML file.
func LoadConfigFile(path string) (ConfigDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ConfigDocument{}, &ConfigError{Path: path, Message: err.Error()}
	}
	doc, err := LoadConfig(data)
	if err != nil {
		if ce, ok := err.(*ConfigError); ok {
			ce.Path = path
			return ConfigDocument{}, ce
		}
		return ConfigDocument{}, err
	}
	return doc, nil
}

// Config returns the plain Config (concurrency bound, run name) embedded
// in the document.
func (d ConfigDocument) Config() Config {
	return Config{Concurrency: d.Concurrency, Name: d.Name}
}

// StringSeed returns the document's seed as a Seed[string, string],
// ready to pass to NewChecker/Check/SafeCheck.
func (d ConfigDocument) StringSeed() Seed[string, string] {
	return Seed[string, string]{WriteID: d.Seed.WriteID, Value: d.Seed.Value}
}
