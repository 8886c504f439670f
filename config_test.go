package casreg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	doc, err := LoadConfigFile("testdata/basic.yaml")
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Concurrency)
	assert.Equal(t, "basic-register", doc.Name)
	assert.Equal(t, Seed[string, string]{WriteID: "w0", Value: "v0"}, doc.StringSeed())
	assert.Equal(t, Config{Concurrency: 3, Name: "basic-register"}, doc.Config())
}

func TestLoadConfigRejectsMissingSeed(t *testing.T) {
	_, err := LoadConfig([]byte("concurrency: 2\n"))
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoadConfigRejectsNonPositiveConcurrency(t *testing.T) {
	_, err := LoadConfig([]byte("concurrency: 0\nseed:\n  write_id: w0\n  value: v0\n"))
	require.Error(t, err)
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := LoadConfigFile("testdata/does-not-exist.yaml")
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "testdata/does-not-exist.yaml", cfgErr.Path)
}
