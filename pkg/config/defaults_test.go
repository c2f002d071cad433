package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DrSkyle/leastpriv/pkg/engine/denial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Region != DefaultRegion {
		t.Errorf("Expected region %s, got %s", DefaultRegion, cfg.Region)
	}
	if cfg.Sources.Lookback != 24*time.Hour {
		t.Errorf("Expected 24h lookback, got %s", cfg.Sources.Lookback)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}
}

func TestDefaultFilterPattern_CoversSignatures(t *testing.T) {
	assert.LessOrEqual(t, len(DefaultFilterPattern), 1024, "CloudWatch caps filter patterns at 1024 characters")
	for _, term := range denial.SignatureTerms {
		assert.Contains(t, DefaultFilterPattern, `?"`+term+`"`)
		assert.Contains(t, DefaultFilterPattern, `?"`+strings.ToLower(term)+`"`)
		assert.Contains(t, DefaultFilterPattern, `?"`+strings.ToUpper(term)+`"`)
	}
	assert.Contains(t, DefaultFilterPattern, `?"CredentialsNotFound"`)
	assert.Contains(t, DefaultFilterPattern, `?"forbidden"`)
	assert.Contains(t, DefaultFilterPattern, `?"States.TaskFailed"`)
	assert.Contains(t, DefaultFilterPattern, `?"Permission Denied"`)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Sources.Lookback = -time.Minute
	cfg.Concurrency = 0
	cfg.Output.Formats = []string{"json", "pdf"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookback")
	assert.Contains(t, err.Error(), "concurrency")
	assert.Contains(t, err.Error(), `"pdf"`)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leastpriv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
region: eu-west-1
stack: orders-service
sources:
  lookback: 6h
  cloudtrail: true
output:
  formats: [json, terraform]
concurrency: 8
`), 0o600))

	t.Setenv("LEASTPRIV_STRICT", "true")
	t.Setenv("LEASTPRIV_SOURCES_MAX_EVENTS", "250")

	cfg, err := Load(NewViper(path), true)
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, "orders-service", cfg.Stack)
	assert.Equal(t, 6*time.Hour, cfg.Sources.Lookback)
	assert.True(t, cfg.Sources.CloudTrail)
	assert.Equal(t, 250, cfg.Sources.MaxEvents)
	assert.Equal(t, []string{"json", "terraform"}, cfg.Output.Formats)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.True(t, cfg.StrictMode)
	assert.Equal(t, DefaultFilterPattern, cfg.Sources.FilterPattern)
}

func TestLoad_MissingFiles(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := Load(NewViper(missing), true)
	assert.Error(t, err)

	cfg, err := Load(NewViper(missing), false)
	require.NoError(t, err)
	assert.Equal(t, Default().Concurrency, cfg.Concurrency)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("concurrency: 0\n"), 0o600))

	_, err := Load(NewViper(path), true)
	assert.ErrorContains(t, err, "invalid config")
}
