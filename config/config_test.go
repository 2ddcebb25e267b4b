package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pharmadesk.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `backend:
  base_url: https://orders.example.test/api/
  timeout: 3s
  retry:
    max_retries: 4
    initial_interval: 50ms
dispatch:
  workers: 6
  call_timeout: 15s
pages:
  page_size: 25
logging:
  level: debug
  format: text
validation:
  login:
    - field: password
      expression: len(password) >= 12
      message: too short
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://orders.example.test/api/", cfg.Backend.BaseURL)
	require.Equal(t, 3*time.Second, cfg.BackendTimeout())
	require.Equal(t, 4, cfg.Backend.Retry.MaxRetries)
	require.Equal(t, 50*time.Millisecond, cfg.Backend.Retry.InitialInterval.Duration)
	require.Equal(t, 6, cfg.Dispatch.Workers)
	require.Equal(t, 15*time.Second, cfg.Dispatch.CallTimeout.Duration)
	require.Equal(t, 25, cfg.PageSize())
	require.Equal(t, 12, cfg.MedicinePageSize())
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, ":18081", cfg.Inspector.Listen)
	require.Len(t, cfg.Validation["login"], 1)
}

func TestLoadRejectsInvalidBackend(t *testing.T) {
	path := writeConfig(t, "backend:\n  base_url: ftp://example.test\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsIncompleteRule(t *testing.T) {
	path := writeConfig(t, "validation:\n  login:\n    - field: email\n")
	_, err := Load(path)
	require.ErrorContains(t, err, "validation.login[0]")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "backend:\n  timeout: soon\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 10*time.Second, cfg.BackendTimeout())
	require.Equal(t, 10, cfg.PageSize())

	cfg.Session.File = "/tmp/session.json"
	require.Equal(t, "/tmp/session.json", cfg.SessionFile())
}
