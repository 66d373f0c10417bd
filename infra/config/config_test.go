package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_ValidConfigAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
replay:
  csv_path: ./tape.csv
server:
  grpc_addr: ":9090"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Book.Depth)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_MissingCSVPathFails(t *testing.T) {
	path := writeTempConfig(t, `
server:
  grpc_addr: ":9090"
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingGRPCAddrFails(t *testing.T) {
	path := writeTempConfig(t, `
replay:
  csv_path: ./tape.csv
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_BroadcasterRequiresTopicsWhenBrokersSet(t *testing.T) {
	path := writeTempConfig(t, `
replay:
  csv_path: ./tape.csv
server:
  grpc_addr: ":9090"
broadcaster:
  kafka_brokers: ["localhost:9092"]
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	require.Error(t, err)
}
