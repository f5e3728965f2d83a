package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "pebble", cfg.NodeDB.Type)
	assert.Equal(t, uint32(4), cfg.LogLevel)
	assert.Equal(t, "masterpassphrase", cfg.Genesis.MasterSeed)
	assert.NotZero(t, cfg.Genesis.TotalDrops)
	assert.NotZero(t, cfg.Genesis.ReserveBase)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arcd.toml")
	content := `
log_level = 5
database_path = "/tmp/arc"

[node_db]
type = "memory"

[genesis]
master_seed = "testseed"
total_drops = 1000000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), cfg.LogLevel)
	assert.Equal(t, "memory", cfg.NodeDB.Type)
	assert.Equal(t, "testseed", cfg.Genesis.MasterSeed)
	assert.Equal(t, uint64(1_000_000), cfg.Genesis.TotalDrops)
	// Untouched keys keep their defaults.
	assert.Equal(t, uint64(10), cfg.Genesis.BaseFee)
}

func TestMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arcd.toml")
	content := `
[node_db]
type = "flatfile"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "node_db.type")
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("ARCD_LOG_LEVEL", "2")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), cfg.LogLevel)
}
