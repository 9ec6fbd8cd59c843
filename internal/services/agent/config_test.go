package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fields.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
fields:
  - id: field1
    crop_type: corn
    device_id: sprayer-north
    rows: 6
    cols: 8
    tank_capacity_l: 150
  - id: field2
    crop_type: soy
disease_catalog:
  - name: Rust
    severity: severe
    weight: 2
  - name: Mildew
    severity: low
    weight: 1
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Fields, 2)

	assert.Equal(t, "sprayer-north", cfg.Fields[0].DeviceID)
	assert.Equal(t, 6, cfg.Fields[0].Rows)
	assert.Equal(t, 150.0, cfg.Fields[0].TankCapacityL)

	// device id defaults from the field id
	assert.Equal(t, "sprayer-field2", cfg.Fields[1].DeviceID)

	require.Len(t, cfg.Catalog, 2)
	assert.Equal(t, "Rust", cfg.Catalog[0].Name)
}

func TestLoadConfigRejectsDuplicateIDs(t *testing.T) {
	path := writeConfig(t, `
fields:
  - id: field1
  - id: field1
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate field id")
}

func TestLoadConfigRejectsEmptyFields(t *testing.T) {
	path := writeConfig(t, "fields: []\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigRejectsUnknownSeverity(t *testing.T) {
	path := writeConfig(t, `
fields:
  - id: field1
disease_catalog:
  - name: Rust
    severity: catastrophic
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown severity")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
