package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudu/hairline/internal/classify"
	"github.com/dudu/hairline/internal/landmark"
	"github.com/dudu/hairline/internal/storage"
)

func noEnv(string) (string, bool) { return "", false }

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvDataDir, EnvStorageDriver, EnvStorageDSN, EnvLogLevel, EnvORTLibrary} {
		t.Setenv(k, "")
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 50.0, cfg.Metrics.DensitySaturation)
	assert.Equal(t, classify.DefaultRules(), cfg.Classify)
	assert.Equal(t, landmark.FaceMesh(), cfg.Landmarks)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))

	require.NoError(t, err)
	assert.Equal(t, Default().Metrics, cfg.Metrics)
}

func TestLoad_OverlaysFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "hairline.toml")
	content := `
data_dir = "/tmp/hl"
subject = "alice"

[storage]
driver = "sqlite"

[metrics]
density_saturation = 80.0

[classify]
low_below = 0.1

[progress]
stable_height = 0.02
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/hl", cfg.DataDir)
	assert.Equal(t, "alice", cfg.Subject)
	assert.Equal(t, 80.0, cfg.Metrics.DensitySaturation)
	assert.Equal(t, 50.0, cfg.Metrics.SymmetrySaturation, "unset keys keep defaults")
	assert.Equal(t, 0.1, cfg.Classify.LowBelow)
	assert.Equal(t, 0.25, cfg.Classify.HighAbove)
	assert.Equal(t, 0.02, cfg.Progress.StableHeight)
	assert.Equal(t, filepath.Join("/tmp/hl", "hairline.db"), cfg.StorageConfig().DSN)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir = ["), 0o644))

	_, err := Load(path)

	assert.Error(t, err)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[metrics]\ndensity_saturation = 0.0\n"), 0o644))

	_, err := Load(path)

	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvDataDir:       "/srv/hairline",
		EnvStorageDriver: "POSTGRES",
		EnvStorageDSN:    "postgres://localhost/hairline",
		EnvLogLevel:      "debug",
		EnvORTLibrary:    "/opt/ort/libonnxruntime.so",
	}
	cfg := Default()

	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "/srv/hairline", cfg.DataDir)
	assert.Equal(t, storage.DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/hairline", cfg.Storage.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/opt/ort/libonnxruntime.so", cfg.ORTLibrary)
}

func TestApplyEnv_EmptyValuesIgnored(t *testing.T) {
	cfg := Default()

	cfg.ApplyEnv(func(string) (string, bool) { return "", true })

	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hairline.toml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir = \"from-file\"\n"), 0o644))
	clearEnv(t)
	t.Setenv(EnvDataDir, "from-env")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.DataDir)
}

func TestStorageConfig_Defaults(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(noEnv)
	cfg.DataDir = "d"

	assert.Equal(t, filepath.Join("d", "hairline_data.json"), cfg.StorageConfig().DSN)

	cfg.Storage.Driver = storage.DriverMemory
	assert.Empty(t, cfg.StorageConfig().DSN)

	cfg.Storage = storage.Config{Driver: storage.DriverJSON, DSN: "custom.json"}
	assert.Equal(t, "custom.json", cfg.StorageConfig().DSN)

	cfg.Storage = storage.Config{Driver: storage.DriverPostgres}
	assert.Error(t, cfg.Validate())
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "conf", "hairline.toml")
	cfg := Default()
	cfg.Subject = "bob"
	cfg.Metrics.DensitySaturation = 64

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestPipeline(t *testing.T) {
	cfg := Default()
	cfg.Analysis.Extension = 0.75

	pc := cfg.Pipeline()

	assert.Equal(t, 0.75, pc.Extension)
	assert.Equal(t, cfg.Metrics, pc.Metrics)
	assert.Equal(t, cfg.Classify, pc.Rules)
	assert.Equal(t, cfg.Landmarks, pc.Table)
}
