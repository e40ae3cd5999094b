package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/paths"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "localhost:50061", cfg.IPC.Address)

	assert.Equal(t, 8, cfg.Scene.MaxBackground)
	assert.Equal(t, 500*time.Millisecond, cfg.Scene.ResultTimeout)

	assert.Equal(t, "single", cfg.Fold.Policy)
	assert.Equal(t, SingleFoldConfig{HalfFoldMin: 90, HalfFoldMax: 130, ExpandMin: 140}, cfg.Fold.Single)
	assert.Equal(t, 145.0, cfg.Fold.Dual.Expand)
	assert.Equal(t, paths.LargeFoldFlag, cfg.Fold.LargeFoldFlag)

	assert.Equal(t, 5, cfg.Sensor.Retries)
	assert.Equal(t, paths.SensorPluginDirs(), cfg.Sensor.PluginDir)
	assert.Equal(t, paths.Storage, cfg.Storage.Dir)

	require.NoError(t, cfg.Validate())
}

func withDefaultProductConfig(t *testing.T, path string) {
	t.Helper()
	prev := defaultProductConfig
	defaultProductConfig = path
	t.Cleanup(func() { defaultProductConfig = prev })
}

func TestLoadMatchesDefault(t *testing.T) {
	withDefaultProductConfig(t, filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                  "9000",
		"LOG_LEVEL":             "debug",
		"RATE_LIMIT_ENABLED":    "false",
		"IPC_ADDR":              "0.0.0.0:7000",
		"SCENE_MAX_BACKGROUND":  "3",
		"SCENE_RESULT_TIMEOUT":  "2s",
		"SCENE_ID_SALT":         "4096",
		"FOLD_POLICY":           "dual",
		"FOLD_DUAL_EXPAND":      "150",
		"FOLD_HALF_FOLD_MIN":    "80",
		"FOLD_HALL_SWITCH_APPS": "com.example.*,org.reader",
		"SENSOR_PLUGIN_DIR":     "/opt/a,/opt/b",
		"SENSOR_PLUGIN_BACKOFF": "250ms",
		"STORAGE_DIR":           "/var/lib/scene",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "0.0.0.0:7000", cfg.IPC.Address)
	assert.Equal(t, 3, cfg.Scene.MaxBackground)
	assert.Equal(t, 2*time.Second, cfg.Scene.ResultTimeout)
	assert.Equal(t, int32(4096), cfg.Scene.IDSalt)
	assert.Equal(t, "dual", cfg.Fold.Policy)
	assert.Equal(t, 150.0, cfg.Fold.Dual.Expand)
	assert.Equal(t, 80.0, cfg.Fold.Single.HalfFoldMin)
	assert.Equal(t, []string{"com.example.*", "org.reader"}, cfg.Fold.HallSwitchApps)
	assert.Equal(t, []string{"/opt/a", "/opt/b"}, cfg.Sensor.PluginDir)
	assert.Equal(t, 250*time.Millisecond, cfg.Sensor.Backoff)
	assert.Equal(t, "/var/lib/scene", cfg.Storage.Dir)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := map[string]string{
		"FOLD_POLICY":           "triple",
		"SCENE_MAX_BACKGROUND":  "0",
		"SENSOR_PLUGIN_RETRIES": "0",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
			assert.Equal(t, Default(), LoadOrDefault())
		})
	}
}

func TestLoadProductYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "product.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
fold:
  policy: dual
  dual:
    expand: 150
    half_fold_max: 130
  hall_switch_apps:
    - com.example.*
`), 0o644))

	fold := Default().Fold
	require.NoError(t, LoadProduct(path, &fold))

	assert.Equal(t, "dual", fold.Policy)
	assert.Equal(t, 150.0, fold.Dual.Expand)
	assert.Equal(t, 130.0, fold.Dual.HalfFoldMax)
	assert.Equal(t, 85.0, fold.Dual.HalfFoldMin, "unset keys keep defaults")
	assert.Equal(t, 140.0, fold.Single.ExpandMin)
	assert.Equal(t, []string{"com.example.*"}, fold.HallSwitchApps)
}

func TestLoadProductTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "product.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[fold]
policy = "single"

[fold.single]
half_fold_max = 125.5
`), 0o644))

	fold := Default().Fold
	require.NoError(t, LoadProduct(path, &fold))

	assert.Equal(t, 125.5, fold.Single.HalfFoldMax)
	assert.Equal(t, 90.0, fold.Single.HalfFoldMin)
	assert.Equal(t, 145.0, fold.Dual.Expand)
}

func TestLoadProductFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "product.yml")
	require.NoError(t, os.WriteFile(path, []byte("fold:\n  policy: dual\n"), 0o644))
	t.Setenv("FOLD_PRODUCT_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dual", cfg.Fold.Policy)
	assert.Equal(t, path, cfg.Fold.ProductConfig)
}

func TestLoadFindsDefaultProductFile(t *testing.T) {
	assert.Equal(t, paths.ProductConfig, defaultProductConfig)

	path := filepath.Join(t.TempDir(), "product.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fold:\n  policy: dual\n"), 0o644))
	withDefaultProductConfig(t, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dual", cfg.Fold.Policy)
	assert.Equal(t, path, cfg.Fold.ProductConfig)

	other := filepath.Join(t.TempDir(), "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte("fold:\n  policy: single\n"), 0o644))
	t.Setenv("FOLD_PRODUCT_CONFIG", other)

	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "single", cfg.Fold.Policy, "the environment wins over the default file")
}

func TestLoadProductErrors(t *testing.T) {
	fold := Default().Fold

	assert.Error(t, LoadProduct(filepath.Join(t.TempDir(), "missing.yaml"), &fold))

	ini := filepath.Join(t.TempDir(), "product.ini")
	require.NoError(t, os.WriteFile(ini, []byte("x=1"), 0o644))
	assert.ErrorContains(t, LoadProduct(ini, &fold), "unsupported format")

	bad := filepath.Join(t.TempDir(), "product.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[fold\n"), 0o644))
	assert.Error(t, LoadProduct(bad, &fold))
	assert.Equal(t, Default().Fold, fold, "failed loads leave the input untouched")
}
