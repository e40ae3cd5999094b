package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/paths"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	IPC       IPCConfig
	Scene     SceneConfig
	Fold      FoldConfig
	Sensor    SensorConfig
	Storage   StorageConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// IPCConfig holds the gRPC parcel transport configuration.
type IPCConfig struct {
	Address string `envconfig:"IPC_ADDR" default:"localhost:50061"`
	Enabled bool   `envconfig:"IPC_ENABLED" default:"true"`
}

// SceneConfig holds directory configuration.
type SceneConfig struct {
	MaxBackground int           `envconfig:"SCENE_MAX_BACKGROUND" default:"8"`
	ResultTimeout time.Duration `envconfig:"SCENE_RESULT_TIMEOUT" default:"500ms"`
	IDSalt        int32         `envconfig:"SCENE_ID_SALT" default:"0"`
	DefaultScreen uint64        `envconfig:"SCENE_DEFAULT_SCREEN" default:"0"`
	ScreenWidth   uint32        `envconfig:"SCENE_SCREEN_WIDTH" default:"1080"`
	ScreenHeight  uint32        `envconfig:"SCENE_SCREEN_HEIGHT" default:"2340"`
}

// FoldConfig holds fold engine thresholds. A product file named by ProductConfig
// may override any of them.
type FoldConfig struct {
	Policy        string `envconfig:"FOLD_POLICY" default:"single" yaml:"policy" toml:"policy"`
	ProductConfig string `envconfig:"FOLD_PRODUCT_CONFIG" yaml:"-" toml:"-"`
	LargeFoldFlag string `envconfig:"FOLD_LARGE_FOLD_FLAG" yaml:"large_fold_flag" toml:"large_fold_flag"`

	Single SingleFoldConfig `yaml:"single" toml:"single"`
	Dual   DualFoldConfig   `yaml:"dual" toml:"dual"`

	HallSwitchApps []string `envconfig:"FOLD_HALL_SWITCH_APPS" yaml:"hall_switch_apps" toml:"hall_switch_apps"`
}

// SingleFoldConfig holds single-display thresholds in degrees.
type SingleFoldConfig struct {
	HalfFoldMin float64 `envconfig:"FOLD_HALF_FOLD_MIN" default:"90" yaml:"half_fold_min" toml:"half_fold_min"`
	HalfFoldMax float64 `envconfig:"FOLD_HALF_FOLD_MAX" default:"130" yaml:"half_fold_max" toml:"half_fold_max"`
	ExpandMin   float64 `envconfig:"FOLD_EXPAND_MIN" default:"140" yaml:"expand_min" toml:"expand_min"`
}

// DualFoldConfig holds dual-display thresholds in degrees.
type DualFoldConfig struct {
	Folded      float64 `envconfig:"FOLD_DUAL_FOLDED" default:"85" yaml:"folded" toml:"folded"`
	Expand      float64 `envconfig:"FOLD_DUAL_EXPAND" default:"145" yaml:"expand" toml:"expand"`
	HalfFoldMin float64 `envconfig:"FOLD_DUAL_HALF_FOLD_MIN" default:"85" yaml:"half_fold_min" toml:"half_fold_min"`
	HalfFoldMax float64 `envconfig:"FOLD_DUAL_HALF_FOLD_MAX" default:"135" yaml:"half_fold_max" toml:"half_fold_max"`
	FoldedLower float64 `envconfig:"FOLD_DUAL_FOLDED_LOWER" default:"10" yaml:"folded_lower" toml:"folded_lower"`
	FoldedUpper float64 `envconfig:"FOLD_DUAL_FOLDED_UPPER" default:"20" yaml:"folded_upper" toml:"folded_upper"`
}

// SensorConfig holds sensor plugin configuration.
type SensorConfig struct {
	Enabled   bool          `envconfig:"SENSOR_PLUGIN_ENABLED" default:"false"`
	PluginDir []string      `envconfig:"SENSOR_PLUGIN_DIR"`
	Pattern   string        `envconfig:"SENSOR_PLUGIN_PATTERN" default:"libsensor*.so"`
	Retries   int           `envconfig:"SENSOR_PLUGIN_RETRIES" default:"5"`
	Backoff   time.Duration `envconfig:"SENSOR_PLUGIN_BACKOFF" default:"100ms"`
}

// StorageConfig holds key/value store configuration.
type StorageConfig struct {
	Dir string `envconfig:"STORAGE_DIR"`
}

// defaultProductConfig is read when FOLD_PRODUCT_CONFIG is unset and the file exists
var defaultProductConfig = paths.ProductConfig

// Load loads configuration from environment variables and then the product file, if any.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.applyPathDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Fold.ProductConfig == "" {
		if _, err := os.Stat(defaultProductConfig); err == nil {
			cfg.Fold.ProductConfig = defaultProductConfig
		}
	}
	if cfg.Fold.ProductConfig != "" {
		if err := LoadProduct(cfg.Fold.ProductConfig, &cfg.Fold); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Fold.Policy {
	case "single", "dual":
	default:
		return fmt.Errorf("FOLD_POLICY must be single or dual, got %q", c.Fold.Policy)
	}
	if c.Scene.MaxBackground < 1 {
		return fmt.Errorf("SCENE_MAX_BACKGROUND must be positive, got %d", c.Scene.MaxBackground)
	}
	if c.Sensor.Retries < 1 {
		return fmt.Errorf("SENSOR_PLUGIN_RETRIES must be positive, got %d", c.Sensor.Retries)
	}
	return nil
}

func (c *Config) applyPathDefaults() {
	if c.Fold.LargeFoldFlag == "" {
		c.Fold.LargeFoldFlag = paths.LargeFoldFlag
	}
	if len(c.Sensor.PluginDir) == 0 {
		c.Sensor.PluginDir = paths.SensorPluginDirs()
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = paths.Storage
	}
}

// Default returns default configuration.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		IPC: IPCConfig{
			Address: "localhost:50061",
			Enabled: true,
		},
		Scene: SceneConfig{
			MaxBackground: 8,
			ResultTimeout: 500 * time.Millisecond,
			ScreenWidth:   1080,
			ScreenHeight:  2340,
		},
		Fold: FoldConfig{
			Policy: "single",
			Single: SingleFoldConfig{HalfFoldMin: 90, HalfFoldMax: 130, ExpandMin: 140},
			Dual: DualFoldConfig{
				Folded:      85,
				Expand:      145,
				HalfFoldMin: 85,
				HalfFoldMax: 135,
				FoldedLower: 10,
				FoldedUpper: 20,
			},
		},
		Sensor: SensorConfig{
			Pattern: "libsensor*.so",
			Retries: 5,
			Backoff: 100 * time.Millisecond,
		},
	}
	cfg.applyPathDefaults()
	return cfg
}
