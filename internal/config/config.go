// Package config loads palmpay settings from defaults, an optional YAML file
// and PALMPAY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/ayusman/palmpay/internal/gesture"
)

// Config holds application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Gesture   GestureConfig   `mapstructure:"gesture"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Plugins   PluginsConfig   `mapstructure:"plugins"`
	Retention RetentionConfig `mapstructure:"retention"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// GestureConfig holds the recognition engine settings.
type GestureConfig struct {
	ConfidenceThreshold float64                `mapstructure:"confidence_threshold"`
	Smoothing           gesture.StrategyConfig `mapstructure:"smoothing"`
	History             HistoryConfig          `mapstructure:"history"`
}

// HistoryConfig holds history buffer and compound matching settings.
type HistoryConfig struct {
	Capacity          int    `mapstructure:"capacity"`
	RecordPolicy      string `mapstructure:"record_policy"`
	CompoundMatch     string `mapstructure:"compound_match"`
	CompoundTableFile string `mapstructure:"compound_table_file"`
}

// PipelineConfig holds camera pipeline settings.
type PipelineConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	CameraID        int     `mapstructure:"camera_id"`
	MotionThreshold float64 `mapstructure:"motion_threshold"`
	DetectorScript  string  `mapstructure:"detector_script"`
}

// PluginsConfig holds plugin discovery and execution settings.
type PluginsConfig struct {
	Dir     string        `mapstructure:"dir"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RetentionConfig controls pruning of the stored event log.
type RetentionConfig struct {
	Schedule string        `mapstructure:"schedule"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// MonitorConfig controls latency tracking.
type MonitorConfig struct {
	Samples       int           `mapstructure:"samples"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

// DataDir returns ~/.palmpay, the default home for the database and plugins.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".palmpay"
	}
	return filepath.Join(home, ".palmpay")
}

func setDefaults(v *viper.Viper) {
	dataDir := DataDir()
	smoothing := gesture.DefaultStrategyConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("database.path", filepath.Join(dataDir, "palmpay.db"))

	v.SetDefault("gesture.confidence_threshold", gesture.DefaultConfidenceThreshold)
	v.SetDefault("gesture.smoothing.strategy", smoothing.Name)
	v.SetDefault("gesture.smoothing.window_size", smoothing.WindowSize)
	v.SetDefault("gesture.smoothing.alpha", smoothing.Alpha)
	v.SetDefault("gesture.smoothing.measurement_noise", smoothing.MeasurementNoise)
	v.SetDefault("gesture.smoothing.process_noise", smoothing.ProcessNoise)
	v.SetDefault("gesture.smoothing.distance_threshold", smoothing.DistanceThreshold)
	v.SetDefault("gesture.smoothing.velocity_threshold", smoothing.VelocityThreshold)
	v.SetDefault("gesture.history.capacity", gesture.DefaultHistoryCapacity)
	v.SetDefault("gesture.history.record_policy", string(gesture.RecordAll))
	v.SetDefault("gesture.history.compound_match", string(gesture.MatchStrict))
	v.SetDefault("gesture.history.compound_table_file", "")

	v.SetDefault("pipeline.enabled", false)
	v.SetDefault("pipeline.camera_id", 0)
	v.SetDefault("pipeline.motion_threshold", 1.0)
	v.SetDefault("pipeline.detector_script", "")

	v.SetDefault("plugins.dir", filepath.Join(dataDir, "plugins"))
	v.SetDefault("plugins.timeout", "5s")

	v.SetDefault("retention.schedule", "@daily")
	v.SetDefault("retention.max_age", "720h")

	v.SetDefault("monitor.samples", 100)
	v.SetDefault("monitor.slow_threshold", "50ms")
}

// Default returns the configuration used when no file or env override exists.
func Default() Config {
	v := viper.New()
	setDefaults(v)

	var c Config
	_ = v.Unmarshal(&c)
	return c
}

// Load reads configuration. path, when non-empty, names the config file and
// must exist. Otherwise PALMPAY_CONFIG or ~/.config/palmpay/config.yaml is
// read if present. Env var overrides use prefix PALMPAY_, e.g.
// PALMPAY_GESTURE_CONFIDENCE_THRESHOLD.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")

	if path == "" {
		path = os.Getenv("PALMPAY_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "palmpay"))
		}
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("PALMPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// EngineConfig converts the gesture section into an engine configuration,
// loading the compound table file when one is set.
func (c Config) EngineConfig() (gesture.EngineConfig, error) {
	h := c.Gesture.History

	policy, err := gesture.ParseRecordPolicy(h.RecordPolicy)
	if err != nil {
		return gesture.EngineConfig{}, err
	}
	match, err := gesture.ParseCompoundMatch(h.CompoundMatch)
	if err != nil {
		return gesture.EngineConfig{}, err
	}

	table := gesture.DefaultCompoundTable()
	if h.CompoundTableFile != "" {
		if table, err = LoadCompoundTable(h.CompoundTableFile); err != nil {
			return gesture.EngineConfig{}, err
		}
	}

	return gesture.EngineConfig{
		ConfidenceThreshold: c.Gesture.ConfidenceThreshold,
		Smoothing:           c.Gesture.Smoothing,
		History: gesture.HistoryConfig{
			Capacity: h.Capacity,
			Policy:   policy,
			Match:    match,
			Table:    table,
		},
	}, nil
}

// Validate builds every gesture component once and checks the service
// settings. The first problem is returned as a *gesture.ConfigurationError
// where it concerns a single field.
func (c Config) Validate() error {
	ec, err := c.EngineConfig()
	if err != nil {
		return err
	}
	if _, err := gesture.NewEngine(ec); err != nil {
		return err
	}

	if c.Server.Addr == "" {
		return &gesture.ConfigurationError{Field: "server.addr", Value: c.Server.Addr, Reason: "must not be empty"}
	}
	if c.Database.Path == "" {
		return &gesture.ConfigurationError{Field: "database.path", Value: c.Database.Path, Reason: "must not be empty"}
	}
	if c.Plugins.Timeout < 0 {
		return &gesture.ConfigurationError{Field: "plugins.timeout", Value: c.Plugins.Timeout, Reason: "must not be negative"}
	}
	if c.Retention.MaxAge < 0 {
		return &gesture.ConfigurationError{Field: "retention.max_age", Value: c.Retention.MaxAge, Reason: "must not be negative"}
	}
	if c.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(c.Retention.Schedule); err != nil {
			return &gesture.ConfigurationError{Field: "retention.schedule", Value: c.Retention.Schedule, Reason: err.Error()}
		}
	}
	if c.Monitor.Samples < 0 {
		return &gesture.ConfigurationError{Field: "monitor.samples", Value: c.Monitor.Samples, Reason: "must not be negative"}
	}
	return nil
}
