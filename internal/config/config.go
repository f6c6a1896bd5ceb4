// Package config holds the runtime configuration for librasctl, loaded through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration object.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Data     DataConfig     `mapstructure:"data" yaml:"data"`
	Camera   CameraConfig   `mapstructure:"camera" yaml:"camera"`
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector"`
	Gesture  GestureConfig  `mapstructure:"gesture" yaml:"gesture"`
	Input    InputConfig    `mapstructure:"input" yaml:"input"`
}

// LoggerConfig controls the zap logger and its rotated log file.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ServerConfig configures the two websocket listeners.
type ServerConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	DataPort     int           `mapstructure:"data_port" yaml:"data_port"`
	FramesPort   int           `mapstructure:"frames_port" yaml:"frames_port"`
	FrameFPS     float64       `mapstructure:"frame_fps" yaml:"frame_fps"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// DataConfig points at the directory holding the JSON stores and the journal.
type DataConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// CameraConfig configures frame capture.
type CameraConfig struct {
	Width        int `mapstructure:"width" yaml:"width"`
	Height       int `mapstructure:"height" yaml:"height"`
	ProbeDevices int `mapstructure:"probe_devices" yaml:"probe_devices"`
}

// DetectorConfig configures the MediaPipe landmark service.
type DetectorConfig struct {
	MaxHands        int     `mapstructure:"max_hands" yaml:"max_hands"`
	MinConfidence   float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
	MinTrackingConf float64 `mapstructure:"min_tracking_confidence" yaml:"min_tracking_confidence"`
	Python          string  `mapstructure:"python" yaml:"python"`
	Script          string  `mapstructure:"script" yaml:"script"`
}

// GestureConfig configures classification.
type GestureConfig struct {
	ProbeWindow time.Duration `mapstructure:"probe_window" yaml:"probe_window"`
}

// InputConfig configures input dispatching and cursor tracking.
type InputConfig struct {
	CursorSpeed   float64       `mapstructure:"cursor_speed" yaml:"cursor_speed"`
	MaxCursorStep int           `mapstructure:"max_cursor_step" yaml:"max_cursor_step"`
	SettleDelay   time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "librasctl")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Server --
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.data_port", 8765)
	v.SetDefault("server.frames_port", 8766)
	v.SetDefault("server.frame_fps", 30.0)
	v.SetDefault("server.write_timeout", "2s")

	// -- Data --
	v.SetDefault("data.dir", defaultDataDir())

	// -- Camera --
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("camera.probe_devices", 5)

	// -- Detector --
	v.SetDefault("detector.max_hands", 2)
	v.SetDefault("detector.min_confidence", 0.75)
	v.SetDefault("detector.min_tracking_confidence", 0.5)
	v.SetDefault("detector.python", "")
	v.SetDefault("detector.script", "")

	// -- Gesture --
	v.SetDefault("gesture.probe_window", "1s")

	// -- Input --
	v.SetDefault("input.cursor_speed", 2.0)
	v.SetDefault("input.max_cursor_step", 15)
	v.SetDefault("input.settle_delay", "100ms")
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration built from defaults only.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		// Defaults always validate.
		panic(err)
	}
	return cfg
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.DataPort <= 0 || c.Server.DataPort > 65535 {
		errs = append(errs, fmt.Errorf("server.data_port out of range: %d", c.Server.DataPort))
	}
	if c.Server.FramesPort <= 0 || c.Server.FramesPort > 65535 {
		errs = append(errs, fmt.Errorf("server.frames_port out of range: %d", c.Server.FramesPort))
	}
	if c.Server.DataPort == c.Server.FramesPort {
		errs = append(errs, errors.New("server.data_port and server.frames_port must differ"))
	}
	if c.Server.FrameFPS <= 0 {
		errs = append(errs, errors.New("server.frame_fps must be positive"))
	}
	if c.Data.Dir == "" {
		errs = append(errs, errors.New("data.dir must be set"))
	}
	if c.Input.CursorSpeed < 1 {
		errs = append(errs, errors.New("input.cursor_speed must be at least 1"))
	}
	if c.Input.MaxCursorStep <= 0 {
		errs = append(errs, errors.New("input.max_cursor_step must be positive"))
	}
	if c.Gesture.ProbeWindow <= 0 {
		errs = append(errs, errors.New("gesture.probe_window must be positive"))
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		errs = append(errs, errors.New("detector.min_confidence must be within [0,1]"))
	}
	return errors.Join(errs...)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".librasctl"
	}
	return filepath.Join(home, ".librasctl")
}
