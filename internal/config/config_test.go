package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8765, cfg.Server.DataPort)
	assert.Equal(t, 8766, cfg.Server.FramesPort)
	assert.Equal(t, time.Second, cfg.Gesture.ProbeWindow)
	assert.Equal(t, 100*time.Millisecond, cfg.Input.SettleDelay)
	assert.Equal(t, 15, cfg.Input.MaxCursorStep)
	assert.Equal(t, 2.0, cfg.Input.CursorSpeed)
	assert.Equal(t, 0.75, cfg.Detector.MinConfidence)
	assert.NotEmpty(t, cfg.Data.Dir)
}

func TestLoad_Overrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("server.data_port", 9000)
	v.Set("gesture.probe_window", "250ms")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.DataPort)
	assert.Equal(t, 250*time.Millisecond, cfg.Gesture.ProbeWindow)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "same ports",
			mutate:  func(c *Config) { c.Server.FramesPort = c.Server.DataPort },
			wantErr: "must differ",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.DataPort = 70000 },
			wantErr: "server.data_port out of range",
		},
		{
			name:    "slow cursor",
			mutate:  func(c *Config) { c.Input.CursorSpeed = 0.5 },
			wantErr: "cursor_speed",
		},
		{
			name:    "empty data dir",
			mutate:  func(c *Config) { c.Data.Dir = "" },
			wantErr: "data.dir",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
