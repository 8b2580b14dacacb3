package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "LOUD" },
			wantErr: "Level",
		},
		{
			name:    "unknown content type",
			mutate:  func(c *Config) { c.Content.Type = "tape" },
			wantErr: "Content.Type",
		},
		{
			name:    "unknown journal type",
			mutate:  func(c *Config) { c.Journal.Type = "sqlite" },
			wantErr: "Journal.Type",
		},
		{
			name:    "no families",
			mutate:  func(c *Config) { c.FileTypes.Families = nil },
			wantErr: "Families",
		},
		{
			name:    "unknown family",
			mutate:  func(c *Config) { c.FileTypes.Families = []string{"pel", "sensor"} },
			wantErr: "Families",
		},
		{
			name:    "duplicate family",
			mutate:  func(c *Config) { c.FileTypes.Families = []string{"pel", "pel"} },
			wantErr: "duplicate family",
		},
		{
			name:    "lid without directory",
			mutate:  func(c *Config) { c.FileTypes.LIDDir = "" },
			wantErr: "lid_dir",
		},
		{
			name:   "no lid family, no directory",
			mutate: func(c *Config) { c.FileTypes.Families = []string{"pel"}; c.FileTypes.LIDDir = "" },
		},
		{
			name:    "chunk below granularity",
			mutate:  func(c *Config) { c.DMA.MaxChunk = 8 },
			wantErr: "MaxChunk",
		},
		{
			name:    "unaligned chunk",
			mutate:  func(c *Config) { c.DMA.MaxChunk = 100 },
			wantErr: "multiple of 16",
		},
		{
			name:    "missing socket path",
			mutate:  func(c *Config) { c.Adapter.SocketPath = "" },
			wantErr: "SocketPath",
		},
		{
			name:    "metrics port out of range",
			mutate:  func(c *Config) { c.Metrics.Port = 70000 },
			wantErr: "Port",
		},
		{
			name:    "metrics enabled without port",
			mutate:  func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Port = 0 },
			wantErr: "metrics.port",
		},
		{
			name:    "zero shutdown timeout",
			mutate:  func(c *Config) { c.Server.ShutdownTimeout = 0 },
			wantErr: "ShutdownTimeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
