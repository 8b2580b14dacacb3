package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/marmos91/pldmfs/pkg/adapter/socket"
)

// Config represents the complete pldmfs configuration.
//
// This structure captures every configurable aspect of the responder:
//   - Logging and server-wide settings
//   - The file table descriptor
//   - The DMA bridge device and chunking
//   - Which file-type families are served, and where their data lives
//   - The content store and the notification journal (store-specific)
//   - The local socket adapter
//   - Metrics and alert status telemetry
//
// Configuration sources (in order of precedence):
//  1. Environment variables (PLDMFS_*)
//  2. Configuration file (YAML, TOML or JSON)
//  3. Default values
//
// Store-specific options are kept as maps and decoded by the factories, so
// adding a store type never changes this struct.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// FileTable points at the file table descriptor
	FileTable FileTableConfig `mapstructure:"file_table" yaml:"file_table"`

	// DMA configures the host bridge device
	DMA DMAConfig `mapstructure:"dma" yaml:"dma"`

	// FileTypes selects the served file-type families
	FileTypes FileTypesConfig `mapstructure:"filetypes" yaml:"filetypes"`

	// Content selects the blob store used by the file-type handlers
	Content ContentConfig `mapstructure:"content" yaml:"content"`

	// Journal selects where new-file and ack notifications are recorded
	Journal JournalConfig `mapstructure:"journal" yaml:"journal"`

	// Adapter configures the local socket endpoint
	Adapter socket.Config `mapstructure:"adapter" yaml:"adapter"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// AlertStatus holds the values reported by GET_ALERT_STATUS
	AlertStatus AlertStatusConfig `mapstructure:"alert_status" yaml:"alert_status"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`
}

// FileTableConfig locates the file table descriptor.
type FileTableConfig struct {
	// Path of the descriptor (JSON, YAML or TOML with a "files" list).
	// A missing descriptor yields an empty table, reported to the host as
	// FILE_TABLE_UNAVAILABLE.
	Path string `mapstructure:"path" yaml:"path"`
}

// DMAConfig configures the bridge device and chunked transfers.
type DMAConfig struct {
	// DevicePath of the bridge character device
	DevicePath string `mapstructure:"device_path" yaml:"device_path" validate:"required"`

	// MaxChunk is the largest length handed to one device transfer
	MaxChunk uint32 `mapstructure:"max_chunk" yaml:"max_chunk" validate:"required,gte=16"`

	// PageSize overrides the system page size used to size DMA windows.
	// 0 uses the system value.
	PageSize int `mapstructure:"page_size" yaml:"page_size" validate:"min=0"`
}

// FileTypesConfig selects the file-type families and their local resources.
type FileTypesConfig struct {
	// Families lists the enabled families (pel, lid, dump, cert, progress)
	Families []string `mapstructure:"families" yaml:"families" validate:"required,min=1,dive,oneof=pel lid dump cert progress"`

	// LIDDir is the root of the perm/temp/marker LID directories
	LIDDir string `mapstructure:"lid_dir" yaml:"lid_dir"`

	// DumpSocket is the unix socket offloaded dumps are streamed to.
	// Empty disables offload.
	DumpSocket string `mapstructure:"dump_socket" yaml:"dump_socket"`
}

// ContentConfig specifies the content store. Only the options of the
// selected type are used.
type ContentConfig struct {
	// Type specifies which content store implementation to use
	// Valid values: filesystem, memory, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=filesystem memory s3"`

	// Filesystem contains filesystem-specific options
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem,omitempty"`

	// Memory contains memory-specific options
	Memory map[string]any `mapstructure:"memory" yaml:"memory,omitempty"`

	// S3 contains S3-specific options
	S3 map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`
}

// JournalConfig specifies the notification journal.
type JournalConfig struct {
	// Type specifies which journal implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific options
	Memory map[string]any `mapstructure:"memory" yaml:"memory,omitempty"`

	// Badger contains badger-specific options
	Badger map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`
}

// MetricsConfig configures the Prometheus HTTP endpoint.
type MetricsConfig struct {
	// Enabled turns on metric collection and the HTTP server
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port of the metrics HTTP server
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`
}

// AlertStatusConfig holds the GET_ALERT_STATUS telemetry values.
type AlertStatusConfig struct {
	RackEntry  uint32 `mapstructure:"rack_entry" yaml:"rack_entry"`
	PriCecNode uint32 `mapstructure:"pri_cec_node" yaml:"pri_cec_node"`
}

// Load loads configuration from file and environment variables.
//
// If configPath is empty the default location is searched
// ($XDG_CONFIG_HOME/pldmfs/config.yaml or ~/.config/pldmfs/config.yaml).
// A missing file is not an error: defaults apply. Environment variables use
// the PLDMFS_ prefix with "." replaced by "_", e.g.
// PLDMFS_ADAPTER_SOCKET_PATH.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("PLDMFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only sees keys viper already knows about.
	bindEnvKeys(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// bindEnvKeys registers the scalar keys that can be overridden from the
// environment.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"logging.level", "logging.format", "logging.output",
		"server.shutdown_timeout",
		"file_table.path",
		"dma.device_path", "dma.max_chunk", "dma.page_size",
		"filetypes.lid_dir", "filetypes.dump_socket",
		"content.type", "journal.type",
		"adapter.socket_path", "adapter.max_connections", "adapter.max_message_size",
		"adapter.read_timeout", "adapter.write_timeout", "adapter.idle_timeout",
		"adapter.shutdown_timeout",
		"adapter.rate_limit.requests_per_second", "adapter.rate_limit.burst",
		"metrics.enabled", "metrics.port",
	} {
		_ = v.BindEnv(key)
	}
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "pldmfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "pldmfs")
}

// GetDefaultConfigPath returns the path Load searches when given "".
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists reports whether a config file exists at the default path.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the directory holding the default config file.
func GetConfigDir() string {
	return getConfigDir()
}
