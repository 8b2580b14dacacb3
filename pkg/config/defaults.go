package config

import (
	"strings"
	"time"

	"github.com/marmos91/pldmfs/internal/protocol/pldm/fileio/handlers"
	"github.com/marmos91/pldmfs/pkg/dma"
	"github.com/marmos91/pldmfs/pkg/filetype"
)

// Default locations. They follow the layout of a BMC image: persistent
// data under /var/lib/pldm, runtime sockets under /run.
const (
	DefaultFileTablePath = "/var/lib/pldm/fileTable.json"
	DefaultLIDDir        = "/var/lib/phosphor-software-manager/hostfw"
	DefaultContentPath   = "/var/lib/pldm/files"
	DefaultJournalPath   = "/var/lib/pldm/journal"
	DefaultMetricsPort   = 9090
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Explicitly set values are never overridden.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyFileTableDefaults(&cfg.FileTable)
	applyDMADefaults(&cfg.DMA)
	applyFileTypesDefaults(&cfg.FileTypes)
	applyContentDefaults(&cfg.Content)
	applyJournalDefaults(&cfg.Journal)
	cfg.Adapter.ApplyDefaults()
	applyMetricsDefaults(&cfg.Metrics)
	applyAlertStatusDefaults(&cfg.AlertStatus)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyFileTableDefaults(cfg *FileTableConfig) {
	if cfg.Path == "" {
		cfg.Path = DefaultFileTablePath
	}
}

func applyDMADefaults(cfg *DMAConfig) {
	if cfg.DevicePath == "" {
		cfg.DevicePath = dma.DefaultDevicePath
	}
	if cfg.MaxChunk == 0 {
		cfg.MaxChunk = dma.DefaultMaxChunk
	}
}

func applyFileTypesDefaults(cfg *FileTypesConfig) {
	if len(cfg.Families) == 0 {
		for _, f := range filetype.Families() {
			cfg.Families = append(cfg.Families, string(f))
		}
	}
	for i, f := range cfg.Families {
		cfg.Families[i] = strings.ToLower(f)
	}
	if cfg.LIDDir == "" {
		cfg.LIDDir = DefaultLIDDir
	}
}

func applyContentDefaults(cfg *ContentConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = DefaultContentPath
	}
}

func applyJournalDefaults(cfg *JournalConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = DefaultJournalPath
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultMetricsPort
	}
}

func applyAlertStatusDefaults(cfg *AlertStatusConfig) {
	if cfg.RackEntry == 0 && cfg.PriCecNode == 0 {
		cfg.RackEntry = handlers.DefaultAlertStatus.RackEntry
		cfg.PriCecNode = handlers.DefaultAlertStatus.PriCecNode
	}
}

// GetDefaultConfig returns a Config with all defaults applied. Used by
// `pldmfsd init` and tests.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
