package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const configHeader = `# pldmfs Configuration File
#
# PLDM OEM file I/O responder. Every key can be overridden from the
# environment with the PLDMFS_ prefix, e.g. PLDMFS_ADAPTER_SOCKET_PATH.
#
# Sections:
#   logging       level (DEBUG, INFO, WARN, ERROR), format (text, json), output
#   file_table    descriptor with the "files" list served by GET_FILE_TABLE
#   dma           bridge device, chunk size
#   filetypes     enabled families (pel, lid, dump, cert, progress)
#   content       blob store for file-type data (filesystem, memory, s3)
#   journal       new-file / ack notification journal (memory, badger)
#   adapter       local unix socket the PLDM transport connects to
#   metrics       Prometheus endpoint
#   alert_status  values reported by GET_ALERT_STATUS
`

// ErrConfigExists is returned by InitConfig when the target exists and force
// is not set.
var ErrConfigExists = errors.New("config file already exists")

// InitConfig writes the default configuration to the default path and
// returns that path.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the default configuration to path, creating parent
// directories. An existing file is only replaced when force is set.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w at %s (use --force to overwrite)", ErrConfigExists, path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := GenerateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateYAMLWithComments renders cfg as YAML preceded by a descriptive
// header.
func GenerateYAMLWithComments(cfg *Config) (string, error) {
	var b strings.Builder
	b.WriteString(configHeader)
	b.WriteString("\n")

	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	return b.String(), nil
}
