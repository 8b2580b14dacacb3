package config

import (
	"fmt"

	"github.com/marmos91/pldmfs/pkg/adapter/socket"
)

// CreateAdapter builds the socket adapter serving handler.
func CreateAdapter(cfg *Config, handler socket.MessageHandler, m *MetricsResult) (*socket.Adapter, error) {
	if m == nil {
		m = InitializeMetrics(&Config{})
	}

	a, err := socket.New(cfg.Adapter, handler, m.Connection)
	if err != nil {
		return nil, fmt.Errorf("failed to create socket adapter: %w", err)
	}
	return a, nil
}
