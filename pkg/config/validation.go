package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Log level normalization is handled in ApplyDefaults; validation accepts
// both cases.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs validation that cannot be expressed in tags.
func validateCustomRules(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.FileTypes.Families))
	for i, f := range cfg.FileTypes.Families {
		if seen[f] {
			return fmt.Errorf("filetypes.families[%d]: duplicate family %q", i, f)
		}
		seen[f] = true
	}

	if seen["lid"] && cfg.FileTypes.LIDDir == "" {
		return errors.New("filetypes.lid_dir: required when the lid family is enabled")
	}

	if cfg.DMA.MaxChunk%16 != 0 {
		return fmt.Errorf("dma.max_chunk: %d is not a multiple of 16", cfg.DMA.MaxChunk)
	}

	if cfg.Adapter.MaxMessageSize != 0 && cfg.Adapter.MaxMessageSize < 3 {
		return fmt.Errorf("adapter.max_message_size: %d cannot hold a PLDM header", cfg.Adapter.MaxMessageSize)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		return errors.New("metrics.port: required when metrics are enabled")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
