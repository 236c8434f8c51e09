package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSurvey(); err != nil {
		return err
	}
	if err := c.validatePairing(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.StorageDir == c.Paths.StagingDir {
		return errors.New("paths.storage_dir and paths.staging_dir must differ")
	}
	return nil
}

func (c *Config) validateSurvey() error {
	// One slot for the answer and one for the terminal marker.
	if c.Survey.OptionCount < 2 {
		return errors.New("survey.option_count must be at least 2")
	}
	return nil
}

func (c *Config) validatePairing() error {
	if c.Pairing.BaselinePrefix == "" {
		return errors.New("pairing.baseline_prefix must be set")
	}
	if c.Pairing.ProcessedPrefix == "" {
		return errors.New("pairing.processed_prefix must be set")
	}
	if strings.HasPrefix(c.Pairing.BaselinePrefix, c.Pairing.ProcessedPrefix) ||
		strings.HasPrefix(c.Pairing.ProcessedPrefix, c.Pairing.BaselinePrefix) {
		return errors.New("pairing prefixes must not be prefixes of each other")
	}
	if c.Pairing.BaselineVariant == c.Pairing.ProcessedVariant {
		return errors.New("pairing.baseline_variant and pairing.processed_variant must differ")
	}
	return nil
}

func (c *Config) validateIngest() error {
	if c.Ingest.MaxEntryMiB < 0 {
		return errors.New("ingest.max_entry_mib must be >= 0")
	}
	if c.Ingest.StagingMaxAgeHours <= 0 {
		return errors.New("ingest.staging_max_age_hours must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
