package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnvOverrides()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePairing()
	c.normalizeLogging()
	return nil
}

func (c *Config) applyEnvOverrides() {
	overrides := map[string]*string{
		"AUDIOSURVEY_ARCHIVE_DIR": &c.Paths.ArchiveDir,
		"AUDIOSURVEY_STORAGE_DIR": &c.Paths.StorageDir,
		"AUDIOSURVEY_STAGING_DIR": &c.Paths.StagingDir,
		"AUDIOSURVEY_LOG_DIR":     &c.Paths.LogDir,
	}
	for env, target := range overrides {
		if value, ok := os.LookupEnv(env); ok && strings.TrimSpace(value) != "" {
			*target = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.archive_dir", &c.Paths.ArchiveDir, defaultArchiveDir},
		{"paths.storage_dir", &c.Paths.StorageDir, defaultStorageDir},
		{"paths.staging_dir", &c.Paths.StagingDir, defaultStagingDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizePairing() {
	c.Pairing.BaselinePrefix = strings.ToLower(strings.TrimSpace(c.Pairing.BaselinePrefix))
	c.Pairing.ProcessedPrefix = strings.ToLower(strings.TrimSpace(c.Pairing.ProcessedPrefix))
	c.Pairing.BaselineVariant = strings.TrimSpace(c.Pairing.BaselineVariant)
	if c.Pairing.BaselineVariant == "" {
		c.Pairing.BaselineVariant = defaultBaselineVariant
	}
	c.Pairing.ProcessedVariant = strings.TrimSpace(c.Pairing.ProcessedVariant)
	if c.Pairing.ProcessedVariant == "" {
		c.Pairing.ProcessedVariant = defaultProcessedVariant
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
