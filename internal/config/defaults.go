package config

const (
	defaultConfigPath         = "~/.config/audiosurvey/config.toml"
	defaultArchiveDir         = "~/.local/share/audiosurvey/archives"
	defaultStorageDir         = "~/.local/share/audiosurvey/uploads"
	defaultStagingDir         = "~/.local/share/audiosurvey/staging"
	defaultLogDir             = "~/.local/share/audiosurvey/logs"
	defaultOptionCount        = 4
	defaultBaselinePrefix     = "raw_sample_"
	defaultProcessedPrefix    = "superres_sample_"
	defaultBaselineVariant    = "raw"
	defaultProcessedVariant   = "superres"
	defaultMaxEntryMiB        = 100
	defaultStagingMaxAgeHours = 24
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ArchiveDir: defaultArchiveDir,
			StorageDir: defaultStorageDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Survey: Survey{
			OptionCount: defaultOptionCount,
		},
		Pairing: Pairing{
			BaselinePrefix:   defaultBaselinePrefix,
			ProcessedPrefix:  defaultProcessedPrefix,
			BaselineVariant:  defaultBaselineVariant,
			ProcessedVariant: defaultProcessedVariant,
		},
		Ingest: Ingest{
			MaxEntryMiB:        defaultMaxEntryMiB,
			StagingMaxAgeHours: defaultStagingMaxAgeHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
