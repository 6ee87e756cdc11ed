package config

const (
	defaultStagingDir          = "~/.local/share/cardoff/staging"
	defaultStoreDir            = "/mnt/nas/Photos"
	defaultLogDir              = "~/.local/share/cardoff/logs"
	defaultProfilesPath        = "~/.config/cardoff/cameras.yaml"
	defaultProbeTimeout        = 5
	defaultMinStagingFreeMiB   = 1024
	defaultSampleFiles         = 3
	defaultConfidenceThreshold = 60
	defaultMaxRetries          = 3
	defaultRetryBackoff        = 2
	defaultDigestWorkers       = 4
	defaultNotifyTimeout       = 10
	defaultSettleDelay         = 3
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir:   defaultStagingDir,
			StoreDir:     defaultStoreDir,
			LogDir:       defaultLogDir,
			ProfilesPath: defaultProfilesPath,
		},
		Router: Router{
			ProbeTimeout:      defaultProbeTimeout,
			MinStagingFreeMiB: defaultMinStagingFreeMiB,
		},
		Identify: Identify{
			SampleFiles:         defaultSampleFiles,
			ConfidenceThreshold: defaultConfidenceThreshold,
		},
		Transfer: Transfer{
			MaxRetries:         defaultMaxRetries,
			RetryBackoff:       defaultRetryBackoff,
			DigestWorkers:      defaultDigestWorkers,
			PreserveTimestamps: true,
		},
		Cleanup: Cleanup{
			DeleteOriginals: false,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Watcher: Watcher{
			MountBases:  []string{"/media", "/mnt", "/run/media"},
			SettleDelay: defaultSettleDelay,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
