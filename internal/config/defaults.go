package config

const (
	defaultBaseURL             = "http://127.0.0.1:8080"
	defaultRequestTimeout      = 30
	defaultMaxFiles            = 6
	defaultMaxSizeMiB          = 50
	defaultDownloadDir         = "~/Downloads/morph"
	defaultProbeIntervalMillis = 1000
	defaultStagingDir          = "~/.local/share/morph/staging"
	defaultLogDir              = "~/.local/share/morph/logs"
	defaultDataDir             = "~/.local/share/morph/data"
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			BaseURL:        defaultBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Session: Session{
			MaxFiles:    defaultMaxFiles,
			MaxSizeMiB:  defaultMaxSizeMiB,
			DownloadDir: defaultDownloadDir,
		},
		Auth: Auth{
			ProbeIntervalMillis: defaultProbeIntervalMillis,
		},
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			DataDir:    defaultDataDir,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
