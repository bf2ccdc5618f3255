package config

const (
	defaultShowsFile        = "~/.config/airlift/shows.toml"
	defaultWatchDir         = "~/.local/share/airlift/incoming"
	defaultOutputDir        = "~/.local/share/airlift/processed"
	defaultLogDir           = "~/.local/share/airlift/logs"
	defaultDebounceSeconds  = 2
	defaultStabilityPollMs  = 250
	defaultRescanSeconds    = 60
	defaultNotifyTimeout    = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

func defaultAllowedExtensions() []string {
	return []string{".mp3", ".wav", ".flac", ".aac", ".m4a"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ShowsFile:        defaultShowsFile,
			DefaultWatchDir:  defaultWatchDir,
			DefaultOutputDir: defaultOutputDir,
			LogDir:           defaultLogDir,
		},
		Intake: Intake{
			AllowedExtensions: defaultAllowedExtensions(),
			DebounceSeconds:   defaultDebounceSeconds,
			StabilityPollMs:   defaultStabilityPollMs,
			RescanSeconds:     defaultRescanSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Queued:         true,
			Completed:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
