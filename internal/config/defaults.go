package config

const (
	defaultPrefix              = "~/.local/share/pspman"
	defaultCloneSubdir         = "src"
	defaultLogDir              = "~/.local/share/pspman/logs"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultInboxCapacity       = 64
	defaultStallTimeoutMillis  = 10_000
	defaultStallRetries        = 3
	defaultDatabaseFileName    = ".pspman.yml"
	defaultHistoryFileName     = ".pspman.history.db"
	defaultLockFileName        = ".proc.lock"
	defaultConfigPathTemplate  = "~/.config/pspman/config.toml"
	defaultProjectConfigFile   = "pspman.toml"
	envPrefixOverride          = "PSPMAN_PREFIX"
	envCloneDirOverride        = "PSPMAN_CLONE_DIR"
	maxParallelism             = 256
	minStallTimeoutMillis      = 10
	maxInboxCapacity           = 1 << 16
	defaultParallelismAutoFlag = 0
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			Prefix: defaultPrefix,
			LogDir: defaultLogDir,
		},
		Run: Run{
			Parallelism:   defaultParallelismAutoFlag,
			InboxCapacity: defaultInboxCapacity,
		},
		Handoff: Handoff{
			StallTimeoutMillis: defaultStallTimeoutMillis,
			StallRetries:       defaultStallRetries,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
