package config

import "time"

// Config holds runtime settings for the study library sync core.
//
// Units: durations are time.Duration values; SimilarityThreshold is in [0,1].
type Config struct {
	DataDir      string
	DatabaseFile string

	// Remote object store. RemoteMode is "s3", "memory" or "off".
	RemoteMode     string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccountPath  string
	S3AccessKey    string
	S3SecretKey    string
	S3SessionToken string

	RemoteTimeout    time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration

	// SyncInterval is the period of background reconciliation; zero disables it.
	SyncInterval time.Duration

	SimilarityThreshold float64
	CacheLocalFallback  bool

	LogBackend string
	LogFormat  string
	LogLevel   string
}

// LoadDefaults populates c with sensible defaults. The remote stays off until
// credentials are configured.
func (c *Config) LoadDefaults() {
	c.DataDir = "studysync-data"
	c.DatabaseFile = "library.db"
	c.RemoteMode = "off"
	c.S3Bucket = "ekamanam"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.S3AccountPath = "accounts/default"
	c.RemoteTimeout = 15 * time.Second
	c.RetryMaxAttempts = 3
	c.RetryBaseDelay = 200 * time.Millisecond
	c.SyncInterval = time.Minute
	c.SimilarityThreshold = 0.7
	c.LogBackend = "slog"
	c.LogFormat = "text"
	c.LogLevel = "info"
}

// RemoteEnabled reports whether a remote store should be constructed.
func (c *Config) RemoteEnabled() bool {
	return c.RemoteMode == "s3" || c.RemoteMode == "memory"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
