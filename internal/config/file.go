package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/ekamanam/studysync/internal/flagx"
	"github.com/ekamanam/studysync/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the DTO decoded from a config file. Pointer fields tell
// "absent" apart from zero values so only present keys override defaults.
type FileConfig struct {
	DataDir      *string `json:"data_dir" yaml:"data_dir"`
	DatabaseFile *string `json:"database_file" yaml:"database_file"`

	RemoteMode     *string `json:"remote_mode" yaml:"remote_mode"`
	S3Bucket       *string `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region       *string `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint *string `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3AccountPath  *string `json:"s3_account_path" yaml:"s3_account_path"`
	S3AccessKey    *string `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey    *string `json:"s3_secret_key" yaml:"s3_secret_key"`
	S3SessionToken *string `json:"s3_session_token" yaml:"s3_session_token"`

	RemoteTimeout    *timex.Duration `json:"remote_timeout" yaml:"remote_timeout"`
	RetryMaxAttempts *int            `json:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelay   *timex.Duration `json:"retry_base_delay" yaml:"retry_base_delay"`
	SyncInterval     *timex.Duration `json:"sync_interval" yaml:"sync_interval"`

	SimilarityThreshold *float64 `json:"similarity_threshold" yaml:"similarity_threshold"`
	CacheLocalFallback  *bool    `json:"cache_local_fallback" yaml:"cache_local_fallback"`

	LogBackend *string `json:"log_backend" yaml:"log_backend"`
	LogFormat  *string `json:"log_format" yaml:"log_format"`
	LogLevel   *string `json:"log_level" yaml:"log_level"`
}

// parseFile overlays cfg with values from the file named by -c/-config.
// It panics on read or decode errors, like the flag parser does.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(cfg)
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.DatabaseFile, fc.DatabaseFile)
	setString(&cfg.RemoteMode, fc.RemoteMode)
	setString(&cfg.S3Bucket, fc.S3Bucket)
	setString(&cfg.S3Region, fc.S3Region)
	setString(&cfg.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&cfg.S3AccountPath, fc.S3AccountPath)
	setString(&cfg.S3AccessKey, fc.S3AccessKey)
	setString(&cfg.S3SecretKey, fc.S3SecretKey)
	setString(&cfg.S3SessionToken, fc.S3SessionToken)
	setString(&cfg.LogBackend, fc.LogBackend)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.LogLevel, fc.LogLevel)

	if fc.RemoteTimeout != nil {
		cfg.RemoteTimeout = fc.RemoteTimeout.Duration
	}
	if fc.RetryMaxAttempts != nil {
		cfg.RetryMaxAttempts = *fc.RetryMaxAttempts
	}
	if fc.RetryBaseDelay != nil {
		cfg.RetryBaseDelay = fc.RetryBaseDelay.Duration
	}
	if fc.SyncInterval != nil {
		cfg.SyncInterval = fc.SyncInterval.Duration
	}
	if fc.SimilarityThreshold != nil {
		cfg.SimilarityThreshold = *fc.SimilarityThreshold
	}
	if fc.CacheLocalFallback != nil {
		cfg.CacheLocalFallback = *fc.CacheLocalFallback
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
