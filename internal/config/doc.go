// Package config loads runtime configuration for the studysync CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected via -c or -config. Files ending in .yaml
//     or .yml are decoded with gopkg.in/yaml.v3, anything else as JSON.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Only keys present in the file overwrite defaults.
//
// # File schema
//
//	{
//	  "data_dir": "studysync-data",
//	  "remote_mode": "s3",
//	  "s3_bucket": "ekamanam",
//	  "s3_account_path": "accounts/alice",
//	  "remote_timeout": "15s",
//	  "retry_max_attempts": 3,
//	  "similarity_threshold": 0.7
//	}
package config
