package config

import (
	"flag"
	"os"
	"time"

	"github.com/ekamanam/studysync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-d string   local data directory
//	-r string   remote mode: s3, memory or off
//	-b string   S3 bucket
//	-e string   S3 base endpoint
//	-g string   S3 region
//	-p string   account path inside the bucket
//	-k string   S3 access key
//	-t int      remote call timeout (seconds)
//	-n int      retry attempts for idempotent remote reads
//	-l string   log level
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-r", "-b", "-e", "-g", "-p", "-k", "-t", "-n", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "local data directory")
	fs.StringVar(&cfg.RemoteMode, "r", cfg.RemoteMode, "remote mode (s3|memory|off)")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3AccountPath, "p", cfg.S3AccountPath, "account path inside the bucket")
	fs.StringVar(&cfg.S3AccessKey, "k", cfg.S3AccessKey, "S3 access key")
	timeout := fs.Int("t", int(cfg.RemoteTimeout.Seconds()), "remote call timeout (in seconds)")
	fs.IntVar(&cfg.RetryMaxAttempts, "n", cfg.RetryMaxAttempts, "retry attempts for remote reads")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RemoteTimeout = time.Duration(*timeout) * time.Second
}
