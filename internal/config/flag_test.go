package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "remote flags", args: []string{"cmd", "-r", "s3", "-b", "books", "-p", "accounts/u1", "-t", "5", "-n", "2"}, expectPanic: false,
			expected: &Config{RemoteMode: "s3", S3Bucket: "books", S3AccountPath: "accounts/u1", RemoteTimeout: 5 * time.Second, RetryMaxAttempts: 2}},
		{name: "unrelated flags are ignored", args: []string{"cmd", "-c", "cfg.json", "-d", "/tmp/x"}, expectPanic: false,
			expected: &Config{DataDir: "/tmp/x"}},
		{name: "incorrect timeout", args: []string{"cmd", "-t", "abc"}, expectPanic: true, expected: &Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
