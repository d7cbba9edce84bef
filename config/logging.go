package config

import (
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

// ConfigureLogging sets up the process-wide commonlog backend. Verbosity
// 0 logs errors only; each level above adds warnings, notices, info and
// debug messages. An empty path logs to stderr.
func ConfigureLogging(verbosity int, path string) {
	if verbosity < 0 {
		verbosity = 0
	}
	var target *string
	if path != "" {
		target = &path
	}
	commonlog.Configure(verbosity, target)
}

// Verbosity returns the log verbosity for a run: the larger of the
// configured level and the count of -v flags.
func (c *Config) Verbosity(flags int) int {
	return max(c.LogLevel, flags)
}
