package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/modelpick/pkg/logging"
)

// NewLogger creates a logger from the configuration and installs it as the
// package default. Level precedence, highest first:
//  1. --log-level flag or log_level setting
//  2. -v/--verbose (debug)
//  3. -q/--quiet (error)
//  4. Default (warn)
func NewLogger(config *Config) zerolog.Logger {
	logger := logging.NewLoggerFromConfig(&logging.Config{
		Level:   determineLogLevel(config),
		Format:  config.LogFormat,
		Output:  config.LogOutput,
		NoColor: config.NoColor || os.Getenv("NO_COLOR") != "",
	})
	logging.SetDefault(logger)
	return logger
}

func determineLogLevel(config *Config) string {
	if config.LogLevel != "" {
		validated, ok := validateLogLevel(config.LogLevel)
		if !ok {
			fmt.Fprintf(os.Stderr, "Warning: invalid log level %q, using %q\n", config.LogLevel, validated)
		}
		return validated
	}
	if config.Verbose && config.Quiet {
		fmt.Fprintln(os.Stderr, "Warning: both --verbose and --quiet specified, using --verbose")
		return "debug"
	}
	if config.Verbose {
		return "debug"
	}
	if config.Quiet {
		return "error"
	}
	return "warn"
}

func validateLogLevel(level string) (string, bool) {
	switch l := strings.ToLower(level); l {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
		return l, true
	case "warning":
		return "warn", true
	default:
		return "warn", false
	}
}
