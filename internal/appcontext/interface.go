// Package appcontext provides the application context interface shared by
// all commands, so command packages depend on an interface rather than the
// concrete App.
package appcontext

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/agentstation/modelpick"
)

// Interface defines what commands need from the application.
type Interface interface {
	// Engine returns the engine, creating it lazily on first use.
	Engine(ctx context.Context) (modelpick.Engine, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml).
	OutputFormat() string

	// Stdin is where interactive input is read from.
	Stdin() io.Reader

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
