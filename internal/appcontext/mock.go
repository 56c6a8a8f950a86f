package appcontext

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/modelpick"
	"github.com/agentstation/modelpick/pkg/logging"
)

// Mock provides a mock implementation of Interface for testing.
// Unset fields return zero values.
type Mock struct {
	EngineValue modelpick.Engine
	EngineErr   error
	LoggerValue *zerolog.Logger
	Format      string
	Input       string
	VersionInfo [4]string
}

var _ Interface = (*Mock)(nil)

// Engine returns EngineValue or EngineErr.
func (m *Mock) Engine(context.Context) (modelpick.Engine, error) {
	return m.EngineValue, m.EngineErr
}

// Logger returns LoggerValue or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerValue != nil {
		return m.LoggerValue
	}
	return logging.NewNopLogger()
}

// OutputFormat returns Format.
func (m *Mock) OutputFormat() string { return m.Format }

// Stdin returns Input as a reader.
func (m *Mock) Stdin() io.Reader { return strings.NewReader(m.Input) }

// Version returns VersionInfo[0].
func (m *Mock) Version() string { return m.VersionInfo[0] }

// Commit returns VersionInfo[1].
func (m *Mock) Commit() string { return m.VersionInfo[1] }

// Date returns VersionInfo[2].
func (m *Mock) Date() string { return m.VersionInfo[2] }

// BuiltBy returns VersionInfo[3].
func (m *Mock) BuiltBy() string { return m.VersionInfo[3] }
