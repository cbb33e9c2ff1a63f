// Package loggertest builds loggers for tests.
package loggertest

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/abroad-hub/counsellor/pkg/logger"
)

// New returns a logger that writes through t.Log.
func New(t testing.TB) *logger.Logger {
	return logger.FromZap(zaptest.NewLogger(t))
}
