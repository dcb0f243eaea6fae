// Package testhelpers provides shared fixtures for package tests.
package testhelpers

import (
	"github.com/jonesrussell/gomonitor/internal/logger"
)

// NewTestLogger creates a logger suitable for testing (discards output).
func NewTestLogger() logger.Logger {
	return logger.NewNop()
}
