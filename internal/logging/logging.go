// Package logging configures the global zerolog logger.
//
// The TUI owns stdout, so log output goes to a file in the data directory.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup points the global logger at <dataDir>/headlessmc.log and returns the
// file handle so the caller can close it on shutdown.
func Setup(dataDir string) (io.Closer, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	path := filepath.Join(dataDir, "headlessmc.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return f, nil
}

// Disable silences the global logger. Used by tests.
func Disable() {
	log.Logger = zerolog.Nop()
}
