package elsa

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

const logPermission = 0664

// NewLogger builds the logger for an editor host. It writes to w unless
// cfg.LogFile names a file to append to. The returned closer releases that
// file and is a no-op otherwise.
func NewLogger(cfg *Config, w io.Writer) (zerolog.Logger, func() error, error) {
	closer := func() error { return nil }
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logPermission)
		if err != nil {
			return zerolog.Nop(), closer, err
		}
		w = zerolog.SyncWriter(f)
		closer = f.Close
	}
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), closer, nil
}
