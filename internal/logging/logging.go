// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup sets the global level and routes log output to a console writer
// on stderr. An unknown level falls back to info and is reported.
func Setup(level string, noColor bool) {
	SetupWriter(os.Stderr, level, noColor)
}

func SetupWriter(w io.Writer, level string, noColor bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: time.RFC3339,
	})
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, using info")
	}
}
