package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	APP         = "APP"
	API         = "API"
	CONFIG      = "CONFIG"
	COOLDOWN    = "COOLDOWN"
	MOCKAPI     = "MOCKAPI"
	NOTIFY      = "NOTIFY"
	PREFERENCES = "PREFERENCES"
	REDIS       = "REDIS"
	SESSION     = "SESSION"
	STATE       = "STATE"
	STORAGE     = "STORAGE"
	SYNC        = "SYNC"
	TOKEN       = "TOKEN"
)

func getLogLevel() zerolog.Level {
	level := strings.ToUpper(os.Getenv("LOG_LEVEL"))
	switch level {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func newWriter(out io.Writer) io.Writer {
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

// Setup configures the global zerolog logger from LOG_LEVEL and LOG_FORMAT.
func Setup(out io.Writer) {
	zerolog.SetGlobalLevel(getLogLevel())
	log.Logger = zerolog.New(newWriter(out)).With().Timestamp().Logger()
}

// For returns the global logger tagged with a namespace.
func For(namespace string) zerolog.Logger {
	return log.With().Str("namespace", namespace).Logger()
}
