package logutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type (
	key byte

	statusRecorder struct {
		http.ResponseWriter
		status int
	}
)

var (
	loggerKey = key(1)
)

func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

func GetOrDefault(ctx context.Context) zerolog.Logger {
	v := ctx.Value(loggerKey)
	if v == nil {
		return log.Logger
	}
	return v.(zerolog.Logger)
}

// Configure replaces the global logger with one writing to out using
// the given level and format (json or console).
func Configure(out io.Writer, level, format string) error {
	if out == nil {
		out = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("logutil: invalid log level %q, cause %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	switch format {
	case "", "json":
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	case "console":
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	default:
		return fmt.Errorf("logutil: unknown log format %q", format)
	}
	return nil
}

// Middleware attaches base to every request context and logs
// one line per served request.
func Middleware(base zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		reqLog := base.With().Str("http.method", r.Method).Str("http.path", r.URL.Path).Logger()
		next.ServeHTTP(rec, r.WithContext(WithLogger(r.Context(), reqLog)))
		reqLog.Info().Int("http.status", rec.status).Dur("http.duration", time.Since(start)).Msg("Request served")
	})
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
