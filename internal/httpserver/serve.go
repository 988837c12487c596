package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/andrebq/authbox/internal/logutil"
	"golang.org/x/sync/errgroup"
)

type (
	// Binding pairs a listen address with the handler served on it.
	Binding struct {
		Name    string
		Addr    string
		Handler http.Handler
	}
)

const (
	shutdownTimeout = 30 * time.Second
)

// Serve blocks serving handler on bind until ctx is cancelled
// or the listener fails.
func Serve(ctx context.Context, bind string, handler http.Handler) error {
	return ServeAll(ctx, Binding{Name: "main", Addr: bind, Handler: handler})
}

// ServeAll runs one server per binding. When any of them fails the
// others are shut down and the first error is returned.
func ServeAll(ctx context.Context, bindings ...Binding) error {
	group, groupCtx := errgroup.WithContext(ctx)
	for _, b := range bindings {
		if b.Addr == "" || b.Handler == nil {
			continue
		}
		server := newServer(b)
		name := b.Name
		group.Go(func() error {
			return serveUntilDone(groupCtx, name, server)
		})
	}
	return group.Wait()
}

func newServer(b Binding) *http.Server {
	return &http.Server{
		Handler:           b.Handler,
		Addr:              b.Addr,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute * 5,
	}
}

func serveUntilDone(ctx context.Context, name string, server *http.Server) error {
	log := logutil.GetOrDefault(ctx).With().Str("server.name", name).Str("server.addr", server.Addr).Logger()
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		log.Info().Msg("Initiating shutdown process")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Shutdown did not complete cleanly")
			return
		}
		log.Info().Msg("Shutdown completed")
	}()
	log.Info().Msg("Starting HTTP server")
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		// shutdown called, wait for it to drain connections
		<-stopped
		return nil
	}
	return err
}
