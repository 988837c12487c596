package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/andrebq/authbox/auth"
	"github.com/andrebq/authbox/internal/cmdflags"
	"github.com/andrebq/authbox/internal/httpserver"
	"github.com/andrebq/authbox/internal/logutil"
	"github.com/andrebq/authbox/internal/metrics"
	"github.com/andrebq/authbox/password"
	"github.com/andrebq/authbox/sessions"
	"github.com/andrebq/authbox/sessions/mongostore"
	"github.com/andrebq/authbox/userdb"
	"github.com/andrebq/authbox/webapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var dbPath, hasherName string
	var authType, cookieName, sessionDuration string
	var sessionStore, mongoURI string
	var basicCache time.Duration
	sweepInterval := time.Minute
	host := "0.0.0.0"
	port := "5000"
	var metricsBind string
	var excluded cli.StringSlice
	return &cli.Command{
		Name:  "api",
		Usage: "Start the /api/v1 server protected by the selected authentication strategy",
		Flags: []cli.Flag{
			cmdflags.UserDB(&dbPath),
			cmdflags.Hasher(&hasherName),
			cmdflags.AuthType(&authType),
			cmdflags.SessionName(&cookieName),
			cmdflags.SessionDuration(&sessionDuration),
			cmdflags.BasicCacheWindow(&basicCache),
			cmdflags.SessionStore(&sessionStore),
			cmdflags.MongoURI(&mongoURI),
			cmdflags.SweepInterval(&sweepInterval),
			cmdflags.Host(&host),
			cmdflags.Port(&port),
			cmdflags.Exclude(&excluded),
			cmdflags.MetricsBind(&metricsBind),
		},
		Action: func(ctx *cli.Context) error {
			log := logutil.GetOrDefault(ctx.Context)
			kind, err := auth.ParseKind(authType)
			if err != nil {
				return err
			}
			hasher, err := password.ByName(hasherName)
			if err != nil {
				return err
			}
			db, err := userdb.Open(ctx.Context, dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m := metrics.NewAuth(reg)

			var persister sessions.Persister
			if kind == auth.KindSessionDB {
				var disconnect func(context.Context) error
				persister, disconnect, err = openPersister(ctx.Context, db, sessionStore, mongoURI)
				if err != nil {
					return err
				}
				defer disconnect(context.Background())
			}

			strategy, err := auth.New(ctx.Context, auth.Config{
				Kind:             kind,
				CookieName:       cookieName,
				Users:            db,
				Hasher:           hasher,
				BasicCacheWindow: basicCache,
				SessionTTL:       cmdflags.ParseSessionDuration(sessionDuration),
				Persister:        persister,
				Metrics:          m,
			})
			if err != nil {
				return err
			}
			if s, ok := strategy.(*auth.Session); ok {
				s.Registry().StartSweeper(ctx.Context, sweepInterval)
			}
			log.Info().Str("auth.type", string(kind)).Str("session.store", sessionStore).Msg("Authentication strategy loaded")

			handler, err := webapi.AsHandler(ctx.Context, webapi.Config{
				Users:    db,
				Hasher:   hasher,
				Strategy: strategy,
				Excluded: excludedPaths(excluded.Value()),
				Metrics:  m,
			})
			if err != nil {
				return err
			}

			return httpserver.ServeAll(ctx.Context,
				httpserver.Binding{
					Name:    "api",
					Addr:    cmdflags.BindAddr(host, port),
					Handler: logutil.Middleware(log, handler),
				},
				metricsBinding(metricsBind, reg))
		},
	}
}

func openPersister(ctx context.Context, db *userdb.DB, store, mongoURI string) (sessions.Persister, func(context.Context) error, error) {
	switch store {
	case "", cmdflags.SessionStoreSQLite:
		return db.SessionRecords(), func(context.Context) error { return nil }, nil
	case cmdflags.SessionStoreMongo:
		s, disconnect, err := mongostore.Connect(ctx, mongoURI, mongostore.DefaultDBName, mongostore.DefaultCollectionName)
		if err != nil {
			return nil, nil, err
		}
		return s, disconnect, nil
	}
	return nil, nil, fmt.Errorf("unknown session store %q", store)
}

// excludedPaths keeps the defaults unless paths were given.
func excludedPaths(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	return paths
}

func metricsBinding(addr string, g prometheus.Gatherer) httpserver.Binding {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	return httpserver.Binding{Name: "metrics", Addr: addr, Handler: mux}
}
