package cmdflags

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/andrebq/authbox/auth"
	"github.com/andrebq/authbox/password"
	"github.com/urfave/cli/v2"
)

const (
	SessionStoreSQLite = "sqlite"
	SessionStoreMongo  = "mongo"
)

func UserDB(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = "authbox.db"
	}
	return &cli.StringFlag{
		Name:        "db",
		Usage:       "Path to the sqlite database holding users and persisted sessions",
		EnvVars:     []string{"AUTHBOX_DB"},
		Value:       *out,
		Destination: out,
	}
}

func Hasher(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = password.BcryptName
	}
	return &cli.StringFlag{
		Name:        "hasher",
		Usage:       "Password hashing algorithm (bcrypt or argon2id)",
		EnvVars:     []string{"AUTHBOX_HASHER"},
		Value:       *out,
		Destination: out,
	}
}

func AuthType(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "auth-type",
		Usage:       "Authentication strategy: none, auth, basic_auth, session_auth, session_exp_auth or session_db_auth",
		EnvVars:     []string{"AUTH_TYPE"},
		Value:       *out,
		Destination: out,
	}
}

func SessionName(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = auth.DefaultCookieName
	}
	return &cli.StringFlag{
		Name:        "session-name",
		Usage:       "Name of the cookie carrying the session id",
		EnvVars:     []string{"SESSION_NAME"},
		Value:       *out,
		Destination: out,
	}
}

// SessionDuration is kept as text, see ParseSessionDuration.
func SessionDuration(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "session-duration",
		Usage:       "Session lifetime in seconds, zero or invalid values disable expiration",
		EnvVars:     []string{"SESSION_DURATION"},
		Value:       *out,
		Destination: out,
	}
}

// ParseSessionDuration converts a number of seconds into a TTL. Values
// that cannot be parsed or are not positive mean sessions never expire.
func ParseSessionDuration(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// Exclude collects paths served without authentication. A trailing
// '*' exempts every path with that prefix.
func Exclude(out *cli.StringSlice) cli.Flag {
	return &cli.StringSliceFlag{
		Name:        "exclude",
		Usage:       "Path served without authentication (repeatable, replaces the defaults)",
		EnvVars:     []string{"AUTHBOX_EXCLUDE"},
		Destination: out,
	}
}

func BasicCacheWindow(out *time.Duration) cli.Flag {
	return &cli.DurationFlag{
		Name:        "basic-cache",
		Usage:       "How long a verified basic auth header is trusted without hashing again (0 disables)",
		EnvVars:     []string{"AUTHBOX_BASIC_CACHE"},
		Value:       *out,
		Destination: out,
	}
}

func SessionStore(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = SessionStoreSQLite
	}
	return &cli.StringFlag{
		Name:        "session-store",
		Usage:       "Where session_db_auth persists sessions: sqlite or mongo",
		EnvVars:     []string{"AUTHBOX_SESSION_STORE"},
		Value:       *out,
		Destination: out,
	}
}

func MongoURI(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = "mongodb://localhost:27017"
	}
	return &cli.StringFlag{
		Name:        "mongo-uri",
		Usage:       "MongoDB connection string used by the mongo session store",
		EnvVars:     []string{"AUTHBOX_MONGO_URI"},
		Value:       *out,
		Destination: out,
	}
}

func SweepInterval(out *time.Duration) cli.Flag {
	return &cli.DurationFlag{
		Name:        "sweep-interval",
		Usage:       "How often expired sessions are removed (0 disables the sweeper)",
		EnvVars:     []string{"AUTHBOX_SWEEP_INTERVAL"},
		Value:       *out,
		Destination: out,
	}
}

func Host(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "host",
		Usage:       "Interface to listen on",
		EnvVars:     []string{"API_HOST"},
		Value:       *out,
		Destination: out,
	}
}

func Port(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "port",
		Usage:       "Port to listen on",
		EnvVars:     []string{"API_PORT"},
		Value:       *out,
		Destination: out,
	}
}

func MetricsBind(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "metrics-bind",
		Usage:       "Address serving prometheus metrics at /metrics (empty disables it)",
		Value:       *out,
		Destination: out,
	}
}

// BindAddr joins host and port taken from Host and Port.
func BindAddr(host, port string) string {
	return net.JoinHostPort(host, port)
}
