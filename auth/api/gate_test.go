package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/andrebq/authbox/auth"
	"github.com/andrebq/authbox/internal/metrics"
	"github.com/andrebq/authbox/internal/testutil"
	"github.com/andrebq/authbox/userdb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
)

var excluded = []string{"/api/v1/status/", "/public/*"}

func countingHandler(count *uint32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddUint32(count, 1)
		if u := auth.UserFrom(r.Context()); u != nil {
			w.Header().Set("X-User", u.Email)
		}
		http.Error(w, "OK", http.StatusOK)
	})
}

func TestNoStrategy(t *testing.T) {
	var count uint32
	protected := NewGate(nil, excluded, nil).Protect(countingHandler(&count))
	apitest.Handler(protected).Get("/api/v1/users").Expect(t).Status(http.StatusOK).End()
	if count != 1 {
		t.Fatal("without a strategy every request should go through")
	}
}

func TestBaseStrategyForbidsEveryone(t *testing.T) {
	var count uint32
	protected := NewGate(auth.Base{Cookie: "sid"}, excluded, nil).Protect(countingHandler(&count))
	apitest.Handler(protected).Get("/api/v1/status").Expect(t).Status(http.StatusOK).End()
	apitest.Handler(protected).Get("/public/logo.png").Expect(t).Status(http.StatusOK).End()
	apitest.Handler(protected).Get("/api/v1/users").Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.error", "Unauthorized")).
		End()
	apitest.Handler(protected).Get("/api/v1/users").Header("Authorization", "Basic abc").Expect(t).
		Status(http.StatusForbidden).
		Assert(jsonpath.Equal("$.error", "Forbidden")).
		End()
	apitest.Handler(protected).Get("/api/v1/users").Cookie("sid", "s1").Expect(t).
		Status(http.StatusForbidden).
		End()
	if count != 2 {
		t.Fatalf("only excluded paths should reach the handler, got %v calls", count)
	}
}

func TestProtectBasic(t *testing.T) {
	ctx := context.Background()
	hasher := testutil.FastHasher()
	db, _, cleanup := testutil.AcquirePopulatedUserDB(ctx, t, hasher, "a@x.com", "pw")
	defer cleanup()
	strategy, err := auth.New(ctx, auth.Config{Kind: auth.KindBasic, Users: db, Hasher: hasher})
	if err != nil {
		t.Fatal(err)
	}
	reg := prometheus.NewRegistry()
	var count uint32
	protected := NewGate(strategy, excluded, metrics.NewAuth(reg)).Protect(countingHandler(&count))

	good := "Basic " + base64.StdEncoding.EncodeToString([]byte("a@x.com:pw"))
	bad := "Basic " + base64.StdEncoding.EncodeToString([]byte("a@x.com:nope"))

	apitest.Handler(protected).Get("/api/v1/users").Expect(t).Status(http.StatusUnauthorized).End()
	apitest.Handler(protected).Get("/api/v1/users").Header("Authorization", bad).Expect(t).Status(http.StatusForbidden).End()
	apitest.Handler(protected).Get("/api/v1/users").Header("Authorization", "Basic !!!").Expect(t).Status(http.StatusForbidden).End()
	apitest.Handler(protected).Get("/api/v1/users").Cookie(auth.DefaultCookieName, "abc").Expect(t).
		Status(http.StatusForbidden).
		Assert(jsonpath.Equal("$.error", "Forbidden")).
		End()
	apitest.Handler(protected).Get("/api/v1/users").Header("Authorization", good).Expect(t).
		Status(http.StatusOK).
		Header("X-User", "a@x.com").
		End()
	if count != 1 {
		t.Fatalf("protected endpoint should have been called only once, got %v", count)
	}
}

func TestProtectSession(t *testing.T) {
	ctx := context.Background()
	db, accounts, cleanup := testutil.AcquirePopulatedUserDB(ctx, t, testutil.FastHasher(), "a@x.com", "pw")
	defer cleanup()
	strategy, err := auth.New(ctx, auth.Config{Kind: auth.KindSession, CookieName: "sid", Users: db})
	if err != nil {
		t.Fatal(err)
	}
	sid, err := strategy.(auth.SessionManager).CreateSession(ctx, accounts[0].User.ID)
	if err != nil {
		t.Fatal(err)
	}
	var count uint32
	protected := NewGate(strategy, excluded, nil).Protect(countingHandler(&count))

	apitest.Handler(protected).Get("/api/v1/users/me").Expect(t).Status(http.StatusUnauthorized).End()
	apitest.Handler(protected).Get("/api/v1/users/me").Cookie("sid", "forged").Expect(t).Status(http.StatusForbidden).End()
	apitest.Handler(protected).Get("/api/v1/users/me").Cookie("sid", sid).Expect(t).
		Status(http.StatusOK).
		Header("X-User", "a@x.com").
		End()
	if count != 1 {
		t.Fatalf("protected endpoint should have been called only once, got %v", count)
	}
}

type brokenStrategy struct{ auth.Base }

func (brokenStrategy) CurrentUser(*http.Request) (*userdb.User, error) {
	return nil, errors.New("db down")
}

func TestStrategyFailure(t *testing.T) {
	var count uint32
	protected := NewGate(brokenStrategy{}, nil, nil).Protect(countingHandler(&count))
	apitest.Handler(protected).Get("/").Header("Authorization", "Basic abc").Expect(t).
		Status(http.StatusInternalServerError).
		End()
	if count != 0 {
		t.Fatal("handler should not be called when the strategy fails")
	}
}
