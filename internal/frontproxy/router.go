// Package frontproxy exposes the gated API and the user service behind
// a single address.
package frontproxy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/julienschmidt/httprouter"
)

var (
	methods = []string{
		"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD",
	}
)

// AsHandler forwards /api/* to apiCalls and everything else to
// userCalls. userCalls may be nil, in which case unknown paths get a
// 404.
func AsHandler(ctx context.Context, apiCalls, userCalls *url.URL) (http.Handler, error) {
	if apiCalls == nil {
		return nil, errors.New("frontproxy: api endpoint is required")
	}
	router := httprouter.New()
	router.HandleMethodNotAllowed = false

	apiProxy := httputil.NewSingleHostReverseProxy(apiCalls)
	for _, m := range methods {
		router.Handler(m, "/api/*rest", apiProxy)
	}

	if userCalls != nil {
		// delegate to the user service if not found
		router.NotFound = httputil.NewSingleHostReverseProxy(userCalls)
	}
	return router, nil
}
