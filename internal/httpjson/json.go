package httpjson

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
)

type (
	// M is a shorthand for ad-hoc response bodies.
	M map[string]interface{}
)

// Write encodes body as the JSON response with the given status.
func Write(w http.ResponseWriter, status int, body interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		http.Error(w, `{"error":"Internal error"}`, http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// Error writes {"error": msg} with the given status.
func Error(w http.ResponseWriter, status int, msg string) {
	Write(w, status, M{"error": msg})
}

// StatusHandler always answers with the standard error body for status.
func StatusHandler(status int, msg string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		Error(w, status, msg)
	})
}
