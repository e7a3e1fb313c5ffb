package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader carries the client's API key.
const APIKeyHeader = "X-API-KEY"

// AuthConfig holds the accepted API keys. No keys disables authentication.
type AuthConfig struct {
	keys [][]byte
}

// NewAuthConfigWithKeys creates an AuthConfig accepting keys.
func NewAuthConfigWithKeys(keys []string) AuthConfig {
	var c AuthConfig
	for _, k := range keys {
		if k != "" {
			c.keys = append(c.keys, []byte(k))
		}
	}
	return c
}

// Enabled reports whether any key is configured.
func (c AuthConfig) Enabled() bool { return len(c.keys) > 0 }

// Valid reports whether key matches a configured key.
func (c AuthConfig) Valid(key string) bool {
	candidate := []byte(key)
	for _, k := range c.keys {
		if subtle.ConstantTimeCompare(k, candidate) == 1 {
			return true
		}
	}
	return false
}

// WriteProtect requires a valid API key for mutating methods. GET, HEAD
// and OPTIONS pass through.
func WriteProtect(config AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled() || safeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				WriteError(w, r, Unauthorized("missing "+APIKeyHeader+" header"), nil)
				return
			}
			if !config.Valid(key) {
				WriteError(w, r, Unauthorized("invalid API key"), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteProtectAuth is WriteProtect over a list of keys.
func WriteProtectAuth(keys []string) func(http.Handler) http.Handler {
	return WriteProtect(NewAuthConfigWithKeys(keys))
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
