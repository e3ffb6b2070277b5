package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthAPIKey AuthMode = "apikey"
	AuthBearer AuthMode = "bearer"
)

// AuthConfig guards the JSON API. Only paths under ProtectedPrefixes are
// checked (every path when empty), and SkipPaths wins over them.
type AuthConfig struct {
	Mode              AuthMode
	APIKey            string
	BearerToken       string
	ProtectedPrefixes []string
	SkipPaths         []string
}

func (c AuthConfig) guards(path string) bool {
	for _, p := range c.SkipPaths {
		if p == path {
			return false
		}
	}
	if len(c.ProtectedPrefixes) == 0 {
		return true
	}
	for _, p := range c.ProtectedPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// credential reports whether a request carries a valid credential, and the
// challenge to send back when it does not.
type credential struct {
	check     func(*http.Request) bool
	challenge string
}

func credentialFor(cfg AuthConfig) credential {
	switch cfg.Mode {
	case AuthAPIKey:
		return credential{
			check: func(r *http.Request) bool {
				return secretEq(r.Header.Get("X-API-Key"), cfg.APIKey)
			},
			challenge: `ApiKey realm="todos", header="X-API-Key"`,
		}
	case AuthBearer:
		return credential{
			check: func(r *http.Request) bool {
				token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
				return ok && secretEq(strings.TrimSpace(token), cfg.BearerToken)
			},
			challenge: `Bearer realm="todos"`,
		}
	default:
		return credential{check: func(*http.Request) bool { return false }}
	}
}

func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Mode == AuthNone || cfg.Mode == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	cred := credentialFor(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.guards(r.URL.Path) || cred.check(r) {
				next.ServeHTTP(w, r)
				return
			}
			deny(w, cred.challenge)
		})
	}
}

// secretEq compares in constant time. An empty secret never matches.
func secretEq(got, want string) bool {
	if want == "" || len(got) != len(want) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func deny(w http.ResponseWriter, challenge string) {
	w.Header().Set("Content-Type", "application/json")
	if challenge != "" {
		w.Header().Set("WWW-Authenticate", challenge)
	}
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
