package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	maxAuthFailures     = 5
	authFailureLockout  = 10 * time.Minute
	authFailureCapacity = 10000
)

// authFailures counts failed authentications per IP. Entries expire after
// the lockout period.
type authFailures struct {
	counts *expirable.LRU[string, int]
}

func newAuthFailures() *authFailures {
	return &authFailures{counts: expirable.NewLRU[string, int](authFailureCapacity, nil, authFailureLockout)}
}

func (f *authFailures) blocked(ip string) bool {
	n, ok := f.counts.Get(ip)
	return ok && n >= maxAuthFailures
}

func (f *authFailures) record(ip string) {
	n, _ := f.counts.Get(ip)
	f.counts.Add(ip, n+1)
}

func (f *authFailures) reset(ip string) {
	f.counts.Remove(ip)
}

// rateLimitMiddleware provides rate limiting per IP
func (a *API) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.limiter.Allow(getRealIP(r)) {
			writeError(w, http.StatusTooManyRequests, "Too many requests", nil, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers for the configured origins
func (a *API) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		for _, allowed := range a.config.API.AllowedOrigins {
			if allowed == "*" || origin == allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				break
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if a.config.API.TLS {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authMiddleware accepts either a bearer token issued by /api/auth/login or
// HTTP basic credentials. Repeated failures from one IP are locked out.
func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getRealIP(r)
		if a.failures.blocked(ip) {
			a.logger.Warnw("Too many failed auth attempts", "ip", ip)
			writeError(w, http.StatusTooManyRequests, "Too many requests", nil, nil)
			return
		}

		username, ok := a.authenticate(r)
		if !ok {
			a.failures.record(ip)
			a.logger.Warnw("Failed authentication attempt", "ip", ip, "path", r.URL.Path)
			w.Header().Set("WWW-Authenticate", `Bearer realm="secanalytics"`)
			writeError(w, http.StatusUnauthorized, "Unauthorized", nil, nil)
			return
		}
		a.failures.reset(ip)

		next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), username)))
	})
}

func (a *API) authenticate(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		claims, err := validateJWT(strings.TrimPrefix(header, "Bearer "), a.config, a.now)
		if err != nil {
			a.logger.Debugw("Rejected bearer token", "error", err)
			return "", false
		}
		return claims.Username, true
	}
	// browsers cannot set headers on WebSocket upgrades
	if token := r.URL.Query().Get("token"); token != "" && r.URL.Path == "/ws" {
		claims, err := validateJWT(token, a.config, a.now)
		if err != nil {
			return "", false
		}
		return claims.Username, true
	}
	if username, password, ok := r.BasicAuth(); ok && a.config.CheckPassword(username, password) {
		return username, true
	}
	return "", false
}
