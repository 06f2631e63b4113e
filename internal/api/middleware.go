package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/erazemk/prostock/internal/auth"
	"github.com/erazemk/prostock/internal/metrics"
	"github.com/erazemk/prostock/internal/model"
	"github.com/erazemk/prostock/internal/store"
)

type contextKey string

const claimsKey contextKey = "claims"

// revocations answers "is this JTI revoked" from memory when it can. Only
// positive answers are cached, so a logout is never missed.
type revocations struct {
	db    *sqlx.DB
	cache *cache.Cache
}

func newRevocations(db *sqlx.DB) *revocations {
	return &revocations{db: db, cache: cache.New(time.Hour, 10*time.Minute)}
}

func (rv *revocations) revoked(ctx context.Context, claims *auth.Claims) (bool, error) {
	if _, found := rv.cache.Get(claims.ID); found {
		return true, nil
	}
	revoked, err := store.IsTokenRevoked(ctx, rv.db, claims.ID)
	if err != nil {
		return false, err
	}
	if revoked {
		rv.remember(claims)
	}
	return revoked, nil
}

func (rv *revocations) revoke(ctx context.Context, claims *auth.Claims) error {
	if err := store.RevokeToken(ctx, rv.db, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	rv.remember(claims)
	return nil
}

func (rv *revocations) remember(claims *auth.Claims) {
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl > 0 {
		rv.cache.Set(claims.ID, struct{}{}, ttl)
	}
}

// AuthMiddleware validates the bearer token and adds its claims to the context.
func AuthMiddleware(tokens *auth.Issuer, rv *revocations) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenStr == "" {
				jsonError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}

			claims, err := tokens.Validate(tokenStr)
			if err != nil {
				jsonError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			revoked, err := rv.revoked(r.Context(), claims)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if revoked {
				jsonError(w, http.StatusUnauthorized, "token revoked")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns middleware that checks if the user has at least the given role.
func RequireRole(minimum string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				jsonError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !model.RoleAtLeast(claims.Role, minimum) {
				jsonError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClaims retrieves the JWT claims from the context.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// ipLimiter keeps one token bucket per client address.
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newIPLimiter(limit rate.Limit, burst int) *ipLimiter {
	return &ipLimiter{limiters: make(map[string]*rate.Limiter), limit: limit, burst: burst}
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = lim
	}
	return lim
}

// RateLimitMiddleware answers 429 once a client exceeds its budget. A
// non-positive limit disables it.
func RateLimitMiddleware(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := newIPLimiter(limit, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.get(clientIP(r)).Allow() {
				jsonError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs and counts HTTP requests.
func LoggingMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			m.Request(r.Method, strconv.Itoa(rec.status))
			slog.Info("request",
				"method", r.Method,
				"path", r.URL.RequestURI(),
				"status", rec.status,
				"duration", time.Since(start).Round(time.Millisecond),
			)
		})
	}
}
