// Package auth guards the API with HS256 bearer tokens and a per-caller
// request budget.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cuentos-signos/backend/internal/logger"
	"github.com/cuentos-signos/backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

type contextKey string

const callerKey contextKey = "caller"

// Claims identifies the service or operator calling the API.
type Claims struct {
	jwt.RegisteredClaims
}

// IssueToken signs a token for subject, valid for ttl.
func IssueToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty signing secret")
	}
	now := time.Now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken validates raw and returns its subject.
func ParseToken(secret []byte, raw string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// Caller returns the authenticated subject, or "" on open routes.
func Caller(ctx context.Context) string {
	s, _ := ctx.Value(callerKey).(string)
	return s
}

func WithCaller(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, callerKey, subject)
}

type Middleware struct {
	secret []byte
	log    *logger.Logger

	rps   rate.Limit
	burst int

	mu        sync.Mutex
	limiters  map[string]*callerLimiter
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type callerLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// limiterIdle is how long a caller must be quiet before its limiter is
// dropped, raised to the bucket refill time when that is longer.
const limiterIdle = 10 * time.Minute

// NewMiddleware builds the guard. An empty secret disables token checks,
// which is only meant for local development; rps <= 0 disables throttling.
func NewMiddleware(secret string, rps float64, burst int, log *logger.Logger) *Middleware {
	if log == nil {
		log = logger.Nop()
	}
	if burst < 1 {
		burst = 1
	}
	idle := limiterIdle
	if rps > 0 {
		if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return &Middleware{
		secret:   []byte(secret),
		log:      log,
		rps:      rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*callerLimiter),
		idle:     idle,
		now:      time.Now,
	}
}

// Authenticate rejects requests without a valid bearer token.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.secret) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Missing bearer token"})
			return
		}
		subject, err := ParseToken(m.secret, raw)
		if err != nil {
			m.log.Debug("token rejected", "error", err, "path", r.URL.Path)
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid or expired token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), subject)))
	})
}

// Throttle spends one token of the caller's budget per request. Callers are
// keyed by token subject, or by remote address on open routes.
func (m *Middleware) Throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.rps <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		key := Caller(r.Context())
		if key == "" {
			key = "ip:" + remoteHost(r.RemoteAddr)
		}
		if !m.limiter(key).Allow() {
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter(m.rps)))
			writeJSON(w, http.StatusTooManyRequests, models.ErrorResponse{Error: "Too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) limiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)
	l, ok := m.limiters[key]
	if !ok {
		l = &callerLimiter{lim: rate.NewLimiter(m.rps, m.burst)}
		m.limiters[key] = l
	}
	l.lastSeen = now
	return l.lim
}

// sweep drops limiters idle for longer than m.idle. It runs at most once
// per idle period. Callers hold m.mu.
func (m *Middleware) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.idle {
		return
	}
	m.lastSweep = now
	for key, l := range m.limiters {
		if now.Sub(l.lastSeen) >= m.idle {
			delete(m.limiters, key)
		}
	}
}

func retryAfter(rps rate.Limit) float64 {
	s := 1 / float64(rps)
	if s < 1 {
		return 1
	}
	return s
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
