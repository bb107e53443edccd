package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Caller", Caller(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := IssueToken(testSecret, "story-service", time.Hour)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	sub, err := ParseToken(testSecret, tok)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sub != "story-service" {
		t.Errorf("expected story-service, got %s", sub)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	expired, _ := IssueToken(testSecret, "svc", -time.Minute)
	otherKey, _ := IssueToken([]byte("other"), "svc", time.Hour)
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "svc"}).SignedString(testSecret)

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong key", otherKey},
		{"no subject", noSubject},
		{"no expiry", noExpiry},
		{"garbage", "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(testSecret, tt.token); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestIssueToken_EmptySecret(t *testing.T) {
	if _, err := IssueToken(nil, "svc", time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestAuthenticate(t *testing.T) {
	m := NewMiddleware(string(testSecret), 0, 0, nil)
	h := m.Authenticate(okHandler())
	valid, _ := IssueToken(testSecret, "svc", time.Hour)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"invalid", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			if tt.status == http.StatusOK && rec.Header().Get("X-Caller") != "svc" {
				t.Errorf("expected caller svc, got %q", rec.Header().Get("X-Caller"))
			}
		})
	}
}

func TestAuthenticate_DisabledWithoutSecret(t *testing.T) {
	h := NewMiddleware("", 0, 0, nil).Authenticate(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestThrottle_PerCaller(t *testing.T) {
	m := NewMiddleware("", 0.001, 2, nil)
	h := m.Throttle(okHandler())

	send := func(caller string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if caller != "" {
			req = req.WithContext(WithCaller(req.Context(), caller))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("a"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, code)
		}
	}
	if code := send("a"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst, got %d", code)
	}
	if code := send("b"); code != http.StatusOK {
		t.Errorf("expected separate budget for caller b, got %d", code)
	}
	if code := send(""); code != http.StatusOK {
		t.Errorf("expected anonymous caller keyed by address, got %d", code)
	}
}

func TestThrottle_EvictsIdleCallers(t *testing.T) {
	m := NewMiddleware("", 0.001, 2, nil)
	if m.idle != 2000*time.Second {
		t.Fatalf("expected idle stretched to refill time, got %v", m.idle)
	}
	clock := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return clock }

	m.limiter("a")
	m.limiter("b")
	clock = clock.Add(1000 * time.Second)
	m.limiter("b")
	clock = clock.Add(1001 * time.Second)
	m.limiter("c")

	if len(m.limiters) != 2 {
		t.Errorf("expected 2 limiters after sweep, got %d", len(m.limiters))
	}
	if _, ok := m.limiters["a"]; ok {
		t.Error("expected idle caller a evicted")
	}
	if _, ok := m.limiters["b"]; !ok {
		t.Error("expected recent caller b kept")
	}
}

func TestThrottle_DefaultIdle(t *testing.T) {
	if m := NewMiddleware("", 10, 5, nil); m.idle != limiterIdle {
		t.Errorf("expected %v, got %v", limiterIdle, m.idle)
	}
}
