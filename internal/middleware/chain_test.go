package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/subsense/internal/model"
)

// newChainRouter は本番と同じ順序でミドルウェアを組んだルーターを返す。
// Session -> GeneralRateLimit -> CSRF
func newChainRouter(t *testing.T, generalBurst int) http.Handler {
	t.Helper()
	rl := NewRateLimiter(testLimiterConfig(generalBurst, 1))
	t.Cleanup(rl.Stop)

	csrfConfig := CSRFConfig{}
	r := chi.NewRouter()
	r.Use(NewRecoveryMiddleware())
	r.Get("/api/csrf-token", NewCSRFTokenHandler(csrfConfig).ServeHTTP)
	r.Group(func(r chi.Router) {
		r.Use(NewSessionMiddleware(validSessionRepo(), ""))
		r.Use(rl.GeneralMiddleware())
		r.Use(NewCSRFMiddleware(csrfConfig))
		r.HandleFunc("/api/subscriptions", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := UserIDFromContext(r.Context())
			w.Write([]byte(userID))
		})
	})
	return r
}

func chainRequest(method, csrfToken string) *http.Request {
	req := httptest.NewRequest(method, "/api/subscriptions", nil)
	req.AddCookie(&http.Cookie{Name: DefaultSessionCookieName, Value: "valid-session-id"})
	if csrfToken != "" {
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: csrfToken})
		req.Header.Set(csrfHeaderName, csrfToken)
	}
	return req
}

func decodeCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Code
}

func TestMiddlewareChain_GETWithSession(t *testing.T) {
	r := newChainRouter(t, 5)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, chainRequest(http.MethodGet, ""))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "user-123" {
		t.Errorf("body = %q, want user-123", w.Body.String())
	}
}

func TestMiddlewareChain_POSTRequiresCSRF(t *testing.T) {
	r := newChainRouter(t, 5)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, chainRequest(http.MethodPost, ""))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if code := decodeCode(t, w); code != model.ErrCodeCSRF {
		t.Errorf("code = %q, want %q", code, model.ErrCodeCSRF)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, chainRequest(http.MethodPost, "token-abc"))
	if w.Code != http.StatusOK {
		t.Errorf("status with token = %d, want 200", w.Code)
	}
}

// セッション検証はCSRFより先に行われる
func TestMiddlewareChain_NoSessionReturns401BeforeCSRF(t *testing.T) {
	r := newChainRouter(t, 5)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/subscriptions", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if code := decodeCode(t, w); code != model.ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", code, model.ErrCodeUnauthorized)
	}
}

func TestMiddlewareChain_RateLimitAppliesAfterSession(t *testing.T) {
	r := newChainRouter(t, 1)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, chainRequest(http.MethodGet, ""))
	second := httptest.NewRecorder()
	r.ServeHTTP(second, chainRequest(http.MethodGet, ""))

	if first.Code != http.StatusOK {
		t.Errorf("first status = %d, want 200", first.Code)
	}
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", second.Code)
	}
}

func TestMiddlewareChain_CSRFTokenThenPOST(t *testing.T) {
	r := newChainRouter(t, 5)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil || body.Token == "" {
		t.Fatalf("failed to get token: %v", err)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, chainRequest(http.MethodPost, body.Token))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
