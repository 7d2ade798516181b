package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/subsense/internal/model"
)

func csrfCookieFrom(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == csrfCookieName {
			return c
		}
	}
	return nil
}

// 安全なメソッドはトークンなしで通り、Cookieが発行される
func TestCSRFMiddleware_SafeMethodsPassAndIssueCookie(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			called := false
			handler := NewCSRFMiddleware(CSRFConfig{CookieSecure: true})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(method, "/api/subscriptions", nil))

			if !called {
				t.Error("handler should be called")
			}
			c := csrfCookieFrom(w.Result())
			if c == nil {
				t.Fatal("expected csrf_token cookie")
			}
			if len(c.Value) != 64 {
				t.Errorf("token length = %d, want 64 hex chars", len(c.Value))
			}
			if c.HttpOnly {
				t.Error("csrf cookie must be readable by the frontend")
			}
			if !c.Secure || c.SameSite != http.SameSiteLaxMode {
				t.Errorf("unexpected cookie attributes: %+v", c)
			}
		})
	}
}

func TestCSRFMiddleware_ExistingCookieNotReplaced(t *testing.T) {
	handler := NewCSRFMiddleware(CSRFConfig{})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/actions", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if c := csrfCookieFrom(w.Result()); c != nil {
		t.Errorf("cookie should not be reissued, got %q", c.Value)
	}
}

func TestCSRFMiddleware_StateChangingMethods(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		cookie     string
		header     string
		wantStatus int
	}{
		{"POST valid", http.MethodPost, "tok", "tok", http.StatusOK},
		{"PUT valid", http.MethodPut, "tok", "tok", http.StatusOK},
		{"DELETE valid", http.MethodDelete, "tok", "tok", http.StatusOK},
		{"POST no cookie", http.MethodPost, "", "tok", http.StatusForbidden},
		{"POST no header", http.MethodPost, "tok", "", http.StatusForbidden},
		{"POST mismatch", http.MethodPost, "tok", "other", http.StatusForbidden},
		{"DELETE no token", http.MethodDelete, "", "", http.StatusForbidden},
		{"PATCH no token", http.MethodPatch, "", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewCSRFMiddleware(CSRFConfig{})(okHandler())

			req := httptest.NewRequest(tt.method, "/api/subscriptions/s-1", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(csrfHeaderName, tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusForbidden {
				var body ErrorResponseBody
				json.NewDecoder(w.Body).Decode(&body)
				if body.Code != model.ErrCodeCSRF {
					t.Errorf("code = %q, want %q", body.Code, model.ErrCodeCSRF)
				}
			}
		})
	}
}

func TestCSRFTokenHandler(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{CookieDomain: "example.com"})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	c := csrfCookieFrom(w.Result())
	if c == nil || body.Token == "" || c.Value != body.Token {
		t.Fatalf("cookie and body token should match: cookie=%+v body=%q", c, body.Token)
	}
	if c.Domain != "example.com" {
		t.Errorf("Domain = %q, want example.com", c.Domain)
	}

	// 既存のCookieがあれば同じ値を返す
	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing-token"})
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	json.NewDecoder(w.Body).Decode(&body)
	if body.Token != "existing-token" {
		t.Errorf("token = %q, want existing-token", body.Token)
	}
}
