package mediawiki

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/vietddude/wikibot/internal/core/domain"
)

func newTestSession(serverURL string) *Session {
	return NewSession("test", serverURL+"/api.php", Credentials{Username: "Bot", Password: "hunter2"}, 5*time.Second)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func requestValues(r *http.Request) url.Values {
	if r.Method == http.MethodGet {
		return r.URL.Query()
	}
	_ = r.ParseForm()
	return r.PostForm
}

func TestCall_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := requestValues(r)
		if v.Get("action") != "query" {
			t.Errorf("expected action query, got %s", v.Get("action"))
		}
		if v.Get("format") != "json" || v.Get("formatversion") != "2" {
			t.Errorf("missing format params: %v", v)
		}
		if v.Get("assert") != "" {
			t.Errorf("anonymous session must not assert a user")
		}
		writeJSON(w, map[string]any{"query": map[string]any{"pages": []any{}}})
	}))
	defer server.Close()

	s := newTestSession(server.URL)
	resp, err := s.Call(context.Background(), "query", http.MethodGet, domain.Params{"titles": "Main Page"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if resp.Sub("query") == nil {
		t.Errorf("response payload missing query member: %v", resp)
	}

	stats := s.Stats()
	if stats.SuccessCount != 1 || stats.FailureCount != 0 {
		t.Errorf("stats = %+v, want 1 success", stats)
	}
}

func TestCall_ErrorKindMapping(t *testing.T) {
	tests := []struct {
		code string
		want domain.ErrorKind
	}{
		{"badtoken", domain.KindAuthExpired},
		{"assertuserfailed", domain.KindAuthExpired},
		{"assertbotfailed", domain.KindAuthExpired},
		{"notloggedin", domain.KindAuthExpired},
		{"protectedpage", domain.KindProtected},
		{"cascadeprotected", domain.KindProtected},
		{"permissiondenied", domain.KindProtected},
		{"internal_api_error", domain.KindAPI},
		{"ratelimited", domain.KindAPI},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"error": map[string]any{"code": tt.code, "info": "test"}})
		}))

		s := newTestSession(server.URL)
		_, err := s.Call(context.Background(), "edit", http.MethodPost, domain.Params{})

		var apiErr *domain.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("code %s: expected APIError, got %v", tt.code, err)
		}
		if apiErr.Kind != tt.want {
			t.Errorf("code %s classified as %s, want %s", tt.code, apiErr.Kind, tt.want)
		}
		if apiErr.Code != tt.code {
			t.Errorf("code %s not preserved, got %s", tt.code, apiErr.Code)
		}
		server.Close()
	}
}

func TestCall_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream connect error", http.StatusBadGateway)
	}))
	defer server.Close()

	s := newTestSession(server.URL)
	_, err := s.Call(context.Background(), "query", http.MethodGet, domain.Params{})

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != domain.KindAPI {
		t.Fatalf("expected transient APIError for http 502, got %v", err)
	}
	if domain.Classify(err) != domain.ActionRetry {
		t.Errorf("http 502 should be retryable")
	}
}

func TestCall_ClientErrorIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	s := newTestSession(server.URL)
	_, err := s.Call(context.Background(), "query", http.MethodGet, domain.Params{})

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != domain.KindOther {
		t.Fatalf("expected fatal APIError for http 404, got %v", err)
	}
}

// mediaWikiHandler emulates the login handshake plus a token endpoint.
type mediaWikiHandler struct {
	logins     int
	loginFails bool
	csrfSerial int
}

func (h *mediaWikiHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	v := requestValues(r)
	switch {
	case v.Get("meta") == "tokens" && v.Get("type") == "login":
		writeJSON(w, map[string]any{"query": map[string]any{"tokens": map[string]any{"logintoken": "LOGIN+\\"}}})
	case v.Get("action") == "login":
		if v.Get("lgtoken") != "LOGIN+\\" {
			writeJSON(w, map[string]any{"login": map[string]any{"result": "WrongToken"}})
			return
		}
		if h.loginFails {
			writeJSON(w, map[string]any{"login": map[string]any{"result": "Failed", "reason": "Incorrect username or password entered."}})
			return
		}
		h.logins++
		writeJSON(w, map[string]any{"login": map[string]any{"result": "Success", "lgusername": v.Get("lgname")}})
	case v.Get("meta") == "tokens":
		h.csrfSerial++
		writeJSON(w, map[string]any{"query": map[string]any{"tokens": map[string]any{"csrftoken": csrf(h.csrfSerial)}}})
	default:
		writeJSON(w, map[string]any{"query": map[string]any{}})
	}
}

func csrf(serial int) string {
	return "CSRF" + string(rune('0'+serial)) + "+\\"
}

func TestLogin_Success(t *testing.T) {
	handler := &mediaWikiHandler{}
	server := httptest.NewServer(handler)
	defer server.Close()

	s := newTestSession(server.URL)
	if err := s.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if handler.logins != 1 {
		t.Errorf("expected 1 login, got %d", handler.logins)
	}
	if !s.Stats().LoggedIn {
		t.Errorf("session should report logged in")
	}
}

func TestLogin_BadCredentialsAreFatal(t *testing.T) {
	handler := &mediaWikiHandler{loginFails: true}
	server := httptest.NewServer(handler)
	defer server.Close()

	s := newTestSession(server.URL)
	err := s.Login(context.Background())

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != domain.KindBadCredentials {
		t.Fatalf("expected bad credentials error, got %v", err)
	}
	if domain.Classify(err) != domain.ActionFatal {
		t.Errorf("bad credentials must never be retried")
	}
}

func TestCall_AssertsUserAfterLogin(t *testing.T) {
	var asserted bool
	handler := &mediaWikiHandler{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := requestValues(r)
		if v.Get("action") == "query" && v.Get("meta") == "" {
			asserted = v.Get("assert") == "user"
		}
		handler.ServeHTTP(w, r)
	}))
	defer server.Close()

	s := newTestSession(server.URL)
	if err := s.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := s.Call(context.Background(), "query", http.MethodGet, domain.Params{"titles": "X"}); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !asserted {
		t.Errorf("logged-in calls must carry assert=user")
	}
}

func TestCSRFToken_CachedAndInvalidatedByRelogin(t *testing.T) {
	handler := &mediaWikiHandler{}
	server := httptest.NewServer(handler)
	defer server.Close()

	s := newTestSession(server.URL)
	if err := s.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	token1, err := s.CSRFToken(context.Background())
	if err != nil {
		t.Fatalf("CSRFToken failed: %v", err)
	}
	token2, err := s.CSRFToken(context.Background())
	if err != nil {
		t.Fatalf("CSRFToken failed: %v", err)
	}
	if token1 != token2 {
		t.Errorf("token changed without relogin: %q vs %q", token1, token2)
	}
	if handler.csrfSerial != 1 {
		t.Errorf("expected 1 token fetch, got %d", handler.csrfSerial)
	}

	// Relogin makes tokens from the old session worthless.
	if err := s.Reauthenticate(context.Background()); err != nil {
		t.Fatalf("Reauthenticate failed: %v", err)
	}
	token3, err := s.CSRFToken(context.Background())
	if err != nil {
		t.Fatalf("CSRFToken failed: %v", err)
	}
	if token3 == token1 {
		t.Errorf("token not refreshed after relogin")
	}
}

func TestResolveByName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"query": map[string]any{"pages": []any{
			map[string]any{
				"pageid": float64(42), "title": "Dirt Block", "lastrevid": float64(123456),
				"protection": []any{map[string]any{"type": "edit", "level": "sysop"}},
			},
		}}})
	}))
	defer server.Close()

	s := newTestSession(server.URL)
	page, err := s.ResolveByName(context.Background(), "Dirt Block")
	if err != nil {
		t.Fatalf("ResolveByName failed: %v", err)
	}
	if page.ID != 42 || page.Title != "Dirt Block" || page.LastRevID != 123456 {
		t.Errorf("unexpected page: %+v", page)
	}
	if !page.Protected {
		t.Errorf("edit protection not detected")
	}
	if page.Missing {
		t.Errorf("page should exist")
	}
}

func TestResolveByName_Missing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"query": map[string]any{"pages": []any{
			map[string]any{"title": "No Such Page", "missing": true},
		}}})
	}))
	defer server.Close()

	s := newTestSession(server.URL)
	page, err := s.ResolveByName(context.Background(), "No Such Page")
	if err != nil {
		t.Fatalf("ResolveByName failed: %v", err)
	}
	if !page.Missing {
		t.Errorf("missing flag not set: %+v", page)
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "read tcp: i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyTransport(t *testing.T) {
	if got := classifyTransport(&url.Error{Op: "Get", Err: timeoutError{}}); got.Kind != domain.KindTimeout {
		t.Errorf("timeout classified as %s", got.Kind)
	}
	if got := classifyTransport(errors.New("connection refused")); got.Kind != domain.KindOther {
		t.Errorf("plain transport error classified as %s", got.Kind)
	}
}
