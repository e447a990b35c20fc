package mediawiki

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/vietddude/wikibot/internal/core/domain"
)

// Login authenticates the session with its bot credentials: fetch a
// login token, then action=login. Rejected credentials are fatal
// (KindBadCredentials) and must not be retried.
func (s *Session) Login(ctx context.Context) error {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()
	return s.loginLocked(ctx)
}

// Reauthenticate restores a lost session. It is the relogin capability
// the retry engine calls between attempts; the login mutex keeps
// concurrent retries from relogging in over each other.
func (s *Session) Reauthenticate(ctx context.Context) error {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()
	slog.Default().Info("relogging in", "site", s.name, "user", s.creds.Username)
	return s.loginLocked(ctx)
}

func (s *Session) loginLocked(ctx context.Context) error {
	v := url.Values{}
	v.Set("meta", "tokens")
	v.Set("type", "login")
	resp, err := s.call(ctx, "query", http.MethodGet, v)
	if err != nil {
		return err
	}
	token := tokensFrom(resp, "logintoken")
	if token == "" {
		return &domain.APIError{Kind: domain.KindAPI, Info: "login token missing from response"}
	}

	v = url.Values{}
	v.Set("lgname", s.creds.Username)
	v.Set("lgpassword", s.creds.Password)
	v.Set("lgtoken", token)
	resp, err = s.call(ctx, "login", http.MethodPost, v)
	if err != nil {
		return err
	}

	login := resp.Sub("login")
	result, _ := login["result"].(string)
	if result != "Success" {
		reason, _ := login["reason"].(string)
		return &domain.APIError{Kind: domain.KindBadCredentials, Code: result, Info: reason}
	}

	s.mu.Lock()
	s.loggedIn = true
	// Tokens issued under the old session are dead after a relogin.
	s.csrfToken = ""
	s.mu.Unlock()
	return nil
}

// CSRFToken returns the session's edit token, fetching it on first use
// and after every relogin.
func (s *Session) CSRFToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	cached := s.csrfToken
	s.mu.RUnlock()
	if cached != "" {
		return cached, nil
	}

	resp, err := s.Call(ctx, "query", http.MethodGet, domain.Params{"meta": "tokens"})
	if err != nil {
		return "", err
	}
	token := tokensFrom(resp, "csrftoken")
	if token == "" {
		return "", &domain.APIError{Kind: domain.KindAPI, Info: "csrf token missing from response"}
	}

	s.mu.Lock()
	s.csrfToken = token
	s.mu.Unlock()
	return token, nil
}

func tokensFrom(resp domain.Payload, name string) string {
	query := resp.Sub("query")
	if query == nil {
		return ""
	}
	tokens, _ := query["tokens"].(map[string]any)
	if tokens == nil {
		return ""
	}
	token, _ := tokens[name].(string)
	return token
}
