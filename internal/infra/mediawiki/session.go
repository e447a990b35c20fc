// Package mediawiki implements the authenticated session handle for a
// MediaWiki action API endpoint: one round trip per Call, cookie-based
// login, and classified errors for the resilience layer above it.
package mediawiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/wikibot/internal/core/domain"
	"github.com/vietddude/wikibot/internal/metrics"
)

// Credentials holds the bot account username and password.
type Credentials struct {
	Username string
	Password string
}

// Session is an authenticated handle to one wiki's api.php. Safe for
// concurrent use; relogins are serialized internally.
type Session struct {
	name       string
	apiURL     string
	userAgent  string
	httpClient *http.Client
	creds      Credentials

	// loginMu serializes (re)authentication. Two goroutines relogging
	// in concurrently would invalidate each other's cookies.
	loginMu sync.Mutex

	mu           sync.RWMutex
	loggedIn     bool
	csrfToken    string
	successCount int
	failureCount int
	totalLatency time.Duration
}

// NewSession creates a session for apiURL. The session is anonymous
// until Login is called.
func NewSession(name, apiURL string, creds Credentials, timeout time.Duration) *Session {
	jar, _ := cookiejar.New(nil)
	return &Session{
		name:      name,
		apiURL:    apiURL,
		userAgent: "wikibot (github.com/vietddude/wikibot)",
		creds:     creds,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Name returns the site name the session was configured with.
func (s *Session) Name() string { return s.name }

// Call makes a single API round trip and returns the decoded response
// body. Failures come back as *domain.APIError with a classified kind.
func (s *Session) Call(ctx context.Context, action, method string, params domain.Params) (domain.Payload, error) {
	v := url.Values{}
	for k, val := range params {
		v.Set(k, val)
	}
	s.mu.RLock()
	if s.loggedIn {
		// Have the server reject the call outright when the session
		// cookie has expired, instead of silently degrading to an
		// anonymous request.
		v.Set("assert", "user")
	}
	s.mu.RUnlock()
	return s.call(ctx, action, method, v)
}

// call issues the request without the logged-in assertion. The login
// flow uses it directly, before any session exists.
func (s *Session) call(ctx context.Context, action, method string, v url.Values) (domain.Payload, error) {
	v.Set("action", action)
	v.Set("format", "json")
	v.Set("formatversion", "2")

	start := time.Now()
	metrics.APICallsTotal.WithLabelValues(action, method).Inc()

	var req *http.Request
	var err error
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+"?"+v.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, s.apiURL, strings.NewReader(v.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, s.fail(action, &domain.APIError{Kind: domain.KindOther, Info: err.Error()})
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, s.fail(action, classifyTransport(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, s.fail(action, classifyTransport(err))
	}

	if resp.StatusCode != http.StatusOK {
		kind := domain.KindOther
		if resp.StatusCode >= 500 {
			// Server-side hiccups behave like generic API rejections.
			kind = domain.KindAPI
		}
		return nil, s.fail(action, &domain.APIError{
			Kind: kind,
			Info: fmt.Sprintf("http %d: %s", resp.StatusCode, firstLine(body)),
		})
	}

	var payload domain.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, s.fail(action, &domain.APIError{Kind: domain.KindOther, Info: "parse response: " + err.Error()})
	}

	if errMember := payload.Sub("error"); errMember != nil {
		code, _ := errMember["code"].(string)
		info, _ := errMember["info"].(string)
		return nil, s.fail(action, &domain.APIError{Kind: classifyCode(code), Code: code, Info: info})
	}

	s.recordSuccess(action, time.Since(start))
	return payload, nil
}

// classifyCode maps an API error code to its kind. The partition is
// closed: codes signalling a lost session are auth-expired, protection
// codes are fatal, everything else is the generic transient kind the
// retry engine is allowed to recover.
func classifyCode(code string) domain.ErrorKind {
	switch code {
	case "badtoken", "assertuserfailed", "assertbotfailed", "notloggedin":
		return domain.KindAuthExpired
	case "protectedpage", "protectednamespace", "protectednamespace-interface",
		"cascadeprotected", "customcssjsprotected", "permissiondenied":
		return domain.KindProtected
	default:
		return domain.KindAPI
	}
}

func classifyTransport(err error) *domain.APIError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &domain.APIError{Kind: domain.KindTimeout, Info: err.Error()}
	}
	return &domain.APIError{Kind: domain.KindOther, Info: err.Error()}
}

func (s *Session) fail(action string, apiErr *domain.APIError) error {
	metrics.APIErrorsTotal.WithLabelValues(action, string(apiErr.Kind)).Inc()
	s.mu.Lock()
	s.failureCount++
	s.mu.Unlock()
	return apiErr
}

func (s *Session) recordSuccess(action string, latency time.Duration) {
	metrics.APICallLatency.WithLabelValues(action).Observe(latency.Seconds())
	s.mu.Lock()
	s.successCount++
	s.totalLatency += latency
	s.mu.Unlock()
}

// Stats summarizes the session's round-trip history.
type Stats struct {
	SuccessCount int
	FailureCount int
	AvgLatency   time.Duration
	LoggedIn     bool
}

// Stats returns a snapshot of the session's counters.
func (s *Session) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		SuccessCount: s.successCount,
		FailureCount: s.failureCount,
		LoggedIn:     s.loggedIn,
	}
	if s.successCount > 0 {
		st.AvgLatency = s.totalLatency / time.Duration(s.successCount)
	}
	return st
}

// Close releases idle transport connections.
func (s *Session) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func firstLine(body []byte) string {
	line := string(body)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if len(line) > 200 {
		line = line[:200]
	}
	return line
}
