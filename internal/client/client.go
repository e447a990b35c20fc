// Package client is the high-level wiki client: it wires the session
// handle, the retry engine and the continuation aggregator into the
// operation surface batch jobs consume.
package client

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/vietddude/wikibot/internal/core/config"
	"github.com/vietddude/wikibot/internal/core/domain"
	"github.com/vietddude/wikibot/internal/infra/mediawiki"
	"github.com/vietddude/wikibot/internal/resilience/paginate"
	"github.com/vietddude/wikibot/internal/resilience/retry"
)

// Client exposes resilient operations against one wiki.
type Client struct {
	session   *mediawiki.Session
	engine    *retry.Engine
	collector *paginate.Collector
	log       *slog.Logger
}

// New builds a client from configuration and logs in.
func New(ctx context.Context, cfg *config.AppConfig) (*Client, error) {
	creds, err := cfg.Credentials.Resolve()
	if err != nil {
		return nil, err
	}

	session := mediawiki.NewSession(cfg.Site.Name, cfg.Site.APIURL(), creds, cfg.Site.Timeout)
	if err := session.Login(ctx); err != nil {
		return nil, err
	}

	c := &Client{
		session: session,
		engine: retry.NewEngine(session, retry.Config{
			MaxRetries:    cfg.Retry.MaxRetries,
			RetryInterval: cfg.Retry.Interval,
		}),
		collector: paginate.NewCollector(session),
		log:       slog.Default(),
	}
	return c, nil
}

// NewWithSession builds a client over an existing session without
// logging in. Used by tests and by callers managing login themselves.
func NewWithSession(session *mediawiki.Session, retryCfg retry.Config) *Client {
	return &Client{
		session:   session,
		engine:    retry.NewEngine(session, retryCfg),
		collector: paginate.NewCollector(session),
		log:       slog.Default(),
	}
}

// Session returns the underlying session handle.
func (c *Client) Session() *mediawiki.Session { return c.session }

// WithCheckpoints returns a copy of the client whose aggregation runs
// checkpoint their continuation state under runKey.
func (c *Client) WithCheckpoints(store paginate.Checkpointer, runKey string) *Client {
	clone := *c
	clone.collector = c.collector.WithCheckpoints(store, runKey)
	return &clone
}

// API performs a retried single-shot call: a transient failure is
// recovered by relogging in and re-issuing the request; exhausting
// the budget yields a TerminalError for action "api".
func (c *Client) API(ctx context.Context, action, method string, params domain.Params) (domain.Payload, error) {
	if method == "" {
		method = http.MethodPost
	}
	var result domain.Payload
	err := c.engine.Do(ctx, "api", func(ctx context.Context) error {
		resp, err := c.session.Call(ctx, action, method, params)
		if err != nil {
			return err
		}
		result = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// APIContinue drives a paginated action to completion and returns the
// action-keyed payload of every page in call order. continueKey pins
// the cursor key; empty auto-discovers it from the first response.
// Pages are not individually retried.
func (c *Client) APIContinue(ctx context.Context, action, continueKey string, params domain.Params) ([]domain.Payload, error) {
	return c.collector.Collect(ctx, action, continueKey, params)
}

// Close releases the session's resources.
func (c *Client) Close() error {
	return c.session.Close()
}
