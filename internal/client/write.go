package client

import (
	"context"
	"net/http"

	"github.com/vietddude/wikibot/internal/core/domain"
	"github.com/vietddude/wikibot/internal/resilience/retry"
)

// SaveOptions configures a page edit.
type SaveOptions struct {
	Summary string
	Minor   bool
	Bot     bool
	Section string
	// OnFailure, when set, receives fatal errors (a protected page,
	// most commonly) instead of having them returned, so a batch run
	// is not aborted by one untouchable page.
	OnFailure retry.FailureSink
}

// MoveOptions configures a page move.
type MoveOptions struct {
	Reason         string
	MoveTalk       bool
	NoRedirect     bool
	MoveSubpages   bool
	IgnoreWarnings bool
	OnFailure      retry.FailureSink
}

// DeleteOptions configures a page deletion.
type DeleteOptions struct {
	Reason    string
	Watch     bool
	Unwatch   bool
	OldImage  string
	OnFailure retry.FailureSink
}

// Save edits a page, surviving session expiry: on a transient failure
// the engine relogs in and the closure re-resolves the page handle and
// csrf token before the retried edit. Reusing a handle from before the
// relogin would fail silently, which is why resolution happens inside
// the attempt.
func (c *Client) Save(ctx context.Context, title, text string, opts SaveOptions) error {
	return c.writeEngine(opts.OnFailure).Do(ctx, "edit", func(ctx context.Context) error {
		page, err := c.session.ResolveByName(ctx, title)
		if err != nil {
			return err
		}
		token, err := c.session.CSRFToken(ctx)
		if err != nil {
			return err
		}

		params := domain.Params{
			"title":   page.Title,
			"text":    text,
			"summary": opts.Summary,
			"token":   token,
		}
		if opts.Minor {
			params["minor"] = "1"
		}
		if opts.Bot {
			params["bot"] = "1"
		}
		if opts.Section != "" {
			params["section"] = opts.Section
		}

		_, err = c.session.Call(ctx, "edit", http.MethodPost, params)
		return err
	})
}

// Move renames a page.
func (c *Client) Move(ctx context.Context, title, newTitle string, opts MoveOptions) error {
	return c.writeEngine(opts.OnFailure).Do(ctx, "move", func(ctx context.Context) error {
		page, err := c.session.ResolveByName(ctx, title)
		if err != nil {
			return err
		}
		token, err := c.session.CSRFToken(ctx)
		if err != nil {
			return err
		}

		params := domain.Params{
			"from":   page.Title,
			"to":     newTitle,
			"reason": opts.Reason,
			"token":  token,
		}
		if opts.MoveTalk {
			params["movetalk"] = "1"
		}
		if opts.NoRedirect {
			params["noredirect"] = "1"
		}
		if opts.MoveSubpages {
			params["movesubpages"] = "1"
		}
		if opts.IgnoreWarnings {
			params["ignorewarnings"] = "1"
		}

		_, err = c.session.Call(ctx, "move", http.MethodPost, params)
		return err
	})
}

// Delete removes a page.
func (c *Client) Delete(ctx context.Context, title string, opts DeleteOptions) error {
	return c.writeEngine(opts.OnFailure).Do(ctx, "delete", func(ctx context.Context) error {
		page, err := c.session.ResolveByName(ctx, title)
		if err != nil {
			return err
		}
		token, err := c.session.CSRFToken(ctx)
		if err != nil {
			return err
		}

		params := domain.Params{
			"title":  page.Title,
			"reason": opts.Reason,
			"token":  token,
		}
		if opts.Watch {
			params["watchlist"] = "watch"
		} else if opts.Unwatch {
			params["watchlist"] = "unwatch"
		}
		if opts.OldImage != "" {
			params["oldimage"] = opts.OldImage
		}

		_, err = c.session.Call(ctx, "delete", http.MethodPost, params)
		return err
	})
}

func (c *Client) writeEngine(sink retry.FailureSink) *retry.Engine {
	if sink != nil {
		return c.engine.WithFailureSink(sink)
	}
	return c.engine
}
