package mediawiki

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vietddude/wikibot/internal/core/domain"
)

// ResolveByName fetches a fresh handle for the page with the given
// title. Callers retrying after a relogin must resolve again rather
// than reuse a handle from the previous attempt.
func (s *Session) ResolveByName(ctx context.Context, title string) (*domain.Page, error) {
	resp, err := s.Call(ctx, "query", http.MethodGet, domain.Params{
		"prop":   "info",
		"inprop": "protection",
		"titles": title,
	})
	if err != nil {
		return nil, err
	}

	query := resp.Sub("query")
	if query == nil {
		return nil, &domain.APIError{Kind: domain.KindAPI, Info: "query member missing from response"}
	}
	pages, _ := query["pages"].([]any)
	if len(pages) == 0 {
		return nil, &domain.APIError{Kind: domain.KindAPI, Info: fmt.Sprintf("no page info for %q", title)}
	}
	info, _ := pages[0].(map[string]any)
	if info == nil {
		return nil, &domain.APIError{Kind: domain.KindAPI, Info: fmt.Sprintf("malformed page info for %q", title)}
	}

	page := &domain.Page{Title: title}
	if t, ok := info["title"].(string); ok {
		page.Title = t
	}
	if id, ok := info["pageid"].(float64); ok {
		page.ID = int64(id)
	}
	if rev, ok := info["lastrevid"].(float64); ok {
		page.LastRevID = int64(rev)
	}
	page.Missing, _ = info["missing"].(bool)
	page.Redirect, _ = info["redirect"].(bool)

	if protection, ok := info["protection"].([]any); ok {
		for _, p := range protection {
			entry, _ := p.(map[string]any)
			if entry == nil {
				continue
			}
			if typ, _ := entry["type"].(string); typ == "edit" {
				page.Protected = true
			}
		}
	}
	return page, nil
}
