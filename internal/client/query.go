package client

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/vietddude/wikibot/internal/core/config"
	"github.com/vietddude/wikibot/internal/core/domain"
)

// PageExists reports whether a page with the given title exists.
func (c *Client) PageExists(ctx context.Context, title string) (bool, error) {
	page, err := c.session.ResolveByName(ctx, title)
	if err != nil {
		return false, err
	}
	return !page.Missing, nil
}

// CurrentUser returns the name of the logged-in user.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	resp, err := c.API(ctx, "query", http.MethodGet, domain.Params{"meta": "userinfo"})
	if err != nil {
		return "", err
	}
	query := resp.Sub("query")
	if query == nil {
		return "", &domain.APIError{Kind: domain.KindAPI, Info: "query member missing from response"}
	}
	userinfo, _ := query["userinfo"].(map[string]any)
	name, _ := userinfo["name"].(string)
	return name, nil
}

// SiteName returns the wiki's short name: the server name with any
// known farm suffix trimmed and /<lang> appended for non-English
// wikis.
func (c *Client) SiteName(ctx context.Context) (string, error) {
	resp, err := c.API(ctx, "query", http.MethodGet, domain.Params{
		"meta":   "siteinfo",
		"siprop": "general",
	})
	if err != nil {
		return "", err
	}
	general := payloadPath(resp, "query", "general")
	if general == nil {
		return "", &domain.APIError{Kind: domain.KindAPI, Info: "siteinfo general missing from response"}
	}
	serverName, _ := general["servername"].(string)
	lang, _ := general["lang"].(string)
	return config.DisplayName(serverName, lang), nil
}

// LastRevision returns the latest revision of a page.
func (c *Client) LastRevision(ctx context.Context, title string) (*domain.Revision, error) {
	resp, err := c.API(ctx, "query", http.MethodGet, domain.Params{
		"prop":    "revisions",
		"titles":  title,
		"rvlimit": "1",
		"rvprop":  "ids|timestamp|user|comment",
	})
	if err != nil {
		return nil, err
	}
	revs, err := revisionsFrom(resp, title)
	if err != nil {
		return nil, err
	}
	if len(revs) == 0 {
		return nil, nil
	}
	return &revs[0], nil
}

// FindSummaryInRevs searches the last limit revisions of a page for
// one with the given edit summary by the given user, and returns it
// (nil if no revision matches). The parent ID on the result is what an
// undo of that revision needs.
func (c *Client) FindSummaryInRevs(ctx context.Context, title, summary, user string, limit int) (*domain.Revision, error) {
	if limit <= 0 {
		limit = 5
	}
	resp, err := c.API(ctx, "query", http.MethodGet, domain.Params{
		"prop":    "revisions",
		"titles":  title,
		"rvlimit": strconv.Itoa(limit),
		"rvprop":  "ids|timestamp|user|comment",
	})
	if err != nil {
		return nil, err
	}
	revs, err := revisionsFrom(resp, title)
	if err != nil {
		return nil, err
	}
	for _, rev := range revs {
		if rev.Comment == summary && rev.User == user {
			return &rev, nil
		}
	}
	return nil, nil
}

// Namespaces returns the wiki's namespaces with their aliases.
func (c *Client) Namespaces(ctx context.Context) ([]domain.Namespace, error) {
	resp, err := c.API(ctx, "query", http.MethodGet, domain.Params{
		"meta":   "siteinfo",
		"siprop": "namespaces|namespacealiases",
	})
	if err != nil {
		return nil, err
	}
	query := resp.Sub("query")
	if query == nil {
		return nil, &domain.APIError{Kind: domain.KindAPI, Info: "query member missing from response"}
	}

	aliases := map[int][]string{}
	if rawAliases, ok := query["namespacealiases"].([]any); ok {
		for _, raw := range rawAliases {
			entry, _ := raw.(map[string]any)
			if entry == nil {
				continue
			}
			id, _ := entry["id"].(float64)
			alias, _ := entry["alias"].(string)
			aliases[int(id)] = append(aliases[int(id)], alias)
		}
	}

	rawNamespaces, _ := query["namespaces"].(map[string]any)
	namespaces := make([]domain.Namespace, 0, len(rawNamespaces))
	for _, raw := range rawNamespaces {
		entry, _ := raw.(map[string]any)
		if entry == nil {
			continue
		}
		id, _ := entry["id"].(float64)
		ns := domain.Namespace{
			ID:      int(id),
			Aliases: aliases[int(id)],
		}
		ns.Name, _ = entry["name"].(string)
		ns.Canonical, _ = entry["canonical"].(string)
		namespaces = append(namespaces, ns)
	}
	sort.Slice(namespaces, func(i, j int) bool { return namespaces[i].ID < namespaces[j].ID })
	return namespaces, nil
}

// NamespaceIDs converts namespace names to their IDs. Unknown names
// are skipped, matching the forgiving behavior batch scripts expect.
func (c *Client) NamespaceIDs(ctx context.Context, names []string) ([]int, error) {
	namespaces, err := c.Namespaces(ctx)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}
	var ids []int
	for _, ns := range namespaces {
		if wanted[ns.Name] {
			ids = append(ids, ns.ID)
		}
	}
	return ids, nil
}

// RedirectTarget returns the title a redirect page points at, with the
// target fragment if the redirect carries one. Returns ("", "", nil)
// when the page is not a redirect.
func (c *Client) RedirectTarget(ctx context.Context, title string) (target, fragment string, err error) {
	resp, err := c.API(ctx, "query", http.MethodGet, domain.Params{
		"prop":      "pageprops",
		"titles":    title,
		"redirects": "",
	})
	if err != nil {
		return "", "", err
	}
	query := resp.Sub("query")
	if query == nil {
		return "", "", nil
	}
	redirects, _ := query["redirects"].([]any)
	for _, raw := range redirects {
		entry, _ := raw.(map[string]any)
		if entry == nil {
			continue
		}
		if from, _ := entry["from"].(string); from == title {
			target, _ = entry["to"].(string)
			fragment, _ = entry["tofragment"].(string)
			return target, fragment, nil
		}
	}
	return "", "", nil
}

// PagesUsing returns the titles of all pages transcluding the given
// template, following continuation until exhausted. A bare name gets
// the Template: prefix; a leading colon suppresses it.
func (c *Client) PagesUsing(ctx context.Context, template string) ([]string, error) {
	title := template
	switch {
	case strings.HasPrefix(template, ":"):
		title = template[1:]
	case !strings.Contains(template, ":"):
		title = "Template:" + template
	}

	payloads, err := c.APIContinue(ctx, "query", "eicontinue", domain.Params{
		"list":    "embeddedin",
		"eititle": title,
		"eilimit": "max",
	})
	if err != nil {
		return nil, err
	}

	var titles []string
	for _, payload := range payloads {
		embedded, _ := payload["embeddedin"].([]any)
		for _, raw := range embedded {
			entry, _ := raw.(map[string]any)
			if entry == nil {
				continue
			}
			if t, _ := entry["title"].(string); t != "" {
				titles = append(titles, t)
			}
		}
	}
	return titles, nil
}

// revisionsFrom extracts the revision list of the first page of a
// query response.
func revisionsFrom(resp domain.Payload, title string) ([]domain.Revision, error) {
	query := resp.Sub("query")
	if query == nil {
		return nil, &domain.APIError{Kind: domain.KindAPI, Info: "query member missing from response"}
	}
	pages, _ := query["pages"].([]any)
	if len(pages) == 0 {
		return nil, &domain.APIError{Kind: domain.KindAPI, Info: fmt.Sprintf("no page info for %q", title)}
	}
	info, _ := pages[0].(map[string]any)
	rawRevs, _ := info["revisions"].([]any)

	revs := make([]domain.Revision, 0, len(rawRevs))
	for _, raw := range rawRevs {
		entry, _ := raw.(map[string]any)
		if entry == nil {
			continue
		}
		var rev domain.Revision
		if id, ok := entry["revid"].(float64); ok {
			rev.RevID = int64(id)
		}
		if id, ok := entry["parentid"].(float64); ok {
			rev.ParentID = int64(id)
		}
		rev.Timestamp, _ = entry["timestamp"].(string)
		rev.User, _ = entry["user"].(string)
		rev.Comment, _ = entry["comment"].(string)
		revs = append(revs, rev)
	}
	return revs, nil
}

func payloadPath(resp domain.Payload, keys ...string) map[string]any {
	current := map[string]any(resp)
	for _, key := range keys {
		next, _ := current[key].(map[string]any)
		if next == nil {
			return nil
		}
		current = next
	}
	return current
}
