package config

import (
	"fmt"
	"strings"
	"time"
)

// Deployment families.
const (
	FamilyWikigg  = "wikigg"
	FamilyFandom  = "fandom"
	FamilyGeneric = "generic"
)

// Deployment describes one site family. The differences between
// families are pure data (URL pattern, default timeout), so a
// descriptor row replaces a subclass.
type Deployment struct {
	Family         string
	URLPattern     string // fmt pattern taking the site name
	APIPath        string
	DefaultTimeout time.Duration
}

// deployments is the descriptor table. wiki.gg servers are noticeably
// slower than the rest, hence the 3 minute timeout.
var deployments = map[string]Deployment{
	FamilyWikigg: {
		Family:         FamilyWikigg,
		URLPattern:     "https://%s.wiki.gg",
		APIPath:        "/api.php",
		DefaultTimeout: 180 * time.Second,
	},
	FamilyFandom: {
		Family:         FamilyFandom,
		URLPattern:     "https://%s.fandom.com",
		APIPath:        "/api.php",
		DefaultTimeout: 30 * time.Second,
	},
	FamilyGeneric: {
		Family:         FamilyGeneric,
		APIPath:        "/api.php",
		DefaultTimeout: 30 * time.Second,
	},
}

// hostSuffixes are the wiki-farm domains stripped from server names for
// display, whichever family the session was configured with. Gamepedia
// hosts linger as aliases of migrated wikis.
var hostSuffixes = []string{".wiki.gg", ".fandom.com", ".gamepedia.com"}

// DeploymentFor returns the descriptor for a family.
func DeploymentFor(family string) (Deployment, bool) {
	d, ok := deployments[family]
	return d, ok
}

// APIURL resolves the api.php endpoint for the configured site.
func (s SiteConfig) APIURL() string {
	if s.URL != "" {
		return strings.TrimSuffix(s.URL, "/") + "/api.php"
	}
	d := deployments[s.Family]
	base := fmt.Sprintf(d.URLPattern, s.Name)
	if s.Lang != "" && s.Lang != "en" {
		base += "/" + s.Lang
	}
	return base + d.APIPath
}

// DisplayName trims any known farm suffix from a server name and
// appends /<lang> for non-English wikis, e.g. "terraria/de".
func DisplayName(serverName, lang string) string {
	name := serverName
	for _, suffix := range hostSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}
	if lang != "" && lang != "en" {
		name += "/" + lang
	}
	return name
}
