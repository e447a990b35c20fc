package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/vietddude/wikibot/internal/core/domain"
	"github.com/vietddude/wikibot/internal/infra/mediawiki"
	"github.com/vietddude/wikibot/internal/resilience/paginate"
)

// Smoke test against a live wiki: fetch site info anonymously and walk
// one paginated query to completion. No credentials needed.
func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}

	apiURL := os.Getenv("WIKI_API_URL")
	if apiURL == "" {
		log.Fatalf("WIKI_API_URL is not set")
	}

	ctx := context.Background()

	// 1. Anonymous session
	session := mediawiki.NewSession("smoke", apiURL, mediawiki.Credentials{}, 30*time.Second)
	defer session.Close()

	// 2. Single round trip: site info
	resp, err := session.Call(ctx, "query", "GET", domain.Params{
		"meta":   "siteinfo",
		"siprop": "general",
	})
	if err != nil {
		log.Fatalf("siteinfo call failed: %v", err)
	}
	general, _ := resp.Sub("query")["general"].(map[string]any)
	fmt.Printf("Site: %v (%v)\n", general["sitename"], general["servername"])

	// 3. Continued query: walk the main-namespace page list to the end
	pages, err := paginate.NewCollector(session).Collect(ctx, "query", "apcontinue", domain.Params{
		"list":        "allpages",
		"apnamespace": "0",
		"aplimit":     "50",
	})
	if err != nil {
		log.Fatalf("continued query failed: %v", err)
	}

	total := 0
	for _, page := range pages {
		entries, _ := page["allpages"].([]any)
		total += len(entries)
	}
	fmt.Printf("Fetched %d pages over %d calls\n", total, len(pages))

	stats := session.Stats()
	fmt.Printf("Round trips: %d ok, %d failed, avg latency %v\n",
		stats.SuccessCount, stats.FailureCount, stats.AvgLatency)
}
