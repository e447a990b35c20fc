package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	redisclient "github.com/vietddude/wikibot/internal/infra/redis"
)

var usesCmd = &cobra.Command{
	Use:   "uses [template]",
	Short: "List every page transcluding a template",
	Long: `uses walks the embeddedin list for a template to the end. With redis
configured, the continuation cursor is checkpointed after every page, so
an interrupted run resumes from where it stopped instead of refetching.`,
	Args: cobra.ExactArgs(1),
	Run:  runUses,
}

func init() {
	rootCmd.AddCommand(usesCmd)
}

func runUses(cmd *cobra.Command, args []string) {
	cfg := setup()
	template := args[0]

	ctx := context.Background()
	c := newClient(ctx, cfg)
	defer func() {
		_ = c.Close()
	}()

	if cfg.Redis.URL != "" {
		rdb, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Error("Failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			_ = rdb.Close()
		}()
		store := redisclient.NewCheckpointStore(rdb, cfg.Site.Name)
		c = c.WithCheckpoints(store, "uses:"+template)
	}

	titles, err := c.PagesUsing(ctx, template)
	if err != nil {
		slog.Error("Failed to list transclusions", "template", template, "error", err)
		os.Exit(1)
	}

	for _, title := range titles {
		fmt.Println(title)
	}
	slog.Info("Listed transclusions", "template", template, "count", len(titles))
}
