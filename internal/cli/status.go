package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the configured wiki and the logged-in user",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := setup()

	ctx := context.Background()
	c := newClient(ctx, cfg)
	defer func() {
		_ = c.Close()
	}()

	siteName, err := c.SiteName(ctx)
	if err != nil {
		slog.Error("Failed to query site info", "error", err)
		os.Exit(1)
	}
	user, err := c.CurrentUser(ctx)
	if err != nil {
		slog.Error("Failed to query user info", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "SITE\tUSER\tENDPOINT")
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", siteName, user, cfg.Site.APIURL())
	_ = w.Flush()
}
