package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var existsCmd = &cobra.Command{
	Use:   "exists [title]",
	Short: "Check whether a page with the given title exists",
	Args:  cobra.ExactArgs(1),
	Run:   runExists,
}

func init() {
	rootCmd.AddCommand(existsCmd)
}

func runExists(cmd *cobra.Command, args []string) {
	cfg := setup()
	title := args[0]

	ctx := context.Background()
	c := newClient(ctx, cfg)
	defer func() {
		_ = c.Close()
	}()

	exists, err := c.PageExists(ctx, title)
	if err != nil {
		slog.Error("Failed to check page", "title", title, "error", err)
		os.Exit(1)
	}

	if exists {
		fmt.Printf("%q exists\n", title)
	} else {
		fmt.Printf("%q does not exist\n", title)
		os.Exit(2)
	}
}
