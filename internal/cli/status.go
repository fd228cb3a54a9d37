package cli

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/brazyl/brazyl/internal/core/domain"
	"github.com/brazyl/brazyl/internal/core/format"
	"github.com/brazyl/brazyl/internal/core/notification"
)

var statusUser string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a user's notification counts per status",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusUser, "user", "", "user id")
	_ = statusCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := setup(cmd)
	ctx, cancel := commandContext()
	defer cancel()

	app := newApp(ctx, cfg)
	defer func() {
		_ = app.Close()
	}()

	stats, err := app.Service.Stats(ctx, statusUser)
	if err != nil {
		slog.Error("Failed to load notification stats", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "STATUS\tCOUNT\tMEANING")
	for _, s := range domain.AllNotificationStatuses {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", s, stats.ByStatus[s], notification.StatusDescription(s))
	}
	_, _ = fmt.Fprintf(w, "TOTAL\t%d\t\n", stats.Total)
	_ = w.Flush()

	if stats.LastNotificationAt != nil {
		fmt.Printf("Last notification: %s\n", format.DateTimeBR(*stats.LastNotificationAt))
	}
}
