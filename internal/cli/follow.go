package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/brazyl/brazyl/internal/control"
	"github.com/brazyl/brazyl/internal/core/domain"
	"github.com/brazyl/brazyl/internal/core/format"
	"github.com/brazyl/brazyl/internal/follow"
)

var (
	followUser       string
	followPolitician string
	followSource     string
	followExternalID string
)

var followCmd = &cobra.Command{
	Use:   "follow",
	Short: "Manage the politicians a user follows",
}

var followAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Follow a politician by id, or by --source and --external-id",
	Run:   runFollowAdd,
}

var followRemoveCmd = &cobra.Command{
	Use:   "remove [follow-id]",
	Short: "Stop following",
	Args:  cobra.ExactArgs(1),
	Run:   runFollowRemove,
}

var followListCmd = &cobra.Command{
	Use:   "list",
	Short: "List followed politicians",
	Run:   runFollowList,
}

var followStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show follow counts against the plan limit",
	Run:   runFollowStats,
}

func init() {
	followAddCmd.Flags().StringVar(&followPolitician, "politician", "", "politician id")
	followAddCmd.Flags().StringVar(&followSource, "source", string(domain.SourceCamara), "upstream of --external-id (camara or senado)")
	followAddCmd.Flags().StringVar(&followExternalID, "external-id", "", "upstream politician id")
	followAddCmd.MarkFlagsMutuallyExclusive("politician", "external-id")
	followAddCmd.MarkFlagsOneRequired("politician", "external-id")

	for _, c := range []*cobra.Command{followAddCmd, followListCmd, followStatsCmd} {
		c.Flags().StringVar(&followUser, "user", "", "user id")
		_ = c.MarkFlagRequired("user")
	}

	followCmd.AddCommand(followAddCmd, followRemoveCmd, followListCmd, followStatsCmd)
	rootCmd.AddCommand(followCmd)
}

// describeFollowError turns follow failures into a user-facing line.
func describeFollowError(err error) string {
	var already *follow.AlreadyFollowingError
	var limit *follow.LimitReachedError
	switch {
	case errors.As(err, &already):
		return "You already follow this politician"
	case errors.As(err, &limit):
		return fmt.Sprintf("Limit of %d politicians reached, upgrade your plan to follow more", limit.Limit)
	case errors.Is(err, follow.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, follow.ErrPoliticianNotFound):
		return "Politician not found"
	case errors.Is(err, follow.ErrFollowNotFound):
		return "Follow not found"
	default:
		return ""
	}
}

func exitOnFollowError(err error, what string) {
	if err == nil {
		return
	}
	if msg := describeFollowError(err); msg != "" {
		fmt.Println(msg)
	} else {
		slog.Error("Failed to "+what, "error", err)
	}
	os.Exit(1)
}

func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *control.App)) {
	cfg := setup(cmd)
	ctx, cancel := commandContext()
	defer cancel()

	app := newApp(ctx, cfg)
	defer func() {
		_ = app.Close()
	}()
	fn(ctx, app)
}

func runFollowAdd(cmd *cobra.Command, args []string) {
	withApp(cmd, func(ctx context.Context, app *control.App) {
		politicianID := followPolitician
		if followExternalID != "" {
			p, err := app.Politicians.GetByExternalID(ctx, domain.Source(followSource), followExternalID)
			if err != nil {
				fmt.Printf("Politician %s/%s not found, run sync first\n", followSource, followExternalID)
				os.Exit(1)
			}
			politicianID = p.ID
		}

		f, err := app.Following.Follow(ctx, followUser, politicianID)
		exitOnFollowError(err, "follow politician")
		fmt.Printf("Created follow %s\n", f.ID)
	})
}

func runFollowRemove(cmd *cobra.Command, args []string) {
	withApp(cmd, func(ctx context.Context, app *control.App) {
		exitOnFollowError(app.Following.Unfollow(ctx, args[0]), "remove follow")
		fmt.Printf("Removed follow %s\n", args[0])
	})
}

func runFollowList(cmd *cobra.Command, args []string) {
	withApp(cmd, func(ctx context.Context, app *control.App) {
		follows, total, err := app.Following.List(ctx, followUser, 100, 0)
		exitOnFollowError(err, "list follows")

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, "FOLLOW\tPOLITICIAN\tPOSITION\tUF\tSINCE")
		for _, f := range follows {
			name, position, uf := f.PoliticianID, "", ""
			if p := f.Politician; p != nil {
				name = p.ParliamentaryName
				if name == "" {
					name = p.Name
				}
				name = format.PoliticianName(name)
				position, uf = string(p.Position), p.State
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", f.ID, name, position, uf, format.DateBR(f.CreatedAt))
		}
		_ = w.Flush()
		fmt.Printf("%d of %d shown\n", len(follows), total)
	})
}

func runFollowStats(cmd *cobra.Command, args []string) {
	withApp(cmd, func(ctx context.Context, app *control.App) {
		stats, err := app.Following.Stats(ctx, followUser)
		exitOnFollowError(err, "load follow stats")

		fmt.Printf("Following %d of %d (%d remaining)\n", stats.Total, stats.MaxAllowed, stats.Remaining)
		states := make([]string, 0, len(stats.ByState))
		for uf := range stats.ByState {
			states = append(states, uf)
		}
		sort.Strings(states)
		for _, pos := range []domain.Position{domain.PositionDeputadoFederal, domain.PositionSenador} {
			fmt.Printf("  %s: %d\n", pos, stats.ByPosition[pos])
		}
		for _, uf := range states {
			fmt.Printf("  %s: %d\n", uf, stats.ByState[uf])
		}
	})
}
