package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/brazyl/brazyl/internal/core/domain"
	"github.com/brazyl/brazyl/internal/ingest/roster"
)

var (
	syncDryRun  bool
	syncSources []string
	syncUF      string
	syncWorkers int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load current deputados and senadores into politician storage",
	Run:   runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "normalize without writing")
	syncCmd.Flags().StringSliceVar(&syncSources, "source", nil, "camara, senado (default both)")
	syncCmd.Flags().StringVar(&syncUF, "uf", "", "only legislators from this state")
	syncCmd.Flags().IntVar(&syncWorkers, "workers", roster.DefaultWorkers, "concurrent detail fetches")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) {
	cfg := setup(cmd)

	opts := roster.Options{DryRun: syncDryRun, UF: syncUF, Workers: syncWorkers}
	for _, s := range syncSources {
		src := domain.Source(s)
		if src != domain.SourceCamara && src != domain.SourceSenado {
			fmt.Printf("Unknown source %q (want camara or senado)\n", s)
			os.Exit(1)
		}
		opts.Sources = append(opts.Sources, src)
	}

	ctx, cancel := commandContext()
	defer cancel()

	app := newApp(ctx, cfg)
	defer func() {
		_ = app.Close()
	}()

	stats, err := app.Roster.Sync(ctx, opts)
	if err != nil {
		slog.Error("Roster sync failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(stats)
}
