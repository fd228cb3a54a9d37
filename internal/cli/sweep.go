package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Dispatch every due scheduled notification once and exit",
	Run:   runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) {
	cfg := setup(cmd)
	ctx, cancel := commandContext()
	defer cancel()

	app := newApp(ctx, cfg)
	defer func() {
		_ = app.Close()
	}()

	processed, err := app.Sweeper.Sweep(ctx)
	if err != nil {
		slog.Error("Sweep failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Processed %d notifications\n", processed)
}
