// ABOUTME: Run command polling feeds until interrupted
// ABOUTME: Each pass schedules the next from the soonest due feed

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harper/feedwatch/internal/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll feeds until interrupted",
	Long: `Poll feeds continuously, announcing new and updated items to stdout as
"[output] line". Stops cleanly on Ctrl-C or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, err := newPoller(cmd.OutOrStdout())
		if err != nil {
			return err
		}

		logger.Z.Info("feedwatch running", zap.String("db", cfg.DBPath()))
		err = p.Run(ctx)
		if errors.Is(err, context.Canceled) {
			logger.Z.Info("feedwatch stopped")
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
