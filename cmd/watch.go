package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/epub-reader/internal/engine"
)

var watchCmd = &cobra.Command{
	Use:   "watch <epub-id>",
	Short: "Follow an already-running translation job",
	Long: `Attaches to a translation job that is already in flight and follows
its progress until it completes or fails.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := newSession(cfg, args[0], "")
		if err != nil {
			return err
		}
		errCh, err := startSession(ctx, s)
		if err != nil {
			return err
		}

		snap := s.Render()
		switch snap.Job.State {
		case engine.JobNotStarted:
			return fmt.Errorf("no translation in progress for %s; run `epub-reader translate %s`", args[0], args[0])
		case engine.JobCompleted:
			fmt.Printf("Translation already complete. Download: %s\n", s.DownloadURL())
			return nil
		case engine.JobFailed:
			return fmt.Errorf("translation failed: %s", snap.Error)
		}

		return watchJob(ctx, s, errCh)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
