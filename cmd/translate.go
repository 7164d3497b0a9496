package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var translateLang string

var translateCmd = &cobra.Command{
	Use:   "translate <epub-id>",
	Short: "Start translating a document and follow its progress",
	Long: `Starts a whole-document translation job on the server and follows it
until it completes or fails. Translated sections stream in while the
job runs; press Ctrl-C to stop following (the job keeps running on the
server and can be resumed with watch).`,
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

		lang := translateLang
		if lang == "" {
			lang = cfg.TargetLanguage
		}
		if err := s.StartTranslation(ctx, lang); err != nil {
			return fmt.Errorf("starting translation: %w", err)
		}
		fmt.Printf("Translating %s to %s\n", args[0], lang)

		return watchJob(ctx, s, errCh)
	},
}

func init() {
	translateCmd.Flags().StringVarP(&translateLang, "lang", "l", "", "target language (overrides config)")
	rootCmd.AddCommand(translateCmd)
}
