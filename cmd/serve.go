package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/epub-reader/internal/server"
)

var (
	servePort     int
	serveLocation string
)

var serveCmd = &cobra.Command{
	Use:   "serve <epub-id>",
	Short: "Serve the document to a browser",
	Long: `Starts a local HTTP viewer for the document. The address bar carries
the reading state, so any view can be bookmarked or shared; pasting a
shared link reproduces it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		port := servePort
		if port == 0 {
			port = cfg.ViewerPort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := newSession(cfg, args[0], serveLocation)
		if err != nil {
			return err
		}
		if _, err := startSession(ctx, s); err != nil {
			return err
		}

		srv := server.New(server.Config{Port: port}, s)
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		fmt.Printf("Reading %s at http://localhost:%d/\n", args[0], port)
		if err := srv.Start(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "viewer port (overrides config)")
	serveCmd.Flags().StringVar(&serveLocation, "location", "", "initial view as a shared-link query, e.g. \"view=single&chapter=ch3\"")
	rootCmd.AddCommand(serveCmd)
}
