package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "epub-reader",
	Short: "Reading client for the epub-translator server",
	Long: `epub-reader follows a long-running document translation job from the
terminal. It keeps a live local copy of the document, merges translated
sections as the server pushes them, and lets you read, watch progress,
or serve the document to a browser.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".epub-reader.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
