package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/epub-reader/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize epub-reader configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure the client and generates a .epub-reader.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
