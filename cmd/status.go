package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/epub-reader/internal/engine"
)

var statusCmd = &cobra.Command{
	Use:   "status <epub-id>",
	Short: "Print the translation status of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := engine.NewClient(cfg.ServerURL)
		if err != nil {
			return err
		}

		st, err := client.Status(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("fetching status: %w", err)
		}

		fmt.Printf("Status: %s\n", st.State)
		switch st.State {
		case engine.JobInProgress:
			fmt.Printf("Progress: %.1f%% (%d/%d sections)\n",
				st.ProgressPercent, st.CompletedSections, st.TotalSections)
			if st.CurrentSection != "" {
				fmt.Printf("Current section: %s\n", st.CurrentSection)
			}
		case engine.JobCompleted:
			fmt.Printf("Sections: %d\n", st.TotalSections)
		case engine.JobFailed:
			fmt.Printf("Error: %s\n", st.ErrorMessage)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
