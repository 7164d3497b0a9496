package cmd

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/microcosm-cc/bluemonday"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/epub-reader/internal/engine"
	"github.com/ziadkadry99/epub-reader/internal/view"
)

var readLocation string

var readCmd = &cobra.Command{
	Use:   "read <epub-id>",
	Short: "Read a document interactively in the terminal",
	Long: `Opens an interactive reading session. Translated sections appear as
the server finishes them; switch views, jump between sections, and
toggle between original and translated content.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := newSession(cfg, args[0], readLocation)
		if err != nil {
			return err
		}
		if _, err := startSession(ctx, s); err != nil {
			return err
		}

		textPolicy := bluemonday.StrictPolicy()
		for {
			printSnapshot(s.Render(), textPolicy)
			fmt.Printf("\nShare this view: ?%s\n", s.Location())

			choice, err := readMenu(s.State())
			if err != nil {
				if errors.Is(err, promptui.ErrInterrupt) {
					return nil
				}
				return err
			}

			switch choice {
			case "Show all sections":
				s.ShowAll()
			case "Show translated only":
				s.ShowTranslatedOnly()
			case "Toggle original/translated":
				s.ToggleVariant()
			case "Open section":
				if err := pickSection(s); err != nil && !errors.Is(err, promptui.ErrInterrupt) {
					return err
				}
			case "Translate document":
				if err := s.StartTranslation(ctx, ""); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				}
			case "Translate this section":
				if err := s.TranslateActiveSection(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				}
			case "Back":
				s.Back()
			case "Forward":
				s.Forward()
			case "Show logs":
				for _, e := range s.Logs().Entries() {
					fmt.Printf("%s [%s] %s: %s\n",
						e.Time.Format("15:04:05"), e.Level, e.Category, e.Message)
				}
			case "Quit":
				return nil
			}
		}
	},
}

func readMenu(st view.State) (string, error) {
	items := []string{"Show all sections", "Show translated only", "Toggle original/translated", "Open section"}
	if st.Mode == view.ModeSingle {
		items = append(items, "Translate this section")
	}
	items = append(items, "Translate document", "Back", "Forward", "Show logs", "Quit")

	prompt := promptui.Select{
		Label: "epub-reader",
		Items: items,
		Size:  len(items),
	}
	_, choice, err := prompt.Run()
	return choice, err
}

func pickSection(s sectionPicker) error {
	snap := s.Render()
	if len(snap.Sections) == 0 {
		fmt.Println("No sections to open.")
		return nil
	}

	items := make([]string, len(snap.Sections))
	for i, sec := range snap.Sections {
		items[i] = sec.Title
		if sec.IsTranslated {
			items[i] += " [translated]"
		}
	}
	prompt := promptui.Select{
		Label: "Open section",
		Items: items,
		Size:  10,
	}
	i, _, err := prompt.Run()
	if err != nil {
		return err
	}
	s.SelectSection(snap.Sections[i].ID)
	return nil
}

type sectionPicker interface {
	Render() view.Snapshot
	SelectSection(id string)
}

// printSnapshot writes the visible sections as plain text, with
// markup stripped for the terminal.
func printSnapshot(snap view.Snapshot, textPolicy *bluemonday.Policy) {
	fmt.Printf("\n--- view: %s", snap.Mode)
	if snap.Variant == view.VariantTranslated {
		fmt.Print(" (translated)")
	}
	if !snap.Connected {
		fmt.Print(" · disconnected")
	}
	if snap.Job.State == engine.JobInProgress {
		fmt.Printf(" · translating %.0f%%", snap.Job.ProgressPercent)
	}
	fmt.Println(" ---")

	if snap.Error != "" {
		fmt.Fprintf(os.Stderr, "Translation error: %s\n", snap.Error)
	}
	if snap.Placeholder != "" {
		fmt.Println(snap.Placeholder)
		return
	}
	for _, sec := range snap.Sections {
		fmt.Printf("\n== %s ==\n", sec.Title)
		text := html.UnescapeString(textPolicy.Sanitize(sec.Content))
		fmt.Println(strings.TrimSpace(text))
	}
}

func init() {
	readCmd.Flags().StringVar(&readLocation, "location", "", "initial view as a shared-link query")
	rootCmd.AddCommand(readCmd)
}
