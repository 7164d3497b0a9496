package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
	"golang.org/x/text/language"
)

// commonLanguages offered by the wizard; any valid BCP 47 tag is
// accepted when typed manually.
var commonLanguages = []string{"ar", "de", "en", "es", "fr", "it", "ja", "pt", "ru", "zh"}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .epub-reader.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to epub-reader! Let's configure your client.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Server URL.
	serverPrompt := promptui.Prompt{
		Label:   "epub-translator server URL",
		Default: cfg.ServerURL,
	}
	serverURL, err := serverPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}
	cfg.ServerURL = serverURL

	// 2. Default target language.
	langPrompt := promptui.SelectWithAdd{
		Label:    "Default target language",
		Items:    commonLanguages,
		AddLabel: "Other (BCP 47 tag)",
		Validate: func(s string) error {
			_, err := language.Parse(s)
			return err
		},
	}
	_, lang, err := langPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("target language: %w", err)
	}
	cfg.TargetLanguage = lang

	// 3. Viewer port.
	portPrompt := promptui.Prompt{
		Label:   "Local viewer port",
		Default: strconv.Itoa(cfg.ViewerPort),
		Validate: func(s string) error {
			p, err := strconv.Atoi(s)
			if err != nil || p <= 0 || p > 65535 {
				return fmt.Errorf("must be a valid port")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("viewer port: %w", err)
	}
	cfg.ViewerPort, _ = strconv.Atoi(portStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configPath := ".epub-reader.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}
