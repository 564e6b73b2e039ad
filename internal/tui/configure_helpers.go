package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/livescribe/internal/config"
	"github.com/leonardotrapani/livescribe/internal/deps"
	"github.com/leonardotrapani/livescribe/internal/language"
)

func formatRecognitionLabel(cfg *config.Config) string {
	lang := language.Label(cfg.Recognition.Language)
	model := cfg.Recognition.Model
	if model == "" {
		model = config.DefaultModels[cfg.Recognition.Provider]
	}
	return fmt.Sprintf("Recognition (%s/%s, %s)", cfg.Recognition.Provider, model, lang)
}

func formatRecordingLabel(cfg *config.Config) string {
	device := cfg.Recording.Device
	if device == "" {
		device = "default"
	}
	return fmt.Sprintf("Recording (%d Hz, %s)", cfg.Recording.SampleRate, device)
}

func formatNotificationsLabel(cfg *config.Config) string {
	if !cfg.Notifications.Enabled {
		return "Notifications (off)"
	}
	return fmt.Sprintf("Notifications (%s)", cfg.Notifications.Type)
}

// keyStatus never prints the key itself.
func keyStatus(cfg *config.Config) string {
	switch {
	case cfg.Recognition.APIKey != "":
		return "set in config"
	case cfg.ResolveAPIKey() != "":
		return "from $" + envVarFor(cfg.Recognition.Provider)
	default:
		return StyleWarning.Render("missing")
	}
}

// missingTools lists the programs cfg needs that are not on PATH.
func missingTools(cfg *config.Config) []deps.Tool {
	needed := []deps.Tool{deps.PwRecord, deps.PwCli}
	if cfg.Notifications.Enabled && cfg.Notifications.Type == "desktop" {
		needed = append(needed, deps.NotifySend)
	}
	return deps.Missing(needed...)
}

func showSummary(cfg *config.Config) (bool, error) {
	fmt.Println()
	fmt.Println(StyleHeader.Render("Configuration Summary"))
	fmt.Println()

	fmt.Printf("  %s %s\n", StyleLabel.Render("Recognition:"), formatRecognitionLabel(cfg))
	fmt.Printf("  %s %s\n", StyleLabel.Render("API key:"), keyStatus(cfg))
	fmt.Printf("  %s %s\n", StyleLabel.Render("Recording:"), formatRecordingLabel(cfg))
	fmt.Printf("  %s %s\n", StyleLabel.Render("Notifications:"), formatNotificationsLabel(cfg))
	fmt.Printf("  %s %s\n", StyleLabel.Render("Log level:"), cfg.Log.Level)

	for _, tool := range missingTools(cfg) {
		fmt.Println(StyleWarning.Render(fmt.Sprintf("  %s not found (needed for %s)", tool.Name, tool.Purpose)))
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println()
		fmt.Println(StyleWarning.Render("  " + err.Error()))
	}
	fmt.Println()

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}
