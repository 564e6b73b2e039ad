// Package tui is the interactive configuration editor behind
// `livescribe configure`.
package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/livescribe/internal/config"
	"github.com/muesli/termenv"
)

type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

type ConfigSection string

const (
	SectionRecognition   ConfigSection = "recognition"
	SectionRecording     ConfigSection = "recording"
	SectionNotifications ConfigSection = "notifications"
	SectionLog           ConfigSection = "log"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Run edits a copy of cfg. A fresh install walks through recognition first,
// an existing config opens the section menu.
func Run(cfg *config.Config) (*ConfigureResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	working := *cfg

	if !hasUserChanges(&working) {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()
		if err := editRecognition(&working); err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}
	}

	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()

		section, err := selectSection(&working)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch section {
		case SectionSaveExit:
			confirmed, err := showSummary(&working)
			if err != nil {
				return &ConfigureResult{Cancelled: true}, nil
			}
			if confirmed {
				return &ConfigureResult{Config: &working}, nil
			}
		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil
		case SectionRecognition:
			_ = editRecognition(&working)
		case SectionRecording:
			_ = editRecording(&working)
		case SectionNotifications:
			_ = editNotifications(&working)
		case SectionLog:
			_ = editLog(&working)
		}
	}
}

// hasUserChanges reports whether cfg differs from a first run in the
// fields the editor cares about.
func hasUserChanges(cfg *config.Config) bool {
	def := config.DefaultConfig()
	return cfg.Recognition.APIKey != "" ||
		cfg.Recognition.Provider != def.Recognition.Provider ||
		cfg.Recognition.Model != def.Recognition.Model ||
		cfg.Recognition.Language != def.Recognition.Language
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(formatRecognitionLabel(cfg), SectionRecognition),
		huh.NewOption(formatRecordingLabel(cfg), SectionRecording),
		huh.NewOption(formatNotificationsLabel(cfg), SectionNotifications),
		huh.NewOption(fmt.Sprintf("Log level (%s)", cfg.Log.Level), SectionLog),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}

func editLog(cfg *config.Config) error {
	level := cfg.Log.Level
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Log Level").
				Options(
					huh.NewOption("debug", "debug"),
					huh.NewOption("info", "info"),
					huh.NewOption("warn", "warn"),
					huh.NewOption("error", "error"),
				).
				Value(&level),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}
	cfg.Log.Level = level
	return nil
}

func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}
