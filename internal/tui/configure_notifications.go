package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/livescribe/internal/config"
	"github.com/leonardotrapani/livescribe/internal/notify"
)

func editNotifications(cfg *config.Config) error {
	enabled := cfg.Notifications.Enabled

	desc := "Show notifications when a session starts, stops or fails"
	if cfg.Notifications.Enabled {
		desc = fmt.Sprintf("Currently: enabled (%s). %s", cfg.Notifications.Type, desc)
	} else {
		desc = "Currently: disabled. " + desc
	}

	notifType := cfg.Notifications.Type
	if notifType == "" {
		notifType = "desktop"
	}
	var configureMessages bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Description(desc).
				Value(&enabled),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Notification Type").
				Options(
					huh.NewOption("Desktop notifications (notify-send)", "desktop"),
					huh.NewOption("Log to console only", "log"),
					huh.NewOption("None (silent)", "none"),
				).
				Value(&notifType),
			huh.NewConfirm().
				Title("Configure custom notification messages?").
				Affirmative("Yes").
				Negative("No, use defaults").
				Value(&configureMessages),
		).WithHideFunc(func() bool { return !enabled }),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Notifications.Enabled = enabled
	if !enabled {
		return nil
	}
	cfg.Notifications.Type = notifType

	if configureMessages {
		return editNotificationMessages(cfg)
	}
	return nil
}

// messageField returns the override slot for a notify.MessageDefs key.
func messageField(cfg *config.Config, key string) *config.MessageConfig {
	m := &cfg.Notifications.Messages
	switch key {
	case "session_started":
		return &m.SessionStarted
	case "session_stopped":
		return &m.SessionStopped
	case "nothing_recognized":
		return &m.NothingRecognized
	case "session_failed":
		return &m.SessionFailed
	case "config_reloaded":
		return &m.ConfigReloaded
	}
	return nil
}

func messageLabel(cfg *config.Config, def notify.MessageDef) string {
	body := def.DefaultBody
	if field := messageField(cfg, def.ConfigKey); field != nil && field.Body != "" {
		body = field.Body
	}
	if len(body) > 30 {
		body = body[:30] + "..."
	}
	return fmt.Sprintf("%s: %q", def.ConfigKey, body)
}

func editNotificationMessages(cfg *config.Config) error {
	for {
		var options []huh.Option[string]
		for _, def := range notify.MessageDefs {
			options = append(options, huh.NewOption(messageLabel(cfg, def), def.ConfigKey))
		}
		options = append(options, huh.NewOption("Back", "back"))

		var selected string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Notification Messages").
					Description("{text} is replaced with the transcript or error").
					Options(options...).
					Value(&selected),
			),
		).WithTheme(getTheme())

		if err := form.Run(); err != nil {
			return err
		}
		if selected == "back" {
			return nil
		}
		_ = editSingleMessage(cfg, selected)
	}
}

func editSingleMessage(cfg *config.Config, key string) error {
	field := messageField(cfg, key)
	if field == nil {
		return fmt.Errorf("unknown message %q", key)
	}

	var def notify.MessageDef
	for _, d := range notify.MessageDefs {
		if d.ConfigKey == key {
			def = d
			break
		}
	}

	title := field.Title
	if title == "" {
		title = def.DefaultTitle
	}
	body := field.Body
	if body == "" {
		body = def.DefaultBody
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Description(fmt.Sprintf("Default: %s", def.DefaultTitle)).
				Value(&title),
			huh.NewInput().
				Title("Body").
				Description(fmt.Sprintf("Default: %s", def.DefaultBody)).
				Value(&body),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	*field = config.MessageConfig{Title: title, Body: body}
	return nil
}
