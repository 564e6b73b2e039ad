package config

import (
	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/livescribe/internal/notify"
	"github.com/leonardotrapani/livescribe/internal/recording"
	"github.com/leonardotrapani/livescribe/internal/transcriber"
)

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate: c.Recording.SampleRate,
		Channels:   c.Recording.Channels,
		Format:     c.Recording.Format,
		Device:     c.Recording.Device,
	}
}

func (c *Config) ToTranscriberConfig() transcriber.Config {
	model := c.Recognition.Model
	if model == "" {
		model = DefaultModels[c.Recognition.Provider]
	}
	return transcriber.Config{
		Provider:        c.Recognition.Provider,
		APIKey:          c.ResolveAPIKey(),
		Language:        c.Recognition.Language,
		Model:           model,
		Endpoint:        c.Recognition.Endpoint,
		InterimInterval: c.Recognition.InterimInterval,
		SilenceTimeout:  c.Recognition.SilenceTimeout,
		UtteranceEndMs:  c.Recognition.UtteranceEndMs,
	}
}

// ResolveAPIKey prefers recognition.api_key over the provider's environment
// variable.
func (c *Config) ResolveAPIKey() string {
	if c.Recognition.APIKey != "" {
		return c.Recognition.APIKey
	}
	return transcriber.EnvAPIKey(c.Recognition.Provider)
}

func (c *Config) ToNotifier(l *log.Logger) notify.Notifier {
	return notify.New(c.Notifications.Type, c.Notifications.Enabled, l)
}

// LogLevel falls back to info for an empty or unknown level.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
