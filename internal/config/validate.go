package config

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/livescribe/internal/audio"
	"github.com/leonardotrapani/livescribe/internal/language"
)

func (c *Config) Validate() error {
	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.Channels <= 0 {
		return fmt.Errorf("invalid recording.channels: %d", c.Recording.Channels)
	}
	if c.Recording.Format == "" {
		return fmt.Errorf("invalid recording.format: empty")
	}
	if c.Recording.Format != audio.S16 {
		return fmt.Errorf("invalid recording.format: %s (only s16 can be recognized)", c.Recording.Format)
	}

	if c.Recognition.Provider == "" {
		return fmt.Errorf("invalid recognition.provider: empty")
	}

	switch c.Recognition.Provider {
	case "deepgram":
		if c.ResolveAPIKey() == "" {
			return fmt.Errorf("Deepgram API key required: not found in config (recognition.api_key) or environment variable (DEEPGRAM_API_KEY)")
		}
		if c.Recognition.UtteranceEndMs != 0 && c.Recognition.UtteranceEndMs < 1000 {
			return fmt.Errorf("invalid recognition.utterance_end_ms: %d (must be 0 or at least 1000)", c.Recognition.UtteranceEndMs)
		}

	case "openai":
		if c.ResolveAPIKey() == "" {
			return fmt.Errorf("OpenAI API key required: not found in config (recognition.api_key) or environment variable (OPENAI_API_KEY)")
		}
		if c.Recognition.InterimInterval <= 0 {
			return fmt.Errorf("invalid recognition.interim_interval: %v", c.Recognition.InterimInterval)
		}
		if c.Recognition.SilenceTimeout < 0 {
			return fmt.Errorf("invalid recognition.silence_timeout: %v", c.Recognition.SilenceTimeout)
		}

	default:
		return fmt.Errorf("unsupported recognition.provider: %s (must be deepgram or openai)", c.Recognition.Provider)
	}

	if c.Recognition.Language != "" && !language.IsValid(c.Recognition.Language) {
		return fmt.Errorf("invalid recognition.language: %s (use empty string for auto-detect or codes like 'en', 'es', 'pt-BR')", c.Recognition.Language)
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if c.Notifications.Enabled && !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	if c.Log.Level != "" {
		if _, err := log.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("invalid log.level: %s", c.Log.Level)
		}
	}

	return nil
}
