// Package transcriber provides the speech backends a recognition session
// streams audio into.
package transcriber

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/livescribe/internal/recognition"
)

const (
	ProviderDeepgram = "deepgram"
	ProviderOpenAI   = "openai"
)

type Config struct {
	Provider string
	APIKey   string
	Language string
	Model    string
	// Endpoint overrides the provider's base URL.
	Endpoint string

	// OpenAI re-transcription cadence and end-of-speech detection.
	InterimInterval time.Duration
	SilenceTimeout  time.Duration

	// Deepgram utterance_end_ms.
	UtteranceEndMs int
}

func DefaultConfig() Config {
	return Config{
		Provider:        ProviderDeepgram,
		Model:           "nova-3",
		InterimInterval: 2 * time.Second,
		SilenceTimeout:  2 * time.Second,
		UtteranceEndMs:  1000,
	}
}

// EnvAPIKey returns the conventional environment variable for provider.
func EnvAPIKey(provider string) string {
	switch provider {
	case ProviderDeepgram:
		return os.Getenv("DEEPGRAM_API_KEY")
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	default:
		return ""
	}
}

// New builds the recognizer for config.Provider.
func New(config Config, logger *log.Logger) (recognition.Recognizer, error) {
	if logger == nil {
		logger = log.Default()
	}
	if config.APIKey == "" {
		config.APIKey = EnvAPIKey(config.Provider)
	}

	switch config.Provider {
	case ProviderDeepgram:
		return NewDeepgram(config, logger.WithPrefix("deepgram")), nil
	case ProviderOpenAI:
		return NewWhisper(config, logger.WithPrefix("whisper")), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}

// authorize reports Authorized when an API key is configured. There is no
// interactive consent for network backends.
func authorize(ctx context.Context, apiKey string, callback func(recognition.AuthorizationStatus)) {
	if ctx.Err() != nil {
		callback(recognition.NotDetermined)
		return
	}
	if apiKey == "" {
		callback(recognition.Denied)
		return
	}
	callback(recognition.Authorized)
}
