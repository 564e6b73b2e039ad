package config

import "time"

// DefaultModels is the model used when recognition.model is empty.
var DefaultModels = map[string]string{
	"deepgram": "nova-3",
	"openai":   "whisper-1",
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Recording: RecordingConfig{
			SampleRate: 16000,
			Channels:   1,
			Format:     "s16",
			Device:     "",
		},
		Recognition: RecognitionConfig{
			Provider:        "deepgram",
			Model:           "",
			Language:        "",
			InterimInterval: 2 * time.Second,
			SilenceTimeout:  2 * time.Second,
			UtteranceEndMs:  1000,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
