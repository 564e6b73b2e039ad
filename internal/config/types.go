package config

import (
	"reflect"
	"time"

	"github.com/leonardotrapani/livescribe/internal/notify"
)

type Config struct {
	Recording     RecordingConfig     `toml:"recording"`
	Recognition   RecognitionConfig   `toml:"recognition"`
	Notifications NotificationsConfig `toml:"notifications"`
	Log           LogConfig           `toml:"log"`
}

type RecordingConfig struct {
	SampleRate int    `toml:"sample_rate"`
	Channels   int    `toml:"channels"`
	Format     string `toml:"format"`
	Device     string `toml:"device"`
}

type RecognitionConfig struct {
	Provider string `toml:"provider"` // "deepgram", "openai"
	Model    string `toml:"model"`
	Language string `toml:"language"`
	APIKey   string `toml:"api_key"`
	Endpoint string `toml:"endpoint"`

	InterimInterval time.Duration `toml:"interim_interval"`
	SilenceTimeout  time.Duration `toml:"silence_timeout"`
	UtteranceEndMs  int           `toml:"utterance_end_ms"`
}

type NotificationsConfig struct {
	Enabled  bool           `toml:"enabled"`
	Type     string         `toml:"type"` // "desktop", "log", "none"
	Messages MessagesConfig `toml:"messages"`
}

type MessageConfig struct {
	Title string `toml:"title"`
	Body  string `toml:"body"`
}

type MessagesConfig struct {
	SessionStarted    MessageConfig `toml:"session_started"`
	SessionStopped    MessageConfig `toml:"session_stopped"`
	NothingRecognized MessageConfig `toml:"nothing_recognized"`
	SessionFailed     MessageConfig `toml:"session_failed"`
	ConfigReloaded    MessageConfig `toml:"config_reloaded"`
}

type LogConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

// Resolve merges user config with defaults from MessageDefs
func (m *MessagesConfig) Resolve() map[notify.MessageType]notify.Message {
	result := make(map[notify.MessageType]notify.Message)

	v := reflect.ValueOf(m).Elem()
	t := v.Type()
	tagToField := make(map[string]int)
	for i := 0; i < t.NumField(); i++ {
		tagToField[t.Field(i).Tag.Get("toml")] = i
	}

	for _, def := range notify.MessageDefs {
		msg := notify.Message{
			Title:   def.DefaultTitle,
			Body:    def.DefaultBody,
			IsError: def.IsError,
		}
		if idx, ok := tagToField[def.ConfigKey]; ok {
			userMsg := v.Field(idx).Interface().(MessageConfig)
			if userMsg.Title != "" {
				msg.Title = userMsg.Title
			}
			if userMsg.Body != "" {
				msg.Body = userMsg.Body
			}
		}
		result[def.Type] = msg
	}
	return result
}
