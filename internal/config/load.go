package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

var ErrConfigNotFound = errors.New("config not found")

// PathEnv overrides the config file location.
const PathEnv = "LIVESCRIBE_CONFIG"

func GetConfigPath() (string, error) {
	if p := os.Getenv(PathEnv); p != "" {
		return p, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "livescribe", "config.toml"), nil
}

func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(configPath)
}

// LoadFile decodes path on top of DefaultConfig, so omitted keys keep their
// defaults.
func LoadFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s (run livescribe configure)", ErrConfigNotFound, configPath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	config := DefaultConfig()
	meta, err := toml.DecodeFile(configPath, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		logger().Warn("unknown config keys", "path", configPath, "keys", undecoded)
	}

	logger().Debug("configuration loaded", "path", configPath)
	return config, nil
}

// Save writes config to the config path, creating the directory.
func Save(config *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(configPath, config)
}

func SaveFile(configPath string, config *Config) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp := configPath + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	if _, err := file.WriteString(header); err != nil {
		file.Close()
		return fmt.Errorf("failed to write config header: %w", err)
	}
	if err := toml.NewEncoder(file).Encode(config); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close config file: %w", err)
	}
	if err := os.Rename(tmp, configPath); err != nil {
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

// SaveDefaultConfig writes the commented template unless a file exists.
func SaveDefaultConfig() (string, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(template), 0600); err != nil {
		return "", fmt.Errorf("failed to write config content: %w", err)
	}
	return configPath, nil
}

const header = `# Livescribe configuration
# Changes are picked up by the running daemon and apply from the next session.

`

const template = header + `# Microphone capture through pw-record
[recording]
  sample_rate = 16000          # Hz; Deepgram and OpenAI both expect 16000 for speech
  channels = 1                 # 1 = mono
  format = "s16"               # 16-bit PCM is required by both backends
  device = ""                  # PipeWire target (empty = default microphone)

# Speech recognition backend
[recognition]
  provider = "deepgram"        # "deepgram" (streaming) or "openai" (re-transcription)
  model = ""                   # empty = provider default (nova-3, whisper-1)
  language = ""                # empty for auto-detect, or "en", "it", "es", ...
  api_key = ""                 # or DEEPGRAM_API_KEY / OPENAI_API_KEY
  endpoint = ""                # override the provider URL
  interim_interval = "2s"      # openai: how often the utterance is re-transcribed
  silence_timeout = "2s"       # openai: trailing silence that ends the utterance
  utterance_end_ms = 1000      # deepgram: silence that ends the utterance

[notifications]
  enabled = true
  type = "desktop"             # "desktop", "log", "none"

[log]
  level = "info"               # "debug", "info", "warn", "error"
`
