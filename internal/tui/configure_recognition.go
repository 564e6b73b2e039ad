package tui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/livescribe/internal/config"
	"github.com/leonardotrapani/livescribe/internal/language"
	"github.com/leonardotrapani/livescribe/internal/transcriber"
)

var providerDisplayNames = map[string]string{
	transcriber.ProviderDeepgram: "Deepgram (live streaming)",
	transcriber.ProviderOpenAI:   "OpenAI Whisper (periodic re-transcription)",
}

func providerOptions(current string) []huh.Option[string] {
	var options []huh.Option[string]
	for _, name := range []string{transcriber.ProviderDeepgram, transcriber.ProviderOpenAI} {
		label := providerDisplayNames[name]
		if name == current {
			label += " (current)"
		}
		options = append(options, huh.NewOption(label, name))
	}
	return options
}

func modelOptions(provider string) []huh.Option[string] {
	switch provider {
	case transcriber.ProviderDeepgram:
		return []huh.Option[string]{
			huh.NewOption("nova-3 (recommended)", "nova-3"),
			huh.NewOption("nova-2", "nova-2"),
			huh.NewOption("enhanced", "enhanced"),
		}
	case transcriber.ProviderOpenAI:
		return []huh.Option[string]{
			huh.NewOption("whisper-1", "whisper-1"),
			huh.NewOption("gpt-4o-mini-transcribe", "gpt-4o-mini-transcribe"),
			huh.NewOption("gpt-4o-transcribe", "gpt-4o-transcribe"),
		}
	default:
		return nil
	}
}

// pickModel keeps current when the provider offers it.
func pickModel(provider, current string) string {
	options := modelOptions(provider)
	for _, o := range options {
		if o.Value == current {
			return current
		}
	}
	if len(options) == 0 {
		return ""
	}
	return options[0].Value
}

func editRecognition(cfg *config.Config) error {
	provider := cfg.Recognition.Provider
	if provider == "" {
		provider = transcriber.ProviderDeepgram
	}

	providerForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Recognition Provider").
				Description("Which service turns speech into text").
				Options(providerOptions(cfg.Recognition.Provider)...).
				Value(&provider),
		),
	).WithTheme(getTheme())

	if err := providerForm.Run(); err != nil {
		return err
	}

	model := pickModel(provider, cfg.Recognition.Model)
	lang := cfg.Recognition.Language
	apiKey := cfg.Recognition.APIKey

	keyDesc := fmt.Sprintf("Leave empty to use $%s", envVarFor(provider))
	if apiKey != "" {
		keyDesc = "Currently set. " + keyDesc
	}

	detailForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model").
				Options(modelOptions(provider)...).
				Value(&model),
			huh.NewInput().
				Title("Language").
				Description("ISO-639-1 code with optional region (e.g. 'en', 'en-US') or empty for auto-detect").
				Placeholder("auto-detect").
				Validate(validateLanguage).
				Value(&lang),
			huh.NewInput().
				Title("API Key").
				Description(keyDesc).
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
		),
	).WithTheme(getTheme())

	if err := detailForm.Run(); err != nil {
		return err
	}

	cfg.Recognition.Provider = provider
	cfg.Recognition.Model = model
	cfg.Recognition.Language = lang
	cfg.Recognition.APIKey = apiKey

	if provider == transcriber.ProviderOpenAI {
		return editWhisperTiming(cfg)
	}
	return nil
}

func validateLanguage(s string) error {
	_, err := language.Parse(s)
	return err
}

func envVarFor(provider string) string {
	if provider == transcriber.ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return "DEEPGRAM_API_KEY"
}

func editWhisperTiming(cfg *config.Config) error {
	interim := cfg.Recognition.InterimInterval.String()
	silence := cfg.Recognition.SilenceTimeout.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Interim interval").
				Description("How often the buffered audio is re-transcribed").
				Validate(validatePositiveDuration).
				Value(&interim),
			huh.NewInput().
				Title("Silence timeout").
				Description("Trailing silence that ends the utterance (0 disables)").
				Validate(validateDuration).
				Value(&silence),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	// both validated by the form
	cfg.Recognition.InterimInterval, _ = time.ParseDuration(interim)
	cfg.Recognition.SilenceTimeout, _ = time.ParseDuration(silence)
	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("use a duration like 2s or 500ms")
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func validatePositiveDuration(s string) error {
	if err := validateDuration(s); err != nil {
		return err
	}
	if d, _ := time.ParseDuration(s); d == 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func editRecording(cfg *config.Config) error {
	rate := strconv.Itoa(cfg.Recording.SampleRate)
	device := cfg.Recording.Device

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Sample rate").
				Options(
					huh.NewOption("16000 Hz (recommended)", "16000"),
					huh.NewOption("24000 Hz", "24000"),
					huh.NewOption("44100 Hz", "44100"),
					huh.NewOption("48000 Hz", "48000"),
				).
				Value(&rate),
			huh.NewInput().
				Title("Device").
				Description("PipeWire target node, empty for the default source").
				Placeholder("default").
				Value(&device),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Recording.SampleRate, _ = strconv.Atoi(rate)
	cfg.Recording.Device = device
	return nil
}
