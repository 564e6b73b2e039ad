// Package language parses the recognition language setting: an ISO-639-1
// code with an optional region, or empty for auto-detect.
package language

import (
	"fmt"
	"strings"
)

type Language struct {
	Code       string // ISO 639-1
	Name       string
	NativeName string
}

var Auto = Language{Code: "", Name: "Auto-detect"}

// languages both providers accept, from Whisper's supported set.
var languages = []Language{
	{Code: "af", Name: "Afrikaans", NativeName: "Afrikaans"},
	{Code: "ar", Name: "Arabic", NativeName: "العربية"},
	{Code: "hy", Name: "Armenian", NativeName: "Հայերեն"},
	{Code: "az", Name: "Azerbaijani", NativeName: "Azərbaycan"},
	{Code: "be", Name: "Belarusian", NativeName: "Беларуская"},
	{Code: "bs", Name: "Bosnian", NativeName: "Bosanski"},
	{Code: "bg", Name: "Bulgarian", NativeName: "Български"},
	{Code: "ca", Name: "Catalan", NativeName: "Català"},
	{Code: "zh", Name: "Chinese", NativeName: "中文"},
	{Code: "hr", Name: "Croatian", NativeName: "Hrvatski"},
	{Code: "cs", Name: "Czech", NativeName: "Čeština"},
	{Code: "da", Name: "Danish", NativeName: "Dansk"},
	{Code: "nl", Name: "Dutch", NativeName: "Nederlands"},
	{Code: "en", Name: "English", NativeName: "English"},
	{Code: "et", Name: "Estonian", NativeName: "Eesti"},
	{Code: "fi", Name: "Finnish", NativeName: "Suomi"},
	{Code: "fr", Name: "French", NativeName: "Français"},
	{Code: "gl", Name: "Galician", NativeName: "Galego"},
	{Code: "de", Name: "German", NativeName: "Deutsch"},
	{Code: "el", Name: "Greek", NativeName: "Ελληνικά"},
	{Code: "he", Name: "Hebrew", NativeName: "עברית"},
	{Code: "hi", Name: "Hindi", NativeName: "हिन्दी"},
	{Code: "hu", Name: "Hungarian", NativeName: "Magyar"},
	{Code: "is", Name: "Icelandic", NativeName: "Íslenska"},
	{Code: "id", Name: "Indonesian", NativeName: "Bahasa Indonesia"},
	{Code: "it", Name: "Italian", NativeName: "Italiano"},
	{Code: "ja", Name: "Japanese", NativeName: "日本語"},
	{Code: "kn", Name: "Kannada", NativeName: "ಕನ್ನಡ"},
	{Code: "kk", Name: "Kazakh", NativeName: "Қазақ"},
	{Code: "ko", Name: "Korean", NativeName: "한국어"},
	{Code: "lv", Name: "Latvian", NativeName: "Latviešu"},
	{Code: "lt", Name: "Lithuanian", NativeName: "Lietuvių"},
	{Code: "mk", Name: "Macedonian", NativeName: "Македонски"},
	{Code: "ms", Name: "Malay", NativeName: "Bahasa Melayu"},
	{Code: "mr", Name: "Marathi", NativeName: "मराठी"},
	{Code: "mi", Name: "Maori", NativeName: "Māori"},
	{Code: "ne", Name: "Nepali", NativeName: "नेपाली"},
	{Code: "no", Name: "Norwegian", NativeName: "Norsk"},
	{Code: "fa", Name: "Persian", NativeName: "فارسی"},
	{Code: "pl", Name: "Polish", NativeName: "Polski"},
	{Code: "pt", Name: "Portuguese", NativeName: "Português"},
	{Code: "ro", Name: "Romanian", NativeName: "Română"},
	{Code: "ru", Name: "Russian", NativeName: "Русский"},
	{Code: "sr", Name: "Serbian", NativeName: "Српски"},
	{Code: "sk", Name: "Slovak", NativeName: "Slovenčina"},
	{Code: "sl", Name: "Slovenian", NativeName: "Slovenščina"},
	{Code: "es", Name: "Spanish", NativeName: "Español"},
	{Code: "sw", Name: "Swahili", NativeName: "Kiswahili"},
	{Code: "sv", Name: "Swedish", NativeName: "Svenska"},
	{Code: "tl", Name: "Tagalog", NativeName: "Tagalog"},
	{Code: "ta", Name: "Tamil", NativeName: "தமிழ்"},
	{Code: "th", Name: "Thai", NativeName: "ไทย"},
	{Code: "tr", Name: "Turkish", NativeName: "Türkçe"},
	{Code: "uk", Name: "Ukrainian", NativeName: "Українська"},
	{Code: "ur", Name: "Urdu", NativeName: "اردو"},
	{Code: "vi", Name: "Vietnamese", NativeName: "Tiếng Việt"},
	{Code: "cy", Name: "Welsh", NativeName: "Cymraeg"},
}

var codeIndex map[string]Language

func init() {
	codeIndex = make(map[string]Language, len(languages))
	for _, lang := range languages {
		codeIndex[lang.Code] = lang
	}
}

// Tag is a parsed language setting. The zero Tag means auto-detect.
type Tag struct {
	Base   string // lower case, e.g. "pt"
	Region string // upper case, e.g. "BR"
}

// Parse accepts "", "auto", "de", "pt-BR" and "en_us" spellings. The base
// must be a known language.
func Parse(s string) (Tag, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "auto") {
		return Tag{}, nil
	}

	base, region, hasRegion := strings.Cut(strings.ReplaceAll(s, "_", "-"), "-")
	base = strings.ToLower(base)
	if _, ok := codeIndex[base]; !ok {
		return Tag{}, fmt.Errorf("unknown language %q", s)
	}
	if !hasRegion {
		return Tag{Base: base}, nil
	}
	if (len(region) != 2 && len(region) != 3) || !isLetters(region) {
		return Tag{}, fmt.Errorf("invalid region in %q", s)
	}
	return Tag{Base: base, Region: strings.ToUpper(region)}, nil
}

func (t Tag) IsAuto() bool { return t.Base == "" }

func (t Tag) String() string {
	if t.Region == "" {
		return t.Base
	}
	return t.Base + "-" + t.Region
}

func (t Tag) Language() Language {
	if t.IsAuto() {
		return Auto
	}
	return codeIndex[t.Base]
}

func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Base returns the ISO-639-1 part of s, or "" for auto-detect and
// unparseable input.
func Base(s string) string {
	t, err := Parse(s)
	if err != nil {
		return ""
	}
	return t.Base
}

// Label renders s for menus, e.g. "Portuguese (BR)".
func Label(s string) string {
	t, err := Parse(s)
	if err != nil {
		return s
	}
	name := t.Language().Name
	if t.Region != "" {
		name += " (" + t.Region + ")"
	}
	return name
}

func FromCode(code string) Language {
	if lang, ok := codeIndex[code]; ok {
		return lang
	}
	return Auto
}

func List() []Language {
	result := make([]Language, len(languages))
	copy(result, languages)
	return result
}

func isLetters(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
