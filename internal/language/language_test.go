package language

import "testing"

func TestFromCode(t *testing.T) {
	tests := []struct {
		code     string
		wantCode string
		wantName string
	}{
		{"en", "en", "English"},
		{"es", "es", "Spanish"},
		{"zh", "zh", "Chinese"},
		{"invalid", "", "Auto-detect"},
		{"", "", "Auto-detect"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := FromCode(tt.code)
			if got.Code != tt.wantCode {
				t.Errorf("FromCode(%q).Code = %q, want %q", tt.code, got.Code, tt.wantCode)
			}
			if got.Name != tt.wantName {
				t.Errorf("FromCode(%q).Name = %q, want %q", tt.code, got.Name, tt.wantName)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Tag
		wantErr bool
	}{
		{"", Tag{}, false},
		{"auto", Tag{}, false},
		{"AUTO", Tag{}, false},
		{"de", Tag{Base: "de"}, false},
		{"EN", Tag{Base: "en"}, false},
		{"pt-BR", Tag{Base: "pt", Region: "BR"}, false},
		{"en_us", Tag{Base: "en", Region: "US"}, false},
		{" fr ", Tag{Base: "fr"}, false},
		{"english", Tag{}, true},
		{"xx", Tag{}, true},
		{"en-", Tag{}, true},
		{"en-U5", Tag{}, true},
		{"en-USAA", Tag{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if IsValid(tt.in) == tt.wantErr {
				t.Errorf("IsValid(%q) disagrees with Parse", tt.in)
			}
		})
	}
}

func TestTagString(t *testing.T) {
	tests := map[string]string{
		"":      "",
		"de":    "de",
		"en_gb": "en-GB",
		"PT-br": "pt-BR",
	}
	for in, want := range tests {
		tag, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if got := tag.String(); got != want {
			t.Errorf("Parse(%q).String() = %q, want %q", in, got, want)
		}
		if tag.IsAuto() != (want == "") {
			t.Errorf("Parse(%q).IsAuto() = %v", in, tag.IsAuto())
		}
	}
}

func TestBase(t *testing.T) {
	tests := map[string]string{
		"pt-BR":   "pt",
		"en":      "en",
		"auto":    "",
		"klingon": "",
	}
	for in, want := range tests {
		if got := Base(in); got != want {
			t.Errorf("Base(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLabel(t *testing.T) {
	tests := map[string]string{
		"":        "Auto-detect",
		"de":      "German",
		"pt-BR":   "Portuguese (BR)",
		"klingon": "klingon",
	}
	for in, want := range tests {
		if got := Label(in); got != want {
			t.Errorf("Label(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestList(t *testing.T) {
	langs := List()
	if len(langs) == 0 {
		t.Fatal("List() returned empty")
	}

	seen := make(map[string]bool)
	for _, lang := range langs {
		if lang.Code == "" || lang.Name == "" {
			t.Errorf("incomplete language %+v", lang)
		}
		if seen[lang.Code] {
			t.Errorf("duplicate code %q", lang.Code)
		}
		seen[lang.Code] = true
	}

	langs[0].Name = "changed"
	if List()[0].Name == "changed" {
		t.Error("List() must return a copy")
	}
}
