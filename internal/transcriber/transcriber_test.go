package transcriber

import (
	"context"
	"testing"

	"github.com/leonardotrapani/livescribe/internal/audio"
	"github.com/leonardotrapani/livescribe/internal/recognition"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantType string
		wantErr  bool
	}{
		{
			name:     "deepgram",
			config:   Config{Provider: ProviderDeepgram, APIKey: "dg", Model: "nova-3"},
			wantType: "deepgram",
		},
		{
			name:     "openai",
			config:   Config{Provider: ProviderOpenAI, APIKey: "sk", Model: "whisper-1"},
			wantType: "whisper",
		},
		{
			name:    "unknown provider",
			config:  Config{Provider: "elevenlabs", APIKey: "x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := New(tt.config, quietLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			switch tt.wantType {
			case "deepgram":
				if _, ok := rec.(*Deepgram); !ok {
					t.Errorf("got %T, want *Deepgram", rec)
				}
			case "whisper":
				if _, ok := rec.(*Whisper); !ok {
					t.Errorf("got %T, want *Whisper", rec)
				}
			}
		})
	}
}

func TestNew_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "from-env")
	t.Setenv("OPENAI_API_KEY", "")

	rec, err := New(Config{Provider: ProviderDeepgram}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if d := rec.(*Deepgram); d.config.APIKey != "from-env" {
		t.Errorf("api key = %q, want from-env", d.config.APIKey)
	}

	rec, err = New(Config{Provider: ProviderOpenAI}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	var status recognition.AuthorizationStatus
	rec.RequestAuthorization(context.Background(), func(s recognition.AuthorizationStatus) { status = s })
	if status != recognition.Denied {
		t.Errorf("status without key = %v, want denied", status)
	}
}

func TestAuthorize_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var status recognition.AuthorizationStatus = recognition.Authorized
	authorize(ctx, "key", func(s recognition.AuthorizationStatus) { status = s })
	if status != recognition.NotDetermined {
		t.Errorf("status = %v, want not_determined", status)
	}
}

func TestStreamRequest(t *testing.T) {
	req := newStreamRequest(pcm16k)

	req.Append(audio.Buffer{Data: []byte{1, 2}})
	req.Append(audio.Buffer{})
	req.Append(audio.Buffer{Data: []byte{3, 4}})

	select {
	case <-req.wake:
	default:
		t.Error("append should signal the task")
	}

	chunks, ended := req.drain()
	if len(chunks) != 2 || ended {
		t.Errorf("drain = %d chunks ended=%v, want 2 false", len(chunks), ended)
	}

	if err := req.EndAudio(); err != nil {
		t.Fatal(err)
	}
	if err := req.EndAudio(); err != nil {
		t.Errorf("second EndAudio() = %v", err)
	}
	req.Append(audio.Buffer{Data: []byte{5, 6}})

	chunks, ended = req.drain()
	if len(chunks) != 0 || !ended {
		t.Errorf("drain after end = %d chunks ended=%v, want 0 true", len(chunks), ended)
	}
}

func TestRecognitionTask_ForeignRequest(t *testing.T) {
	d := NewDeepgram(Config{APIKey: "k"}, quietLogger())
	w := NewWhisper(Config{APIKey: "k"}, quietLogger())

	var foreign foreignRequest
	if _, err := d.RecognitionTask(context.Background(), foreign, nil); err != ErrUnsupportedRequest {
		t.Errorf("deepgram err = %v", err)
	}
	if _, err := w.RecognitionTask(context.Background(), foreign, nil); err != ErrUnsupportedRequest {
		t.Errorf("whisper err = %v", err)
	}
}

type foreignRequest struct{}

func (foreignRequest) Append(audio.Buffer) {}
func (foreignRequest) EndAudio() error     { return nil }
