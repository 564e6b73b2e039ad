package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/livescribe/internal/recognition"
)

type recorder struct {
	mu   sync.Mutex
	sent []Message
}

func (r *recorder) Send(m Message) {
	r.mu.Lock()
	r.sent = append(r.sent, m)
	r.mu.Unlock()
}

func (r *recorder) messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

func TestDesktopNotifier(t *testing.T) {
	desktop := Desktop{Log: log.New(&bytes.Buffer{})}

	// This will actually try to call notify-send if available; we only
	// check that it does not panic either way.
	desktop.Send(Message{Title: "Test Title", Body: "Test Message"})
	desktop.Send(Message{Title: "Test Error", IsError: true})
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	l := Log{Log: log.New(&buf)}

	t.Run("info", func(t *testing.T) {
		buf.Reset()
		l.Send(Message{Title: "Livescribe", Body: "Listening..."})
		out := buf.String()
		if !strings.Contains(out, "Livescribe") || !strings.Contains(out, "Listening...") {
			t.Errorf("log output should contain the message, got: %s", out)
		}
		if strings.Contains(out, "ERRO") {
			t.Errorf("info message logged as error: %s", out)
		}
	})

	t.Run("error", func(t *testing.T) {
		buf.Reset()
		l.Send(Message{Title: "Livescribe error", Body: "boom", IsError: true})
		if out := buf.String(); !strings.Contains(out, "ERRO") || !strings.Contains(out, "boom") {
			t.Errorf("error output = %s", out)
		}
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		kind    string
		enabled bool
		want    string
	}{
		{"desktop", true, "notify.Desktop"},
		{"log", true, "notify.Log"},
		{"none", true, "notify.Nop"},
		{"desktop", false, "notify.Nop"},
		{"", true, "notify.Nop"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			got := New(tt.kind, tt.enabled, nil)
			var name string
			switch got.(type) {
			case Desktop:
				name = "notify.Desktop"
			case Log:
				name = "notify.Log"
			case Nop:
				name = "notify.Nop"
			}
			if name != tt.want {
				t.Errorf("New(%q, %v) = %T, want %s", tt.kind, tt.enabled, got, tt.want)
			}
		})
	}
}

func TestMessageDefs(t *testing.T) {
	seenTypes := map[MessageType]bool{}
	seenKeys := map[string]bool{}
	for _, def := range MessageDefs {
		if seenTypes[def.Type] {
			t.Errorf("duplicate message type %d", def.Type)
		}
		if seenKeys[def.ConfigKey] {
			t.Errorf("duplicate config key %q", def.ConfigKey)
		}
		seenTypes[def.Type] = true
		seenKeys[def.ConfigKey] = true
	}
	if len(DefaultMessages()) != len(MessageDefs) {
		t.Error("DefaultMessages should cover every definition")
	}
	if !DefaultMessages()[MsgSessionFailed].IsError {
		t.Error("session_failed should be an error message")
	}
}

func TestMessage_Render(t *testing.T) {
	m := Message{Title: "T {text}", Body: "said: {text}"}.Render("hello")
	if m.Title != "T hello" || m.Body != "said: hello" {
		t.Errorf("Render = %+v", m)
	}
}

func TestWatcher(t *testing.T) {
	rec := &recorder{}
	w := NewWatcher(rec, nil)

	events := make(chan recognition.Event, 16)
	events <- recognition.RecognizingChanged{Token: 1, Recognizing: true}
	events <- recognition.PhaseChanged{Token: 1, Phase: recognition.PhaseActive}
	events <- recognition.RecognizedTextChanged{Token: 1, Text: "hello"}
	events <- recognition.RecognizedTextChanged{Token: 1, Text: "hello world"}
	events <- recognition.RecognizingChanged{Token: 1, Recognizing: false}
	events <- recognition.RecognizingChanged{Token: 2, Recognizing: true}
	events <- recognition.SessionFailed{Token: 2, Err: &recognition.SessionError{
		Kind: recognition.AuthorizationDenied, Err: errors.New("status denied"),
	}}
	events <- recognition.RecognizingChanged{Token: 2, Recognizing: false}
	events <- recognition.RecognizingChanged{Token: 3, Recognizing: true}
	events <- recognition.RecognizingChanged{Token: 3, Recognizing: false}
	close(events)

	if err := w.Run(context.Background(), events); err != nil {
		t.Fatal(err)
	}

	got := rec.messages()
	want := []string{"Listening...", "hello world", "Listening...", "speech recognition not authorized: status denied", "Listening...", "No speech recognized"}
	if len(got) != len(want) {
		t.Fatalf("sent %d messages %+v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i].Body != want[i] {
			t.Errorf("message %d body = %q, want %q", i, got[i].Body, want[i])
		}
	}
	if !got[3].IsError {
		t.Error("failure should be sent as an error")
	}
}

func TestWatcher_ConfigureAndCancel(t *testing.T) {
	first := &recorder{}
	second := &recorder{}
	w := NewWatcher(first, nil)

	custom := DefaultMessages()
	custom[MsgSessionStarted] = Message{Title: "Mic", Body: "on"}
	w.Configure(second, custom)

	w.Send(MsgSessionStarted, "")
	if len(first.messages()) != 0 {
		t.Error("old notifier should not receive messages")
	}
	if got := second.messages(); len(got) != 1 || got[0].Body != "on" {
		t.Errorf("custom message = %+v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx, make(chan recognition.Event))
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
