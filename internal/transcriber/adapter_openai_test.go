package transcriber

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/livescribe/internal/audio"
	"github.com/leonardotrapani/livescribe/internal/recognition"
	"github.com/sashabaranov/go-openai"
)

// scriptedClient answers transcription calls from a list, repeating the
// last entry once exhausted.
type scriptedClient struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   int
	sizes   []int
	langs   []string
}

func (c *scriptedClient) CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	data, _ := io.ReadAll(req.Reader)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.sizes = append(c.sizes, len(data))
	c.langs = append(c.langs, req.Language)
	if c.err != nil {
		return openai.AudioResponse{}, c.err
	}
	i := c.calls - 1
	if i >= len(c.replies) {
		i = len(c.replies) - 1
	}
	return openai.AudioResponse{Text: c.replies[i]}, nil
}

func (c *scriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestWhisper(client transcriptionClient, interval, silence time.Duration) *Whisper {
	cfg := DefaultConfig()
	cfg.Provider = ProviderOpenAI
	cfg.Model = ""
	cfg.APIKey = "sk-test"
	cfg.InterimInterval = interval
	cfg.SilenceTimeout = silence
	w := NewWhisper(cfg, quietLogger())
	w.client = client
	return w
}

// tone returns n s16 frames at a constant amplitude.
func tone(frames int, amplitude int16) audio.Buffer {
	data := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(amplitude))
	}
	return audio.Buffer{Data: data, Frames: frames, Format: pcm16k}
}

func TestWhisper_DefaultModel(t *testing.T) {
	w := newTestWhisper(&scriptedClient{}, time.Second, 0)
	if w.config.Model != openai.Whisper1 {
		t.Errorf("model = %q, want %q", w.config.Model, openai.Whisper1)
	}
}

func TestWhisper_FinalOnEndAudio(t *testing.T) {
	client := &scriptedClient{replies: []string{"hello world"}}
	w := newTestWhisper(client, time.Hour, 0)

	req := w.NewRequest(pcm16k)
	got := newResultLog()
	task, err := w.RecognitionTask(context.Background(), req, got.handle)
	if err != nil {
		t.Fatal(err)
	}

	req.Append(tone(1024, 8000))
	req.Append(tone(1024, 8000))
	_ = req.EndAudio()
	got.wait(t)
	task.Cancel()

	res, errs, _ := got.snapshot()
	if len(errs) != 0 {
		t.Fatalf("errors: %v", errs)
	}
	if len(res) != 1 || res[0] != (recognition.Result{Transcript: "hello world", IsFinal: true}) {
		t.Errorf("results = %+v", res)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	// 44-byte WAV header plus two buffers of s16 mono
	if len(client.sizes) != 1 || client.sizes[0] != 44+4096 {
		t.Errorf("upload sizes = %v, want [%d]", client.sizes, 44+4096)
	}
}

func TestWhisper_InterimResultsAreCumulative(t *testing.T) {
	client := &scriptedClient{replies: []string{"hello", "hello world"}}
	w := newTestWhisper(client, 20*time.Millisecond, 0)

	req := w.NewRequest(pcm16k)
	got := newResultLog()
	task, err := w.RecognitionTask(context.Background(), req, got.handle)
	if err != nil {
		t.Fatal(err)
	}
	defer task.Cancel()

	req.Append(tone(1024, 8000))
	deadline := time.Now().Add(2 * time.Second)
	for client.Calls() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	req.Append(tone(1024, 8000))
	_ = req.EndAudio()
	got.wait(t)

	res, _, _ := got.snapshot()
	if len(res) < 2 {
		t.Fatalf("results = %+v, want interim then final", res)
	}
	if res[0].Transcript != "hello" || res[0].IsFinal {
		t.Errorf("first result = %+v", res[0])
	}
	last := res[len(res)-1]
	if last.Transcript != "hello world" || !last.IsFinal {
		t.Errorf("last result = %+v", last)
	}
}

func TestWhisper_SilenceEndsUtterance(t *testing.T) {
	client := &scriptedClient{replies: []string{"done talking"}}
	w := newTestWhisper(client, time.Hour, 100*time.Millisecond)

	req := w.NewRequest(pcm16k)
	got := newResultLog()
	task, err := w.RecognitionTask(context.Background(), req, got.handle)
	if err != nil {
		t.Fatal(err)
	}
	defer task.Cancel()

	// leading silence does not count before speech
	req.Append(tone(3200, 0))
	req.Append(tone(1024, 8000))
	// 3200 frames at 16kHz is 200ms of silence
	req.Append(tone(3200, 0))
	got.wait(t)

	res, _, _ := got.snapshot()
	if len(res) != 1 || !res[0].IsFinal || res[0].Transcript != "done talking" {
		t.Errorf("results = %+v", res)
	}
}

func TestWhisper_TranscriptionError(t *testing.T) {
	client := &scriptedClient{err: errors.New("quota exceeded")}
	w := newTestWhisper(client, time.Hour, 0)

	req := w.NewRequest(pcm16k)
	got := newResultLog()
	task, err := w.RecognitionTask(context.Background(), req, got.handle)
	if err != nil {
		t.Fatal(err)
	}
	defer task.Cancel()

	req.Append(tone(1024, 8000))
	_ = req.EndAudio()
	got.wait(t)

	_, errs, _ := got.snapshot()
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "quota exceeded") {
		t.Errorf("errors = %v", errs)
	}
	if task.State() != recognition.TaskCompleted {
		t.Errorf("state = %v", task.State())
	}
}

func TestWhisper_CancelIsSilent(t *testing.T) {
	client := &scriptedClient{replies: []string{"never"}}
	w := newTestWhisper(client, time.Hour, 0)

	req := w.NewRequest(pcm16k)
	got := newResultLog()
	task, err := w.RecognitionTask(context.Background(), req, got.handle)
	if err != nil {
		t.Fatal(err)
	}
	req.Append(tone(1024, 8000))

	task.Cancel()
	task.Cancel()
	_ = req.EndAudio()

	if task.State() != recognition.TaskCompleted {
		t.Errorf("state = %v", task.State())
	}
	res, errs, nils := got.snapshot()
	if len(res)+len(errs)+nils != 0 {
		t.Errorf("callbacks after cancel: %v %v %d", res, errs, nils)
	}
}

func TestWhisper_UnsupportedFormat(t *testing.T) {
	w := newTestWhisper(&scriptedClient{}, time.Hour, 0)
	got := newResultLog()

	_, err := w.RecognitionTask(context.Background(), w.NewRequest(audio.Format{SampleRate: 44100, Channels: 2, Encoding: audio.S24}), got.handle)
	if err != nil {
		t.Fatal(err)
	}
	got.wait(t)
	if _, _, nils := got.snapshot(); nils != 1 {
		t.Errorf("nil-result callbacks = %d, want 1", nils)
	}
}

func TestWhisper_HTTPClient(t *testing.T) {
	var gotModel, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			gotModel = r.FormValue("model")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"over the wire"}`))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Provider = ProviderOpenAI
	cfg.Model = ""
	cfg.APIKey = "sk-test"
	cfg.Endpoint = server.URL + "/v1"
	w := NewWhisper(cfg, quietLogger())

	text, err := w.transcribe(context.Background(), tone(160, 1000).Data, pcm16k)
	if err != nil {
		t.Fatalf("transcribe() error = %v", err)
	}
	if text != "over the wire" {
		t.Errorf("text = %q", text)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotModel != openai.Whisper1 {
		t.Errorf("model = %q", gotModel)
	}
}

func TestWhisper_LanguageSentAsBaseCode(t *testing.T) {
	tests := map[string]string{
		"":      "",
		"auto":  "",
		"pt-BR": "pt",
		"de":    "de",
	}
	for setting, want := range tests {
		t.Run(setting, func(t *testing.T) {
			client := &scriptedClient{replies: []string{"ok"}}
			w := newTestWhisper(client, time.Hour, 0)
			w.config.Language = setting

			if _, err := w.transcribe(context.Background(), make([]byte, 64), pcm16k); err != nil {
				t.Fatal(err)
			}
			if got := client.langs[0]; got != want {
				t.Errorf("language = %q, want %q", got, want)
			}
		})
	}
}
