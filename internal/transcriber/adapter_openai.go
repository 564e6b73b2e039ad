package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/livescribe/internal/audio"
	"github.com/leonardotrapani/livescribe/internal/language"
	"github.com/leonardotrapani/livescribe/internal/recognition"
	"github.com/sashabaranov/go-openai"
)

// speechLevel is the RMS above which a buffer counts as speech.
const speechLevel = 0.01

type transcriptionClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// Whisper re-transcribes the whole utterance through the OpenAI audio API on
// a fixed cadence, so every interim result is a cumulative best guess.
type Whisper struct {
	config Config
	log    *log.Logger
	client transcriptionClient
}

var _ recognition.Recognizer = (*Whisper)(nil)

func NewWhisper(config Config, logger *log.Logger) *Whisper {
	if logger == nil {
		logger = log.Default().WithPrefix("whisper")
	}
	if config.Model == "" {
		config.Model = openai.Whisper1
	}
	if config.InterimInterval <= 0 {
		config.InterimInterval = DefaultConfig().InterimInterval
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.Endpoint != "" {
		clientConfig.BaseURL = config.Endpoint
	}
	return &Whisper{
		config: config,
		log:    logger,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

func (w *Whisper) RequestAuthorization(ctx context.Context, callback func(recognition.AuthorizationStatus)) {
	authorize(ctx, w.config.APIKey, callback)
}

func (w *Whisper) NewRequest(format audio.Format) recognition.Request {
	return newStreamRequest(format)
}

func (w *Whisper) RecognitionTask(ctx context.Context, req recognition.Request, handler recognition.ResultHandler) (recognition.Task, error) {
	sr, ok := req.(*streamRequest)
	if !ok {
		return nil, ErrUnsupportedRequest
	}
	if err := sr.bind(); err != nil {
		return nil, err
	}
	if sr.format.Encoding != audio.S16 {
		w.log.Warn("unsupported input", "format", sr.format)
		return unsupportedTask(handler), nil
	}

	taskCtx, cancel := context.WithCancel(ctx)
	t := &whisperTask{
		whisper: w,
		request: sr,
		handler: handler,
		ctx:     taskCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	t.state.Store(int32(recognition.TaskRunning))
	go t.run()
	return t, nil
}

func (w *Whisper) transcribe(ctx context.Context, pcm []byte, format audio.Format) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}

	wavData, err := audio.EncodeWAV(pcm, format)
	if err != nil {
		return "", fmt.Errorf("convert to WAV: %w", err)
	}

	req := openai.AudioRequest{
		Model:    w.config.Model,
		Reader:   bytes.NewReader(wavData),
		FilePath: "audio.wav",
		Language: language.Base(w.config.Language),
	}

	start := time.Now()
	resp, err := w.client.CreateTranscription(ctx, req)
	if err != nil {
		w.log.Warn("transcription failed", "after", time.Since(start), "err", err)
		return "", fmt.Errorf("openai transcription: %w", err)
	}

	w.log.Debug("transcribed", "bytes", len(pcm), "took", time.Since(start), "text", resp.Text)
	return resp.Text, nil
}

type whisperTask struct {
	whisper *Whisper
	request *streamRequest
	handler recognition.ResultHandler

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	state atomic.Int32

	// run-owned
	pcm         []byte
	transcribed int
	last        string
	heardSpeech bool
	silence     time.Duration
}

func (t *whisperTask) State() recognition.TaskState {
	return recognition.TaskState(t.state.Load())
}

// Cancel aborts any in-flight request and waits for the task to exit.
func (t *whisperTask) Cancel() {
	t.once.Do(func() {
		if t.State() != recognition.TaskCompleted {
			t.state.Store(int32(recognition.TaskCanceling))
		}
		t.cancel()
	})
	<-t.done
	t.state.Store(int32(recognition.TaskCompleted))
}

func (t *whisperTask) run() {
	defer close(t.done)
	defer t.cancel()

	ticker := time.NewTicker(t.whisper.config.InterimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-t.request.wake:
			chunks, ended := t.request.drain()
			for _, chunk := range chunks {
				t.ingest(chunk)
			}
			if ended || t.endOfSpeech() {
				t.final(ended)
				return
			}
		case <-ticker.C:
			if len(t.pcm) == t.transcribed {
				continue
			}
			if !t.interim() {
				return
			}
		}
	}
}

func (t *whisperTask) ingest(chunk []byte) {
	t.pcm = append(t.pcm, chunk...)
	if audio.Level(chunk, t.request.format) >= speechLevel {
		t.heardSpeech = true
		t.silence = 0
		return
	}
	t.silence += t.request.format.Duration(len(chunk))
}

func (t *whisperTask) endOfSpeech() bool {
	timeout := t.whisper.config.SilenceTimeout
	return timeout > 0 && t.heardSpeech && t.silence >= timeout
}

// interim reports false when the task failed and must exit.
func (t *whisperTask) interim() bool {
	n := len(t.pcm)
	text, err := t.whisper.transcribe(t.ctx, t.pcm[:n], t.request.format)
	if t.ctx.Err() != nil {
		return false
	}
	if err != nil {
		t.fail(err)
		return false
	}
	t.transcribed = n
	if text != "" && text != t.last {
		t.last = text
		t.handler(&recognition.Result{Transcript: text}, nil)
	}
	return true
}

func (t *whisperTask) final(ended bool) {
	t.state.Store(int32(recognition.TaskFinishing))
	reason := "silence"
	if ended {
		reason = "end of audio"
	}
	t.whisper.log.Debug("finalizing", "reason", reason, "bytes", len(t.pcm))

	text := t.last
	if len(t.pcm) > t.transcribed {
		var err error
		text, err = t.whisper.transcribe(t.ctx, t.pcm, t.request.format)
		if t.ctx.Err() != nil {
			return
		}
		if err != nil {
			t.fail(err)
			return
		}
	}
	t.state.Store(int32(recognition.TaskCompleted))
	t.handler(&recognition.Result{Transcript: text, IsFinal: true}, nil)
}

func (t *whisperTask) fail(err error) {
	t.state.Store(int32(recognition.TaskCompleted))
	t.handler(nil, err)
}
