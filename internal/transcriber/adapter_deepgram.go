package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/leonardotrapani/livescribe/internal/audio"
	"github.com/leonardotrapani/livescribe/internal/recognition"
)

const (
	defaultDeepgramEndpoint = "wss://api.deepgram.com/v1/listen"
	deepgramDialTimeout     = 10 * time.Second
	deepgramWriteTimeout    = 5 * time.Second
)

// Deepgram streams audio to the Deepgram live API over a websocket.
type Deepgram struct {
	config Config
	log    *log.Logger
	dialer *websocket.Dialer
}

var _ recognition.Recognizer = (*Deepgram)(nil)

func NewDeepgram(config Config, logger *log.Logger) *Deepgram {
	if logger == nil {
		logger = log.Default().WithPrefix("deepgram")
	}
	if config.Endpoint == "" {
		config.Endpoint = defaultDeepgramEndpoint
	}
	return &Deepgram{
		config: config,
		log:    logger,
		dialer: websocket.DefaultDialer,
	}
}

// deepgramCloseStream message to signal end of audio
type deepgramCloseStream struct {
	Type string `json:"type"`
}

var closeStreamMessage, _ = json.Marshal(deepgramCloseStream{Type: "CloseStream"})

// Deepgram WebSocket response types (incoming)
type deepgramWSResponse struct {
	Type        string            `json:"type"`
	Channel     *deepgramChannel  `json:"channel,omitempty"`
	Metadata    *deepgramMetadata `json:"metadata,omitempty"`
	Error       *deepgramError    `json:"error,omitempty"`
	IsFinal     bool              `json:"is_final,omitempty"`
	SpeechFinal bool              `json:"speech_final,omitempty"`
}

type deepgramChannel struct {
	Alternatives []deepgramAlternative `json:"alternatives,omitempty"`
}

type deepgramAlternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type deepgramMetadata struct {
	RequestID string `json:"request_id"`
	ModelInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"model_info"`
}

type deepgramError struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
}

func (d *Deepgram) RequestAuthorization(ctx context.Context, callback func(recognition.AuthorizationStatus)) {
	authorize(ctx, d.config.APIKey, callback)
}

func (d *Deepgram) NewRequest(format audio.Format) recognition.Request {
	return newStreamRequest(format)
}

// RecognitionTask starts streaming req to the live endpoint. It returns at
// once with a starting task; the dial runs in the task and a dial failure
// reaches the handler as an error. Input other than 16-bit PCM cannot be
// streamed; the handler is then told there is no result.
func (d *Deepgram) RecognitionTask(ctx context.Context, req recognition.Request, handler recognition.ResultHandler) (recognition.Task, error) {
	sr, ok := req.(*streamRequest)
	if !ok {
		return nil, ErrUnsupportedRequest
	}
	if err := sr.bind(); err != nil {
		return nil, err
	}

	if sr.format.Encoding != audio.S16 {
		d.log.Warn("unsupported input", "format", sr.format)
		return unsupportedTask(handler), nil
	}

	wsURL, err := d.buildURL(sr.format)
	if err != nil {
		return nil, fmt.Errorf("build websocket url: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.config.APIKey)

	taskCtx, cancel := context.WithCancel(ctx)
	t := &deepgramTask{
		request: sr,
		handler: handler,
		log:     d.log,
		ctx:     taskCtx,
		cancel:  cancel,
	}
	t.state.Store(int32(recognition.TaskStarting))

	t.wg.Add(1)
	go t.connect(d.dialer, wsURL, headers, d.config)
	return t, nil
}

// buildURL constructs the WebSocket URL with query parameters
func (d *Deepgram) buildURL(format audio.Format) (string, error) {
	u, err := url.Parse(d.config.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}

	q := u.Query()
	if d.config.Model != "" {
		q.Set("model", d.config.Model)
	}
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(format.SampleRate))
	q.Set("channels", strconv.Itoa(format.Channels))
	q.Set("interim_results", "true")
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")
	q.Set("vad_events", "true")
	if d.config.UtteranceEndMs > 0 {
		q.Set("utterance_end_ms", strconv.Itoa(d.config.UtteranceEndMs))
	}

	if lang := normalizeDeepgramLanguage(d.config.Language); lang != "" {
		q.Set("language", lang)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// deepgramTask owns one websocket. Only the writer goroutine writes to the
// connection. The handler sees at most one terminal callback.
type deepgramTask struct {
	mu   sync.Mutex
	conn *websocket.Conn

	request *streamRequest
	handler recognition.ResultHandler
	log     *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	state      atomic.Int32
	closeSent  atomic.Bool
	terminated atomic.Bool

	// reader-owned
	finals  []string
	interim string
	last    string
}

func (t *deepgramTask) State() recognition.TaskState {
	return recognition.TaskState(t.state.Load())
}

// Cancel drops the connection without waiting for pending results. A dial
// in progress is abandoned.
func (t *deepgramTask) Cancel() {
	if t.terminated.Load() {
		return
	}
	t.state.Store(int32(recognition.TaskCanceling))
	t.cancel()

	// unblocks a read or a stalled write
	t.mu.Lock()
	if t.conn != nil {
		t.conn.Close()
	}
	t.mu.Unlock()

	t.wg.Wait()
	t.state.Store(int32(recognition.TaskCompleted))
}

func (t *deepgramTask) connect(dialer *websocket.Dialer, wsURL string, headers http.Header, config Config) {
	defer t.wg.Done()

	dialCtx, cancel := context.WithTimeout(t.ctx, deepgramDialTimeout)
	defer cancel()

	t.log.Debug("connecting", "url", wsURL)
	conn, resp, err := closeOnCancel(t.ctx, dialer).DialContext(dialCtx, wsURL, headers)
	if err != nil {
		if t.ctx.Err() != nil {
			return
		}
		if resp != nil {
			t.log.Warn("dial failed", "status", resp.StatusCode)
		}
		t.fail(fmt.Errorf("websocket dial: %w", err))
		return
	}

	t.mu.Lock()
	if t.ctx.Err() != nil {
		t.mu.Unlock()
		conn.Close()
		return
	}
	t.conn = conn
	t.wg.Add(2)
	t.mu.Unlock()

	t.state.CompareAndSwap(int32(recognition.TaskStarting), int32(recognition.TaskRunning))
	go t.writeLoop()
	go t.readLoop()

	t.log.Info("connected", "model", config.Model, "language", config.Language)
}

// closeOnCancel returns a copy of d whose TCP connections close when ctx
// ends. The websocket handshake only honours the dial deadline.
func closeOnCancel(ctx context.Context, d *websocket.Dialer) *websocket.Dialer {
	dialer := *d
	base := dialer.NetDialContext
	if base == nil {
		base = (&net.Dialer{}).DialContext
	}
	dialer.NetDialContext = func(dialCtx context.Context, network, addr string) (net.Conn, error) {
		c, err := base(dialCtx, network, addr)
		if err != nil {
			return nil, err
		}
		context.AfterFunc(ctx, func() { c.Close() })
		return c, nil
	}
	return &dialer
}

func (t *deepgramTask) write(messageType int, data []byte) error {
	_ = t.conn.SetWriteDeadline(time.Now().Add(deepgramWriteTimeout))
	return t.conn.WriteMessage(messageType, data)
}

func (t *deepgramTask) writeLoop() {
	defer t.wg.Done()
	defer func() {
		// unblocks the reader
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		t.conn.Close()
	}()

	for {
		chunks, ended := t.request.drain()
		for _, chunk := range chunks {
			if err := t.write(websocket.BinaryMessage, chunk); err != nil {
				if t.ctx.Err() == nil {
					t.fail(fmt.Errorf("websocket write: %w", err))
				}
				return
			}
		}

		if ended && !t.closeSent.Load() {
			if err := t.write(websocket.TextMessage, closeStreamMessage); err != nil {
				if t.ctx.Err() == nil {
					t.fail(fmt.Errorf("finalize write: %w", err))
				}
				return
			}
			t.closeSent.Store(true)
			t.state.CompareAndSwap(int32(recognition.TaskRunning), int32(recognition.TaskFinishing))
			t.log.Debug("sent CloseStream, waiting for final transcript")
		}

		select {
		case <-t.ctx.Done():
			return
		case <-t.request.wake:
		}
	}
}

func (t *deepgramTask) readLoop() {
	defer t.wg.Done()
	defer t.cancel()

	for {
		_, message, err := t.conn.ReadMessage()
		if err != nil {
			if t.ctx.Err() != nil {
				return
			}
			if t.closeSent.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.finish()
				return
			}
			t.fail(fmt.Errorf("websocket read: %w", err))
			return
		}

		var resp deepgramWSResponse
		if err := json.Unmarshal(message, &resp); err != nil {
			t.log.Warn("parse error", "err", err)
			continue
		}

		switch resp.Type {
		case "Metadata":
			if resp.Metadata != nil {
				t.log.Debug("stream opened", "request_id", resp.Metadata.RequestID, "model", resp.Metadata.ModelInfo.Name)
			}

		case "Results":
			if resp.Channel == nil || len(resp.Channel.Alternatives) == 0 {
				continue
			}
			t.segment(resp.Channel.Alternatives[0].Transcript, resp.IsFinal)

		case "UtteranceEnd":
			t.log.Debug("utterance end")
			t.finish()
			return

		case "Error":
			msg := "unknown error"
			if resp.Error != nil {
				msg = resp.Error.Message
				if resp.Error.Description != "" {
					msg = fmt.Sprintf("%s: %s", msg, resp.Error.Description)
				}
			}
			t.fail(&ProviderError{Provider: ProviderDeepgram, Err: errors.New(msg)})
			return

		case "SpeechStarted":
			t.log.Debug("speech started")

		default:
			t.log.Debug("unknown message type", "type", resp.Type)
		}
	}
}

// segment folds one Results message into the cumulative transcript and
// reports it when it changed.
func (t *deepgramTask) segment(transcript string, isFinal bool) {
	if isFinal {
		if transcript != "" {
			t.finals = append(t.finals, transcript)
		}
		t.interim = ""
	} else {
		t.interim = transcript
	}

	text := t.transcript()
	if text == t.last || t.ctx.Err() != nil {
		return
	}
	t.last = text
	t.handler(&recognition.Result{Transcript: text}, nil)
}

func (t *deepgramTask) transcript() string {
	parts := append([]string(nil), t.finals...)
	if t.interim != "" {
		parts = append(parts, t.interim)
	}
	return strings.Join(parts, " ")
}

func (t *deepgramTask) finish() {
	if !t.terminated.CompareAndSwap(false, true) {
		return
	}
	t.state.Store(int32(recognition.TaskCompleted))
	if t.ctx.Err() != nil {
		return
	}
	t.handler(&recognition.Result{Transcript: t.transcript(), IsFinal: true}, nil)
	t.cancel()
}

func (t *deepgramTask) fail(err error) {
	if !t.terminated.CompareAndSwap(false, true) {
		return
	}
	t.state.Store(int32(recognition.TaskCompleted))
	t.log.Error("stream failed", "err", err)
	t.handler(nil, err)
	t.cancel()
}

// unsupportedTask reports "no result" once, off the caller's goroutine.
func unsupportedTask(handler recognition.ResultHandler) recognition.Task {
	t := &doneTask{}
	go handler(nil, nil)
	return t
}

type doneTask struct{}

func (doneTask) State() recognition.TaskState { return recognition.TaskCompleted }
func (doneTask) Cancel()                      {}
