package recognition

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/leonardotrapani/livescribe/internal/audio"
	"github.com/leonardotrapani/livescribe/internal/observable"
)

// Session is the single recognition service of a process. All mutable state
// is owned by one loop goroutine; Start, Stop and backend callbacks reach it
// through a mailbox, and every callback carries the token of the session it
// was created for so late arrivals are dropped.
//
// Recognizer and Capture implementations are called from the loop and must
// not call Session methods synchronously. Their callbacks only post.
type Session struct {
	log    *log.Logger
	events *observable.Broadcaster[Event]
	inbox  *mailbox
	done   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once

	snapMu      sync.RWMutex
	recognizing bool
	text        string
	phase       Phase

	// loop-owned
	recognizer Recognizer
	captures   CaptureSource
	token      uint64
	handles    *handles
}

// handles are created together on activation and released together.
type handles struct {
	token   uint64
	id      string
	cancel  context.CancelFunc
	capture Capture
	request Request
	task    Task
}

// Option configures a Session.
type Option func(*Session)

// WithLogger replaces the default "session" logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

type startCmd struct{ ack chan struct{} }
type stopCmd struct{ ack chan struct{} }
type closeCmd struct{ ack chan struct{} }

type setRecognizerCmd struct {
	recognizer Recognizer
	ack        chan struct{}
}

type authMsg struct {
	token  uint64
	status AuthorizationStatus
}

type captureEndedMsg struct {
	token uint64
	err   error
}

type resultMsg struct {
	token  uint64
	result *Result
	err    error
}

// New starts the session loop. recognizer may be nil until SetRecognizer;
// Start then fails with BackendError.
func New(recognizer Recognizer, captures CaptureSource, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		log:        log.Default().WithPrefix("session"),
		events:     observable.NewBroadcaster[Event](),
		inbox:      newMailbox(),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		recognizer: recognizer,
		captures:   captures,
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

// Start clears the transcript and begins a new session. A session that is
// already running is torn down first.
func (s *Session) Start() {
	s.call(func(ack chan struct{}) any { return startCmd{ack: ack} })
}

// Stop ends the current session. It is safe in any phase and from any
// goroutine.
func (s *Session) Stop() {
	s.call(func(ack chan struct{}) any { return stopCmd{ack: ack} })
}

// SetRecognizer swaps the backend used by the next Start.
func (s *Session) SetRecognizer(r Recognizer) {
	s.call(func(ack chan struct{}) any { return setRecognizerCmd{recognizer: r, ack: ack} })
}

// Close stops any running session and terminates the loop. Events still
// queued for subscribers are delivered before their channels close.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.call(func(ack chan struct{}) any { return closeCmd{ack: ack} })
		<-s.done
	})
}

// Subscribe returns every event published from now on, in order, and a
// cancel func. The channel closes on cancel or Close.
func (s *Session) Subscribe() (<-chan Event, func()) {
	return s.events.Subscribe()
}

// IsRecognizing is true from Start until the session stops or fails.
func (s *Session) IsRecognizing() bool {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.recognizing
}

func (s *Session) RecognizedText() string {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.text
}

func (s *Session) Phase() Phase {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.phase
}

func (s *Session) call(build func(ack chan struct{}) any) {
	ack := make(chan struct{})
	if !s.inbox.post(build(ack)) {
		return
	}
	select {
	case <-ack:
	case <-s.done:
	}
}

func (s *Session) run() {
	defer close(s.done)
	for {
		for _, msg := range s.inbox.take() {
			if s.handle(msg) {
				return
			}
		}
	}
}

func (s *Session) handle(msg any) (exit bool) {
	switch m := msg.(type) {
	case startCmd:
		s.start()
		close(m.ack)
	case stopCmd:
		s.stop("requested")
		close(m.ack)
	case setRecognizerCmd:
		s.recognizer = m.recognizer
		close(m.ack)
	case authMsg:
		s.authorized(m.token, m.status)
	case resultMsg:
		s.result(m.token, m.result, m.err)
	case captureEndedMsg:
		s.captureEnded(m.token, m.err)
	case closeCmd:
		s.stop("closing")
		s.inbox.close()
		s.cancel()
		s.events.Close()
		close(m.ack)
		return true
	default:
		s.log.Warn("unknown message", "type", fmt.Sprintf("%T", msg))
	}
	return false
}

func (s *Session) start() {
	if s.handles != nil {
		if task := s.handles.task; task != nil && task.State() == TaskRunning {
			s.log.Info("cancelling running task before restart", "token", s.handles.token)
		}
		s.teardown(s.handles)
		s.handles = nil
	}

	s.token++
	token := s.token

	s.setText(token, "")
	s.setRecognizing(token, true)
	s.setPhase(token, PhaseAwaitingAuthorization)

	rec := s.recognizer
	if rec == nil {
		s.fail(token, nil, newSessionError(BackendError, errors.New("no recognizer configured")))
		return
	}

	s.log.Debug("requesting authorization", "token", token)
	rec.RequestAuthorization(s.ctx, func(status AuthorizationStatus) {
		s.inbox.post(authMsg{token: token, status: status})
	})
}

func (s *Session) authorized(token uint64, status AuthorizationStatus) {
	if token != s.token || s.phase != PhaseAwaitingAuthorization {
		s.log.Debug("dropping stale authorization", "token", token, "current", s.token)
		return
	}
	if status != Authorized {
		s.fail(token, nil, newSessionError(AuthorizationDenied, fmt.Errorf("status %s", status)))
		return
	}

	rec := s.recognizer
	taskCtx, cancel := context.WithCancel(s.ctx)
	h := &handles{token: token, id: uuid.NewString(), cancel: cancel}

	capture, err := s.captures.NewCapture()
	if err != nil {
		s.fail(token, h, newSessionError(CaptureStartError, err))
		return
	}
	h.capture = capture

	format := capture.InputFormat()
	request := rec.NewRequest(format)
	h.request = request

	err = capture.InstallBufferCallback(BufferFrames, format, func(buf audio.Buffer) {
		request.Append(buf)
	}, func(err error) {
		s.inbox.post(captureEndedMsg{token: token, err: err})
	})
	if err != nil {
		s.fail(token, h, newSessionError(CaptureStartError, fmt.Errorf("install tap: %w", err)))
		return
	}

	err = capture.Prepare()
	if err != nil {
		s.fail(token, h, newSessionError(CaptureStartError, fmt.Errorf("prepare: %w", err)))
		return
	}
	err = capture.Start()
	if err != nil {
		s.fail(token, h, newSessionError(CaptureStartError, fmt.Errorf("start: %w", err)))
		return
	}

	task, err := rec.RecognitionTask(taskCtx, request, func(result *Result, err error) {
		s.inbox.post(resultMsg{token: token, result: result, err: err})
	})
	if err != nil {
		s.fail(token, h, newSessionError(BackendError, err))
		return
	}
	h.task = task

	s.handles = h
	s.setPhase(token, PhaseActive)
	s.log.Info("session active", "token", token, "id", h.id, "format", format)
}

func (s *Session) result(token uint64, result *Result, err error) {
	if token != s.token || s.phase != PhaseActive {
		s.log.Debug("dropping stale result", "token", token, "current", s.token)
		return
	}

	if err != nil {
		s.log.Error("recognition failed", "token", token, "err", err)
		s.fail(token, s.handles, newSessionError(BackendError, err))
		return
	}
	if result == nil {
		s.fail(token, s.handles, newSessionError(DeviceUnsupported, nil))
		return
	}

	if result.Transcript != "" {
		s.setText(token, result.Transcript)
	}
	if result.IsFinal {
		s.log.Info("final result", "token", token)
		s.stop("final result")
	}
}

// captureEnded fails the session whose microphone stream died on its own.
func (s *Session) captureEnded(token uint64, err error) {
	if token != s.token || s.handles == nil || s.handles.token != token {
		s.log.Debug("dropping stale capture end", "token", token, "current", s.token)
		return
	}
	s.fail(token, s.handles, newSessionError(CaptureLost, err))
}

// stop releases the current handles and returns to idle.
func (s *Session) stop(reason string) {
	token := s.token
	if s.handles != nil {
		s.log.Info("stopping session", "token", token, "reason", reason)
		s.teardown(s.handles)
		s.handles = nil
	}
	s.setRecognizing(token, false)
	s.setPhase(token, PhaseIdle)
}

// fail publishes SessionFailed ahead of the idle transition it causes, so
// observers can tell a failure from a plain stop.
func (s *Session) fail(token uint64, h *handles, serr *SessionError) {
	s.log.Warn("session ended", "token", token, "kind", serr.Kind, "err", serr.Err)
	if h != nil {
		s.teardown(h)
	}
	if s.handles == h {
		s.handles = nil
	}
	recognizingChanged := s.updateRecognizing(false)
	phaseChanged := s.updatePhase(PhaseIdle)

	s.events.Publish(SessionFailed{Token: token, Err: serr})
	if recognizingChanged {
		s.events.Publish(RecognizingChanged{Token: token, Recognizing: false})
	}
	if phaseChanged {
		s.events.Publish(PhaseChanged{Token: token, Phase: PhaseIdle})
	}
}

// teardown stops capture, cancels the task and ends the request. Every
// step runs even if an earlier one fails.
func (s *Session) teardown(h *handles) {
	if h.capture != nil {
		s.bestEffort(h, "stop capture", h.capture.Stop)
	}
	if h.task != nil {
		s.bestEffort(h, "cancel task", func() error {
			h.task.Cancel()
			return nil
		})
	}
	if h.cancel != nil {
		h.cancel()
	}
	if h.request != nil {
		s.bestEffort(h, "end audio", h.request.EndAudio)
	}
}

func (s *Session) bestEffort(h *handles, step string, fn func() error) {
	if err := recoverStep(fn); err != nil {
		s.log.Warn("teardown step failed", "token", h.token, "step", step, "err", err)
	}
}

func recoverStep(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (s *Session) setText(token uint64, text string) {
	s.snapMu.Lock()
	changed := s.text != text
	s.text = text
	s.snapMu.Unlock()
	if changed {
		s.events.Publish(RecognizedTextChanged{Token: token, Text: text})
	}
}

func (s *Session) setRecognizing(token uint64, v bool) {
	if s.updateRecognizing(v) {
		s.events.Publish(RecognizingChanged{Token: token, Recognizing: v})
	}
}

func (s *Session) updateRecognizing(v bool) bool {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	changed := s.recognizing != v
	s.recognizing = v
	return changed
}

func (s *Session) setPhase(token uint64, p Phase) {
	if s.updatePhase(p) {
		s.events.Publish(PhaseChanged{Token: token, Phase: p})
	}
}

func (s *Session) updatePhase(p Phase) bool {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	changed := s.phase != p
	s.phase = p
	return changed
}
