package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/livescribe/internal/audio"
	"github.com/leonardotrapani/livescribe/internal/recognition"
)

// DefaultFormat is what MockCapture reports as its input format.
var DefaultFormat = audio.Format{SampleRate: 16000, Channels: 1, Encoding: audio.S16}

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.toml")

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// MockAudioBuffer creates a test buffer of BufferFrames s16 mono frames.
func MockAudioBuffer(data []byte) audio.Buffer {
	if data == nil {
		data = make([]byte, recognition.BufferFrames*DefaultFormat.BytesPerFrame())
		for i := range data {
			data[i] = byte(i % 256)
		}
	}
	return audio.Buffer{
		Data:   data,
		Frames: len(data) / DefaultFormat.BytesPerFrame(),
		Format: DefaultFormat,
		Time:   time.Now(),
	}
}

// MockRecognizer implements recognition.Recognizer. Authorization answers
// synchronously with Status unless ManualAuth is set, in which case the
// callbacks are held until Authorize is called.
type MockRecognizer struct {
	mu         sync.Mutex
	Status     recognition.AuthorizationStatus
	ManualAuth bool
	TaskError  error

	pendingAuth []func(recognition.AuthorizationStatus)
	requests    []*MockRequest
	tasks       []*MockTask
}

func NewMockRecognizer() *MockRecognizer {
	return &MockRecognizer{Status: recognition.Authorized}
}

func (m *MockRecognizer) RequestAuthorization(ctx context.Context, callback func(recognition.AuthorizationStatus)) {
	m.mu.Lock()
	if m.ManualAuth {
		m.pendingAuth = append(m.pendingAuth, callback)
		m.mu.Unlock()
		return
	}
	status := m.Status
	m.mu.Unlock()
	callback(status)
}

// Authorize answers every held authorization request with status.
func (m *MockRecognizer) Authorize(status recognition.AuthorizationStatus) int {
	m.mu.Lock()
	pending := m.pendingAuth
	m.pendingAuth = nil
	m.mu.Unlock()

	for _, cb := range pending {
		cb(status)
	}
	return len(pending)
}

func (m *MockRecognizer) PendingAuthorizations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pendingAuth)
}

func (m *MockRecognizer) NewRequest(format audio.Format) recognition.Request {
	req := &MockRequest{Format: format}
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return req
}

func (m *MockRecognizer) RecognitionTask(ctx context.Context, req recognition.Request, handler recognition.ResultHandler) (recognition.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TaskError != nil {
		return nil, m.TaskError
	}
	task := &MockTask{state: recognition.TaskRunning, handler: handler, Request: req, ctx: ctx}
	m.tasks = append(m.tasks, task)
	return task, nil
}

func (m *MockRecognizer) Tasks() []*MockTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockTask(nil), m.tasks...)
}

func (m *MockRecognizer) Requests() []*MockRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockRequest(nil), m.requests...)
}

// LastTask returns the most recent task or nil.
func (m *MockRecognizer) LastTask() *MockTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tasks) == 0 {
		return nil
	}
	return m.tasks[len(m.tasks)-1]
}

type MockRequest struct {
	Format audio.Format

	mu      sync.Mutex
	buffers int
	bytes   int
	ended   bool
}

func (r *MockRequest) Append(buf audio.Buffer) {
	r.mu.Lock()
	r.buffers++
	r.bytes += len(buf.Data)
	r.mu.Unlock()
}

func (r *MockRequest) EndAudio() error {
	r.mu.Lock()
	r.ended = true
	r.mu.Unlock()
	return nil
}

func (r *MockRequest) Buffers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buffers
}

func (r *MockRequest) Ended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

// MockTask delivers results to the session through the handler it was
// created with, from the test goroutine.
type MockTask struct {
	Request recognition.Request
	ctx     context.Context

	mu        sync.Mutex
	state     recognition.TaskState
	cancelled bool
	handler   recognition.ResultHandler
}

func (t *MockTask) State() recognition.TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *MockTask) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.state = recognition.TaskCompleted
	t.mu.Unlock()
}

// Context is the context the task was created with.
func (t *MockTask) Context() context.Context {
	return t.ctx
}

func (t *MockTask) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Emit delivers a transcript even if the task was cancelled, to simulate
// callbacks racing teardown.
func (t *MockTask) Emit(text string, final bool) {
	t.handler(&recognition.Result{Transcript: text, IsFinal: final}, nil)
}

func (t *MockTask) Fail(err error) {
	if err == nil {
		err = errors.New("mock backend failure")
	}
	t.handler(nil, err)
}

// Unsupported reports a callback without a result object.
func (t *MockTask) Unsupported() {
	t.handler(nil, nil)
}

// MockCaptureSource implements recognition.CaptureSource.
type MockCaptureSource struct {
	mu         sync.Mutex
	NewError   error
	PrepareErr error
	StartErr   error
	StopErr    error
	captures   []*MockCapture
}

func NewMockCaptureSource() *MockCaptureSource {
	return &MockCaptureSource{}
}

func (s *MockCaptureSource) NewCapture() (recognition.Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.NewError != nil {
		return nil, s.NewError
	}
	c := &MockCapture{prepareErr: s.PrepareErr, startErr: s.StartErr, stopErr: s.StopErr}
	s.captures = append(s.captures, c)
	return c, nil
}

func (s *MockCaptureSource) Captures() []*MockCapture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*MockCapture(nil), s.captures...)
}

func (s *MockCaptureSource) LastCapture() *MockCapture {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.captures) == 0 {
		return nil
	}
	return s.captures[len(s.captures)-1]
}

type MockCapture struct {
	prepareErr error
	startErr   error
	stopErr    error

	mu        sync.Mutex
	frames    int
	format    audio.Format
	callback  func(audio.Buffer)
	ended     func(error)
	prepared  bool
	running   bool
	stopCalls int
}

func (c *MockCapture) InputFormat() audio.Format { return DefaultFormat }

func (c *MockCapture) InstallBufferCallback(frames int, format audio.Format, callback func(audio.Buffer), ended func(error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.callback != nil {
		return errors.New("tap already installed")
	}
	c.frames = frames
	c.format = format
	c.callback = callback
	c.ended = ended
	return nil
}

func (c *MockCapture) Prepare() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prepared = true
	return c.prepareErr
}

func (c *MockCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	c.running = true
	return nil
}

func (c *MockCapture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.callback = nil
	c.ended = nil
	c.stopCalls++
	return c.stopErr
}

// End simulates the stream dying on its own, as when the device goes away.
func (c *MockCapture) End(err error) bool {
	c.mu.Lock()
	ended := c.ended
	running := c.running
	c.running = false
	c.callback = nil
	c.ended = nil
	c.mu.Unlock()
	if !running || ended == nil {
		return false
	}
	ended(err)
	return true
}

// Push delivers buf through the installed tap while running.
func (c *MockCapture) Push(buf audio.Buffer) bool {
	c.mu.Lock()
	cb := c.callback
	running := c.running
	c.mu.Unlock()
	if !running || cb == nil {
		return false
	}
	cb(buf)
	return true
}

func (c *MockCapture) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// TapInstalled reports whether a buffer callback is still attached.
func (c *MockCapture) TapInstalled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callback != nil
}

func (c *MockCapture) TapFrames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

func (c *MockCapture) StopCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopCalls
}
