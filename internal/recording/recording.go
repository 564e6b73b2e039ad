// Package recording captures microphone PCM through pw-record and hands it to
// a recognition session in fixed-size buffers.
package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/livescribe/internal/audio"
	"github.com/leonardotrapani/livescribe/internal/deps"
	"github.com/leonardotrapani/livescribe/internal/recognition"
)

type Config struct {
	SampleRate int
	Channels   int
	Format     string
	Device     string
}

func DefaultConfig() Config {
	return Config{
		SampleRate: 16000,
		Channels:   1,
		Format:     audio.S16,
		Device:     "",
	}
}

func (c Config) AudioFormat() audio.Format {
	return audio.Format{SampleRate: c.SampleRate, Channels: c.Channels, Encoding: c.Format}
}

type commandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Recorder is a single-use capture: install a tap, prepare, start, stop.
type Recorder struct {
	config Config
	log    *log.Logger

	// swapped in tests
	command   commandFunc
	checkDeps func(ctx context.Context) error

	recording atomic.Bool

	mu       sync.Mutex // guards everything below
	callback func(audio.Buffer)
	ended    func(error)
	frames   int
	format   audio.Format
	prepared bool
	stopped  bool
	cmd      *exec.Cmd
	cancel   context.CancelFunc

	wg sync.WaitGroup
}

func NewRecorder(config Config, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default().WithPrefix("recording")
	}
	return &Recorder{
		config:    config,
		log:       logger,
		command:   exec.CommandContext,
		checkDeps: CheckPipeWireAvailable,
	}
}

func NewDefaultRecorder() *Recorder { return NewRecorder(DefaultConfig(), nil) }

func (r *Recorder) IsRecording() bool {
	return r.recording.Load()
}

func (r *Recorder) InputFormat() audio.Format {
	return r.config.AudioFormat()
}

// InstallBufferCallback sets the tap. Reads are sized to exactly frames
// frames of format; only one tap may be installed. ended, if set, is called
// when pw-record exits or the pipe fails before Stop.
func (r *Recorder) InstallBufferCallback(frames int, format audio.Format, callback func(audio.Buffer), ended func(error)) error {
	if frames <= 0 {
		return fmt.Errorf("invalid buffer frames: %d", frames)
	}
	if callback == nil {
		return errors.New("nil buffer callback")
	}
	if format != r.InputFormat() {
		return fmt.Errorf("tap format %s does not match input %s", format, r.InputFormat())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.callback != nil {
		return errors.New("buffer callback already installed")
	}
	r.callback = callback
	r.ended = ended
	r.frames = frames
	r.format = format
	return nil
}

func (r *Recorder) Prepare() error {
	if err := r.validateConfig(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.checkDeps(ctx); err != nil {
		return fmt.Errorf("PipeWire not available: %w", err)
	}

	r.mu.Lock()
	r.prepared = true
	r.mu.Unlock()
	return nil
}

// Start launches pw-record. A process that cannot be started is reported
// here rather than through the tap.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.stopped:
		return errors.New("recorder already used")
	case r.recording.Load():
		return errors.New("already recording")
	case !r.prepared:
		return errors.New("recorder not prepared")
	case r.callback == nil:
		return errors.New("no buffer callback installed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := r.command(ctx, "pw-record", r.buildPwRecordArgs()...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start pw-record: %w", err)
	}

	r.cmd = cmd
	r.cancel = cancel
	r.recording.Store(true)

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			r.log.Debug("pw-record", "stderr", scanner.Text())
		}
	}()

	r.wg.Add(1)
	go r.captureLoop(ctx, stdout, r.frames*r.format.BytesPerFrame(), r.format, r.callback, r.ended)

	r.log.Debug("capture started", "format", r.format, "frames", r.frames)
	return nil
}

// Stop terminates the process and waits for the capture loop, so the tap is
// never called after Stop returns. Safe to call more than once.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	r.stopped = true
	cancel := r.cancel
	r.cancel = nil
	r.callback = nil
	r.ended = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
	return nil
}

func (r *Recorder) captureLoop(ctx context.Context, stdout io.Reader, chunk int, format audio.Format, callback func(audio.Buffer), ended func(error)) {
	var cause error
	defer func() {
		// decided before the flag drops so a Stop racing the exit cannot hide it
		selfEnded := ctx.Err() == nil
		r.recording.Store(false)

		r.mu.Lock()
		cmd := r.cmd
		r.cmd = nil
		r.mu.Unlock()
		var waitErr error
		if cmd != nil {
			waitErr = cmd.Wait()
		}

		if selfEnded {
			if cause == nil {
				cause = errors.New("pw-record exited")
				if waitErr != nil {
					cause = fmt.Errorf("pw-record exited: %w", waitErr)
				}
			}
			r.log.Warn("capture ended", "err", cause)
			if ended != nil {
				ended(cause)
			}
		}

		r.wg.Done()
	}()

	bpf := format.BytesPerFrame()
	buffer := make([]byte, chunk)
	for {
		n, readErr := io.ReadFull(stdout, buffer)
		n -= n % bpf

		if ctx.Err() != nil {
			return
		}
		if n > 0 {
			data := make([]byte, n)
			copy(data, buffer[:n])
			callback(audio.Buffer{
				Data:   data,
				Frames: n / bpf,
				Format: format,
				Time:   time.Now(),
			})
		}

		if readErr != nil {
			if !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF) {
				cause = fmt.Errorf("read audio: %w", readErr)
			}
			return
		}
	}
}

func (r *Recorder) buildPwRecordArgs() []string {
	args := []string{
		"--format", r.config.Format,
		"--rate", strconv.Itoa(r.config.SampleRate),
		"--channels", strconv.Itoa(r.config.Channels),
	}
	if r.config.Device != "" {
		args = append(args, "--target", r.config.Device)
	}
	return append(args, "-")
}

func CheckPipeWireAvailable(ctx context.Context) error {
	if missing := deps.Missing(deps.PwRecord, deps.PwCli); len(missing) > 0 {
		return fmt.Errorf("%s not found (install pipewire-tools)", missing[0].Name)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(checkCtx, "pw-cli", "info")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}

func (r *Recorder) validateConfig() error {
	if r.config.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", r.config.SampleRate)
	}
	if r.config.Channels <= 0 {
		return fmt.Errorf("invalid Channels: %d", r.config.Channels)
	}
	if r.config.Format == "" {
		return fmt.Errorf("invalid Format: empty")
	}
	if r.InputFormat().BytesPerSample() == 0 {
		return fmt.Errorf("invalid Format: %q", r.config.Format)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.callback == nil {
		return errors.New("no buffer callback installed")
	}
	return nil
}

// Source creates a fresh Recorder for every session.
type Source struct {
	mu     sync.RWMutex
	config Config
	log    *log.Logger
}

var _ recognition.CaptureSource = (*Source)(nil)
var _ recognition.Capture = (*Recorder)(nil)

func NewSource(config Config, logger *log.Logger) *Source {
	if logger == nil {
		logger = log.Default().WithPrefix("recording")
	}
	return &Source{config: config, log: logger}
}

func (s *Source) NewCapture() (recognition.Capture, error) {
	s.mu.RLock()
	cfg := s.config
	s.mu.RUnlock()
	if err := cfg.AudioFormat().Validate(); err != nil {
		return nil, fmt.Errorf("recording config: %w", err)
	}
	return NewRecorder(cfg, s.log), nil
}

// SetConfig applies to captures created afterwards.
func (s *Source) SetConfig(config Config) {
	s.mu.Lock()
	s.config = config
	s.mu.Unlock()
}
