// Package daemon wires the recognition session to the control socket,
// notifications and config reloads.
package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/leonardotrapani/livescribe/internal/bus"
	"github.com/leonardotrapani/livescribe/internal/config"
	"github.com/leonardotrapani/livescribe/internal/controller"
	"github.com/leonardotrapani/livescribe/internal/notify"
	"github.com/leonardotrapani/livescribe/internal/recognition"
	"github.com/leonardotrapani/livescribe/internal/recording"
	"github.com/leonardotrapani/livescribe/internal/transcriber"
)

type Daemon struct {
	log        *log.Logger
	configPath string
	debug      bool

	// injected in tests; built from config otherwise
	recognizer recognition.Recognizer
	captures   recognition.CaptureSource

	source  *recording.Source
	manager *config.Manager
	session *recognition.Session
	ctrl    *controller.Controller
	watcher *notify.Watcher

	mu      sync.Mutex
	cancel  context.CancelFunc
	loggers map[string]*log.Logger
	conns   sync.WaitGroup
}

type Option func(*Daemon)

func WithLogger(l *log.Logger) Option {
	return func(d *Daemon) {
		if l != nil {
			d.log = l
		}
	}
}

// WithConfigPath overrides the default config location.
func WithConfigPath(path string) Option {
	return func(d *Daemon) { d.configPath = path }
}

// WithDebug pins the log level to debug regardless of config.
func WithDebug(debug bool) Option {
	return func(d *Daemon) { d.debug = debug }
}

// WithRecognizer uses r instead of the configured provider. Config reloads
// then leave the recognizer alone.
func WithRecognizer(r recognition.Recognizer) Option {
	return func(d *Daemon) { d.recognizer = r }
}

// WithCaptureSource replaces the pw-record source.
func WithCaptureSource(s recognition.CaptureSource) Option {
	return func(d *Daemon) { d.captures = s }
}

func New(opts ...Option) *Daemon {
	d := &Daemon{log: log.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run serves the control socket until ctx ends, a signal arrives or a
// client sends quit.
func (d *Daemon) Run(ctx context.Context) error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	config.SetLogger(d.child("config"))
	manager, err := config.NewManager(d.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	d.manager = manager
	cfg := manager.GetConfig()
	d.applyLogLevel(cfg)

	if err := d.build(cfg); err != nil {
		manager.Stop()
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		d.shutdown()
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		d.shutdown()
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	if err := manager.StartWatching(ctx); err != nil {
		d.log.Warn("config hot reload disabled", "err", err)
	}

	events, unsubscribe := d.session.Subscribe()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.acceptLoop(gctx, ln) })
	g.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})
	g.Go(func() error { return d.watcher.Run(gctx, events) })
	g.Go(func() error { return d.configLoop(gctx) })
	g.Go(func() error { return d.signalLoop(gctx, cancel) })

	d.log.Info("daemon started", "config", manager.Path())
	err = g.Wait()

	unsubscribe()
	d.shutdown()
	d.conns.Wait()
	d.log.Info("daemon stopped")

	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (d *Daemon) build(cfg *config.Config) error {
	if d.recognizer == nil {
		r, err := transcriber.New(cfg.ToTranscriberConfig(), d.child("transcriber"))
		if err != nil {
			return fmt.Errorf("create recognizer: %w", err)
		}
		d.recognizer = r
	}
	if d.captures == nil {
		d.source = recording.NewSource(cfg.ToRecordingConfig(), d.child("recording"))
		d.captures = d.source
	}

	d.session = recognition.New(d.recognizer, d.captures, recognition.WithLogger(d.child("session")))
	d.ctrl = controller.New(d.session, controller.WithLogger(d.child("controller")))
	d.watcher = notify.NewWatcher(cfg.ToNotifier(d.child("notify")), cfg.Notifications.Messages.Resolve())
	return nil
}

func (d *Daemon) shutdown() {
	if d.ctrl != nil {
		d.ctrl.Close()
	}
	if d.session != nil {
		d.session.Close()
	}
	if d.manager != nil {
		d.manager.Stop()
	}
}

func (d *Daemon) quit() {
	d.mu.Lock()
	cancel := d.cancel
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (d *Daemon) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		d.conns.Add(1)
		go func() {
			defer d.conns.Done()
			d.handle(ctx, c)
		}()
	}
}

func (d *Daemon) signalLoop(ctx context.Context, cancel context.CancelFunc) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		d.log.Info("shutting down", "signal", sig)
		cancel()
	case <-ctx.Done():
	}
	return nil
}

func (d *Daemon) configLoop(ctx context.Context) error {
	updates, unsubscribe := d.manager.Updates()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg, ok := <-updates:
			if !ok {
				return nil
			}
			d.applyConfig(cfg)
		}
	}
}

// applyConfig takes effect from the next session. A running session keeps
// the recognizer it started with.
func (d *Daemon) applyConfig(cfg *config.Config) {
	d.applyLogLevel(cfg)

	if d.source != nil {
		d.source.SetConfig(cfg.ToRecordingConfig())
		r, err := transcriber.New(cfg.ToTranscriberConfig(), d.child("transcriber"))
		if err != nil {
			d.log.Warn("keeping previous recognizer", "err", err)
		} else {
			d.session.SetRecognizer(r)
		}
	}

	d.watcher.Configure(cfg.ToNotifier(d.child("notify")), cfg.Notifications.Messages.Resolve())
	d.watcher.Send(notify.MsgConfigReloaded, "")
	d.log.Info("config applied", "provider", cfg.Recognition.Provider)
}

// child returns the component logger for prefix. Prefixed loggers copy the
// level at creation, so they are kept to follow reloads.
func (d *Daemon) child(prefix string) *log.Logger {
	d.mu.Lock()
	defer d.mu.Unlock()
	if l, ok := d.loggers[prefix]; ok {
		return l
	}
	if d.loggers == nil {
		d.loggers = make(map[string]*log.Logger)
	}
	l := d.log.WithPrefix(prefix)
	d.loggers[prefix] = l
	return l
}

func (d *Daemon) applyLogLevel(cfg *config.Config) {
	level := cfg.LogLevel()
	if d.debug {
		level = log.DebugLevel
	}
	d.log.SetLevel(level)
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, l := range d.loggers {
		l.SetLevel(level)
	}
}

func (d *Daemon) handle(ctx context.Context, c net.Conn) {
	defer c.Close()

	r := bufio.NewReader(c)
	line, err := r.ReadString('\n')
	if err != nil {
		d.log.Debug("client read error", "err", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 || line[0] == '\n' {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	cmd := line[0]
	d.log.Debug("command", "cmd", string(cmd))

	switch cmd {
	case bus.CmdToggle:
		d.ctrl.Toggle()
		fmt.Fprint(c, "OK toggled\n")
	case bus.CmdStart:
		d.ctrl.Start()
		fmt.Fprint(c, "OK started\n")
	case bus.CmdStop:
		d.ctrl.Stop()
		fmt.Fprint(c, "OK stopped\n")
	case bus.CmdStatus:
		st := d.ctrl.State()
		fmt.Fprint(c, bus.FormatStatus(st.Recognizing, st.Label))
	case bus.CmdText:
		fmt.Fprint(c, bus.FormatText(d.session.RecognizedText()))
	case bus.CmdWatch:
		d.stream(ctx, c, r)
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.quit()
	default:
		d.log.Warn("unknown command", "cmd", string(cmd))
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}


// stream writes the current state, then one line per change until the
// client hangs up or the daemon stops.
func (d *Daemon) stream(ctx context.Context, c net.Conn, r *bufio.Reader) {
	updates, unsubscribe := d.ctrl.Watch()
	defer unsubscribe()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		_, _ = io.Copy(io.Discard, r)
	}()

	write := func(st controller.State) bool {
		_, err := fmt.Fprint(c, bus.FormatState(bus.State{
			Recognizing: st.Recognizing,
			Label:       st.Label,
			Text:        st.Text,
		}))
		return err == nil
	}

	if !write(d.ctrl.State()) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-gone:
			return
		case st, ok := <-updates:
			if !ok || !write(st) {
				return
			}
		}
	}
}
