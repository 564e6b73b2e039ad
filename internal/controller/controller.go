// Package controller derives presentation state from a recognition session
// and exposes the single toggle action a UI binds to.
package controller

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/livescribe/internal/observable"
	"github.com/leonardotrapani/livescribe/internal/recognition"
)

// Labels for the single toggle control.
const (
	LabelStart = "Start"
	LabelStop  = "Stop"
)

// State is what a presentation layer renders. It is only ever derived from
// session events.
type State struct {
	Label       string
	Recognizing bool
	Text        string
}

// Session is the part of recognition.Session the controller drives.
type Session interface {
	Start()
	Stop()
	IsRecognizing() bool
	RecognizedText() string
	Subscribe() (<-chan recognition.Event, func())
}

// Controller mirrors a session into a State and is the only path from a
// presentation layer back into the session.
type Controller struct {
	session Session
	log     *log.Logger

	mu    sync.RWMutex
	state State

	updates     *observable.Broadcaster[State]
	unsubscribe func()
	done        chan struct{}
	closeOnce   sync.Once
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger replaces the default "controller" logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// New subscribes to session and seeds State from its current snapshot.
// Close releases the subscription.
func New(session Session, opts ...Option) *Controller {
	c := &Controller{
		session: session,
		log:     log.Default().WithPrefix("controller"),
		updates: observable.NewBroadcaster[State](),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	events, unsubscribe := session.Subscribe()
	c.unsubscribe = unsubscribe

	recognizing := session.IsRecognizing()
	c.state = State{
		Label:       labelFor(recognizing),
		Recognizing: recognizing,
		Text:        session.RecognizedText(),
	}

	go c.consume(events)
	return c
}

func labelFor(recognizing bool) string {
	if recognizing {
		return LabelStop
	}
	return LabelStart
}

func (c *Controller) consume(events <-chan recognition.Event) {
	defer close(c.done)
	defer c.updates.Close()

	for ev := range events {
		c.apply(ev)
	}
}

func (c *Controller) apply(ev recognition.Event) {
	c.mu.Lock()
	switch e := ev.(type) {
	case recognition.RecognizedTextChanged:
		c.state.Text = e.Text
	case recognition.RecognizingChanged:
		c.state.Recognizing = e.Recognizing
		c.state.Label = labelFor(e.Recognizing)
		c.log.Debug("label changed", "label", c.state.Label, "token", e.Token)
	default:
		c.mu.Unlock()
		return
	}
	snapshot := c.state
	c.mu.Unlock()

	c.updates.Publish(snapshot)
}

// Toggle stops a running session or starts a new one. The decision is taken
// on the session's own flag so two quick toggles never start twice.
func (c *Controller) Toggle() {
	if c.session.IsRecognizing() {
		c.log.Info("toggle", "action", "stop")
		c.session.Stop()
		return
	}
	c.log.Info("toggle", "action", "start")
	c.session.Start()
}

// Start begins a new session, replacing a running one.
func (c *Controller) Start() {
	c.session.Start()
}

// Stop ends the current session. It is harmless when idle.
func (c *Controller) Stop() {
	c.session.Stop()
}

// State returns the latest applied presentation state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) Label() string {
	return c.State().Label
}

// Watch streams one State per applied change.
func (c *Controller) Watch() (<-chan State, func()) {
	return c.updates.Subscribe()
}

// Close stops following the session and closes every Watch channel.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.unsubscribe()
		<-c.done
	})
}
