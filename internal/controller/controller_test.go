package controller

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/livescribe/internal/observable"
	"github.com/leonardotrapani/livescribe/internal/recognition"
	"github.com/leonardotrapani/livescribe/internal/testutil"
)

const waitTimeout = 2 * time.Second

func quiet() *log.Logger { return log.New(io.Discard) }

func newRig(t *testing.T) (*Controller, *recognition.Session, *testutil.MockRecognizer) {
	t.Helper()
	rec := testutil.NewMockRecognizer()
	s := recognition.New(rec, testutil.NewMockCaptureSource(), recognition.WithLogger(quiet()))
	c := New(s, WithLogger(quiet()))
	t.Cleanup(func() {
		c.Close()
		s.Close()
	})
	return c, s, rec
}

func TestController_InitialLabel(t *testing.T) {
	c, _, _ := newRig(t)

	if c.Label() != LabelStart {
		t.Errorf("initial label = %q, want %q", c.Label(), LabelStart)
	}
	if st := c.State(); st.Recognizing || st.Text != "" {
		t.Errorf("initial state = %+v", st)
	}
}

func TestController_HelloWorldScenario(t *testing.T) {
	c, s, rec := newRig(t)

	c.Toggle()
	testutil.WaitForCondition(t, func() bool { return s.Phase() == recognition.PhaseActive }, waitTimeout)
	testutil.WaitForCondition(t, func() bool { return c.Label() == LabelStop }, waitTimeout)

	task := rec.LastTask()
	task.Emit("hello", false)
	task.Emit("hello world", true)

	testutil.WaitForCondition(t, func() bool { return c.Label() == LabelStart }, waitTimeout)

	st := c.State()
	if st.Text != "hello world" {
		t.Errorf("text = %q, want %q", st.Text, "hello world")
	}
	if st.Recognizing || s.IsRecognizing() {
		t.Error("should not be recognizing after final result")
	}
}

func TestController_ToggleStops(t *testing.T) {
	c, s, rec := newRig(t)

	c.Toggle()
	testutil.WaitForCondition(t, func() bool { return s.Phase() == recognition.PhaseActive }, waitTimeout)

	c.Toggle()
	if s.IsRecognizing() {
		t.Error("second toggle should stop the session")
	}
	if !rec.LastTask().Cancelled() {
		t.Error("task should be cancelled by toggle")
	}
	testutil.WaitForCondition(t, func() bool { return c.Label() == LabelStart }, waitTimeout)
}

func TestController_AuthorizationDenied(t *testing.T) {
	c, s, rec := newRig(t)
	rec.Status = recognition.Denied

	c.Toggle()
	testutil.WaitForCondition(t, func() bool { return !s.IsRecognizing() }, waitTimeout)
	testutil.WaitForCondition(t, func() bool { return c.Label() == LabelStart }, waitTimeout)

	if c.State().Text != "" {
		t.Errorf("text = %q, want empty", c.State().Text)
	}
}

func TestController_QuickDoubleToggle(t *testing.T) {
	c, s, rec := newRig(t)
	rec.ManualAuth = true

	c.Toggle() // starts, awaiting authorization
	c.Toggle() // must stop rather than restart

	if s.IsRecognizing() {
		t.Error("second toggle should stop the pending session")
	}
	rec.Authorize(recognition.Authorized)
	s.Stop() // barrier
	if len(rec.Tasks()) != 0 {
		t.Error("stopped session must not activate")
	}
}

func TestController_Watch(t *testing.T) {
	c, s, rec := newRig(t)

	updates, cancel := c.Watch()
	defer cancel()

	c.Toggle()
	testutil.WaitForCondition(t, func() bool { return s.Phase() == recognition.PhaseActive }, waitTimeout)
	rec.LastTask().Emit("hi", true)

	var states []State
	deadline := time.After(waitTimeout)
	for len(states) == 0 || states[len(states)-1].Label != LabelStart {
		select {
		case st := <-updates:
			states = append(states, st)
		case <-deadline:
			t.Fatalf("timeout, got states %+v", states)
		}
	}

	last := states[len(states)-1]
	if last.Text != "hi" || last.Recognizing {
		t.Errorf("last state = %+v", last)
	}
	sawStop := false
	for _, st := range states {
		if st.Label == LabelStop {
			sawStop = true
		}
	}
	if !sawStop {
		t.Errorf("expected a Stop label in %+v", states)
	}
}

// fakeSession lets tests push arbitrary events.
type fakeSession struct {
	events      *observable.Broadcaster[recognition.Event]
	recognizing bool
	starts      int
	stops       int
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: observable.NewBroadcaster[recognition.Event]()}
}

func (f *fakeSession) Start()                 { f.starts++ }
func (f *fakeSession) Stop()                  { f.stops++ }
func (f *fakeSession) IsRecognizing() bool    { return f.recognizing }
func (f *fakeSession) RecognizedText() string { return "" }
func (f *fakeSession) Subscribe() (<-chan recognition.Event, func()) {
	return f.events.Subscribe()
}

func TestController_IgnoresOtherEvents(t *testing.T) {
	f := newFakeSession()
	c := New(f, WithLogger(quiet()))
	defer c.Close()

	updates, cancel := c.Watch()
	defer cancel()

	f.events.Publish(recognition.PhaseChanged{Token: 1, Phase: recognition.PhaseActive})
	f.events.Publish(recognition.SessionFailed{Token: 1, Err: &recognition.SessionError{Kind: recognition.BackendError}})
	f.events.Publish(recognition.RecognizingChanged{Token: 1, Recognizing: true})

	select {
	case st := <-updates:
		if st.Label != LabelStop || !st.Recognizing {
			t.Errorf("first update = %+v, want recognizing Stop", st)
		}
	case <-time.After(waitTimeout):
		t.Fatal("no update for RecognizingChanged")
	}
}

func TestController_ToggleUsesSessionFlag(t *testing.T) {
	f := newFakeSession()
	c := New(f, WithLogger(quiet()))
	defer c.Close()

	c.Toggle()
	f.recognizing = true
	c.Toggle()

	if f.starts != 1 || f.stops != 1 {
		t.Errorf("starts=%d stops=%d, want 1 and 1", f.starts, f.stops)
	}
}

func TestController_CloseEndsWatch(t *testing.T) {
	f := newFakeSession()
	c := New(f, WithLogger(quiet()))

	updates, cancel := c.Watch()
	defer cancel()

	c.Close()
	c.Close()

	select {
	case _, ok := <-updates:
		if ok {
			t.Error("expected closed watch channel")
		}
	case <-time.After(waitTimeout):
		t.Fatal("watch channel not closed")
	}
}
