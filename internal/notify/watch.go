package notify

import (
	"context"
	"sync"

	"github.com/leonardotrapani/livescribe/internal/recognition"
)

// Watcher turns session events into notifications.
type Watcher struct {
	mu       sync.RWMutex
	notifier Notifier
	messages map[MessageType]Message

	// run-owned
	text   string
	failed uint64
}

func NewWatcher(n Notifier, messages map[MessageType]Message) *Watcher {
	w := &Watcher{}
	w.Configure(n, messages)
	return w
}

// Configure swaps the notifier and message set, for config reloads.
func (w *Watcher) Configure(n Notifier, messages map[MessageType]Message) {
	if n == nil {
		n = Nop{}
	}
	if messages == nil {
		messages = DefaultMessages()
	}
	w.mu.Lock()
	w.notifier = n
	w.messages = messages
	w.mu.Unlock()
}

// Run consumes events until ctx ends or the channel closes.
func (w *Watcher) Run(ctx context.Context, events <-chan recognition.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			w.handle(ev)
		}
	}
}

func (w *Watcher) handle(ev recognition.Event) {
	switch e := ev.(type) {
	case recognition.RecognizedTextChanged:
		w.text = e.Text
	case recognition.RecognizingChanged:
		if e.Recognizing {
			w.text = ""
			w.Send(MsgSessionStarted, "")
			return
		}
		// a failed session already got its error notification
		if e.Token == w.failed {
			return
		}
		if w.text == "" {
			w.Send(MsgNothingRecognized, "")
			return
		}
		w.Send(MsgSessionStopped, w.text)
	case recognition.SessionFailed:
		w.failed = e.Token
		w.Send(MsgSessionFailed, e.Err.Error())
	}
}

// Send renders and delivers one message type.
func (w *Watcher) Send(mt MessageType, text string) {
	w.mu.RLock()
	n := w.notifier
	msg, ok := w.messages[mt]
	w.mu.RUnlock()
	if !ok {
		return
	}
	n.Send(msg.Render(text))
}
