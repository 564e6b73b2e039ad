package recognition

import "sync"

// mailbox is an unbounded FIFO feeding the session loop. post never blocks,
// so backend callbacks may fire from inside calls the loop itself makes.
type mailbox struct {
	mu     sync.Mutex
	items  []any
	wake   chan struct{}
	closed bool
}

func newMailbox() *mailbox {
	return &mailbox{wake: make(chan struct{}, 1)}
}

func (m *mailbox) post(msg any) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items = append(m.items, msg)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return true
}

// take blocks until at least one message is queued.
func (m *mailbox) take() []any {
	for {
		m.mu.Lock()
		if len(m.items) > 0 {
			items := m.items
			m.items = nil
			m.mu.Unlock()
			return items
		}
		m.mu.Unlock()
		<-m.wake
	}
}

func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.items = nil
	m.mu.Unlock()
}
