package transcriber

import (
	"sync"

	"github.com/leonardotrapani/livescribe/internal/audio"
)

// streamRequest queues audio from the capture tap until a task drains it.
// Append never blocks.
type streamRequest struct {
	format audio.Format

	mu      sync.Mutex
	pending [][]byte
	ended   bool
	bound   bool

	wake chan struct{}
}

func newStreamRequest(format audio.Format) *streamRequest {
	return &streamRequest{format: format, wake: make(chan struct{}, 1)}
}

func (r *streamRequest) Append(buf audio.Buffer) {
	if len(buf.Data) == 0 {
		return
	}
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return
	}
	r.pending = append(r.pending, buf.Data)
	r.mu.Unlock()
	r.signal()
}

// EndAudio marks the end of input. Audio appended afterwards is discarded.
func (r *streamRequest) EndAudio() error {
	r.mu.Lock()
	r.ended = true
	r.mu.Unlock()
	r.signal()
	return nil
}

func (r *streamRequest) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *streamRequest) drain() ([][]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chunks := r.pending
	r.pending = nil
	return chunks, r.ended
}

// bind claims the request for one task.
func (r *streamRequest) bind() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bound {
		return ErrRequestInUse
	}
	r.bound = true
	return nil
}
