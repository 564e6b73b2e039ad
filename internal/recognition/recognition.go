// Package recognition owns the lifecycle of a live speech-to-text session:
// one microphone capture, one recognition request and one recognition task
// at a time, with incremental transcript updates published as typed events.
package recognition

import (
	"context"

	"github.com/leonardotrapani/livescribe/internal/audio"
)

// BufferFrames is the tap size installed on every capture.
const BufferFrames = 1024

// AuthorizationStatus is the backend's answer to RequestAuthorization. Only
// Authorized lets a session proceed.
type AuthorizationStatus int

const (
	NotDetermined AuthorizationStatus = iota
	Denied
	Restricted
	Authorized
)

func (s AuthorizationStatus) String() string {
	switch s {
	case NotDetermined:
		return "not_determined"
	case Denied:
		return "denied"
	case Restricted:
		return "restricted"
	case Authorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// TaskState is the lifecycle of a recognition task as the backend reports it.
type TaskState int

const (
	TaskStarting TaskState = iota
	TaskRunning
	TaskFinishing
	TaskCanceling
	TaskCompleted
)

func (s TaskState) String() string {
	switch s {
	case TaskStarting:
		return "starting"
	case TaskRunning:
		return "running"
	case TaskFinishing:
		return "finishing"
	case TaskCanceling:
		return "canceling"
	case TaskCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Result is one recognition callback. Transcript is the backend's
// cumulative best guess for all audio seen so far, not a delta.
type Result struct {
	Transcript string
	IsFinal    bool
}

// ResultHandler receives task output. A nil result with a nil error means
// the backend cannot recognize on this device or input.
type ResultHandler func(result *Result, err error)

// Recognizer is the speech backend. Its methods run on the session loop and
// must not block on the network: RecognitionTask returns a starting task and
// reports connection failures through the handler.
type Recognizer interface {
	RequestAuthorization(ctx context.Context, callback func(AuthorizationStatus))
	NewRequest(format audio.Format) Request
	RecognitionTask(ctx context.Context, req Request, handler ResultHandler) (Task, error)
}

// Request receives streamed audio for one task.
type Request interface {
	Append(buf audio.Buffer)
	EndAudio() error
}

// Task is one running recognition. Cancel stops it without a final result
// and must return promptly.
type Task interface {
	State() TaskState
	Cancel()
}

// Capture is a single-use microphone stream. The ended callback passed with
// the tap fires at most once, when the stream stops on its own; it never
// fires for Stop.
type Capture interface {
	InputFormat() audio.Format
	InstallBufferCallback(frames int, format audio.Format, callback func(audio.Buffer), ended func(error)) error
	Prepare() error
	Start() error
	Stop() error
}

// CaptureSource hands out a fresh Capture for every session.
type CaptureSource interface {
	NewCapture() (Capture, error)
}
