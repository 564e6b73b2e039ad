package recognition

import (
	"errors"
	"fmt"
)

var (
	ErrAuthorizationDenied = errors.New("speech recognition not authorized")
	ErrDeviceUnsupported   = errors.New("speech recognition unsupported on this device")
	ErrBackend             = errors.New("speech backend error")
	ErrCaptureStart        = errors.New("audio capture failed to start")
	ErrCaptureLost         = errors.New("audio capture ended unexpectedly")
)

// ErrorKind classifies why a session failed.
type ErrorKind int

const (
	AuthorizationDenied ErrorKind = iota
	DeviceUnsupported
	BackendError
	CaptureStartError
	CaptureLost
)

func (k ErrorKind) String() string {
	switch k {
	case AuthorizationDenied:
		return "authorization_denied"
	case DeviceUnsupported:
		return "device_unsupported"
	case BackendError:
		return "backend_error"
	case CaptureStartError:
		return "capture_start_error"
	case CaptureLost:
		return "capture_lost"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case AuthorizationDenied:
		return ErrAuthorizationDenied
	case DeviceUnsupported:
		return ErrDeviceUnsupported
	case BackendError:
		return ErrBackend
	case CaptureLost:
		return ErrCaptureLost
	default:
		return ErrCaptureStart
	}
}

// SessionError ends the session it occurred in and nothing else.
type SessionError struct {
	Kind ErrorKind
	Err  error
}

func newSessionError(kind ErrorKind, err error) *SessionError {
	return &SessionError{Kind: kind, Err: err}
}

func (e *SessionError) Error() string {
	if e == nil {
		return "session error"
	}
	if e.Err == nil {
		return e.Kind.sentinel().Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind.sentinel(), e.Err)
}

func (e *SessionError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}
