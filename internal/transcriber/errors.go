package transcriber

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedRequest = errors.New("request was not created by this recognizer")
	ErrRequestInUse       = errors.New("request already bound to a task")
)

// ProviderError is a failure reported by the remote service itself, as
// opposed to a transport failure.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	if e == nil || e.Err == nil {
		return "provider error"
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func IsProviderError(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr)
}
