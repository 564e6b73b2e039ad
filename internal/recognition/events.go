package recognition

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingAuthorization
	PhaseActive
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingAuthorization:
		return "awaiting_authorization"
	case PhaseActive:
		return "active"
	default:
		return "unknown"
	}
}

// Event is a state change published by a Session. The concrete types below
// are the only implementations.
type Event interface {
	SessionToken() uint64
	event()
}

type RecognizedTextChanged struct {
	Token uint64
	Text  string
}

type RecognizingChanged struct {
	Token       uint64
	Recognizing bool
}

type PhaseChanged struct {
	Token uint64
	Phase Phase
}

type SessionFailed struct {
	Token uint64
	Err   *SessionError
}

func (e RecognizedTextChanged) SessionToken() uint64 { return e.Token }
func (e RecognizingChanged) SessionToken() uint64    { return e.Token }
func (e PhaseChanged) SessionToken() uint64          { return e.Token }
func (e SessionFailed) SessionToken() uint64         { return e.Token }

func (RecognizedTextChanged) event() {}
func (RecognizingChanged) event()    {}
func (PhaseChanged) event()          {}
func (SessionFailed) event()         {}
