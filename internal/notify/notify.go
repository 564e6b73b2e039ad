// Package notify tells the user about session transitions.
package notify

import (
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
)

const appName = "Livescribe"

type MessageType int

const (
	MsgSessionStarted MessageType = iota
	MsgSessionStopped
	MsgNothingRecognized
	MsgSessionFailed
	MsgConfigReloaded
)

type Message struct {
	Title   string
	Body    string
	IsError bool
}

// MessageDef describes a notification and the config key that overrides it.
type MessageDef struct {
	Type         MessageType
	ConfigKey    string
	DefaultTitle string
	DefaultBody  string
	IsError      bool
}

// MessageDefs lists every notification. Bodies may contain {text}, which is
// replaced with the transcript or error.
var MessageDefs = []MessageDef{
	{MsgSessionStarted, "session_started", appName, "Listening...", false},
	{MsgSessionStopped, "session_stopped", appName, "{text}", false},
	{MsgNothingRecognized, "nothing_recognized", appName, "No speech recognized", false},
	{MsgSessionFailed, "session_failed", appName + " error", "{text}", true},
	{MsgConfigReloaded, "config_reloaded", appName, "Config reloaded", false},
}

// DefaultMessages returns MessageDefs keyed by type.
func DefaultMessages() map[MessageType]Message {
	out := make(map[MessageType]Message, len(MessageDefs))
	for _, def := range MessageDefs {
		out[def.Type] = Message{Title: def.DefaultTitle, Body: def.DefaultBody, IsError: def.IsError}
	}
	return out
}

// Render substitutes {text} in the body.
func (m Message) Render(text string) Message {
	m.Body = strings.ReplaceAll(m.Body, "{text}", text)
	m.Title = strings.ReplaceAll(m.Title, "{text}", text)
	return m
}

type Notifier interface {
	Send(msg Message)
}

// Desktop shells out to notify-send.
type Desktop struct {
	Log *log.Logger
}

func (d Desktop) Send(msg Message) {
	args := []string{"-a", appName}
	if msg.IsError {
		args = append(args, "-u", "critical")
	}
	args = append(args, msg.Title)
	if msg.Body != "" {
		args = append(args, msg.Body)
	}
	if err := exec.Command("notify-send", args...).Run(); err != nil {
		logger(d.Log).Warn("failed to send notification", "err", err)
	}
}

// Log writes notifications to the logger instead of the desktop.
type Log struct {
	Log *log.Logger
}

func (l Log) Send(msg Message) {
	if msg.IsError {
		logger(l.Log).Error(msg.Title, "body", msg.Body)
		return
	}
	logger(l.Log).Info(msg.Title, "body", msg.Body)
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) Send(Message) {}

// New returns the notifier for a notifications.type value.
func New(kind string, enabled bool, l *log.Logger) Notifier {
	if !enabled {
		return Nop{}
	}
	switch kind {
	case "desktop":
		return Desktop{Log: l}
	case "log":
		return Log{Log: l}
	default:
		return Nop{}
	}
}

func logger(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Default().WithPrefix("notify")
	}
	return l
}
