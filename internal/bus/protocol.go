package bus

import (
	"fmt"
	"strconv"
	"strings"
)

// State is one line of the watch stream.
type State struct {
	Recognizing bool
	Label       string
	Text        string
}

func FormatStatus(recognizing bool, label string) string {
	return fmt.Sprintf("STATUS recognizing=%t label=%s\n", recognizing, label)
}

func FormatText(text string) string {
	return "TEXT " + strconv.Quote(text) + "\n"
}

func FormatState(s State) string {
	return fmt.Sprintf("STATE recognizing=%t label=%s text=%s\n", s.Recognizing, s.Label, strconv.Quote(s.Text))
}

// ParseText decodes a TEXT reply.
func ParseText(line string) (string, error) {
	rest, ok := strings.CutPrefix(strings.TrimRight(line, "\n"), "TEXT ")
	if !ok {
		return "", fmt.Errorf("not a TEXT line: %q", line)
	}
	return strconv.Unquote(rest)
}

// ParseState decodes a STATE line.
func ParseState(line string) (State, error) {
	rest, ok := strings.CutPrefix(strings.TrimRight(line, "\n"), "STATE ")
	if !ok {
		return State{}, fmt.Errorf("not a STATE line: %q", line)
	}

	var st State
	for _, key := range []string{"recognizing=", "label=", "text="} {
		rest, ok = strings.CutPrefix(rest, key)
		if !ok {
			return State{}, fmt.Errorf("missing %s in %q", strings.TrimSuffix(key, "="), line)
		}
		switch key {
		case "text=":
			text, err := strconv.Unquote(rest)
			if err != nil {
				return State{}, fmt.Errorf("bad text in %q: %w", line, err)
			}
			st.Text = text
		default:
			value, tail, _ := strings.Cut(rest, " ")
			rest = tail
			if key == "label=" {
				st.Label = value
				continue
			}
			b, err := strconv.ParseBool(value)
			if err != nil {
				return State{}, fmt.Errorf("bad recognizing in %q: %w", line, err)
			}
			st.Recognizing = b
		}
	}
	return st, nil
}
