// Package deps looks up the external programs livescribe shells out to.
package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Status represents the installation status of a dependency
type Status struct {
	Name      string
	Installed bool
	Path      string
	Version   string
}

// Tool is an external program and the flag that prints its version.
type Tool struct {
	Name        string
	VersionFlag string
	Purpose     string
}

var (
	PwRecord   = Tool{Name: "pw-record", VersionFlag: "--version", Purpose: "microphone capture"}
	PwCli      = Tool{Name: "pw-cli", VersionFlag: "--version", Purpose: "PipeWire health check"}
	NotifySend = Tool{Name: "notify-send", VersionFlag: "--version", Purpose: "desktop notifications"}
)

// Tools lists every program the daemon may run.
func Tools() []Tool {
	return []Tool{PwRecord, PwCli, NotifySend}
}

var lookPath = exec.LookPath

// Check resolves t on PATH and reads the first line of its version output.
// A missing version is not an error.
func Check(t Tool) Status {
	path, err := lookPath(t.Name)
	if err != nil {
		return Status{Name: t.Name}
	}

	status := Status{Name: t.Name, Installed: true, Path: path}
	if t.VersionFlag == "" {
		return status
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	output, err := exec.CommandContext(ctx, path, t.VersionFlag).Output()
	if err == nil {
		first, _, _ := strings.Cut(string(output), "\n")
		status.Version = strings.TrimSpace(first)
	}
	return status
}

// Missing returns the tools from ts that are not on PATH.
func Missing(ts ...Tool) []Tool {
	var out []Tool
	for _, t := range ts {
		if _, err := lookPath(t.Name); err != nil {
			out = append(out, t)
		}
	}
	return out
}
