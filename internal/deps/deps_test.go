package deps

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func fakeTool(t *testing.T, name, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)
	return path
}

func TestCheck(t *testing.T) {
	path := fakeTool(t, "pw-record", `echo "pw-record 1.2.7"; echo "Compiled with libpipewire 1.2.7"`)

	status := Check(PwRecord)
	if !status.Installed {
		t.Fatal("expected Installed=true")
	}
	if status.Path != path {
		t.Errorf("path = %q, want %q", status.Path, path)
	}
	if status.Version != "pw-record 1.2.7" {
		t.Errorf("version = %q", status.Version)
	}
	if status.Name != "pw-record" {
		t.Errorf("name = %q", status.Name)
	}
}

func TestCheck_VersionFailure(t *testing.T) {
	fakeTool(t, "notify-send", "exit 3")

	status := Check(NotifySend)
	if !status.Installed {
		t.Fatal("expected Installed=true")
	}
	if status.Version != "" {
		t.Errorf("version = %q, want empty", status.Version)
	}
}

func TestCheck_NotInstalled(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	status := Check(PwCli)
	if status.Installed || status.Path != "" {
		t.Errorf("status = %+v, want not installed", status)
	}
}

func TestMissing(t *testing.T) {
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })
	lookPath = func(name string) (string, error) {
		if name == "notify-send" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}

	missing := Missing(Tools()...)
	if len(missing) != 1 || missing[0] != NotifySend {
		t.Errorf("Missing() = %+v", missing)
	}
	if len(Missing(PwRecord, PwCli)) != 0 {
		t.Error("expected no missing tools")
	}
}
