// Package bus is the local control channel between the daemon and the CLI:
// a unix socket speaking single-byte commands plus a PID file.
package bus

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const SockName = "control.sock"
const PidName = "livescribe.pid"
const ProtoVer = "1"

const (
	CmdToggle  byte = 't'
	CmdStart   byte = 'b'
	CmdStop    byte = 'e'
	CmdStatus  byte = 's'
	CmdText    byte = 'x'
	CmdWatch   byte = 'w'
	CmdVersion byte = 'v'
	CmdQuit    byte = 'q'
)

// ~/.cache/livescribe
func runtimeDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "livescribe"), nil
}

func getSockPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SockName), nil
}

func getPidPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PidName), nil
}

// ~/.cache/livescribe/control.sock
func SockPath() (string, error) { return getSockPath() }

// ~/.cache/livescribe/livescribe.pid
func PidPath() (string, error) { return getPidPath() }

type socketManager struct {
	path string
}

func newSocketManager() (*socketManager, error) {
	p, err := getSockPath()
	if err != nil {
		return nil, err
	}
	return &socketManager{path: p}, nil
}

func (s *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(s.path) // stale socket from last run
	return net.Listen("unix", s.path)
}

func (s *socketManager) dial() (net.Conn, error) {
	return net.Dial("unix", s.path)
}

type pidManager struct {
	path string
}

func newPidManager() (*pidManager, error) {
	p, err := getPidPath()
	if err != nil {
		return nil, err
	}
	return &pidManager{path: p}, nil
}

// checkExisting fails if a live daemon owns the PID file. Stale or
// unreadable files are removed.
func (p *pidManager) checkExisting() error {
	pidData, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil || pid <= 0 {
		_ = os.Remove(p.path)
		return nil
	}

	if pid != os.Getpid() && !p.isProcessAlive(pid) {
		_ = os.Remove(p.path)
		return nil
	}

	return fmt.Errorf("daemon already running with PID %d", pid)
}

func (p *pidManager) isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func (p *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p *pidManager) remove() error {
	return os.Remove(p.path)
}

func Listen() (net.Listener, error) {
	sm, err := newSocketManager()
	if err != nil {
		return nil, err
	}
	return sm.listen()
}

func Dial() (net.Conn, error) {
	sm, err := newSocketManager()
	if err != nil {
		return nil, err
	}
	return sm.dial()
}

// SendCommand writes one command and returns the single reply line.
func SendCommand(cmd byte) (string, error) {
	c, err := Dial()
	if err != nil {
		return "", err
	}
	defer c.Close()
	return exchange(c, cmd)
}

func exchange(c net.Conn, cmd byte) (string, error) {
	if _, err := c.Write([]byte{cmd, '\n'}); err != nil {
		return "", err
	}
	return bufio.NewReader(c).ReadString('\n')
}

// Watch streams STATE lines to fn until ctx ends or the daemon hangs up.
func Watch(ctx context.Context, fn func(State)) error {
	c, err := Dial()
	if err != nil {
		return err
	}
	return watch(ctx, c, fn)
}

func watch(ctx context.Context, c net.Conn, fn func(State)) error {
	defer c.Close()

	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	if _, err := c.Write([]byte{CmdWatch, '\n'}); err != nil {
		return err
	}

	scanner := bufio.NewScanner(c)
	for scanner.Scan() {
		st, err := ParseState(scanner.Text())
		if err != nil {
			return err
		}
		fn(st)
	}
	if ctx.Err() != nil {
		return nil
	}
	return scanner.Err()
}

func CheckExistingDaemon() error {
	pm, err := newPidManager()
	if err != nil {
		return err
	}
	return pm.checkExisting()
}

func CreatePidFile() error {
	pm, err := newPidManager()
	if err != nil {
		return err
	}
	return pm.create()
}

func RemovePidFile() error {
	pm, err := newPidManager()
	if err != nil {
		return err
	}
	return pm.remove()
}
