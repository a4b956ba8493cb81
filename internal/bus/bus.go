// Package bus is the unix-socket control channel between the scribe
// CLI and the daemon.
package bus

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const SockName = "control.sock"
const PidName = "scribe.pid"

// Single-byte commands, optionally followed by a space and a text
// argument. The daemon answers with a response of arbitrary length and
// closes the connection.
const (
	CmdToggle  byte = 't'
	CmdStatus  byte = 's'
	CmdProcess byte = 'p'
	CmdChat    byte = 'm'
	CmdCancel  byte = 'c'
	CmdStop    byte = 'q'
)

// ~/.cache/scribe/control.sock
func SockPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "scribe", SockName), nil
}

// ~/.cache/scribe/scribe.pid
func PidPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "scribe", PidName), nil
}

func Listen() (net.Listener, error) {
	sp, err := SockPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(sp), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(sp) // stale socket from last run
	return net.Listen("unix", sp)
}

func Dial() (net.Conn, error) {
	sp, err := SockPath()
	if err != nil {
		return nil, err
	}
	return net.Dial("unix", sp)
}

// SendCommand sends one command with an optional argument and returns
// the daemon's full response.
func SendCommand(cmd byte, arg string) (string, error) {
	c, err := Dial()
	if err != nil {
		return "", fmt.Errorf("daemon not reachable (is `scribe serve` running?): %w", err)
	}
	defer c.Close()

	line := string(cmd)
	if arg != "" {
		line += " " + strings.ReplaceAll(arg, "\n", " ")
	}
	if _, err := c.Write([]byte(line + "\n")); err != nil {
		return "", err
	}
	if cw, ok := c.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}

	resp, err := io.ReadAll(c)
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

// ParseCommand splits one request line into command byte and argument.
func ParseCommand(line string) (byte, string, error) {
	line = strings.TrimRight(line, "\n")
	if line == "" {
		return 0, "", fmt.Errorf("empty command")
	}
	cmd := line[0]
	arg := ""
	if len(line) > 2 && line[1] == ' ' {
		arg = line[2:]
	}
	return cmd, arg, nil
}

func CheckExistingDaemon() error {
	pidPath, err := PidPath()
	if err != nil {
		return err
	}

	pidData, err := os.ReadFile(pidPath)
	if os.IsNotExist(err) {
		return nil // no existing daemon
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return nil // invalid pid file, assume stale
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return nil // process not alive, stale pid file
	}

	return fmt.Errorf("daemon already running with PID %d", pid)
}

func CreatePidFile() error {
	pidPath, err := PidPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(pidPath), 0o700); err != nil {
		return err
	}
	return os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func RemovePidFile() error {
	pidPath, err := PidPath()
	if err != nil {
		return err
	}
	return os.Remove(pidPath)
}
