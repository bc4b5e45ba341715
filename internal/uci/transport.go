package uci

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// quitGrace is how long teardown waits for the engine to exit after the quit
// command before killing it. An engine deep in a search may not service its
// input promptly, so the graceful path is given a real window, but teardown
// must always end with the process reaped.
const quitGrace = 2 * time.Second

// transport owns the engine subprocess and its two pipes. It is not
// internally synchronized: exactly one goroutine may use it at a time, and
// close is the only method safe to call concurrently with a blocked read.
type transport struct {
	path   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	writer *bufio.Writer
	reader *bufio.Reader

	closeOnce sync.Once
	closeErr  error
}

// spawnTransport launches the engine with stdin/stdout piped and stderr
// discarded. Failures are reported as SpawnError since they indicate a
// configuration problem, not an engine misbehavior.
func spawnTransport(path string) (*transport, error) {
	cmd := exec.Command(path)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &SpawnError{Path: path, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Path: path, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Path: path, Err: err}
	}

	return &transport{
		path:   path,
		cmd:    cmd,
		stdin:  stdin,
		writer: bufio.NewWriter(stdin),
		reader: bufio.NewReader(stdout),
	}, nil
}

// send writes one newline-terminated command and flushes immediately. The
// engine must see each command promptly; nothing is ever batched.
func (t *transport) send(command string) error {
	if _, err := t.writer.WriteString(command + "\n"); err != nil {
		return fmt.Errorf("write %q to engine: %w", command, err)
	}
	if err := t.writer.Flush(); err != nil {
		return fmt.Errorf("flush %q to engine: %w", command, err)
	}
	return nil
}

// readLine blocks until the next line arrives and returns it without the
// trailing newline. io.EOF is returned only once no bytes remain; a final
// unterminated line is still delivered.
func (t *transport) readLine() (string, error) {
	line, err := t.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// close tears the engine down: best-effort quit command, stdin closed so the
// engine also sees EOF, then wait for exit. If the engine has not exited
// within quitGrace it is killed. The process is reaped on every path; close
// is idempotent and never reports the engine's own exit status as a failure.
func (t *transport) close() error {
	t.closeOnce.Do(func() {
		_ = t.send("quit")
		_ = t.stdin.Close()

		done := make(chan error, 1)
		go func() { done <- t.cmd.Wait() }()

		var waitErr error
		select {
		case waitErr = <-done:
		case <-time.After(quitGrace):
			_ = t.cmd.Process.Kill()
			waitErr = <-done
		}

		var exitErr *exec.ExitError
		if waitErr != nil && !errors.As(waitErr, &exitErr) {
			t.closeErr = fmt.Errorf("wait for engine '%s': %w", t.path, waitErr)
		}
	})
	return t.closeErr
}
