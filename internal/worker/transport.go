package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Transport moves encoded protocol frames to the decoding worker and returns
// reply frames. Implementations are not required to be safe for concurrent
// Exchange calls; Client serializes access.
type Transport interface {
	// Start acquires the worker handle. env entries are appended to the
	// worker's environment.
	Start(ctx context.Context, env []string) error
	// Exchange submits one request frame and blocks for the reply frame.
	Exchange(ctx context.Context, frame []byte) ([]byte, error)
	// Close tears the worker handle down.
	Close() error
}

// killGracePeriod is how long a signaled worker gets to exit before the
// transport escalates to SIGKILL.
const killGracePeriod = 5 * time.Second

// processTransport speaks the frame protocol over a spawned subprocess's
// stdin/stdout.
type processTransport struct {
	binary    string
	args      []string
	maxFrame  int
	killGrace time.Duration

	mu       sync.Mutex
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	stdout   *bufio.Reader
	poisoned bool
}

// NewProcessTransport builds the production transport around the configured
// worker binary.
func NewProcessTransport(binary string, args []string, maxFrame int) Transport {
	return &processTransport{binary: binary, args: args, maxFrame: maxFrame, killGrace: killGracePeriod}
}

func (t *processTransport) Start(ctx context.Context, env []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cmd != nil {
		return nil
	}

	cmd := exec.Command(t.binary, t.args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stderr = os.Stderr
	// The worker must not outlive the engine process.
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: unix.SIGTERM}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn worker %q: %w", t.binary, err)
	}

	t.cmd = cmd
	t.stdin = stdin
	t.stdout = bufio.NewReader(stdout)
	t.poisoned = false
	return nil
}

func (t *processTransport) Exchange(ctx context.Context, frame []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cmd == nil {
		return nil, errors.New("worker not started")
	}
	if t.poisoned {
		return nil, ErrStreamPoisoned
	}

	type result struct {
		reply []byte
		err   error
	}
	done := make(chan result, 1)
	go func() {
		if err := WriteFrame(t.stdin, frame, t.maxFrame); err != nil {
			done <- result{err: err}
			return
		}
		reply, err := ReadFrame(t.stdout, t.maxFrame)
		done <- result{reply: reply, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			t.poisoned = true
			return nil, res.err
		}
		return res.reply, nil
	case <-ctx.Done():
		// The submitted task is not preemptible; abandoning the reply
		// leaves the stream unusable, so the process is torn down.
		t.poisoned = true
		t.killLocked()
		return nil, ctx.Err()
	}
}

func (t *processTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.killLocked()
}

func (t *processTransport) killLocked() error {
	if t.cmd == nil {
		return nil
	}
	if t.stdin != nil {
		_ = t.stdin.Close()
	}
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Signal(unix.SIGTERM)
	}

	waited := make(chan error, 1)
	go func() { waited <- t.cmd.Wait() }()

	var err error
	select {
	case err = <-waited:
	case <-time.After(t.killGrace):
		// A worker that ignores SIGTERM does not get to hang Close.
		if t.cmd.Process != nil {
			_ = t.cmd.Process.Kill()
		}
		err = <-waited
	}
	t.cmd = nil
	t.stdin = nil
	t.stdout = nil
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return fmt.Errorf("wait for worker: %w", err)
	}
	return nil
}
