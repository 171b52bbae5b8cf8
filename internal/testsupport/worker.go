package testsupport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"dicomstack/internal/worker"
)

// FakeTransport is a scripted worker.Transport that decodes protocol frames
// and answers through a handler. It exercises the real frame codec without a
// subprocess.
type FakeTransport struct {
	// Handle answers one decoded request. Nil handlers answer every
	// request with an empty OK response.
	Handle func(req worker.Request) worker.Response

	// StartErr, when set, fails Start.
	StartErr error
	// StartDelay gates Start on a channel, letting tests hold several
	// initializers in flight at once.
	StartDelay chan struct{}

	starts    atomic.Int64
	exchanges atomic.Int64

	mu  sync.Mutex
	env []string
}

func (f *FakeTransport) Start(ctx context.Context, env []string) error {
	if f.StartDelay != nil {
		select {
		case <-f.StartDelay:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.starts.Add(1)
	f.mu.Lock()
	f.env = append([]string(nil), env...)
	f.mu.Unlock()
	return f.StartErr
}

func (f *FakeTransport) Exchange(ctx context.Context, frame []byte) ([]byte, error) {
	f.exchanges.Add(1)
	req, err := worker.DecodeRequest(frame)
	if err != nil {
		return nil, err
	}
	resp := worker.Response{ID: req.ID, OK: true}
	if f.Handle != nil {
		resp = f.Handle(req)
	}
	return worker.EncodeResponse(resp)
}

func (f *FakeTransport) Close() error { return nil }

// Starts reports how many times the transport was started.
func (f *FakeTransport) Starts() int { return int(f.starts.Load()) }

// Exchanges reports how many frames were exchanged (warm-up included).
func (f *FakeTransport) Exchanges() int { return int(f.exchanges.Load()) }

// Env returns the environment passed to the last Start.
func (f *FakeTransport) Env() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.env...)
}

// FakeRunner is a scripted worker.Runner for components that sit above the
// gateway. Unset hooks answer with empty successes.
type FakeRunner struct {
	InitializeErr error
	RunTaskFunc   func(task worker.Task) (*worker.TaskResult, error)
	ReadTagsFunc  func(identifier string, data []byte, codes []string) (map[string]string, error)

	mu        sync.Mutex
	InitCalls int
	Tasks     []worker.Task
	TagReads  []string
}

func (f *FakeRunner) Initialize(ctx context.Context) error {
	f.mu.Lock()
	f.InitCalls++
	f.mu.Unlock()
	return f.InitializeErr
}

func (f *FakeRunner) RunTask(ctx context.Context, task worker.Task) (*worker.TaskResult, error) {
	f.mu.Lock()
	f.Tasks = append(f.Tasks, task)
	f.mu.Unlock()
	if f.RunTaskFunc == nil {
		return &worker.TaskResult{}, nil
	}
	return f.RunTaskFunc(task)
}

func (f *FakeRunner) ReadTags(ctx context.Context, identifier string, data []byte, codes []string) (map[string]string, error) {
	f.mu.Lock()
	f.TagReads = append(f.TagReads, identifier)
	f.mu.Unlock()
	if f.ReadTagsFunc == nil {
		return map[string]string{}, nil
	}
	return f.ReadTagsFunc(identifier, data, codes)
}

// LastTask returns the most recently submitted task.
func (f *FakeRunner) LastTask() (worker.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Tasks) == 0 {
		return worker.Task{}, errors.New("no task submitted")
	}
	return f.Tasks[len(f.Tasks)-1], nil
}
