package worker

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"dicomstack/internal/config"
	"dicomstack/internal/dicom"
	"dicomstack/internal/fileutil"
	"dicomstack/internal/logging"
)

// Runner is the task-execution capability higher-level components depend on.
// Client is the production implementation; tests substitute a scripted fake.
type Runner interface {
	Initialize(ctx context.Context) error
	RunTask(ctx context.Context, task Task) (*TaskResult, error)
	ReadTags(ctx context.Context, identifier string, data []byte, codes []string) (map[string]string, error)
}

type initState int

const (
	initNotStarted initState = iota
	initInFlight
	initDone
)

// Option configures the client.
type Option func(*Client)

// WithTransport injects a custom transport (primarily for tests).
func WithTransport(t Transport) Option {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

// Client owns the lazily-established connection to the decoding worker.
type Client struct {
	cfg       *config.Config
	logger    *slog.Logger
	transport Transport
	lock      *flock.Flock

	initMu   sync.Mutex
	state    initState
	inFlight chan struct{}
	bootErr  error

	taskMu sync.Mutex
}

// New constructs a worker client. The worker process is not spawned until
// the first Initialize call.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, dicom.Wrap(dicom.ErrConfiguration, "worker", "new", "config required", nil)
	}
	if strings.TrimSpace(cfg.Worker.Binary) == "" {
		return nil, dicom.Wrap(dicom.ErrConfiguration, "worker", "new", "worker binary required", nil)
	}

	client := &Client{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "worker"),
		transport: NewProcessTransport(cfg.Worker.Binary, cfg.Worker.Args, cfg.MaxFrameBytes()),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Initialize establishes the worker handle. It is idempotent and safe to
// call concurrently: the first caller pays the bootstrap cost and every
// concurrent caller awaits that same attempt and observes its outcome. A
// failed outcome stays cached until Close resets the client.
func (c *Client) Initialize(ctx context.Context) error {
	c.initMu.Lock()
	switch c.state {
	case initDone:
		err := c.bootErr
		c.initMu.Unlock()
		return err
	case initInFlight:
		wait := c.inFlight
		c.initMu.Unlock()
		select {
		case <-wait:
			c.initMu.Lock()
			err := c.bootErr
			c.initMu.Unlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.state = initInFlight
	c.inFlight = make(chan struct{})
	c.initMu.Unlock()

	err := c.bootstrap(ctx)
	if err != nil {
		err = dicom.Wrap(dicom.ErrInit, "worker", "initialize", "", err)
	}

	c.initMu.Lock()
	c.bootErr = err
	c.state = initDone
	close(c.inFlight)
	c.initMu.Unlock()
	return err
}

func (c *Client) bootstrap(ctx context.Context) error {
	if err := c.cfg.EnsureDirectories(); err != nil {
		return err
	}

	lock := flock.New(filepath.Join(c.cfg.Paths.ScratchDir, "worker.lock"))
	acquired, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock scratch directory: %w", err)
	}
	if !acquired {
		return fmt.Errorf("scratch directory %s is held by another engine", c.cfg.Paths.ScratchDir)
	}
	c.lock = lock

	env := []string{
		"DICOMSTACK_SCRATCH=" + c.cfg.Paths.ScratchDir,
	}
	if len(c.cfg.Worker.DiscoveryEndpoints) > 0 {
		env = append(env, "DICOMSTACK_ENDPOINTS="+strings.Join(c.cfg.Worker.DiscoveryEndpoints, ","))
	}

	if err := c.transport.Start(ctx, env); err != nil {
		c.releaseLock()
		return err
	}

	c.warmUp(ctx)
	c.logger.Info("worker ready",
		logging.String("binary", c.cfg.Worker.Binary),
		logging.Int("endpoints", len(c.cfg.Worker.DiscoveryEndpoints)))
	return nil
}

// warmUp primes the worker's tag-reading path with a no-op probe. The probe
// shortens the first real read on cold decoder caches; its failure must not
// fail initialization.
func (c *Client) warmUp(ctx context.Context) {
	probeCtx := ctx
	if timeout := c.cfg.Worker.StartupTimeout; timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}

	req := Request{
		ID:   uuid.NewString(),
		Kind: RequestKindReadTags,
	}
	if _, err := c.exchange(probeCtx, req); err != nil {
		c.logger.Warn("warm-up probe failed",
			logging.Error(err),
			logging.String("impact", "first tag read will absorb decoder startup cost"))
	}
}

// RunTask submits a named task and blocks for its structured result.
func (c *Client) RunTask(ctx context.Context, task Task) (*TaskResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	req := Request{
		ID:      uuid.NewString(),
		Kind:    RequestKindTask,
		Task:    task.Name,
		Args:    append([]string(nil), task.Args...),
		Inputs:  make([]WireInput, 0, len(task.Inputs)),
		Outputs: make([]WireOutput, 0, len(task.Outputs)),
	}
	for _, input := range task.Inputs {
		req.Inputs = append(req.Inputs, WireInput{
			Path: fileutil.SanitizeIdentifier(input.Path),
			Kind: string(input.Kind),
			Data: Compress(input.Data),
			Text: input.Text,
		})
	}
	for _, output := range task.Outputs {
		req.Outputs = append(req.Outputs, WireOutput{
			Path: fileutil.SanitizeIdentifier(output.Path),
			Kind: string(output.Kind),
		})
	}

	started := time.Now()
	resp, err := c.exchange(ctx, req)
	if err != nil {
		return nil, dicom.Wrap(dicom.ErrTask, "worker", task.Name, "", err)
	}

	result := &TaskResult{Outputs: make([]OutputResult, 0, len(resp.Outputs))}
	for _, out := range resp.Outputs {
		data, err := Decompress(out.Data)
		if err != nil {
			return nil, dicom.Wrap(dicom.ErrTask, "worker", task.Name, "corrupt output payload", err)
		}
		result.Outputs = append(result.Outputs, OutputResult{
			Path: out.Path,
			Kind: OutputKind(out.Kind),
			Data: data,
			Text: out.Text,
		})
	}

	logging.WithContext(ctx, c.logger).Debug("task completed",
		logging.String(logging.FieldTask, task.Name),
		logging.Int("inputs", len(task.Inputs)),
		logging.Int("outputs", len(result.Outputs)),
		logging.Duration("elapsed", time.Since(started)))
	return result, nil
}

// ReadTags submits one file payload with a list of binary tag codes over the
// dedicated tag-reading call and returns the code to value pairs the worker
// found. Codes absent from the file are simply not present in the result.
func (c *Client) ReadTags(ctx context.Context, identifier string, data []byte, codes []string) (map[string]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	req := Request{
		ID:       uuid.NewString(),
		Kind:     RequestKindReadTags,
		Inputs:   []WireInput{{Path: fileutil.SanitizeIdentifier(identifier), Kind: string(InputBinary), Data: Compress(data)}},
		TagCodes: append([]string(nil), codes...),
	}

	resp, err := c.exchange(ctx, req)
	if err != nil {
		return nil, dicom.Wrap(dicom.ErrRead, "worker", "read tags", identifier, err)
	}
	return resp.Tags, nil
}

// exchange performs one serialized request/reply round-trip.
func (c *Client) exchange(ctx context.Context, req Request) (*Response, error) {
	frame, err := EncodeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	c.taskMu.Lock()
	reply, err := c.transport.Exchange(ctx, frame)
	c.taskMu.Unlock()
	if err != nil {
		return nil, err
	}

	resp, err := DecodeResponse(reply)
	if err != nil {
		return nil, err
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("response id %q does not match request id %q", resp.ID, req.ID)
	}
	if !resp.OK {
		message := strings.TrimSpace(resp.Error)
		if message == "" {
			message = "worker reported failure"
		}
		return nil, fmt.Errorf("worker: %s", message)
	}
	return &resp, nil
}

func (c *Client) ready() error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.state != initDone || c.bootErr != nil {
		return dicom.Wrap(dicom.ErrBackendUnavailable, "worker", "run task", "initialize the engine first", nil)
	}
	return nil
}

// Close tears down the worker handle and resets the initialization guard so
// a later Initialize may bootstrap again.
func (c *Client) Close() error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.state == initInFlight {
		return fmt.Errorf("close during initialization")
	}
	err := c.transport.Close()
	c.releaseLock()
	c.state = initNotStarted
	c.bootErr = nil
	return err
}

func (c *Client) releaseLock() {
	if c.lock != nil {
		_ = c.lock.Unlock()
		c.lock = nil
	}
}
