package engine

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"dicomstack/internal/config"
	"dicomstack/internal/dicom"
	"dicomstack/internal/imaging"
	"dicomstack/internal/logging"
	"dicomstack/internal/series"
	"dicomstack/internal/tagcache"
	"dicomstack/internal/tags"
	"dicomstack/internal/worker"
)

// Option customizes engine construction.
type Option func(*Engine)

// WithRunner substitutes the task runner, bypassing worker process
// construction entirely. Intended for tests.
func WithRunner(runner worker.Runner) Option {
	return func(e *Engine) {
		e.runner = runner
	}
}

// WithTransport substitutes the worker transport while keeping the real
// gateway in front of it. Intended for tests.
func WithTransport(t worker.Transport) Option {
	return func(e *Engine) {
		e.transport = t
	}
}

// Engine composes the worker gateway, tag reader, categorizer, orderer, and
// image builder behind one handle. All methods are safe for concurrent use;
// worker round-trips serialize on the gateway.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger

	runner    worker.Runner
	transport worker.Transport
	cache     *tagcache.Store

	reader      *tags.Reader
	categorizer *series.Categorizer
	orderer     *series.Orderer
	builder     *imaging.Builder
}

// New wires an engine from configuration. The worker process is not spawned
// here; Initialize (called implicitly by every operation) does that on first
// use.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, dicom.Wrap(dicom.ErrConfiguration, "engine", "new", "config required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	engine := &Engine{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "engine"),
	}
	for _, opt := range opts {
		opt(engine)
	}

	if engine.runner == nil {
		var workerOpts []worker.Option
		if engine.transport != nil {
			workerOpts = append(workerOpts, worker.WithTransport(engine.transport))
		}
		client, err := worker.New(cfg, logger, workerOpts...)
		if err != nil {
			return nil, err
		}
		engine.runner = client
	}

	readerOpts := []tags.Option{}
	if cfg.TagCache.Enabled {
		store, err := tagcache.Open(cfg.TagCache.Path)
		if err != nil {
			// A broken cache must never take tag reading down with it.
			engine.logger.Warn("tag cache unavailable, reads go uncached",
				logging.String("path", cfg.TagCache.Path),
				logging.Error(err))
		} else {
			engine.cache = store
			readerOpts = append(readerOpts, tags.WithCache(store))
		}
	}

	engine.reader = tags.NewReader(engine.runner, logger, readerOpts...)
	engine.categorizer = series.NewCategorizer(engine.runner, logger)
	engine.orderer = series.NewOrderer(engine.reader, logger)
	engine.builder = imaging.NewBuilder(engine.runner, logger)
	return engine, nil
}

// Initialize establishes the worker handle ahead of the first operation.
// Optional; operations initialize on demand.
func (e *Engine) Initialize(ctx context.Context) error {
	return e.runner.Initialize(e.correlated(ctx))
}

// Categorize partitions files into named volume groups. Within each group
// the submission order of files is preserved.
func (e *Engine) Categorize(ctx context.Context, files []dicom.File) (map[string][]dicom.File, error) {
	return e.categorizer.Categorize(e.correlated(ctx), files)
}

// ReadTags resolves tag specs against a single file, keyed by spec name.
// Tags the file does not carry are omitted from the result.
func (e *Engine) ReadTags(ctx context.Context, file dicom.File, specs []dicom.TagSpec) (map[string]string, error) {
	return e.reader.Read(e.correlated(ctx), file, specs)
}

// OrderByInstance sorts the files of one volume group by instance number.
func (e *Engine) OrderByInstance(ctx context.Context, files []dicom.File) ([]dicom.File, error) {
	return e.orderer.OrderByInstance(e.correlated(ctx), files)
}

// GetSlice reconstructs a single 2D slice image. thumbnail requests a
// reduced-precision raster.
func (e *Engine) GetSlice(ctx context.Context, file dicom.File, thumbnail bool) (*imaging.Image, error) {
	return e.builder.Slice(e.correlated(ctx), file, thumbnail)
}

// BuildVolume orders the files of one volume group by instance number and
// reconstructs the 3D volume image from the ordered sequence.
func (e *Engine) BuildVolume(ctx context.Context, volumeID string, files []dicom.File) (*imaging.Image, error) {
	ctx = dicom.WithVolumeID(e.correlated(ctx), volumeID)

	ordered, err := e.orderer.OrderByInstance(ctx, files)
	if err != nil {
		return nil, err
	}
	return e.builder.Volume(ctx, ordered)
}

// Close releases the worker handle and the tag cache. The engine may be
// reused afterwards; the next operation bootstraps the worker again.
func (e *Engine) Close() error {
	var first error
	if closer, ok := e.runner.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			first = err
		}
	}
	if e.cache != nil {
		if err := e.cache.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// correlated stamps a request ID on the context unless the caller supplied
// one already.
func (e *Engine) correlated(ctx context.Context) context.Context {
	if _, ok := dicom.RequestIDFromContext(ctx); ok {
		return ctx
	}
	return dicom.WithRequestID(ctx, uuid.NewString())
}
