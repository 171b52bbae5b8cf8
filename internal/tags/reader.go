package tags

import (
	"context"
	"log/slog"

	"dicomstack/internal/dicom"
	"dicomstack/internal/fileutil"
	"dicomstack/internal/logging"
	"dicomstack/internal/worker"
)

// Cache stores previously read tag values keyed by file content hash and tag
// code. It is purely an acceleration; a nil cache changes nothing but speed.
type Cache interface {
	Get(contentKey, code string) (value string, ok bool, err error)
	Put(contentKey, code, value string) error
}

// Option configures the reader.
type Option func(*Reader)

// WithCache attaches a read-through tag cache.
func WithCache(cache Cache) Option {
	return func(r *Reader) {
		r.cache = cache
	}
}

// Reader resolves tag specs against slice files via the worker.
type Reader struct {
	runner worker.Runner
	cache  Cache
	logger *slog.Logger
}

// NewReader constructs a tag reader on top of the given task runner.
func NewReader(runner worker.Runner, logger *slog.Logger, opts ...Option) *Reader {
	reader := &Reader{
		runner: runner,
		logger: logging.NewComponentLogger(logger, "tags"),
	}
	for _, opt := range opts {
		opt(reader)
	}
	return reader
}

// Read returns a mapping from each spec's caller-facing name to the tag
// value found in file. Tags absent from the file are omitted. The mapping is
// built exclusively from the Name half of each spec; tag codes never leak
// into results.
func (r *Reader) Read(ctx context.Context, file dicom.File, specs []dicom.TagSpec) (map[string]string, error) {
	if err := r.runner.Initialize(ctx); err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(specs)+1)
	seen := make(map[string]struct{}, len(specs)+1)
	for _, spec := range specs {
		if _, ok := seen[spec.Code]; ok {
			continue
		}
		seen[spec.Code] = struct{}{}
		codes = append(codes, spec.Code)
	}
	// The character set tag rides along on every read so values can be
	// transcoded; it is only surfaced when explicitly requested.
	if _, ok := seen[dicom.TagCodeSpecificCharacterSet]; !ok {
		codes = append(codes, dicom.TagCodeSpecificCharacterSet)
	}

	values, err := r.lookup(ctx, file, codes)
	if err != nil {
		return nil, err
	}

	if charset, ok := values[dicom.TagCodeSpecificCharacterSet]; ok {
		values = transcodeValues(values, charset)
	}

	result := make(map[string]string, len(specs))
	for _, spec := range specs {
		if value, ok := values[spec.Code]; ok {
			result[spec.Name] = value
		}
	}
	return result, nil
}

// lookup serves codes from the cache when every requested code is present,
// falling back to one worker round-trip otherwise. Missing tags are never
// negatively cached; heterogeneous files make absence too fragile a fact to
// memoize. The ride-along character set code is exempt from the completeness
// check: files without one would otherwise never hit the cache.
func (r *Reader) lookup(ctx context.Context, file dicom.File, codes []string) (map[string]string, error) {
	var contentKey string
	if r.cache != nil {
		contentKey = fileutil.ContentKey(file.Data)
		cached := make(map[string]string, len(codes))
		complete := true
		for _, code := range codes {
			value, ok, err := r.cache.Get(contentKey, code)
			if err != nil {
				logging.WithContext(ctx, r.logger).Warn("tag cache read failed",
					logging.Error(err),
					logging.String("impact", "falling back to worker read"))
				complete = false
				break
			}
			if !ok {
				if code == dicom.TagCodeSpecificCharacterSet {
					continue
				}
				complete = false
				break
			}
			cached[code] = value
		}
		if complete {
			return cached, nil
		}
	}

	values, err := r.runner.ReadTags(ctx, file.Name, file.Data, codes)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		for code, value := range values {
			if err := r.cache.Put(contentKey, code, value); err != nil {
				logging.WithContext(ctx, r.logger).Warn("tag cache write failed",
					logging.Error(err),
					logging.String("impact", "value will be re-read next time"))
				break
			}
		}
	}
	return values, nil
}
