package series

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"dicomstack/internal/dicom"
	"dicomstack/internal/logging"
)

const instanceNumberName = "InstanceNumber"

// TagReader is the tag lookup capability the orderer depends on.
// *tags.Reader satisfies it.
type TagReader interface {
	Read(ctx context.Context, file dicom.File, specs []dicom.TagSpec) (map[string]string, error)
}

// Orderer reconstructs intra-volume slice order from instance numbers.
type Orderer struct {
	reader TagReader
	logger *slog.Logger
}

// NewOrderer constructs an orderer on top of the given tag reader.
func NewOrderer(reader TagReader, logger *slog.Logger) *Orderer {
	return &Orderer{
		reader: reader,
		logger: logging.NewComponentLogger(logger, "series"),
	}
}

// OrderByInstance returns files reordered by their instance number tag,
// ascending. Lookups run strictly one at a time in scan order; the worker
// serializes requests anyway, and sequential scans keep the collision rule
// below well defined.
//
// Two lenient rules are part of the behavioral contract:
//
//   - A file whose instance number is absent or unparseable is assigned key
//     zero rather than failing the volume. One malformed slice must not
//     abort reconstruction.
//   - When two files carry the same instance number, the later one in scan
//     order replaces the earlier at that key, so the result may be shorter
//     than the input. Series with multi-frame or corrected acquisitions
//     legitimately contain duplicates; which slice should win is a domain
//     decision this engine deliberately does not make.
//
// Ordering is strictly per volume; nothing is implied across volumes.
func (o *Orderer) OrderByInstance(ctx context.Context, files []dicom.File) ([]dicom.File, error) {
	byKey := make(map[int]dicom.File, len(files))
	spec := []dicom.TagSpec{{Name: instanceNumberName, Code: dicom.TagCodeInstanceNumber}}

	for _, file := range files {
		fileCtx := dicom.WithFileName(ctx, file.Name)
		values, err := o.reader.Read(fileCtx, file, spec)
		if err != nil {
			return nil, dicom.Wrap(dicom.ErrOrder, "series", "order by instance", file.Name, err)
		}

		key := 0
		if raw, ok := values[instanceNumberName]; ok {
			parsed, parseErr := strconv.Atoi(strings.TrimSpace(raw))
			if parseErr == nil {
				key = parsed
			} else {
				logging.WithContext(fileCtx, o.logger).Debug("unparseable instance number",
					logging.String("value", raw))
			}
		}

		if previous, exists := byKey[key]; exists {
			logging.WithContext(fileCtx, o.logger).Warn("duplicate instance number",
				logging.Int("instance", key),
				logging.String("replaced", previous.Name),
				logging.String("impact", "earlier slice dropped from the ordered volume"))
		}
		byKey[key] = file
	}

	keys := make([]int, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	ordered := make([]dicom.File, 0, len(keys))
	for _, key := range keys {
		ordered = append(ordered, byKey[key])
	}
	return ordered, nil
}
