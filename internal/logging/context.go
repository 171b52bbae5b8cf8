package logging

import (
	"context"
	"log/slog"

	"dicomstack/internal/dicom"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldCorrelationID is the standardized structured logging key for task correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldVolumeID is the standardized structured logging key for volume group keys.
	FieldVolumeID = "volume_id"
	// FieldFileName is the standardized structured logging key for caller-facing file names.
	FieldFileName = "file_name"
	// FieldTask is the standardized structured logging key for backend task names.
	FieldTask = "task"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := dicom.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, id))
	}
	if id, ok := dicom.VolumeIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldVolumeID, id))
	}
	if name, ok := dicom.FileNameFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldFileName, name))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
