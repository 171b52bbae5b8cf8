package dicom

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	volumeIDKey  contextKey = "volume_id"
	fileNameKey  contextKey = "file_name"
)

// WithRequestID annotates context with a task correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithVolumeID annotates context with the volume group key being processed.
func WithVolumeID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, volumeIDKey, id)
}

// VolumeIDFromContext returns the volume group key if present.
func VolumeIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(volumeIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithFileName annotates context with the caller-facing file name.
func WithFileName(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, fileNameKey, name)
}

// FileNameFromContext returns the caller-facing file name if present.
func FileNameFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(fileNameKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
