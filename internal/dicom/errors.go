package dicom

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInit marks a backend bootstrap failure. It is fatal to all
	// subsequent operations until the engine is re-initialized.
	ErrInit = errors.New("backend initialization error")

	// ErrBackendUnavailable marks an operation attempted without a live
	// backend handle.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrTask marks a backend-reported or transport-level failure for one
	// submitted task. It does not poison the backend connection state.
	ErrTask = errors.New("task execution error")

	// ErrRead marks a tag read failure. Missing individual tags are not
	// errors; only transport or backend failures carry this marker.
	ErrRead = errors.New("tag read error")

	// ErrCategorize marks a failed or malformed series categorization.
	ErrCategorize = errors.New("categorize error")

	// ErrOrder marks a failed instance ordering pass.
	ErrOrder = errors.New("order error")

	// ErrBuild marks a failed slice or volume reconstruction.
	ErrBuild = errors.New("build error")

	// ErrConfiguration marks unusable engine configuration.
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation marks malformed caller input.
	ErrValidation = errors.New("validation error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTask
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "engine failure"
	}
	return strings.Join(parts, ": ")
}
