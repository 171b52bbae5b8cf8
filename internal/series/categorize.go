package series

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"dicomstack/internal/dicom"
	"dicomstack/internal/logging"
	"dicomstack/internal/worker"
)

// volumesOutputPath keys the text-stream output carrying the worker's
// grouping verdict: a JSON object mapping volume key to identifier list.
const volumesOutputPath = "volumes.json"

// Categorizer partitions a file set into volume groups via the worker.
type Categorizer struct {
	runner worker.Runner
	logger *slog.Logger
}

// NewCategorizer constructs a categorizer on top of the given task runner.
func NewCategorizer(runner worker.Runner, logger *slog.Logger) *Categorizer {
	return &Categorizer{
		runner: runner,
		logger: logging.NewComponentLogger(logger, "series"),
	}
}

// Categorize submits every file's bytes to the worker under a synthetic
// positional identifier (its index, stringified, which sidesteps name
// collisions in the input set) and rehydrates the returned grouping into
// real file references.
//
// The result is a partition: every input file lands in exactly one group.
// A worker answer that violates that — an unknown identifier, a duplicate,
// or a missing file — is malformed output and fails the whole call; partial
// groupings are never returned.
func (c *Categorizer) Categorize(ctx context.Context, files []dicom.File) (map[string][]dicom.File, error) {
	if err := c.runner.Initialize(ctx); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return map[string][]dicom.File{}, nil
	}

	identifiers := make([]string, len(files))
	inputs := make([]worker.Input, len(files))
	for i, file := range files {
		identifiers[i] = strconv.Itoa(i)
		inputs[i] = worker.BinaryInput(identifiers[i], file.Data)
	}

	task := worker.Task{
		Name:    "categorize",
		Args:    append([]string{"categorize"}, identifiers...),
		Inputs:  inputs,
		Outputs: []worker.Output{{Path: volumesOutputPath, Kind: worker.OutputText}},
	}

	result, err := c.runner.RunTask(ctx, task)
	if err != nil {
		return nil, dicom.Wrap(dicom.ErrCategorize, "series", "categorize", "", err)
	}

	text, ok := result.Text(volumesOutputPath)
	if !ok {
		return nil, dicom.Wrap(dicom.ErrCategorize, "series", "categorize", "worker returned no grouping output", nil)
	}

	var grouping map[string][]string
	if err := json.Unmarshal([]byte(text), &grouping); err != nil {
		return nil, dicom.Wrap(dicom.ErrCategorize, "series", "categorize", "malformed grouping output", err)
	}

	groups, err := rehydrate(grouping, files)
	if err != nil {
		return nil, dicom.Wrap(dicom.ErrCategorize, "series", "categorize", "malformed grouping output", err)
	}

	c.logger.Info("categorized series",
		logging.Int("files", len(files)),
		logging.Int("volumes", len(groups)))
	return groups, nil
}

// rehydrate maps synthetic identifiers back onto the caller's files and
// enforces the partition invariant over the identifier space.
func rehydrate(grouping map[string][]string, files []dicom.File) (map[string][]dicom.File, error) {
	assigned := make([]bool, len(files))
	groups := make(map[string][]dicom.File, len(grouping))
	total := 0

	for volumeKey, identifiers := range grouping {
		group := make([]dicom.File, 0, len(identifiers))
		for _, identifier := range identifiers {
			index, err := strconv.Atoi(identifier)
			// Only the exact spellings handed to the worker count as
			// submitted; Atoi-normalizable variants like "+1" or "01"
			// name nothing.
			if err != nil || strconv.Itoa(index) != identifier {
				return nil, fmt.Errorf("identifier %q was never submitted", identifier)
			}
			if index < 0 || index >= len(files) {
				return nil, fmt.Errorf("identifier %q is out of range", identifier)
			}
			if assigned[index] {
				return nil, fmt.Errorf("identifier %q assigned to more than one volume", identifier)
			}
			assigned[index] = true
			group = append(group, files[index])
			total++
		}
		groups[volumeKey] = group
	}

	if total != len(files) {
		return nil, fmt.Errorf("grouping covers %d of %d files", total, len(files))
	}
	return groups, nil
}
