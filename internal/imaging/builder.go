package imaging

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"dicomstack/internal/dicom"
	"dicomstack/internal/fileutil"
	"dicomstack/internal/logging"
	"dicomstack/internal/worker"
)

const (
	sliceOutputPath  = "slice.image"
	volumeOutputPath = "volume.image"
)

// Builder requests reconstructed images from the worker.
type Builder struct {
	runner worker.Runner
	logger *slog.Logger
}

// NewBuilder constructs an image builder on top of the given task runner.
func NewBuilder(runner worker.Runner, logger *slog.Logger) *Builder {
	return &Builder{
		runner: runner,
		logger: logging.NewComponentLogger(logger, "imaging"),
	}
}

// Slice reconstructs one 2D image from a single file. thumbnail requests a
// reduced-precision raster suitable for previews.
func (b *Builder) Slice(ctx context.Context, file dicom.File, thumbnail bool) (*Image, error) {
	if err := b.runner.Initialize(ctx); err != nil {
		return nil, err
	}

	identifier := fileutil.SanitizeIdentifier(file.Name)
	task := worker.Task{
		Name: "getSliceImage",
		Args: []string{"getSliceImage", "--thumbnail=" + strconv.FormatBool(thumbnail), identifier},
		Inputs: []worker.Input{
			worker.BinaryInput(file.Name, file.Data),
		},
		Outputs: []worker.Output{{Path: sliceOutputPath, Kind: worker.OutputImage}},
	}

	result, err := b.runner.RunTask(ctx, task)
	if err != nil {
		return nil, dicom.Wrap(dicom.ErrBuild, "imaging", "get slice", file.Name, err)
	}

	image, err := decodeOutput(result, sliceOutputPath, 2)
	if err != nil {
		return nil, dicom.Wrap(dicom.ErrBuild, "imaging", "get slice", file.Name, err)
	}
	return image, nil
}

// Volume reconstructs one 3D image from an already-ordered file sequence.
// The worker is told the input is pre-sorted so its own ordering heuristics
// stay out of the way; slice order was resolved upstream.
func (b *Builder) Volume(ctx context.Context, orderedFiles []dicom.File) (*Image, error) {
	if len(orderedFiles) == 0 {
		return nil, dicom.Wrap(dicom.ErrValidation, "imaging", "build volume", "at least one file required", nil)
	}
	if err := b.runner.Initialize(ctx); err != nil {
		return nil, err
	}

	args := []string{"buildSeriesVolume", "--presorted"}
	inputs := make([]worker.Input, 0, len(orderedFiles))
	for _, file := range orderedFiles {
		args = append(args, fileutil.SanitizeIdentifier(file.Name))
		inputs = append(inputs, worker.BinaryInput(file.Name, file.Data))
	}

	task := worker.Task{
		Name:    "buildSeriesVolume",
		Args:    args,
		Inputs:  inputs,
		Outputs: []worker.Output{{Path: volumeOutputPath, Kind: worker.OutputImage}},
	}

	result, err := b.runner.RunTask(ctx, task)
	if err != nil {
		return nil, dicom.Wrap(dicom.ErrBuild, "imaging", "build volume", "", err)
	}

	image, err := decodeOutput(result, volumeOutputPath, 3)
	if err != nil {
		return nil, dicom.Wrap(dicom.ErrBuild, "imaging", "build volume", "", err)
	}

	b.logger.Info("volume reconstructed",
		logging.Int("slices", len(orderedFiles)),
		logging.String("pixel_type", image.PixelType))
	return image, nil
}

func decodeOutput(result *worker.TaskResult, path string, wantDims int) (*Image, error) {
	data, ok := result.Binary(path)
	if !ok {
		return nil, fmt.Errorf("worker returned no image output under %q", path)
	}
	image, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	if image.Dims != wantDims {
		return nil, fmt.Errorf("expected a %dD image, got %dD", wantDims, image.Dims)
	}
	return image, nil
}
