package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dicomstack/internal/engine"
	"dicomstack/internal/fileutil"
	"dicomstack/internal/imaging"
)

func newSliceCommand(cmdCtx *commandContext) *cobra.Command {
	var outputPath string
	var thumbnail bool

	cmd := &cobra.Command{
		Use:   "slice <file>",
		Short: "Reconstruct one 2D slice image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := loadFile(args[0])
			if err != nil {
				return err
			}
			return cmdCtx.withEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
				image, err := eng.GetSlice(ctx, file, thumbnail)
				if err != nil {
					return err
				}
				return writeImage(cmd, image, outputPath)
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination file for the encoded image")
	cmd.Flags().BoolVar(&thumbnail, "thumbnail", false, "Reduced-precision preview raster")
	return cmd
}

func newVolumeCommand(cmdCtx *commandContext) *cobra.Command {
	var outputPath string
	var volumeID string

	cmd := &cobra.Command{
		Use:   "volume <path>...",
		Short: "Order one volume's slices and reconstruct its 3D image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := loadFiles(args)
			if err != nil {
				return err
			}
			return cmdCtx.withEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
				image, err := eng.BuildVolume(ctx, volumeID, files)
				if err != nil {
					return err
				}
				return writeImage(cmd, image, outputPath)
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination file for the encoded image")
	cmd.Flags().StringVar(&volumeID, "volume-id", "volume", "Identifier used in logs for this volume")
	return cmd
}

// writeImage persists the encoded image when an output path was given and
// prints a geometry summary either way.
func writeImage(cmd *cobra.Command, image *imaging.Image, outputPath string) error {
	if outputPath != "" {
		frame, err := imaging.EncodeFrame(imaging.Frame{
			Dims:      image.Dims,
			PixelType: image.PixelType,
			Size:      image.Spatial.Size,
			Spacing:   image.Spatial.Spacing,
			Origin:    image.Spatial.Origin,
			Direction: image.Spatial.Direction,
			Pixels:    image.Pixels,
		})
		if err != nil {
			return fmt.Errorf("encode image: %w", err)
		}
		if err := fileutil.WriteFileAtomic(outputPath, frame, 0o644); err != nil {
			return fmt.Errorf("write image: %w", err)
		}
	}

	size := make([]string, len(image.Spatial.Size))
	for i, extent := range image.Spatial.Size {
		size[i] = fmt.Sprintf("%d", extent)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%dD %s image, size %s, %d pixel bytes\n",
		image.Dims, image.PixelType, strings.Join(size, "x"), len(image.Pixels))
	if outputPath != "" {
		fmt.Fprintf(out, "Wrote %s\n", outputPath)
	}
	return nil
}
