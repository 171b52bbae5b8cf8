package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"dicomstack/internal/dicom"
	"dicomstack/internal/engine"
)

// defaultTagSpecs is what the tags command reads when the caller names no
// tags and no preset.
var defaultTagSpecs = []dicom.TagSpec{
	{Name: "PatientName", Code: dicom.TagCodePatientName},
	{Name: "SeriesDescription", Code: dicom.TagCodeSeriesDescription},
	{Name: "InstanceNumber", Code: dicom.TagCodeInstanceNumber},
}

func newTagsCommand(cmdCtx *commandContext) *cobra.Command {
	var tagFlags []string
	var presetPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "tags <file>",
		Short: "Read tag values from one slice file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := resolveTagSpecs(tagFlags, presetPath)
			if err != nil {
				return err
			}
			file, err := loadFile(args[0])
			if err != nil {
				return err
			}
			return cmdCtx.withEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
				values, err := eng.ReadTags(ctx, file, specs)
				if err != nil {
					return err
				}

				if jsonOutput {
					return writeJSON(cmd, values)
				}

				rows := make([][]string, 0, len(specs))
				for _, spec := range specs {
					value, ok := values[spec.Name]
					if !ok {
						value = "(absent)"
					}
					rows = append(rows, []string{spec.Name, spec.Code, value})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Tag", "Code", "Value"}, rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&tagFlags, "tag", nil, "Tag to read as Name=group|element (repeatable)")
	cmd.Flags().StringVar(&presetPath, "preset", "", "YAML file listing tags to read")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

// resolveTagSpecs merges explicit --tag flags with an optional preset file.
// Explicit flags win on name collisions.
func resolveTagSpecs(tagFlags []string, presetPath string) ([]dicom.TagSpec, error) {
	var specs []dicom.TagSpec

	if presetPath != "" {
		data, err := os.ReadFile(presetPath)
		if err != nil {
			return nil, fmt.Errorf("read preset %s: %w", presetPath, err)
		}
		if err := yaml.Unmarshal(data, &specs); err != nil {
			return nil, fmt.Errorf("parse preset %s: %w", presetPath, err)
		}
	}

	for _, flag := range tagFlags {
		name, code, ok := strings.Cut(flag, "=")
		name = strings.TrimSpace(name)
		code = strings.TrimSpace(code)
		if !ok || name == "" || code == "" {
			return nil, fmt.Errorf("invalid --tag %q, expected Name=group|element", flag)
		}
		replaced := false
		for i := range specs {
			if specs[i].Name == name {
				specs[i].Code = code
				replaced = true
				break
			}
		}
		if !replaced {
			specs = append(specs, dicom.TagSpec{Name: name, Code: code})
		}
	}

	if len(specs) == 0 {
		specs = append(specs, defaultTagSpecs...)
	}

	for _, spec := range specs {
		if strings.TrimSpace(spec.Name) == "" || strings.TrimSpace(spec.Code) == "" {
			return nil, fmt.Errorf("tag spec %+v is missing a name or code", spec)
		}
	}
	sort.SliceStable(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs, nil
}
