package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dicomstack/internal/dicom"
)

// loadFiles reads slice files from the given arguments. A directory argument
// contributes every .dcm file directly inside it, in name order; a file
// argument is taken as-is regardless of extension.
func loadFiles(args []string) ([]dicom.File, error) {
	var files []dicom.File
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			file, err := loadFile(arg)
			if err != nil {
				return nil, err
			}
			files = append(files, file)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", arg, err)
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if !strings.EqualFold(filepath.Ext(entry.Name()), ".dcm") {
				continue
			}
			names = append(names, entry.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			file, err := loadFile(filepath.Join(arg, name))
			if err != nil {
				return nil, err
			}
			files = append(files, file)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no slice files found in %s", strings.Join(args, ", "))
	}
	return files, nil
}

func loadFile(path string) (dicom.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dicom.File{}, fmt.Errorf("read %s: %w", path, err)
	}
	return dicom.File{Name: filepath.Base(path), Data: data}, nil
}
