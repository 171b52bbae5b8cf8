package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFilesFromDirectory(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"b.dcm":     "bravo",
		"a.dcm":     "alpha",
		"notes.txt": "ignored",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := loadFiles([]string{dir})
	if err != nil {
		t.Fatalf("loadFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected two .dcm files, got %v", files)
	}
	if files[0].Name != "a.dcm" || files[1].Name != "b.dcm" {
		t.Fatalf("expected name order, got %v", files)
	}
	if string(files[0].Data) != "alpha" {
		t.Fatalf("content not loaded: %q", files[0].Data)
	}
}

func TestLoadFilesExplicitFileKeepsAnyExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.ima")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	files, err := loadFiles([]string{path})
	if err != nil {
		t.Fatalf("loadFiles failed: %v", err)
	}
	if len(files) != 1 || files[0].Name != "scan.ima" {
		t.Fatalf("unexpected files: %v", files)
	}
}

func TestLoadFilesEmptyDirectoryFails(t *testing.T) {
	if _, err := loadFiles([]string{t.TempDir()}); err == nil {
		t.Fatal("expected error for directory without slice files")
	}
}

func TestLoadFilesMissingPathFails(t *testing.T) {
	if _, err := loadFiles([]string{filepath.Join(t.TempDir(), "absent")}); err == nil {
		t.Fatal("expected error for missing path")
	}
}
