package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dicomstack/internal/dicom"
	"dicomstack/internal/logging"
)

func TestNewJSONWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "engine.log")

	logger, err := logging.New(logging.Options{
		Level:       "debug",
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("categorized series", logging.Int("groups", 2))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, data)
	}
	if record["msg"] != "categorized series" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
	if record["level"] != "info" {
		t.Fatalf("unexpected level: %v", record["level"])
	}
	if record["groups"] != float64(2) {
		t.Fatalf("unexpected groups attr: %v", record["groups"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestConsoleFormatRendersAttrs(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "console.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "worker")
	logger.Warn("warm-up probe failed", logging.String("reason", "no response"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	if !strings.Contains(line, "WARN") {
		t.Fatalf("missing level: %q", line)
	}
	if !strings.Contains(line, "component=worker") {
		t.Fatalf("missing component attr: %q", line)
	}
	if !strings.Contains(line, `reason="no response"`) {
		t.Fatalf("missing quoted attr: %q", line)
	}
}

func TestWithContextTagsIdentity(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "ctx.log")

	base, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatal(err)
	}

	ctx := dicom.WithRequestID(context.Background(), "req-1")
	ctx = dicom.WithVolumeID(ctx, "vol-7")
	ctx = dicom.WithFileName(ctx, "a/b.dcm")

	logging.WithContext(ctx, base).Info("ordering volume")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatal(err)
	}
	if record[logging.FieldCorrelationID] != "req-1" {
		t.Fatalf("missing correlation id: %v", record)
	}
	if record[logging.FieldVolumeID] != "vol-7" {
		t.Fatalf("missing volume id: %v", record)
	}
	if record[logging.FieldFileName] != "a/b.dcm" {
		t.Fatalf("missing file name: %v", record)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("must not panic", logging.Error(nil))
	if logging.WithContext(context.Background(), nil) == nil {
		t.Fatal("WithContext must return a usable logger")
	}
}
