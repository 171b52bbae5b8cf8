package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dicomstack/internal/config"
	"dicomstack/internal/dicom"
	"dicomstack/internal/engine"
	"dicomstack/internal/logging"
	"dicomstack/internal/testsupport"
	"dicomstack/internal/worker"
)

// newTestCommandContext wires a command context whose engine talks to a
// scripted transport instead of a spawned worker.
func newTestCommandContext(t *testing.T, handle func(worker.Request) worker.Response) *commandContext {
	t.Helper()
	cfg := testsupport.NewConfig(t)

	flag := ""
	ctx := newCommandContext(&flag)
	ctx.configOnce.Do(func() { ctx.config = cfg })
	ctx.newEngine = func(cfg *config.Config) (*engine.Engine, error) {
		transport := &testsupport.FakeTransport{Handle: handle}
		return engine.New(cfg, logging.NewNop(), engine.WithTransport(transport))
	}
	return ctx
}

func writeSliceFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestCategorizeCommandJSON(t *testing.T) {
	handle := func(req worker.Request) worker.Response {
		if req.Kind == worker.RequestKindReadTags {
			return worker.Response{ID: req.ID, OK: true}
		}
		// Split the submitted identifiers into two volumes.
		return worker.Response{ID: req.ID, OK: true, Outputs: []worker.WireOutputResult{
			{Path: "volumes.json", Kind: "text", Text: `{"head": ["0"], "abdomen": ["1", "2"]}`},
		}}
	}

	dir := writeSliceFiles(t, "a.dcm", "b.dcm", "c.dcm")
	cmd := newCategorizeCommand(newTestCommandContext(t, handle))

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{dir, "--json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("categorize failed: %v", err)
	}

	var groups map[string][]string
	if err := json.Unmarshal(out.Bytes(), &groups); err != nil {
		t.Fatalf("not JSON: %v\n%s", err, out.String())
	}
	if len(groups["head"]) != 1 || groups["head"][0] != "a.dcm" {
		t.Fatalf("unexpected grouping: %v", groups)
	}
	if len(groups["abdomen"]) != 2 {
		t.Fatalf("unexpected grouping: %v", groups)
	}
}

func TestOrderCommandTableOutput(t *testing.T) {
	instances := map[string]string{"a.dcm": "2", "b.dcm": "1"}
	handle := func(req worker.Request) worker.Response {
		if req.Kind != worker.RequestKindReadTags {
			return worker.Response{ID: req.ID, OK: false, Error: "unexpected task"}
		}
		if len(req.Inputs) == 0 {
			return worker.Response{ID: req.ID, OK: true}
		}
		tags := map[string]string{}
		if value, ok := instances[req.Inputs[0].Path]; ok {
			tags[dicom.TagCodeInstanceNumber] = value
		}
		return worker.Response{ID: req.ID, OK: true, Tags: tags}
	}

	dir := writeSliceFiles(t, "a.dcm", "b.dcm")
	cmd := newOrderCommand(newTestCommandContext(t, handle))

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{dir})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("order failed: %v", err)
	}

	rendered := out.String()
	if !strings.Contains(rendered, "b.dcm") || !strings.Contains(rendered, "Position") {
		t.Fatalf("unexpected output:\n%s", rendered)
	}
	if strings.Index(rendered, "b.dcm") > strings.Index(rendered, "a.dcm") {
		t.Fatalf("instance order not reflected:\n%s", rendered)
	}
}

func TestRootCommandListsSubcommands(t *testing.T) {
	root := newRootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--help"})
	if err := root.Execute(); err != nil {
		t.Fatalf("help failed: %v", err)
	}

	for _, name := range []string{"categorize", "order", "tags", "slice", "volume", "config"} {
		if !strings.Contains(out.String(), name) {
			t.Fatalf("help output missing %q:\n%s", name, out.String())
		}
	}
}
