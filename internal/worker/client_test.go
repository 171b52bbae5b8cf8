package worker_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"dicomstack/internal/dicom"
	"dicomstack/internal/logging"
	"dicomstack/internal/testsupport"
	"dicomstack/internal/worker"
)

func newClient(t *testing.T, transport worker.Transport, opts ...testsupport.ConfigOption) *worker.Client {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	client, err := worker.New(cfg, logging.NewNop(), worker.WithTransport(transport))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestInitializeIsSingleFlight(t *testing.T) {
	release := make(chan struct{})
	transport := &testsupport.FakeTransport{StartDelay: release}
	client := newClient(t, transport)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Initialize(context.Background())
		}(i)
	}
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d saw error: %v", i, err)
		}
	}
	if transport.Starts() != 1 {
		t.Fatalf("expected exactly one bootstrap, got %d", transport.Starts())
	}

	// A later call reuses the cached outcome.
	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("repeat initialize failed: %v", err)
	}
	if transport.Starts() != 1 {
		t.Fatalf("repeat initialize re-bootstrapped: %d starts", transport.Starts())
	}
}

func TestInitializeFailureSharedByAllCallers(t *testing.T) {
	transport := &testsupport.FakeTransport{StartErr: errors.New("spawn failed")}
	client := newClient(t, transport)

	first := client.Initialize(context.Background())
	second := client.Initialize(context.Background())

	for _, err := range []error{first, second} {
		if !errors.Is(err, dicom.ErrInit) {
			t.Fatalf("expected ErrInit, got %v", err)
		}
	}
	// The second observation must come from the cached outcome, not a
	// new bootstrap.
	if transport.Starts() != 1 {
		t.Fatalf("failed bootstrap must be cached, got %d starts", transport.Starts())
	}
}

func TestInitializeExportsDiscoveryEndpoints(t *testing.T) {
	transport := &testsupport.FakeTransport{}
	client := newClient(t, transport, testsupport.WithDiscoveryEndpoints("https://a.example", "https://b.example"))

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, entry := range transport.Env() {
		if entry == "DICOMSTACK_ENDPOINTS=https://a.example,https://b.example" {
			found = true
		}
	}
	if !found {
		t.Fatalf("endpoints not exported: %v", transport.Env())
	}
}

func TestWarmUpFailureDoesNotFailInitialize(t *testing.T) {
	transport := &testsupport.FakeTransport{
		Handle: func(req worker.Request) worker.Response {
			if req.Kind == worker.RequestKindReadTags && len(req.Inputs) == 0 {
				return worker.Response{ID: req.ID, OK: false, Error: "decoder still loading"}
			}
			return worker.Response{ID: req.ID, OK: true}
		},
	}
	client := newClient(t, transport)

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("warm-up failure must be swallowed, got %v", err)
	}
}

func TestRunTaskBeforeInitialize(t *testing.T) {
	client := newClient(t, &testsupport.FakeTransport{})
	_, err := client.RunTask(context.Background(), worker.Task{Name: "categorize"})
	if !errors.Is(err, dicom.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestRunTaskSanitizesIdentifiersAndRoundTrips(t *testing.T) {
	var seen worker.Request
	transport := &testsupport.FakeTransport{
		Handle: func(req worker.Request) worker.Response {
			if req.Kind != worker.RequestKindTask {
				return worker.Response{ID: req.ID, OK: true}
			}
			seen = req
			return worker.Response{
				ID: req.ID,
				OK: true,
				Outputs: []worker.WireOutputResult{
					{Path: "volumes.json", Kind: string(worker.OutputText), Text: `{"v0":["0"]}`},
				},
			}
		},
	}
	client := newClient(t, transport)
	if err := client.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	result, err := client.RunTask(context.Background(), worker.Task{
		Name:    "categorize",
		Args:    []string{"categorize", "0"},
		Inputs:  []worker.Input{worker.BinaryInput("study/slice 01.dcm", []byte("bytes"))},
		Outputs: []worker.Output{{Path: "volumes.json", Kind: worker.OutputText}},
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	if len(seen.Inputs) != 1 || seen.Inputs[0].Path != "study_slice 01.dcm" {
		t.Fatalf("identifier not sanitized: %+v", seen.Inputs)
	}
	payload, err := worker.Decompress(seen.Inputs[0].Data)
	if err != nil || string(payload) != "bytes" {
		t.Fatalf("payload not compressed in transit: %q %v", payload, err)
	}
	text, ok := result.Text("volumes.json")
	if !ok || text != `{"v0":["0"]}` {
		t.Fatalf("text output lost: %q %v", text, ok)
	}
}

func TestRunTaskWorkerFailureWrapsErrTask(t *testing.T) {
	transport := &testsupport.FakeTransport{
		Handle: func(req worker.Request) worker.Response {
			if req.Kind == worker.RequestKindTask {
				return worker.Response{ID: req.ID, OK: false, Error: "unsupported transfer syntax"}
			}
			return worker.Response{ID: req.ID, OK: true}
		},
	}
	client := newClient(t, transport)
	if err := client.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := client.RunTask(context.Background(), worker.Task{Name: "getSliceImage"})
	if !errors.Is(err, dicom.ErrTask) {
		t.Fatalf("expected ErrTask, got %v", err)
	}
	if !strings.Contains(err.Error(), "unsupported transfer syntax") {
		t.Fatalf("worker message lost: %v", err)
	}
}

func TestRunTaskRejectsMismatchedResponseID(t *testing.T) {
	transport := &testsupport.FakeTransport{
		Handle: func(req worker.Request) worker.Response {
			if req.Kind == worker.RequestKindTask {
				return worker.Response{ID: "someone-else", OK: true}
			}
			return worker.Response{ID: req.ID, OK: true}
		},
	}
	client := newClient(t, transport)
	if err := client.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := client.RunTask(context.Background(), worker.Task{Name: "categorize"})
	if err == nil || !strings.Contains(err.Error(), "does not match request id") {
		t.Fatalf("expected id mismatch error, got %v", err)
	}
}

func TestReadTagsReturnsWorkerPairs(t *testing.T) {
	transport := &testsupport.FakeTransport{
		Handle: func(req worker.Request) worker.Response {
			if req.Kind == worker.RequestKindReadTags && len(req.Inputs) == 1 {
				return worker.Response{ID: req.ID, OK: true, Tags: map[string]string{"0020|0013": "7"}}
			}
			return worker.Response{ID: req.ID, OK: true}
		},
	}
	client := newClient(t, transport)
	if err := client.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	tags, err := client.ReadTags(context.Background(), "a/b.dcm", []byte("bytes"), []string{"0020|0013", "9999|9999"})
	if err != nil {
		t.Fatalf("ReadTags failed: %v", err)
	}
	if tags["0020|0013"] != "7" {
		t.Fatalf("unexpected tags: %v", tags)
	}
	if _, ok := tags["9999|9999"]; ok {
		t.Fatal("missing tag must be omitted, not empty")
	}
}

func TestCloseResetsInitializeGuard(t *testing.T) {
	transport := &testsupport.FakeTransport{}
	client := newClient(t, transport)

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("re-initialize after Close failed: %v", err)
	}
	if transport.Starts() != 2 {
		t.Fatalf("expected a fresh bootstrap after Close, got %d starts", transport.Starts())
	}
}
