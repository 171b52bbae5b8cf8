package worker

// InputKind classifies a task input payload.
type InputKind string

const (
	// InputBinary is an opaque byte payload keyed by a path-like identifier.
	InputBinary InputKind = "binary"
	// InputText is a free-text payload.
	InputText InputKind = "text"
)

// OutputKind classifies a requested task output.
type OutputKind string

const (
	// OutputBinary is an opaque byte result.
	OutputBinary OutputKind = "binary"
	// OutputImage is an encoded image frame (2D slice or 3D volume).
	OutputImage OutputKind = "image"
	// OutputText is a text-stream result.
	OutputText OutputKind = "text"
)

// Input is one typed task input.
type Input struct {
	Path string
	Kind InputKind
	Data []byte
	Text string
}

// BinaryInput builds a binary input keyed by the given identifier.
func BinaryInput(path string, data []byte) Input {
	return Input{Path: path, Kind: InputBinary, Data: data}
}

// TextInput builds a free-text input keyed by the given identifier.
func TextInput(path, text string) Input {
	return Input{Path: path, Kind: InputText, Text: text}
}

// Output describes one requested task output.
type Output struct {
	Path string
	Kind OutputKind
}

// Task is a named unit of work submitted to the worker: positional string
// arguments plus typed inputs and requested outputs.
type Task struct {
	Name    string
	Args    []string
	Inputs  []Input
	Outputs []Output
}

// OutputResult is one produced task output.
type OutputResult struct {
	Path string
	Kind OutputKind
	Data []byte
	Text string
}

// TaskResult carries the outputs of a completed task.
type TaskResult struct {
	Outputs []OutputResult
}

// Text returns the text output stored under path, if present.
func (r *TaskResult) Text(path string) (string, bool) {
	for _, out := range r.Outputs {
		if out.Path == path && out.Kind == OutputText {
			return out.Text, true
		}
	}
	return "", false
}

// Binary returns the byte output stored under path, if present. Image
// outputs are byte payloads too and are returned by this accessor.
func (r *TaskResult) Binary(path string) ([]byte, bool) {
	for _, out := range r.Outputs {
		if out.Path == path && out.Kind != OutputText {
			return out.Data, true
		}
	}
	return nil, false
}
