package worker

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Wire protocol: each message is a uint32 big-endian length prefix followed
// by a deterministic-CBOR body. Binary payloads inside the body are
// zstd-compressed. The same framing is used in both directions.

// Request kinds distinguish the generic task channel from the dedicated
// tag-reading call.
const (
	RequestKindTask     = "task"
	RequestKindReadTags = "read_tags"
)

// Request is the wire form of one submission to the worker.
type Request struct {
	ID       string       `cbor:"id"`
	Kind     string       `cbor:"kind"`
	Task     string       `cbor:"task,omitempty"`
	Args     []string     `cbor:"args,omitempty"`
	Inputs   []WireInput  `cbor:"inputs,omitempty"`
	Outputs  []WireOutput `cbor:"outputs,omitempty"`
	TagCodes []string     `cbor:"tag_codes,omitempty"`
}

// WireInput is one typed input payload. Data is zstd-compressed.
type WireInput struct {
	Path string `cbor:"path"`
	Kind string `cbor:"kind"`
	Data []byte `cbor:"data,omitempty"`
	Text string `cbor:"text,omitempty"`
}

// WireOutput describes one requested output.
type WireOutput struct {
	Path string `cbor:"path"`
	Kind string `cbor:"kind"`
}

// WireOutputResult is one produced output. Data is zstd-compressed.
type WireOutputResult struct {
	Path string `cbor:"path"`
	Kind string `cbor:"kind"`
	Data []byte `cbor:"data,omitempty"`
	Text string `cbor:"text,omitempty"`
}

// Response is the wire form of the worker's reply.
type Response struct {
	ID      string             `cbor:"id"`
	OK      bool               `cbor:"ok"`
	Error   string             `cbor:"error,omitempty"`
	Outputs []WireOutputResult `cbor:"outputs,omitempty"`
	Tags    map[string]string  `cbor:"tags,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	// Core Deterministic Encoding so identical messages produce identical
	// bytes regardless of which side builds them.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("worker: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("worker: CBOR decoder initialization failed: " + err.Error())
	}
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("worker: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("worker: zstd decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v using the protocol's deterministic CBOR mode. Exposed so
// adjacent packages encode protocol payloads (image frames, fakes in tests)
// without importing the CBOR library directly.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes protocol CBOR into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// EncodeRequest marshals a request body (no length prefix).
func EncodeRequest(req Request) ([]byte, error) {
	return encMode.Marshal(req)
}

// DecodeRequest unmarshals a request body.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := decMode.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

// EncodeResponse marshals a response body (no length prefix).
func EncodeResponse(resp Response) ([]byte, error) {
	return encMode.Marshal(resp)
}

// DecodeResponse unmarshals a response body.
func DecodeResponse(data []byte) (Response, error) {
	var resp Response
	if err := decMode.Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// Compress returns the zstd-compressed form of data. Nil input stays nil so
// absent payloads do not grow a frame.
func Compress(data []byte) []byte {
	if data == nil {
		return nil
	}
	return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2+64))
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}
	return out, nil
}

// WriteFrame writes one length-prefixed message body to w.
func WriteFrame(w io.Writer, body []byte, maxFrame int) error {
	if maxFrame > 0 && len(body) > maxFrame {
		return fmt.Errorf("frame of %d bytes exceeds limit of %d", len(body), maxFrame)
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(body)))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed message body from r.
func ReadFrame(r io.Reader, maxFrame int) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("read frame length: %w", err)
	}
	length := binary.BigEndian.Uint32(prefix[:])
	if maxFrame > 0 && int(length) > maxFrame {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit of %d", length, maxFrame)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return body, nil
}

// ErrStreamPoisoned marks a transport whose request/reply stream can no
// longer be trusted (for example after a cancellation abandoned a reply
// mid-frame). The process must be respawned.
var ErrStreamPoisoned = errors.New("worker stream poisoned")
