// Package worker owns the connection to the external DICOM decoding worker
// and the task protocol spoken over it.
//
// The worker is an opaque subprocess that performs byte-level DICOM parsing,
// tag extraction, and pixel reconstruction. This package spawns it lazily on
// first use (single-flight, so concurrent initializers share one bootstrap
// attempt), frames requests as length-prefixed deterministic CBOR over the
// worker's stdio, and compresses binary payloads with zstd in transit.
//
// The worker processes one task at a time; Client serializes submissions
// accordingly. Higher-level components (categorizer, tag reader, image
// builder) depend only on the narrow Runner interface, which a scripted fake
// satisfies in tests.
package worker
