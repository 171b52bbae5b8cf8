// Package tags reads metadata tags from slice files through the decoding
// worker.
//
// Reads are permissive: tags the worker cannot find in a file are omitted
// from the result rather than reported as errors, which is the right model
// for files produced by heterogeneous acquisition devices. Only transport or
// worker failures surface as errors.
package tags
