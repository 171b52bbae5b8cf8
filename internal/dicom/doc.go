// Package dicom defines the core value types shared across the engine: files,
// tag descriptors, well-known tag codes, the error taxonomy, and context
// annotation helpers used by structured logging.
//
// The package deliberately contains no decoding logic. Byte-level parsing of
// the DICOM format is owned by the external worker subsystem; everything here
// is plain data that travels between the engine and its callers.
package dicom
