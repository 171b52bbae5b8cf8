// Command dicomstack organizes directories of DICOM slice files into
// volumes, reads tags, orders slices, and reconstructs slice or volume
// images through the decoding worker.
package main
