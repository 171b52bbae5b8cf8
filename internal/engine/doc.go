// Package engine is the public facade of the series organization pipeline.
// It wires the worker gateway, tag reader, categorizer, orderer, and image
// builder into one handle with a small operation surface: categorize files
// into volumes, read tags, order slices, and reconstruct slice or volume
// images.
package engine
