// Package series owns volume grouping and intra-volume slice ordering.
//
// The categorizer delegates the grouping decision to the decoding worker,
// which inspects file contents rather than names, and rehydrates the
// worker's index-based answer back into caller file references under a
// strict partition invariant. The orderer reconstructs slice order from each
// file's instance number tag with deliberately lenient handling of the messy
// inputs real scanners produce.
package series
