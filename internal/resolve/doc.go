// Package resolve implements the interchangeable strategies that reduce a
// conflicting set of versions to a single resolution outcome: keep the
// local version, keep a chosen remote, keep both under a derived key, or
// hand the set to the AI merger.
package resolve
