// Package gather fans out to peer sources to collect their versions of a
// key before a conflict check. The actual transport behind a source is an
// external collaborator; this package only owns the parallel fan-out,
// the per-source timeout, and the required-response accounting.
package gather
