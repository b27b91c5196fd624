// Package storage provides the versioned key-value storage interface the
// conflict engine depends on, plus an in-memory implementation. Every value
// carries the vector clock of the write that produced it; remote versions
// received from peers are parked in a pending set until a resolution pass
// merges them.
package storage
