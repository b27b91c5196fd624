// Package conflict classifies a local version against the remote versions
// known for the same key: causally dominated remotes are noise, a strictly
// newer remote is a fast-forward, and a concurrent remote is a true write
// conflict that needs a resolution strategy.
package conflict
