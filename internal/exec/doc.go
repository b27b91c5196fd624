// Package exec is the execution side of the conflict engine. Tasks are
// assembled through a stepwise builder whose terminal step refuses to run
// unless the conflict check step was called, and the engine itself only
// accepts memory through a guard-issued SafeMemoryContext.
package exec
