package guard

import (
	"sort"

	"memstore/internal/storage"
)

// SafeMemoryContext is the capability object handed to an execution
// engine. Its existence proves that every key it contains was either
// conflict-free or resolved when the guard assembled it. There is no
// public constructor: the zero value is unusable, and only the guard's
// success path seals a context. Contexts are read-only and owned by a
// single execution; they are never mutated after assembly.
type SafeMemoryContext struct {
	passID   string
	memories map[string]storage.VersionedValue
	sealed   bool
}

// newSafeMemoryContext seals a context. Only callable from this package.
func newSafeMemoryContext(passID string, memories map[string]storage.VersionedValue) *SafeMemoryContext {
	return &SafeMemoryContext{
		passID:   passID,
		memories: memories,
		sealed:   true,
	}
}

// Valid reports whether this context was produced by the guard. A nil or
// directly constructed context is invalid and yields no data.
func (c *SafeMemoryContext) Valid() bool {
	return c != nil && c.sealed
}

// PassID identifies the resolution pass that produced this context, for
// log correlation.
func (c *SafeMemoryContext) PassID() string {
	if !c.Valid() {
		return ""
	}
	return c.passID
}

// Get returns a copy of the resolved version for key.
func (c *SafeMemoryContext) Get(key string) (storage.VersionedValue, bool) {
	if !c.Valid() {
		return storage.VersionedValue{}, false
	}
	vv, ok := c.memories[key]
	if !ok {
		return storage.VersionedValue{}, false
	}
	return vv.Copy(), true
}

// Keys returns the context's keys, sorted.
func (c *SafeMemoryContext) Keys() []string {
	if !c.Valid() {
		return nil
	}
	keys := make([]string, 0, len(c.memories))
	for k := range c.memories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of resolved keys in the context.
func (c *SafeMemoryContext) Len() int {
	if !c.Valid() {
		return 0
	}
	return len(c.memories)
}
