// Package guard orchestrates conflict checking and owns the
// SafeMemoryContext capability type. A SafeMemoryContext can only be
// produced by the guard's success path, so holding one proves every key
// it contains was conflict-checked; consumers that accept raw key/value
// maps instead of this type are bypassing the check by construction.
package guard
