package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"memstore/internal/clock"
)

// VersionedValue is a value together with the vector clock of the write
// that produced it, the ID of the originating node, and a wall-clock
// timestamp in epoch milliseconds. The timestamp is advisory only: it is
// used as a tie-break by LWW-style strategies, never as the primary
// ordering signal. Treat instances as immutable once constructed.
type VersionedValue struct {
	NodeID    string
	Clock     clock.VectorClock
	Value     []byte
	Timestamp int64
}

// NewVersionedValue builds a VersionedValue stamped with the current time.
func NewVersionedValue(nodeID string, vc clock.VectorClock, value []byte) VersionedValue {
	return VersionedValue{
		NodeID:    nodeID,
		Clock:     vc.Copy(),
		Value:     append([]byte(nil), value...),
		Timestamp: time.Now().UnixMilli(),
	}
}

// Copy returns a deep copy, so callers can hold versions without
// worrying about shared clock maps or value slices.
func (vv VersionedValue) Copy() VersionedValue {
	return VersionedValue{
		NodeID:    vv.NodeID,
		Clock:     vv.Clock.Copy(),
		Value:     append([]byte(nil), vv.Value...),
		Timestamp: vv.Timestamp,
	}
}

// Store is the storage collaborator consumed by the conflict engine.
// Implementations must apply writes under their own per-key ordering;
// the engine never holds locks across calls into a Store.
type Store interface {
	// GetLocalVersion returns this node's current version of key, or
	// (nil, nil) if the key has never been written locally.
	GetLocalVersion(key string) (*VersionedValue, error)
	// GetPendingRemoteVersions returns remote versions of key that have
	// been received from peers but not yet merged.
	GetPendingRemoteVersions(key string) ([]VersionedValue, error)
	// PutMergedVersion stores the outcome of a resolution pass under key,
	// with the exact clock it carries (no increment), and retires pending
	// remote versions the merged clock now dominates or equals.
	PutMergedVersion(key string, vv VersionedValue) error
	// ListKeys returns all locally known keys with the given prefix
	// (empty prefix lists everything), sorted.
	ListKeys(prefix string) ([]string, error)
}

// InMemoryStore is an in-memory Store. It is thread-safe and additionally
// exposes the local write path and the remote delivery point used by the
// surrounding node.
type InMemoryStore struct {
	mu      sync.RWMutex
	nodeID  string
	data    map[string]*VersionedValue
	pending map[string][]VersionedValue
}

// NewInMemoryStore creates a new in-memory store for the given node.
func NewInMemoryStore(nodeID string) *InMemoryStore {
	return &InMemoryStore{
		nodeID:  nodeID,
		data:    make(map[string]*VersionedValue),
		pending: make(map[string][]VersionedValue),
	}
}

// NodeID returns the ID of the node this store belongs to.
func (s *InMemoryStore) NodeID() string {
	return s.nodeID
}

// Put records a local write. The stored clock is the previous local clock
// with this node's own counter incremented by exactly one.
func (s *InMemoryStore) Put(key string, value []byte) VersionedValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	vc := clock.New()
	if existing, ok := s.data[key]; ok {
		vc = existing.Clock.Copy()
	}
	vc.Increment(s.nodeID)

	vv := VersionedValue{
		NodeID:    s.nodeID,
		Clock:     vc,
		Value:     append([]byte(nil), value...),
		Timestamp: time.Now().UnixMilli(),
	}
	s.data[key] = &vv
	return vv.Copy()
}

// ReceiveRemote parks a version received from a peer in the pending set
// for key. Versions already dominated by the local copy are still parked;
// classification is the conflict detector's job, not the store's.
func (s *InMemoryStore) ReceiveRemote(key string, vv VersionedValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Drop exact duplicates (same origin, same clock) from redundant delivery.
	for _, p := range s.pending[key] {
		if p.NodeID == vv.NodeID && p.Clock.Equal(vv.Clock) {
			return
		}
	}
	s.pending[key] = append(s.pending[key], vv.Copy())
}

// GetLocalVersion returns a copy of the local version of key, or nil.
func (s *InMemoryStore) GetLocalVersion(key string) (*VersionedValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vv, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	out := vv.Copy()
	return &out, nil
}

// GetPendingRemoteVersions returns copies of the pending remote versions
// of key, in arrival order.
func (s *InMemoryStore) GetPendingRemoteVersions(key string) ([]VersionedValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parked := s.pending[key]
	out := make([]VersionedValue, 0, len(parked))
	for _, vv := range parked {
		out = append(out, vv.Copy())
	}
	return out, nil
}

// PutMergedVersion stores vv under key with its exact clock (no
// increment), then retires pending remote versions whose clocks the
// merged clock dominates or equals. Concurrent pending versions survive;
// a later pass will pick them up.
func (s *InMemoryStore) PutMergedVersion(key string, vv VersionedValue) error {
	if vv.Clock == nil {
		return fmt.Errorf("merged version for %q requires a non-nil clock", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Never roll the local copy back. A concurrent resolution pass may
	// have already stored a version that subsumes this one.
	if existing, ok := s.data[key]; ok {
		if comp := vv.Clock.Compare(existing.Clock); comp == clock.Before {
			return nil
		}
	}

	stored := vv.Copy()
	s.data[key] = &stored

	remaining := s.pending[key][:0]
	for _, p := range s.pending[key] {
		if !stored.Clock.DominatesOrEquals(p.Clock) {
			remaining = append(remaining, p)
		}
	}
	if len(remaining) == 0 {
		delete(s.pending, key)
	} else {
		s.pending[key] = remaining
	}
	return nil
}

// ListKeys returns sorted local keys matching prefix.
func (s *InMemoryStore) ListKeys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// PendingCount returns the number of unmerged remote versions for key.
func (s *InMemoryStore) PendingCount(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending[key])
}
