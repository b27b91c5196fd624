package resolve

import (
	"errors"
	"fmt"

	"memstore/internal/conflict"
	"memstore/internal/storage"
)

var (
	// ErrNoRemoteVersions is returned when a strategy is invoked with an
	// empty remote set. That is a caller usage error, not a resolvable
	// condition.
	ErrNoRemoteVersions = errors.New("resolution requires at least one remote version")

	// ErrKeyDerivationExhausted is returned when KeepBoth cannot find a
	// free derived key. Practically unreachable; hitting it means the
	// caller-supplied existing-key set is pathological.
	ErrKeyDerivationExhausted = errors.New("derived key space exhausted")
)

// maxDerivationAttempts bounds the numbered suffixes KeepBoth will try.
const maxDerivationAttempts = 10000

// Choice selects a resolution strategy for one conflicting key.
type Choice int

const (
	ChoiceKeepLocal Choice = iota
	ChoiceKeepRemote
	ChoiceKeepBoth
	ChoiceAIMerge
)

// String returns the string representation of a Choice.
func (c Choice) String() string {
	switch c {
	case ChoiceKeepLocal:
		return "keep_local"
	case ChoiceKeepRemote:
		return "keep_remote"
	case ChoiceKeepBoth:
		return "keep_both"
	case ChoiceAIMerge:
		return "ai_merge"
	default:
		return "unknown"
	}
}

// ParseChoice parses a strategy name as it appears in config files and
// operator input.
func ParseChoice(s string) (Choice, error) {
	switch s {
	case "keep_local":
		return ChoiceKeepLocal, nil
	case "keep_remote":
		return ChoiceKeepRemote, nil
	case "keep_both":
		return ChoiceKeepBoth, nil
	case "ai_merge":
		return ChoiceAIMerge, nil
	default:
		return ChoiceKeepLocal, fmt.Errorf("unknown resolution strategy: %q", s)
	}
}

// Disposition records how a conflict was resolved.
type Disposition int

const (
	// LocalKept means the local value won unchanged.
	LocalKept Disposition = iota
	// RemoteKept means a remote value replaced the local one.
	RemoteKept
	// BothKept means the local value stayed and the remote value was
	// retained under a derived key.
	BothKept
	// Merged means the AI merger produced a combined value.
	Merged
)

// String returns the string representation of a Disposition.
func (d Disposition) String() string {
	switch d {
	case LocalKept:
		return "LOCAL_KEPT"
	case RemoteKept:
		return "REMOTE_KEPT"
	case BothKept:
		return "BOTH_KEPT"
	case Merged:
		return "MERGED"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the result of resolving one conflicting key. Value is what
// the original key resolves to; for BothKept, DerivedKey and DerivedValue
// describe the retained remote copy.
type Outcome struct {
	Key         string
	Value       []byte
	Disposition Disposition

	// RemoteNode is the origin of the kept remote. Set for RemoteKept.
	RemoteNode string

	// DerivedKey names the retained remote copy. Set for BothKept.
	DerivedKey string
	// DerivedValue is the remote version stored under DerivedKey.
	DerivedValue storage.VersionedValue
}

// KeepLocal resolves by keeping the local value unchanged. No I/O, never
// fails beyond the empty-remote usage check.
func KeepLocal(cs conflict.ConflictSet) (Outcome, error) {
	if len(cs.Remotes) == 0 {
		return Outcome{}, ErrNoRemoteVersions
	}
	return Outcome{
		Key:         cs.Key,
		Value:       cs.Local.Value,
		Disposition: LocalKept,
	}, nil
}

// KeepRemote resolves by adopting one remote's value. An empty nodeID
// selects the remote with the latest timestamp, ties broken by
// lexicographically greatest node ID; a non-empty nodeID must name a
// remote present in the set.
func KeepRemote(cs conflict.ConflictSet, nodeID string) (Outcome, error) {
	if len(cs.Remotes) == 0 {
		return Outcome{}, ErrNoRemoteVersions
	}

	var chosen *storage.VersionedValue
	if nodeID == "" {
		v := conflict.PickLatest(cs.Remotes)
		chosen = &v
	} else {
		for i := range cs.Remotes {
			if cs.Remotes[i].NodeID == nodeID {
				chosen = &cs.Remotes[i]
				break
			}
		}
		if chosen == nil {
			return Outcome{}, fmt.Errorf("no remote version from node %q for key %q", nodeID, cs.Key)
		}
	}

	return Outcome{
		Key:         cs.Key,
		Value:       chosen.Value,
		Disposition: RemoteKept,
		RemoteNode:  chosen.NodeID,
	}, nil
}

// KeepBoth resolves by leaving the local value at the original key and
// retaining remote under a derived key that does not collide with any
// key in existing. With more than one remote in play, callers apply
// KeepBoth once per remote, adding each derived key to existing between
// calls.
func KeepBoth(cs conflict.ConflictSet, remote storage.VersionedValue, existing map[string]struct{}) (Outcome, error) {
	if len(cs.Remotes) == 0 {
		return Outcome{}, ErrNoRemoteVersions
	}

	derived, err := DeriveKey(cs.Key, existing)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Key:          cs.Key,
		Value:        cs.Local.Value,
		Disposition:  BothKept,
		DerivedKey:   derived,
		DerivedValue: remote,
	}, nil
}

// DeriveKey finds the first unused name in the sequence "<key>_remote",
// "<key>_remote_2", "<key>_remote_3", ... against the existing-key set.
// Deterministic for a given set, and never returns a colliding name.
func DeriveKey(key string, existing map[string]struct{}) (string, error) {
	candidate := key + "_remote"
	if _, taken := existing[candidate]; !taken {
		return candidate, nil
	}
	for n := 2; n <= maxDerivationAttempts; n++ {
		candidate = fmt.Sprintf("%s_remote_%d", key, n)
		if _, taken := existing[candidate]; !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("deriving key for %q: %w", key, ErrKeyDerivationExhausted)
}
