package conflict

import (
	"memstore/internal/clock"
	"memstore/internal/storage"
)

// ConflictSet groups one local version with the remote versions it is in
// conflict with. It exists only for the duration of a single resolution
// pass and is never persisted.
type ConflictSet struct {
	Key     string
	Local   storage.VersionedValue
	Remotes []storage.VersionedValue
}

// Classification is the result of classifying a key's local version
// against its known remote versions.
type Classification int

const (
	// Clean means every remote is Before or Equal the local version;
	// the local copy already incorporates everything known.
	Clean Classification = iota
	// FastForward means a remote is strictly After the local version:
	// the local copy is stale and must adopt the remote, no resolution
	// strategy involved.
	FastForward
	// Conflicting means at least one remote is concurrent with the local
	// version and a resolution strategy has to decide.
	Conflicting
)

// String returns the string representation of a Classification.
func (c Classification) String() string {
	switch c {
	case Clean:
		return "CLEAN"
	case FastForward:
		return "FAST_FORWARD"
	case Conflicting:
		return "CONFLICTING"
	default:
		return "UNKNOWN"
	}
}

// Report is the outcome of classifying one key.
type Report struct {
	Key   string
	Class Classification
	Local storage.VersionedValue
	// Remotes holds every remote version that was considered.
	Remotes []storage.VersionedValue
	// Contenders holds the remotes that are not dominated by local
	// (Concurrent or After). Empty when Class is Clean.
	Contenders []storage.VersionedValue
	// Adopt is the fast-forward target. Set only when Class is FastForward.
	Adopt *storage.VersionedValue
}

// Detect returns true iff at least one remote is causally concurrent with
// local. Remotes that are Before, Equal, or even strictly After local do
// not count: a strictly newer remote means the local copy is stale, which
// is an update, not a conflict.
func Detect(local storage.VersionedValue, remotes []storage.VersionedValue) bool {
	for _, r := range remotes {
		if local.Clock.Compare(r.Clock) == clock.Concurrent {
			return true
		}
	}
	return false
}

// Classify partitions a key into Clean, FastForward, or Conflicting.
//
// For FastForward, the adoption target is the maximal remote: a remote
// not dominated by any other remote, with ties broken by latest
// timestamp, then lexicographically greatest node ID. The tie-break only
// ever applies between mutually concurrent remotes that all dominate
// local, so it cannot pick a stale version.
func Classify(key string, local storage.VersionedValue, remotes []storage.VersionedValue) Report {
	report := Report{
		Key:     key,
		Local:   local,
		Remotes: remotes,
	}

	conflicting := false
	for _, r := range remotes {
		switch local.Clock.Compare(r.Clock) {
		case clock.Concurrent:
			conflicting = true
			report.Contenders = append(report.Contenders, r)
		case clock.Before:
			report.Contenders = append(report.Contenders, r)
		}
	}

	switch {
	case conflicting:
		report.Class = Conflicting
	case len(report.Contenders) > 0:
		report.Class = FastForward
		target := PickLatest(Maximal(report.Contenders))
		report.Adopt = &target
	default:
		report.Class = Clean
	}
	return report
}

// Maximal returns the non-dominated versions among vs: every version not
// strictly Before some other version, with exact clock duplicates
// collapsed to the first occurrence.
func Maximal(vs []storage.VersionedValue) []storage.VersionedValue {
	winners := make([]storage.VersionedValue, 0, len(vs))

	for i, v := range vs {
		dominated := false
		for j, other := range vs {
			if i == j {
				continue
			}
			if v.Clock.Compare(other.Clock) == clock.Before {
				dominated = true
				break
			}
		}
		if dominated {
			continue
		}

		duplicate := false
		for _, w := range winners {
			if v.Clock.Equal(w.Clock) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			winners = append(winners, v)
		}
	}
	return winners
}

// PickLatest selects one version deterministically: latest timestamp
// wins; on a timestamp tie, the lexicographically greatest node ID wins.
// vs must be non-empty.
func PickLatest(vs []storage.VersionedValue) storage.VersionedValue {
	best := vs[0]
	for _, v := range vs[1:] {
		if v.Timestamp > best.Timestamp ||
			(v.Timestamp == best.Timestamp && v.NodeID > best.NodeID) {
			best = v
		}
	}
	return best
}

// MergedClock returns the union clock of local and every remote: the
// clock a resolved version must carry so future comparisons reflect that
// all these updates are now known.
func MergedClock(local storage.VersionedValue, remotes []storage.VersionedValue) clock.VectorClock {
	merged := local.Clock.Copy()
	for _, r := range remotes {
		merged.Merge(r.Clock)
	}
	return merged
}
