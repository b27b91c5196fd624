package aimerge

import (
	"fmt"
	"strings"
	"time"

	"memstore/internal/conflict"
	"memstore/internal/storage"
)

// Hint selects the instruction text embedded in the merge prompt. It does
// not change the retry/timeout/fallback control flow.
type Hint int

const (
	// SmartMerge asks the backend to combine all versions coherently.
	SmartMerge Hint = iota
	// ContentBased asks for a content union with duplicates removed.
	ContentBased
	// TimeBased asks to prefer the most recent content where versions
	// disagree.
	TimeBased
)

// String returns the string representation of a Hint.
func (h Hint) String() string {
	switch h {
	case SmartMerge:
		return "smart_merge"
	case ContentBased:
		return "content_based"
	case TimeBased:
		return "time_based"
	default:
		return "unknown"
	}
}

// ParseHint maps a configuration string to a Hint. Unknown strings fall
// back to SmartMerge with an error.
func ParseHint(s string) (Hint, error) {
	switch s {
	case "smart_merge", "":
		return SmartMerge, nil
	case "content_based":
		return ContentBased, nil
	case "time_based":
		return TimeBased, nil
	default:
		return SmartMerge, fmt.Errorf("unknown merge hint: %q", s)
	}
}

func (h Hint) instruction() string {
	switch h {
	case ContentBased:
		return "Merge by content: keep every distinct piece of information exactly once, " +
			"dropping duplicated or overlapping content."
	case TimeBased:
		return "Where the versions disagree, prefer the content of the version with the " +
			"latest timestamp; keep non-conflicting content from older versions."
	default:
		return "Combine the versions into a single coherent value that preserves the " +
			"intent of every writer."
	}
}

// BuildPrompt renders a conflicting set into the prompt sent to the
// completion backend: the key, the local version, every remote version,
// then the hint-specific merge instruction.
func BuildPrompt(cs conflict.ConflictSet, hint Hint) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Concurrent writes were detected for key %q.\n\n", cs.Key)
	b.WriteString("Local version:\n")
	writeVersion(&b, cs.Local)
	for i, r := range cs.Remotes {
		fmt.Fprintf(&b, "\nRemote version %d:\n", i+1)
		writeVersion(&b, r)
	}

	b.WriteString("\n")
	b.WriteString(hint.instruction())
	b.WriteString("\nRespond with the merged value only.")
	return b.String()
}

func writeVersion(b *strings.Builder, vv storage.VersionedValue) {
	ts := time.UnixMilli(vv.Timestamp).UTC().Format(time.RFC3339)
	fmt.Fprintf(b, "  node: %s\n  written: %s\n  value: %s\n", vv.NodeID, ts, vv.Value)
}
