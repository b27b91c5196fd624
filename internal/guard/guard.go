package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"memstore/internal/aimerge"
	"memstore/internal/clock"
	"memstore/internal/conflict"
	"memstore/internal/resolve"
	"memstore/internal/storage"
)

// ErrKeyNotFound is returned when a requested key has neither a local
// nor a pending remote version. The whole batch fails; a partially
// populated context is never produced.
var ErrKeyNotFound = errors.New("key has no local or remote version")

// Options selects the resolution strategy for one CheckAndCreateContext
// call. Strategies are per call, not fixed globally.
type Options struct {
	Strategy resolve.Choice
	// RemoteNode names the remote to keep for ChoiceKeepRemote. Empty
	// selects the remote with the latest timestamp.
	RemoteNode string
	// Merger serves ChoiceAIMerge. A nil merger degrades every AI merge
	// to keeping the local value.
	Merger *aimerge.Merger
}

// Guard loads local and pending remote versions for a key set, classifies
// each key, resolves conflicts via the configured strategy, and is the
// only producer of SafeMemoryContext values.
type Guard struct {
	store  storage.Store
	logger *slog.Logger
}

// New creates a guard over store.
func New(store storage.Store) *Guard {
	return &Guard{
		store:  store,
		logger: slog.Default(),
	}
}

// IsKeyConflicted is an advisory pre-flight check: true when the key
// currently has a pending remote version concurrent with the local copy.
// It is not a substitute for CheckAndCreateContext.
func (g *Guard) IsKeyConflicted(key string) (bool, error) {
	local, remotes, err := g.load(key)
	if err != nil {
		return false, err
	}
	return conflict.Detect(local, remotes), nil
}

// CheckAndCreateContext is the only way to obtain a SafeMemoryContext.
// Every requested key is snapshotted, classified, and carried into the
// context clean, fast-forwarded, or resolved by opts.Strategy. The call
// either resolves all keys or fails without producing a context; the
// context is published only on full success.
func (g *Guard) CheckAndCreateContext(ctx context.Context, keys []string, opts Options) (*SafeMemoryContext, error) {
	passID := uuid.NewString()
	memories := make(map[string]storage.VersionedValue, len(keys))

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, done := memories[key]; done {
			continue
		}

		local, remotes, err := g.load(key)
		if err != nil {
			return nil, err
		}
		if local.Clock == nil {
			return nil, fmt.Errorf("key %q: %w", key, ErrKeyNotFound)
		}

		report := conflict.Classify(key, local, remotes)
		switch report.Class {
		case conflict.Clean:
			memories[key], err = g.carryClean(report)
		case conflict.FastForward:
			memories[key], err = g.fastForward(report)
		case conflict.Conflicting:
			err = g.resolveConflict(ctx, passID, report, opts, memories)
		}
		if err != nil {
			return nil, err
		}
	}

	g.logger.Debug("conflict check complete",
		"pass_id", passID,
		"keys", len(memories))
	return newSafeMemoryContext(passID, memories), nil
}

// load snapshots one key. A key with no local version but pending
// remotes is represented as a zero version with an empty clock, which
// classifies every remote as strictly newer.
func (g *Guard) load(key string) (storage.VersionedValue, []storage.VersionedValue, error) {
	local, err := g.store.GetLocalVersion(key)
	if err != nil {
		return storage.VersionedValue{}, nil, fmt.Errorf("loading local version of %q: %w", key, err)
	}
	remotes, err := g.store.GetPendingRemoteVersions(key)
	if err != nil {
		return storage.VersionedValue{}, nil, fmt.Errorf("loading remote versions of %q: %w", key, err)
	}

	if local != nil {
		return *local, remotes, nil
	}
	if len(remotes) == 0 {
		return storage.VersionedValue{}, nil, nil
	}
	return storage.VersionedValue{Clock: clock.New()}, remotes, nil
}

// carryClean carries the local value forward unchanged, folding any
// trailing remote clocks into its clock so the pending set drains.
func (g *Guard) carryClean(report conflict.Report) (storage.VersionedValue, error) {
	vv := report.Local.Copy()
	if len(report.Remotes) > 0 {
		vv.Clock = conflict.MergedClock(report.Local, report.Remotes)
		if err := g.store.PutMergedVersion(report.Key, vv); err != nil {
			return storage.VersionedValue{}, fmt.Errorf("storing merged version of %q: %w", report.Key, err)
		}
	}
	return vv, nil
}

// fastForward adopts the dominating remote value and clock.
func (g *Guard) fastForward(report conflict.Report) (storage.VersionedValue, error) {
	vv := report.Adopt.Copy()
	vv.Clock = conflict.MergedClock(report.Local, report.Remotes)
	if err := g.store.PutMergedVersion(report.Key, vv); err != nil {
		return storage.VersionedValue{}, fmt.Errorf("storing merged version of %q: %w", report.Key, err)
	}
	return vv, nil
}

// resolveConflict runs the configured strategy and writes the results
// back. The resolved clock is always the union of local and every remote
// considered, regardless of which value won, so future comparisons know
// all those updates have been seen.
func (g *Guard) resolveConflict(ctx context.Context, passID string, report conflict.Report, opts Options, memories map[string]storage.VersionedValue) error {
	cs := conflict.ConflictSet{
		Key:     report.Key,
		Local:   report.Local,
		Remotes: report.Contenders,
	}
	mergedClock := conflict.MergedClock(report.Local, report.Remotes)

	if opts.Strategy == resolve.ChoiceKeepBoth {
		return g.keepBoth(cs, mergedClock, memories)
	}

	var (
		out resolve.Outcome
		err error
	)
	switch opts.Strategy {
	case resolve.ChoiceKeepLocal:
		out, err = resolve.KeepLocal(cs)
	case resolve.ChoiceKeepRemote:
		out, err = resolve.KeepRemote(cs, opts.RemoteNode)
	case resolve.ChoiceAIMerge:
		merger := opts.Merger
		if merger == nil {
			merger = aimerge.NewMerger(nil, aimerge.DefaultConfig())
		}
		out, err = merger.Merge(ctx, cs)
	default:
		err = fmt.Errorf("unsupported resolution strategy: %v", opts.Strategy)
	}
	if err != nil {
		return fmt.Errorf("resolving %q: %w", report.Key, err)
	}

	vv := storage.VersionedValue{
		NodeID:    g.winnerNode(report, out),
		Clock:     mergedClock,
		Value:     append([]byte(nil), out.Value...),
		Timestamp: g.winnerTimestamp(report, out),
	}
	if err := g.store.PutMergedVersion(report.Key, vv); err != nil {
		return fmt.Errorf("storing merged version of %q: %w", report.Key, err)
	}

	g.logger.Info("conflict resolved",
		"pass_id", passID,
		"key", report.Key,
		"disposition", out.Disposition.String(),
		"clock", vv.Clock.String())
	memories[report.Key] = vv
	return nil
}

// keepBoth applies KeepBoth once per contending remote, feeding each
// derived key back into the existing-key set so derivations never
// collide. The local value stays at the original key with the union
// clock; each remote lands under its derived key with its own clock.
func (g *Guard) keepBoth(cs conflict.ConflictSet, mergedClock clock.VectorClock, memories map[string]storage.VersionedValue) error {
	known, err := g.store.ListKeys("")
	if err != nil {
		return fmt.Errorf("listing keys for %q: %w", cs.Key, err)
	}
	existing := make(map[string]struct{}, len(known)+len(memories))
	for _, k := range known {
		existing[k] = struct{}{}
	}
	for k := range memories {
		existing[k] = struct{}{}
	}

	for _, remote := range cs.Remotes {
		out, err := resolve.KeepBoth(cs, remote, existing)
		if err != nil {
			return fmt.Errorf("resolving %q: %w", cs.Key, err)
		}
		existing[out.DerivedKey] = struct{}{}

		derived := out.DerivedValue.Copy()
		if err := g.store.PutMergedVersion(out.DerivedKey, derived); err != nil {
			return fmt.Errorf("storing derived key %q: %w", out.DerivedKey, err)
		}
		memories[out.DerivedKey] = derived
	}

	vv := storage.VersionedValue{
		NodeID:    cs.Local.NodeID,
		Clock:     mergedClock,
		Value:     append([]byte(nil), cs.Local.Value...),
		Timestamp: cs.Local.Timestamp,
	}
	if err := g.store.PutMergedVersion(cs.Key, vv); err != nil {
		return fmt.Errorf("storing merged version of %q: %w", cs.Key, err)
	}
	memories[cs.Key] = vv
	return nil
}

// winnerNode attributes the resolved version to the node whose value won.
func (g *Guard) winnerNode(report conflict.Report, out resolve.Outcome) string {
	if out.Disposition == resolve.RemoteKept {
		return out.RemoteNode
	}
	return report.Local.NodeID
}

// winnerTimestamp carries the winning version's timestamp forward; a
// freshly merged value gets a new one.
func (g *Guard) winnerTimestamp(report conflict.Report, out resolve.Outcome) int64 {
	switch out.Disposition {
	case resolve.RemoteKept:
		for _, r := range report.Contenders {
			if r.NodeID == out.RemoteNode {
				return r.Timestamp
			}
		}
	case resolve.LocalKept:
		return report.Local.Timestamp
	}
	return time.Now().UnixMilli()
}
