package it

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memstore/internal/gather"
	"memstore/internal/guard"
	"memstore/internal/resolve"
)

func TestCluster_ConcurrentWritesResolvedAndExecuted(t *testing.T) {
	cluster := NewCluster("A", "B", "C")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// A writes and replicates; everyone agrees.
	a := cluster.Node("A")
	a.Store.Put("plan", []byte("v1"))
	cluster.Replicate("plan", "A")

	// B and C build on v1 concurrently, without seeing each other.
	for _, id := range []string{"B", "C"} {
		node := cluster.Node(id)
		mem, err := node.Guard.CheckAndCreateContext(ctx, []string{"plan"},
			guard.Options{Strategy: resolve.ChoiceKeepLocal})
		require.NoError(t, err)
		require.True(t, mem.Valid())
		node.Store.Put("plan", []byte("v2-from-"+id))
	}
	// A amends its own copy before the replicas arrive, so all three
	// versions end up pairwise concurrent.
	a.Store.Put("plan", []byte("v1-amended"))
	cluster.Send("plan", "B", "A")
	cluster.Send("plan", "C", "A")

	// A now holds two remote versions concurrent with its local one.
	conflicted, err := a.Guard.IsKeyConflicted("plan")
	require.NoError(t, err)
	assert.True(t, conflicted, "A should see the concurrent writes as a conflict")

	// Check-then-execute through the builder, keeping B's version.
	builder := a.Engine.NewTask("apply-plan", "plan").
		WithResolution(guard.Options{Strategy: resolve.ChoiceKeepRemote, RemoteNode: "B"})
	require.NoError(t, builder.CheckConflicts(ctx))

	result, err := builder.Execute(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, result.TaskID)

	resolved, err := a.Store.GetLocalVersion("plan")
	require.NoError(t, err)
	assert.Equal(t, "v2-from-B", string(resolved.Value))
	assert.Equal(t, 0, a.Store.PendingCount("plan"), "resolution should drain the pending set")

	// The merged clock now dominates both writers' versions.
	for _, id := range []string{"B", "C"} {
		other, err := cluster.Node(id).Store.GetLocalVersion("plan")
		require.NoError(t, err)
		assert.True(t, resolved.Clock.DominatesOrEquals(other.Clock),
			"resolved clock %v must dominate %s's clock %v", resolved.Clock, id, other.Clock)
	}

	// After A replicates the resolution, the other nodes fast-forward.
	cluster.Replicate("plan", "A")
	for _, id := range []string{"B", "C"} {
		node := cluster.Node(id)
		mem, err := node.Guard.CheckAndCreateContext(ctx, []string{"plan"},
			guard.Options{Strategy: resolve.ChoiceKeepLocal})
		require.NoError(t, err)
		got, ok := mem.Get("plan")
		require.True(t, ok)
		assert.Equal(t, "v2-from-B", string(got.Value), "%s should converge on the resolution", id)
	}
}

func TestCluster_GatherFeedsConflictCheck(t *testing.T) {
	cluster := NewCluster("A", "B", "C")
	ctx := context.Background()

	cluster.Node("A").Store.Put("note", []byte("from-a"))
	cluster.Node("B").Store.Put("note", []byte("from-b"))

	// A pulls versions from its peers instead of waiting for delivery.
	result := gather.Collect(ctx, "note", cluster.Sources("A"), 2, time.Second)
	require.True(t, result.Success, "both peers should respond: %+v", result.Errs)

	delivered := gather.Deliver(cluster.Node("A").Store, "note", "A", result)
	assert.Equal(t, 1, delivered, "only B has a version to contribute")

	mem, err := cluster.Node("A").Guard.CheckAndCreateContext(ctx, []string{"note"},
		guard.Options{Strategy: resolve.ChoiceKeepBoth})
	require.NoError(t, err)

	local, ok := mem.Get("note")
	require.True(t, ok)
	assert.Equal(t, "from-a", string(local.Value))

	remote, ok := mem.Get("note_remote")
	require.True(t, ok, "B's concurrent version should land under the derived key")
	assert.Equal(t, "from-b", string(remote.Value))
}
