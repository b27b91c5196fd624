// Package it provides an in-process integration harness: a cluster of
// nodes with independent stores, wired together by direct delivery
// instead of a network transport.
package it

import (
	"context"
	"time"

	"memstore/internal/exec"
	"memstore/internal/gather"
	"memstore/internal/guard"
	"memstore/internal/peers"
	"memstore/internal/storage"
)

// TestNode is one member of the test cluster.
type TestNode struct {
	ID       string
	Store    *storage.InMemoryStore
	Guard    *guard.Guard
	Engine   *exec.Engine
	Registry *peers.Registry
}

// Cluster is a set of in-process nodes.
type Cluster struct {
	nodes map[string]*TestNode
}

// NewCluster creates a cluster with one node per ID.
func NewCluster(ids ...string) *Cluster {
	c := &Cluster{nodes: make(map[string]*TestNode, len(ids))}
	for _, id := range ids {
		store := storage.NewInMemoryStore(id)
		g := guard.New(store)
		node := &TestNode{
			ID:       id,
			Store:    store,
			Guard:    g,
			Engine:   exec.NewEngine(g, nil),
			Registry: peers.NewRegistry(id, time.Second, 3*time.Second),
		}
		c.nodes[id] = node
	}
	for _, id := range ids {
		for _, other := range ids {
			if other != id {
				c.nodes[id].Registry.Observe(other, other+":0")
			}
		}
	}
	return c
}

// Node returns the node with the given ID.
func (c *Cluster) Node(id string) *TestNode {
	return c.nodes[id]
}

// Replicate ships from's local version of key into every other node's
// pending remote set, standing in for the transport layer.
func (c *Cluster) Replicate(key, from string) {
	src, err := c.nodes[from].Store.GetLocalVersion(key)
	if err != nil || src == nil {
		return
	}
	for id, node := range c.nodes {
		if id == from {
			continue
		}
		node.Store.ReceiveRemote(key, *src)
	}
}

// Send ships from's local version of key to a single node.
func (c *Cluster) Send(key, from, to string) {
	src, err := c.nodes[from].Store.GetLocalVersion(key)
	if err != nil || src == nil {
		return
	}
	c.nodes[to].Store.ReceiveRemote(key, *src)
}

// Sources returns gather sources over every peer the named node
// considers alive, each serving its own local version of the requested
// key.
func (c *Cluster) Sources(self string) []gather.Source {
	return gather.PeerSources(c.nodes[self].Registry, func(p peers.Peer) gather.SourceFunc {
		store := c.nodes[p.ID].Store
		return func(_ context.Context, key string) ([]storage.VersionedValue, error) {
			vv, err := store.GetLocalVersion(key)
			if err != nil {
				return nil, err
			}
			if vv == nil {
				return nil, nil
			}
			return []storage.VersionedValue{*vv}, nil
		}
	})
}
