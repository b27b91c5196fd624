package gather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"memstore/internal/peers"
	"memstore/internal/storage"
)

const (
	// DefaultPerSourceTimeout is the default timeout for each source call.
	DefaultPerSourceTimeout = 2 * time.Second
)

// SourceFunc fetches a peer's versions of a key. It is supplied by the
// transport layer.
type SourceFunc func(ctx context.Context, key string) ([]storage.VersionedValue, error)

// Source is one peer endpoint to collect from.
type Source struct {
	PeerID string
	Fetch  SourceFunc
}

// Result reports the outcome of a collection pass.
type Result struct {
	Success   bool
	Responses int
	Required  int
	Sources   int
	Versions  []storage.VersionedValue
	Errs      []error
}

// PeerSources derives one Source per alive peer in the registry,
// binding each to a transport call through bind. Suspect and dead
// peers are skipped rather than waited on.
func PeerSources(reg *peers.Registry, bind func(peer peers.Peer) SourceFunc) []Source {
	alive := reg.Alive()
	sources := make([]Source, 0, len(alive))
	for _, p := range alive {
		sources = append(sources, Source{PeerID: p.ID, Fetch: bind(p)})
	}
	return sources
}

// Collect asks every source for its versions of key in parallel, each
// call bounded by timeout, and succeeds once at least required sources
// answered. required <= 0 defaults to a majority of the sources.
func Collect(ctx context.Context, key string, sources []Source, required int, timeout time.Duration) Result {
	if len(sources) == 0 {
		return Result{Errs: []error{fmt.Errorf("no sources provided")}}
	}
	if required <= 0 {
		required = (len(sources) / 2) + 1
	}
	if required > len(sources) {
		return Result{
			Required: required,
			Sources:  len(sources),
			Errs:     []error{fmt.Errorf("required %d responses exceeds source count %d", required, len(sources))},
		}
	}
	if timeout <= 0 {
		timeout = DefaultPerSourceTimeout
	}

	var (
		mu        sync.Mutex
		responses int
		versions  []storage.VersionedValue
		errs      []error
		wg        sync.WaitGroup
	)

	sourceCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, src := range sources {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()

			vs, err := s.Fetch(sourceCtx, key)
			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				errs = append(errs, fmt.Errorf("peer %s: %w", s.PeerID, err))
				return
			}
			responses++
			versions = append(versions, vs...)
		}(src)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// All sources responded or failed
	case <-ctx.Done():
		mu.Lock()
		defer mu.Unlock()
		return Result{
			Responses: responses,
			Required:  required,
			Sources:   len(sources),
			Versions:  versions,
			Errs:      append(errs, fmt.Errorf("collection cancelled: %w", ctx.Err())),
		}
	}

	mu.Lock()
	defer mu.Unlock()
	return Result{
		Success:   responses >= required,
		Responses: responses,
		Required:  required,
		Sources:   len(sources),
		Versions:  versions,
		Errs:      errs,
	}
}

// Deliver parks every collected version whose origin differs from
// selfID in the store's pending set for key.
func Deliver(store *storage.InMemoryStore, key, selfID string, result Result) int {
	delivered := 0
	for _, vv := range result.Versions {
		if vv.NodeID == selfID {
			continue
		}
		store.ReceiveRemote(key, vv)
		delivered++
	}
	return delivered
}
