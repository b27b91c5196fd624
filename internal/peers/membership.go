package peers

import (
	"sort"
	"sync"
	"time"
)

const (
	// DefaultSuspectAfter is how long a silent peer stays Alive.
	DefaultSuspectAfter = 10 * time.Second
	// DefaultDeadAfter is how long a silent peer stays Suspect.
	DefaultDeadAfter = 30 * time.Second
)

// Status represents the state of a known peer.
type Status int

const (
	Alive Status = iota
	Suspect
	Dead
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case Alive:
		return "ALIVE"
	case Suspect:
		return "SUSPECT"
	case Dead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}

// Peer is one known peer node.
type Peer struct {
	ID       string
	Addr     string
	Status   Status
	LastSeen time.Time
}

// Registry tracks known peers and their liveness. It is thread-safe.
type Registry struct {
	mu           sync.RWMutex
	selfID       string
	peers        map[string]*Peer
	suspectAfter time.Duration
	deadAfter    time.Duration
}

// NewRegistry creates a registry for the given node. Non-positive
// durations fall back to the defaults.
func NewRegistry(selfID string, suspectAfter, deadAfter time.Duration) *Registry {
	if suspectAfter <= 0 {
		suspectAfter = DefaultSuspectAfter
	}
	if deadAfter <= suspectAfter {
		deadAfter = suspectAfter + DefaultDeadAfter
	}
	return &Registry{
		selfID:       selfID,
		peers:        make(map[string]*Peer),
		suspectAfter: suspectAfter,
		deadAfter:    deadAfter,
	}
}

// Observe records that a peer was seen now: new peers are discovered,
// known peers are refreshed back to Alive. Observing self is a no-op.
func (r *Registry) Observe(id, addr string) {
	if id == r.selfID || id == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[id]
	if !ok {
		r.peers[id] = &Peer{ID: id, Addr: addr, Status: Alive, LastSeen: time.Now()}
		return
	}
	if addr != "" {
		p.Addr = addr
	}
	p.Status = Alive
	p.LastSeen = time.Now()
}

// Sweep re-derives every peer's status from its age at the given time.
// Dead peers stay registered; a later Observe revives them.
func (r *Registry) Sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.peers {
		age := now.Sub(p.LastSeen)
		switch {
		case age >= r.deadAfter:
			p.Status = Dead
		case age >= r.suspectAfter:
			p.Status = Suspect
		default:
			p.Status = Alive
		}
	}
}

// Get returns a snapshot of one peer.
func (r *Registry) Get(id string) (Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.peers[id]
	if !ok {
		return Peer{}, false
	}
	return *p, true
}

// Alive returns snapshots of all currently alive peers, sorted by ID.
func (r *Registry) Alive() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		if p.Status == Alive {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of known peers in any state.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}
