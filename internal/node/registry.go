package node

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/stlalpha/vision3bbs/internal/bbslog"
)

// Error kinds returned by Request, per spec.md §4.2.
var (
	ErrAtCapacity   = errors.New("node: at capacity")
	ErrShuttingDown = errors.New("node: shutting down")
)

// Registry is the ordered collection of live sessions (spec.md §4.2). The
// node list is kept sorted by id so "smallest unused id" is a linear scan,
// mirroring original_source/bbs/node.c's RWLIST_TRAVERSE loop exactly.
type Registry struct {
	mu    sync.RWMutex
	nodes []*Node // sorted by ID ascending

	maxNodes     int
	shuttingDown atomic.Bool
	lifetime     int64 // lifetime-total counter, incremented on every Request

	log     bbslog.Logger
	metrics MetricsSink
}

// MetricsSink lets the registry report gauge updates without importing a
// metrics package directly (spec.md §4.10 enrichment wired at this seam).
type MetricsSink interface {
	SetNodesActive(n int)
	IncNodesLifetime()
}

type noopMetrics struct{}

func (noopMetrics) SetNodesActive(int)  {}
func (noopMetrics) IncNodesLifetime()   {}

// NewRegistry constructs a registry capped at maxNodes live sessions.
func NewRegistry(maxNodes int, log bbslog.Logger, metrics MetricsSink) *Registry {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Registry{maxNodes: maxNodes, log: log, metrics: metrics}
}

// Request allocates a node with the smallest unused positive id, rejecting
// the call when capacity is reached or the registry is shutting down
// (spec.md §4.2, property #1 "smallest-id allocation", property #2
// "capacity").
func (r *Registry) Request(conn Conn, protname string, mod ModulePin) (*Node, error) {
	if r.shuttingDown.Load() {
		r.log.Warn("node request declined: shutting down")
		return nil, ErrShuttingDown
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.nodes) >= r.maxNodes {
		r.log.Warn("node request failed: at capacity (%d active)", len(r.nodes))
		return nil, ErrAtCapacity
	}

	newID := 1
	insertAt := 0
	for i, n := range r.nodes {
		if n.ID != newID {
			break
		}
		newID++
		insertAt = i + 1
	}

	n := newNode(newID, protname, conn, mod, r.log)

	r.nodes = append(r.nodes, nil)
	copy(r.nodes[insertAt+1:], r.nodes[insertAt:])
	r.nodes[insertAt] = n

	r.lifetime++
	r.metrics.IncNodesLifetime()
	r.metrics.SetNodesActive(len(r.nodes))

	r.log.Debug("allocated node %d (protocol=%s)", n.ID, protname)
	return n, nil
}

// Count returns the number of currently live nodes.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// CountForModule returns the number of live nodes pinned against mod.
func (r *Registry) CountForModule(mod ModulePin) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, n := range r.nodes {
		if n.Module == mod {
			count++
		}
	}
	return count
}

// MaxID returns the highest id currently in use, or 0 if none.
func (r *Registry) MaxID() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.nodes) == 0 {
		return 0
	}
	return r.nodes[len(r.nodes)-1].ID
}

// LifetimeTotal returns the cumulative number of nodes ever allocated.
func (r *Registry) LifetimeTotal() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lifetime
}

// Handle is the scoped-lock type returned by Get: the node lock is held
// until Release is called (DESIGN NOTES "get node, return holding lock"
// idiom, preserved intentionally as the one registry API that lets a
// lock cross a function boundary).
type Handle struct {
	node *Node
}

// Node returns the underlying node. Valid only until Release.
func (h Handle) Node() *Node { return h.node }

// Release unlocks the node. Callers must call this exactly once.
func (h Handle) Release() { h.node.Unlock() }

// Get finds the node by id and returns it with its lock held. The caller
// MUST call Release on the returned handle.
func (r *Registry) Get(id int) (Handle, bool) {
	r.mu.RLock()
	n := r.find(id)
	r.mu.RUnlock()
	if n == nil {
		return Handle{}, false
	}
	n.Lock()
	// Re-check liveness now that we hold the node lock: it may have been
	// unlinked between the registry read-lock release and this Lock().
	if !n.Active() {
		n.Unlock()
		return Handle{}, false
	}
	return Handle{node: n}, true
}

func (r *Registry) find(id int) *Node {
	for _, n := range r.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func (r *Registry) remove(n *Node) {
	for i, x := range r.nodes {
		if x == n {
			r.nodes = append(r.nodes[:i], r.nodes[i+1:]...)
			return
		}
	}
}

// Unlink removes the node from the registry, shuts it down uniquely, then
// frees it (spec.md §4.2).
func (r *Registry) Unlink(n *Node) {
	r.mu.Lock()
	r.remove(n)
	r.metrics.SetNodesActive(len(r.nodes))
	r.mu.Unlock()

	shutdown(n, true)
	free(n)
}

// ShutdownByID removes the node (if present) and shuts it down
// non-uniquely; the caller is expected to join the handler thread itself.
func (r *Registry) ShutdownByID(id int) error {
	r.mu.Lock()
	n := r.find(id)
	if n != nil {
		r.remove(n)
		r.metrics.SetNodesActive(len(r.nodes))
	}
	r.mu.Unlock()

	if n == nil {
		return errors.New("node: no such node")
	}
	shutdown(n, false)
	return nil
}

// ShutdownByModule removes and shuts down the first live node owned by
// mod, used to drain a module's nodes incrementally during unload.
func (r *Registry) ShutdownByModule(mod ModulePin) bool {
	r.mu.Lock()
	var n *Node
	for _, x := range r.nodes {
		if x.Module == mod {
			n = x
			break
		}
	}
	if n != nil {
		r.remove(n)
		r.metrics.SetNodesActive(len(r.nodes))
	}
	r.mu.Unlock()

	if n == nil {
		return false
	}
	shutdown(n, false)
	return true
}

// ShutdownAll drains every live node. When markShuttingDown is true, the
// registry refuses subsequent Request calls before draining begins
// (spec.md property #5 "ordered shutdown").
func (r *Registry) ShutdownAll(markShuttingDown bool) {
	if markShuttingDown {
		r.shuttingDown.Store(true)
	}

	for {
		r.mu.Lock()
		if len(r.nodes) == 0 {
			r.mu.Unlock()
			return
		}
		n := r.nodes[0]
		r.nodes = r.nodes[1:]
		r.metrics.SetNodesActive(len(r.nodes))
		r.mu.Unlock()

		shutdown(n, false)
	}
}

// ShuttingDown reports whether the registry has been marked for shutdown.
func (r *Registry) ShuttingDown() bool { return r.shuttingDown.Load() }

// ListActive returns a snapshot of live nodes, sorted by id, for reporting
// surfaces (the sysop "nodes"/"users" CLI contract, spec.md §6).
func (r *Registry) ListActive() []*Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Node, len(r.nodes))
	copy(out, r.nodes)
	return out
}
