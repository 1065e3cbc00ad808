package gosio

import (
	"log/slog"
	"sort"
	"sync"
)

// Registry maps namespace paths to namespaces. One registry is shared by
// every connection of a server.
type Registry struct {
	mu         sync.RWMutex
	namespaces map[NamespaceName]*Namespace
	newAdapter AdapterFactory
	logger     *slog.Logger
}

// Stats is a point-in-time count across all namespaces.
type Stats struct {
	Namespaces int `json:"namespaces"`
	Rooms      int `json:"rooms"`
	Sockets    int `json:"sockets"`
}

// NewRegistry creates an empty registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		namespaces: make(map[NamespaceName]*Namespace),
		newAdapter: memoryAdapterFactory,
		logger:     logger,
	}
}

// SetAdapterFactory sets how adapters are built for namespaces created
// afterwards. Existing namespaces keep their adapter. A nil factory restores
// the in-memory adapter.
func (r *Registry) SetAdapterFactory(factory AdapterFactory) {
	if factory == nil {
		factory = memoryAdapterFactory
	}

	r.mu.Lock()
	r.newAdapter = factory
	r.mu.Unlock()
}

// Create validates name and registers a new namespace under it.
func (r *Registry) Create(name string) (*Namespace, error) {
	nsName, err := ParseNamespaceName(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.namespaces[nsName]; exists {
		return nil, ErrDuplicateNamespace
	}

	ns := newNamespace(nsName, r.newAdapter, r.logger)
	r.namespaces[nsName] = ns
	r.logger.Info("namespace created", "nsp", name)

	return ns, nil
}

// Lookup returns the namespace registered under name.
func (r *Registry) Lookup(name string) (*Namespace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ns, ok := r.namespaces[NamespaceName(name)]
	return ns, ok
}

// Names returns the registered namespace paths in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.namespaces))
	for name := range r.namespaces {
		names = append(names, name.String())
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{Namespaces: len(r.namespaces)}
	for _, ns := range r.namespaces {
		stats.Rooms += len(ns.Rooms())
		stats.Sockets += len(ns.Connections())
	}
	return stats
}

func (r *Registry) each(fn func(*Namespace)) {
	r.mu.RLock()
	namespaces := make([]*Namespace, 0, len(r.namespaces))
	for _, ns := range r.namespaces {
		namespaces = append(namespaces, ns)
	}
	r.mu.RUnlock()

	for _, ns := range namespaces {
		fn(ns)
	}
}
