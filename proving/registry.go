package proving

import (
	"sort"
	"sync"
)

// Registry maps alg identifiers to proving methods.
//
// The zero value is not usable; construct with NewRegistry. Registries are
// safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	methods map[string]Method
}

func NewRegistry() *Registry {
	return &Registry{methods: make(map[string]Method)}
}

// Register binds m under its Alg(). A later registration for the same alg
// replaces the earlier one.
func (r *Registry) Register(m Method) {
	if m == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[m.Alg()] = m
}

// Method returns the method registered for alg.
func (r *Registry) Method(alg string) (Method, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.methods[alg]
	return m, ok
}

// Algs returns the registered alg identifiers, sorted.
func (r *Registry) Algs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	algs := make([]string, 0, len(r.methods))
	for alg := range r.methods {
		algs = append(algs, alg)
	}
	sort.Strings(algs)
	return algs
}

// Default is the registry used by jwz.Parse when no registry option is given.
// Programs that need isolated method sets should construct their own.
var Default = NewRegistry()
