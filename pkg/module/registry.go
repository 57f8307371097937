package module

import (
	"sort"
	"sync"
)

// Registry maps qualified names to modules for a single namespace
// (project, standard library or dependency cache). Entries are never removed.
type Registry struct {
	mu      sync.RWMutex
	kind    Kind
	modules map[string]*Module
}

// NewRegistry creates an empty registry for the given namespace.
func NewRegistry(kind Kind) *Registry {
	return &Registry{
		kind:    kind,
		modules: make(map[string]*Module),
	}
}

// Kind returns the namespace this registry stores.
func (r *Registry) Kind() Kind {
	return r.kind
}

// Put stores m under its qualified name, overwriting any prior entry.
func (r *Registry) Put(m *Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[m.QualifiedName] = m
}

// Get looks up a module by qualified name.
func (r *Registry) Get(qualifiedName string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[qualifiedName]
	return m, ok
}

// Len returns the number of modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

// Names returns the sorted qualified names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Modules returns every module sorted by qualified name.
func (r *Registry) Modules() []*Module {
	r.mu.RLock()
	out := make([]*Module, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].QualifiedName < out[j].QualifiedName
	})
	return out
}

// TopLevelNames returns the distinct first components of every qualified name.
func (r *Registry) TopLevelNames() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]struct{}, len(r.modules))
	for name := range r.modules {
		out[TopLevel(name)] = struct{}{}
	}
	return out
}

// PathIndex is the reverse lookup from absolute source path to module,
// shared by every namespace of a workspace.
type PathIndex struct {
	mu      sync.RWMutex
	modules map[string]*Module
}

// NewPathIndex creates an empty reverse index.
func NewPathIndex() *PathIndex {
	return &PathIndex{modules: make(map[string]*Module)}
}

// Put records m under path. Modules without a path are ignored.
func (p *PathIndex) Put(path string, m *Module) {
	if path == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modules[path] = m
}

// Get returns the module whose source lives at path.
func (p *PathIndex) Get(path string) (*Module, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.modules[path]
	return m, ok
}

// Len returns the number of indexed paths.
func (p *PathIndex) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.modules)
}
