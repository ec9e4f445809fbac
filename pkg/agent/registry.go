package agent

import "sync"

// Factory builds a fresh Agent. Every call must return a new agent with its
// own chat; delegated tasks never share history.
type Factory func() *Agent

// Entry is the public face of a registered agent.
type Entry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type registration struct {
	Entry
	factory Factory
}

// Registry maps agent names to factories. Entries keep registration order,
// so delegation tools follow the configuration. It is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	order []string
	regs  map[string]registration
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{regs: make(map[string]registration)}
}

// Register adds factory under name. Registering a name again replaces the
// factory and description but keeps the original position.
func (r *Registry) Register(name, description string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.regs[name]; !ok {
		r.order = append(r.order, name)
	}
	r.regs[name] = registration{Entry: Entry{Name: name, Description: description}, factory: factory}
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.regs[name]
	return ok
}

// List returns the entries in registration order.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, len(r.order))
	for i, name := range r.order {
		out[i] = r.regs[name].Entry
	}
	return out
}

// Spawn builds a new instance of name. The factory runs outside the lock so
// it may consult the registry itself.
func (r *Registry) Spawn(name string) (*Agent, bool) {
	r.mu.RLock()
	reg, ok := r.regs[name]
	r.mu.RUnlock()

	if !ok {
		return nil, false
	}

	return reg.factory(), true
}
