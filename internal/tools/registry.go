package tools

import (
	"slices"
	"sync"

	"github.com/vajrock/debugger-mcp/internal/protocol"
)

// Registry maps tool names to tools. It is safe for concurrent use. A
// caller that resolved a tool keeps its own reference, so unregistering
// a tool does not affect calls already in flight.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]entry
	seq      uint64
	onChange func()
}

type entry struct {
	tool Tool
	seq  uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]entry)}
}

// OnChange sets a hook called after every Register or Unregister that
// changed the registry. It runs outside the registry lock.
func (r *Registry) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// Register adds t, replacing any tool with the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	r.seq++
	r.tools[t.Name()] = entry{tool: t, seq: r.seq}
	hook := r.onChange
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// Unregister removes the named tool. It is a no-op if absent.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	_, existed := r.tools[name]
	delete(r.tools, name)
	hook := r.onChange
	r.mu.Unlock()

	if existed && hook != nil {
		hook()
	}
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	return e.tool, ok
}

// List returns a snapshot of all tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	entries := make([]entry, 0, len(r.tools))
	for _, e := range r.tools {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	slices.SortFunc(entries, func(a, b entry) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	out := make([]Tool, len(entries))
	for i, e := range entries {
		out[i] = e.tool
	}
	return out
}

// Definitions returns the tools/list payload for a snapshot of the registry.
func (r *Registry) Definitions() []protocol.ToolDefinition {
	list := r.List()
	defs := make([]protocol.ToolDefinition, len(list))
	for i, t := range list {
		defs[i] = Definition(t)
	}
	return defs
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
