package tools

import (
	"sync"
)

// Registry is the set of tools exposed over MCP. Tools may be registered
// and unregistered at runtime; the server syncs against it.
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, t)
	}
	return result
}

// DefaultRegistry builds the registry with every netwait tool registered.
func DefaultRegistry(waitTool *WaitForTargetsTool, checkTool *CheckTargetTool, validateTool *ValidateTargetTool) *Registry {
	r := NewRegistry()
	r.Register(waitTool)
	r.Register(checkTool)
	r.Register(validateTool)
	return r
}
