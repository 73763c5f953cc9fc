package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Registry is a concurrency-safe set of tools keyed by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry holding the given tools.
func NewRegistry(ts ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register validates and adds a tool. A second tool with the same name is rejected.
func (r *Registry) Register(t Tool) error {
	def := t.Definition()
	if err := validateDefinition(def); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %q already registered", def.Name)
	}
	r.tools[def.Name] = t
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool %q not found", name)
	}
	return t, nil
}

// Definitions returns all tool definitions sorted by name.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// validateDefinition checks the name and that the parameters are an object schema.
func validateDefinition(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Parameters == nil {
		return fmt.Errorf("tool %q: parameters cannot be nil", def.Name)
	}

	raw, err := json.Marshal(def.Parameters)
	if err != nil {
		return fmt.Errorf("tool %q: marshal parameters: %w", def.Name, err)
	}
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		return fmt.Errorf("tool %q: parameters must be a JSON object", def.Name)
	}
	if typ, _ := params["type"].(string); typ != "object" {
		return fmt.Errorf("tool %q: parameters.type must be \"object\", got %v", def.Name, params["type"])
	}
	return nil
}
