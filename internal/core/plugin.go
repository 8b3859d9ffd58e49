package core

import (
	"fmt"
	"sort"
)

// Plugin contributes processing modules to a service.
type Plugin interface {
	Name() string
	Version() string
	Register(registry *PluginRegistry) error
}

// ModuleFactory builds a module from pipeline parameters.
type ModuleFactory func(params map[string]any) (Module, error)

// ModuleDescriptor describes a registered module factory.
type ModuleDescriptor struct {
	Name        string
	Description string
	Plugin      string
	Factory     ModuleFactory
}

// PluginRegistry accumulates plugin contributions during registration.
type PluginRegistry struct {
	modules map[string]ModuleDescriptor
}

// NewPluginRegistry constructs a plugin registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{modules: make(map[string]ModuleDescriptor)}
}

// RegisterModule adds a module factory under name.
func (r *PluginRegistry) RegisterModule(name, description string, factory ModuleFactory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("module requires a name and a factory")
	}
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %s already registered", name)
	}
	r.modules[name] = ModuleDescriptor{Name: name, Description: description, Factory: factory}
	return nil
}

// Modules returns the registered modules sorted by name.
func (r *PluginRegistry) Modules() []ModuleDescriptor {
	out := make([]ModuleDescriptor, 0, len(r.modules))
	for _, d := range r.modules {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PluginMetadata stores metadata describing an installed plugin.
type PluginMetadata struct {
	Name    string
	Version string
	Modules []string
}
