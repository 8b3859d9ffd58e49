// Package network contributes the modules of a small drainage network model:
// a grid layout, a rainfall raster, catchment runoff sampling and node
// classification.
package network

import (
	"simcore/internal/core"
)

// Plugin registers the network modules.
type Plugin struct{}

// New constructs a network plugin instance.
func New() Plugin {
	return Plugin{}
}

// Name returns the plugin identifier.
func (Plugin) Name() string { return "network" }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "0.1.0" }

// Register adds the module factories.
func (Plugin) Register(registry *core.PluginRegistry) error {
	modules := []struct {
		name, description string
		factory           core.ModuleFactory
	}{
		{"network.grid", "lay out nodes, conduits and catchments on a regular grid", newGridModule},
		{"network.terrain", "add a constant-depth rainfall raster and optional blocker mask", newTerrainModule},
		{"network.runoff", "sample rainfall over every catchment", newRunoffModule},
		{"network.classify", "classify nodes and give conduits slope and downstream links", newClassifyModule},
	}
	for _, m := range modules {
		if err := registry.RegisterModule(m.name, m.description, m.factory); err != nil {
			return err
		}
	}
	return nil
}
