// File: adapters/control_adapter.go
// Package adapters
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Control adapter implementing api.Control interface using control package primitives.

package adapters

import (
	"github.com/momentics/mediadispatch/api"
	"github.com/momentics/mediadispatch/control"
)

// ControlAdapter bridges api.Control to internal control primitives. The
// dispatchd entrypoint builds one to hold the access token, register debug
// probes and hand its MetricsRegistry to the Authentication Gate; the Server
// Registry and the WebSocket Interceptor do not publish through it.
type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
}

// NewControlAdapter constructs a new ControlAdapter.
func NewControlAdapter() *ControlAdapter {
	return &ControlAdapter{
		config:  control.NewConfigStore(),
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
	}
}

// GetConfig returns a snapshot of the current configuration.
func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

// SetConfig merges and applies new configuration, then triggers reload hooks.
func (c *ControlAdapter) SetConfig(cfg map[string]any) error {
	c.config.SetConfig(cfg)
	return nil
}

// Stats returns merged config snapshot, metrics and debug probe data.
func (c *ControlAdapter) Stats() map[string]any {
	combined := make(map[string]any)
	for k, v := range c.config.GetSnapshot() {
		combined[k] = v
	}
	for k, v := range c.metrics.GetSnapshot() {
		combined["metrics."+k] = v
	}
	for k, v := range c.debug.DumpState() {
		combined["debug."+k] = v
	}
	return combined
}

// OnReload registers a callback invoked on configuration changes.
func (c *ControlAdapter) OnReload(fn func()) {
	c.config.OnReload(fn)
}

// RegisterDebugProbe registers a named debug probe function.
func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

// GetDebug exposes the underlying Debug façade.
func (c *ControlAdapter) GetDebug() api.Debug {
	return c.debug
}

// Metrics exposes the underlying MetricsRegistry for components that need to
// set counters directly (the Auth Gate).
func (c *ControlAdapter) Metrics() *control.MetricsRegistry {
	return c.metrics
}

var _ api.Control = (*ControlAdapter)(nil)
