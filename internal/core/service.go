package core

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"simcore/pkg/domain"
)

// Service runs processing modules against systems and tracks the installed
// plugins that provide them.
type Service struct {
	mu        sync.RWMutex
	plugins   map[string]PluginMetadata
	modules   map[string]ModuleDescriptor
	clock     Clock
	logger    Logger
	metrics   MetricsRecorder
	tracer    Tracer
	snapshots bool
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for metrics.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithSnapshots controls whether every stage ends with a successor snapshot.
// It is on by default.
func WithSnapshots(enabled bool) Option {
	return func(s *Service) { s.snapshots = enabled }
}

// NewService constructs a service.
func NewService(opts ...Option) *Service {
	s := &Service{
		plugins:   make(map[string]PluginMetadata),
		modules:   make(map[string]ModuleDescriptor),
		clock:     systemClock{},
		logger:    noopLogger{},
		metrics:   noopMetrics{},
		tracer:    noopTracer{},
		snapshots: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Logger returns the service logger.
func (s *Service) Logger() Logger { return s.logger }

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, s.clock.Now().Sub(start))
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "error", err)
		return err
	}
	s.logger.Debug("operation completed", "operation", op)
	return nil
}

// RunStage binds the module views on sys, runs the module and returns the
// snapshot the next stage should read: a successor of sys, or sys itself when
// snapshots are disabled.
func (s *Service) RunStage(ctx context.Context, sys *System, m Module) (*System, error) {
	if sys == nil || m == nil {
		return nil, fmt.Errorf("stage requires a system and a module")
	}
	var out *System
	err := s.run(ctx, "stage."+m.Name(), func(ctx context.Context) error {
		if err := s.execute(ctx, sys, m); err != nil {
			return err
		}
		out = sys
		if s.snapshots {
			out = sys.CreateSuccessor()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) execute(ctx context.Context, sys *System, m Module) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sc, err := bindStage(sys, m, s.logger)
	if err != nil {
		return fmt.Errorf("bind views of %s: %w", m.Name(), err)
	}
	if err := m.Run(ctx, sc); err != nil {
		return fmt.Errorf("module %s: %w", m.Name(), err)
	}
	return nil
}

// RunPipeline runs modules in order, each reading the snapshot produced by the
// previous stage, and returns the last snapshot.
func (s *Service) RunPipeline(ctx context.Context, sys *System, modules ...Module) (*System, error) {
	cur := sys
	for _, m := range modules {
		next, err := s.RunStage(ctx, cur, m)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// RunStages runs independent modules concurrently on the same system. Each
// module synchronises through the system lock; the first error cancels the
// context handed to the others. When snapshots are enabled the result is a
// successor created after every module finished.
func (s *Service) RunStages(ctx context.Context, sys *System, modules ...Module) (*System, error) {
	if sys == nil {
		return nil, fmt.Errorf("stages require a system")
	}
	var out *System
	err := s.run(ctx, "stages", func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		for _, m := range modules {
			g.Go(func() error {
				return s.run(gctx, "stage."+m.Name(), func(ctx context.Context) error {
					return s.execute(ctx, sys, m)
				})
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		out = sys
		if s.snapshots {
			out = sys.CreateSuccessor()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// InstallPlugin registers the modules a plugin contributes.
func (s *Service) InstallPlugin(plugin Plugin) (PluginMetadata, error) {
	if plugin == nil {
		return PluginMetadata{}, fmt.Errorf("plugin cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plugins[plugin.Name()]; ok {
		return PluginMetadata{}, fmt.Errorf("plugin %s already registered", plugin.Name())
	}
	registry := NewPluginRegistry()
	if err := plugin.Register(registry); err != nil {
		return PluginMetadata{}, err
	}
	mods := registry.Modules()
	for _, d := range mods {
		if existing, ok := s.modules[d.Name]; ok {
			return PluginMetadata{}, fmt.Errorf("module %s already provided by plugin %s", d.Name, existing.Plugin)
		}
	}
	meta := PluginMetadata{Name: plugin.Name(), Version: plugin.Version()}
	for _, d := range mods {
		d.Plugin = plugin.Name()
		s.modules[d.Name] = d
		meta.Modules = append(meta.Modules, d.Name)
	}
	s.plugins[plugin.Name()] = meta
	s.logger.Info("plugin installed", "plugin", meta.Name, "version", meta.Version, "modules", len(meta.Modules))
	return meta, nil
}

// RegisteredPlugins returns metadata of installed plugins sorted by name.
func (s *Service) RegisteredPlugins() []PluginMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PluginMetadata, 0, len(s.plugins))
	for _, meta := range s.plugins {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Modules returns every installed module sorted by name.
func (s *Service) Modules() []ModuleDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ModuleDescriptor, 0, len(s.modules))
	for _, d := range s.modules {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NewModule instantiates an installed module.
func (s *Service) NewModule(name string, params map[string]any) (Module, error) {
	s.mu.RLock()
	d, ok := s.modules[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownModule, name)
	}
	m, err := d.Factory(params)
	if err != nil {
		return nil, fmt.Errorf("configure module %s: %w", name, err)
	}
	return m, nil
}
