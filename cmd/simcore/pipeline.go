package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"simcore/internal/archive"
	"simcore/internal/blob"
	blobcore "simcore/internal/blob/core"
	"simcore/internal/core"
	"simcore/plugins/network"
)

// Pipeline is the YAML description of a run.
//
//	name: demo
//	snapshots: true
//	persistence: {driver: sqlite, sqlite_path: ./demo.db}
//	archive: {driver: fs, fs_root: ./archives}
//	stages:
//	  - module: network.grid
//	    params: {cols: 4, rows: 4}
//	  - parallel:
//	      - module: network.runoff
//	      - module: network.classify
type Pipeline struct {
	Name        string                  `yaml:"name"`
	Snapshots   *bool                   `yaml:"snapshots"`
	Persistence *core.PersistenceConfig `yaml:"persistence"`
	Archive     *ArchiveConfig          `yaml:"archive"`
	Stages      []Stage                 `yaml:"stages"`
}

// ArchiveConfig selects where the final system is saved. An empty key uses
// archive.Key.
type ArchiveConfig struct {
	blobcore.Config `yaml:",inline"`
	Key             string `yaml:"key"`
}

// Stage runs one module, or several concurrently on the same system.
type Stage struct {
	Module   string         `yaml:"module"`
	Params   map[string]any `yaml:"params"`
	Parallel []Stage        `yaml:"parallel"`
}

func loadPipeline(path string) (Pipeline, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied pipeline file
	if err != nil {
		return Pipeline{}, err
	}
	return parsePipeline(data)
}

func parsePipeline(data []byte) (Pipeline, error) {
	var p Pipeline
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Pipeline{}, fmt.Errorf("parse pipeline: %w", err)
	}
	if err := p.validate(); err != nil {
		return Pipeline{}, err
	}
	return p, nil
}

func (p Pipeline) validate() error {
	if len(p.Stages) == 0 {
		return fmt.Errorf("pipeline %q has no stages", p.Name)
	}
	for i, st := range p.Stages {
		switch {
		case st.Module != "" && len(st.Parallel) > 0:
			return fmt.Errorf("stage %d: set either module or parallel", i)
		case st.Module == "" && len(st.Parallel) == 0:
			return fmt.Errorf("stage %d: missing module", i)
		}
		for j, sub := range st.Parallel {
			if sub.Module == "" || len(sub.Parallel) > 0 {
				return fmt.Errorf("stage %d.%d: parallel entries name exactly one module", i, j)
			}
		}
	}
	return nil
}

func (p Pipeline) snapshots() bool { return p.Snapshots == nil || *p.Snapshots }

// runResult is what a pipeline run produced.
type runResult struct {
	System     *core.System
	ArchiveKey string
	Archive    blobcore.Info
}

// plannedStage holds the modules of one stage, built before anything runs so
// configuration errors surface early.
type plannedStage struct {
	modules  []core.Module
	parallel bool
}

func (a *app) execute(ctx context.Context, p Pipeline, reg prometheus.Registerer) (runResult, error) {
	logger := newZapLogger(a.logger)
	tp := newTracerProvider(a.logger)
	defer func() { _ = tp.Shutdown(context.WithoutCancel(ctx)) }()

	svc, err := a.service(
		core.WithMetricsRecorder(core.NewPrometheusMetricsRecorder(reg)),
		core.WithTracer(core.NewOTelTracer(tp)),
		core.WithSnapshots(p.snapshots()),
	)
	if err != nil {
		return runResult{}, err
	}
	plan, err := planStages(svc, p.Stages)
	if err != nil {
		return runResult{}, err
	}

	pcfg := core.PersistenceConfig{}
	if p.Persistence != nil {
		pcfg = *p.Persistence
	} else if pcfg, err = core.PersistenceConfigFromEnv(); err != nil {
		return runResult{}, err
	}
	pers, err := core.OpenPersistence(ctx, pcfg, logger)
	if err != nil {
		return runResult{}, err
	}
	defer func() {
		if cerr := pers.Close(); cerr != nil {
			logger.Warn("close persistence", "error", cerr)
		}
	}()

	cur := core.NewSystem(
		core.WithPersistHook(pers.Hook),
		core.WithSystemLogger(logger),
		core.WithAreaSampler(network.GridSampler{}),
	)
	for _, st := range plan {
		if st.parallel {
			cur, err = svc.RunStages(ctx, cur, st.modules...)
		} else {
			cur, err = svc.RunStage(ctx, cur, st.modules[0])
		}
		if err != nil {
			return runResult{}, err
		}
	}
	if err := pers.Flush(ctx); err != nil {
		return runResult{}, fmt.Errorf("flush persistence: %w", err)
	}
	res := runResult{System: cur}
	if p.Archive == nil {
		return res, nil
	}
	store, err := blob.Open(ctx, p.Archive.Config)
	if err != nil {
		return runResult{}, err
	}
	res.ArchiveKey = p.Archive.Key
	if res.ArchiveKey == "" {
		res.ArchiveKey = archive.Key(cur)
	}
	if res.Archive, err = archive.Save(ctx, store, res.ArchiveKey, cur); err != nil {
		return runResult{}, err
	}
	logger.Info("system archived", "key", res.ArchiveKey, "driver", string(store.Driver()))
	return res, nil
}

func planStages(svc *core.Service, stages []Stage) ([]plannedStage, error) {
	plan := make([]plannedStage, 0, len(stages))
	for _, st := range stages {
		entries := []Stage{st}
		if len(st.Parallel) > 0 {
			entries = st.Parallel
		}
		ps := plannedStage{parallel: len(st.Parallel) > 0}
		for _, e := range entries {
			m, err := svc.NewModule(e.Module, e.Params)
			if err != nil {
				return nil, err
			}
			ps.modules = append(ps.modules, m)
		}
		plan = append(plan, ps)
	}
	return plan, nil
}
