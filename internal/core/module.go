package core

import (
	"context"
	"sort"

	"simcore/pkg/domain"
)

// Module is one processing stage. It declares its views up front; the service
// binds a data viewer per view before Run.
type Module interface {
	Name() string
	Views() []domain.View
	Run(ctx context.Context, sc *StageContext) error
}

// StageContext is what a running module sees of its input system.
type StageContext struct {
	system  *System
	viewers map[string]*DataViewer
	logger  Logger
}

func bindStage(sys *System, m Module, logger Logger) (*StageContext, error) {
	sc := &StageContext{system: sys, viewers: make(map[string]*DataViewer), logger: logger}
	for _, v := range m.Views() {
		dv, err := sys.AddDataViewer(v)
		if err != nil {
			return nil, err
		}
		sc.viewers[v.Name()] = dv
	}
	return sc, nil
}

// System returns the system the stage works on.
func (sc *StageContext) System() *System { return sc.system }

// Viewer returns the data viewer bound for a declared view, or nil.
func (sc *StageContext) Viewer(name string) *DataViewer { return sc.viewers[name] }

// ViewNames lists the declared views sorted.
func (sc *StageContext) ViewNames() []string {
	out := make([]string, 0, len(sc.viewers))
	for name := range sc.viewers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Logger returns the service logger.
func (sc *StageContext) Logger() Logger { return sc.logger }
