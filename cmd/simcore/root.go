package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"simcore/internal/core"
	"simcore/plugins/network"
)

// app carries what every command shares. Tests swap out and newLogger.
type app struct {
	out       io.Writer
	verbose   bool
	newLogger func(verbose bool) (*zap.Logger, error)
	logger    *zap.Logger
}

func newApp(out io.Writer) *app {
	return &app{out: out, newLogger: productionLogger}
}

func productionLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "simcore",
		Short:         "Run and inspect simulation system pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := a.newLogger(a.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(a.out)
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")
	root.AddCommand(newRunCmd(a), newInspectCmd(a), newModulesCmd(a))
	return root
}

// service builds a service with every bundled plugin installed.
func (a *app) service(opts ...core.Option) (*core.Service, error) {
	opts = append([]core.Option{core.WithLogger(newZapLogger(a.logger))}, opts...)
	svc := core.NewService(opts...)
	if _, err := svc.InstallPlugin(network.New()); err != nil {
		return nil, err
	}
	return svc, nil
}
