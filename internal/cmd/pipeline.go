package cmd

import (
	"path/filepath"

	"github.com/apx-dev/apx/internal/bundler"
	"github.com/apx-dev/apx/internal/changecache"
	"github.com/apx-dev/apx/internal/codegen"
	"github.com/apx-dev/apx/internal/config"
	"github.com/apx-dev/apx/internal/logging"
	"github.com/apx-dev/apx/internal/outdir"
	"github.com/apx-dev/apx/internal/project"
	"github.com/apx-dev/apx/internal/runner"
	"github.com/apx-dev/apx/internal/step"
	"github.com/apx-dev/apx/internal/supervisor"
)

// assemblePipeline wires the full pipeline for one project root:
// configured pre steps, the codegen segment, configured post steps,
// all guarded on the project's dot directory.
func assemblePipeline(root string, cfg *config.Config, log *logging.Logger) (*bundler.Adapter, *runner.Runner, error) {
	guard := outdir.New(filepath.Join(root, project.DotDir), log)
	sup := supervisor.New(log)
	cache := changecache.New()

	steps := make([]step.Spec, 0,
		len(cfg.Pipeline.PreSteps)+len(cfg.Pipeline.PostSteps)+2)
	for _, s := range cfg.Pipeline.PreSteps {
		steps = append(steps, step.Command(s.Name, s.Run))
	}
	steps = append(steps, codegen.Steps(codegen.Config{
		SchemaCommand: cfg.Codegen.SchemaCommand,
		ClientCommand: cfg.Codegen.ClientCommand,
		SchemaPath:    filepath.Join(root, cfg.Codegen.SchemaPath),
	}, cache, sup, log)...)
	for _, s := range cfg.Pipeline.PostSteps {
		steps = append(steps, step.Command(s.Name, s.Run))
	}

	r, err := runner.New(runner.Config{
		Steps:       steps,
		Guard:       guard,
		Supervisor:  sup,
		Logger:      log,
		QuietPeriod: cfg.Pipeline.Debounce(),
		OnError: func(err error) {
			log.Error("pipeline run failed", "error", err)
		},
	})
	if err != nil {
		return nil, nil, err
	}

	adapter := bundler.NewAdapter(r, guard, cfg.Watch.Ignore, log)
	return adapter, r, nil
}

// projectLogDir is where the dev processes write their log files.
func projectLogDir(root string) string {
	return filepath.Join(root, project.DotDir, "logs")
}

// adapterOutputDir is the directory the output guard maintains: the
// project dot dir, which holds the generated schema and client inputs.
func adapterOutputDir(root string) string {
	return filepath.Join(root, project.DotDir)
}
