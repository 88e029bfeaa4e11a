package codegen

import (
	"context"

	"github.com/apx-dev/apx/internal/changecache"
	"github.com/apx-dev/apx/internal/logging"
	"github.com/apx-dev/apx/internal/step"
	"github.com/apx-dev/apx/internal/supervisor"
)

// Config names the two external generators and the schema file that
// links them. Both commands are opaque to the pipeline core.
type Config struct {
	// SchemaCommand produces the API description file at SchemaPath.
	SchemaCommand string

	// ClientCommand consumes SchemaPath and regenerates the client.
	ClientCommand string

	// SchemaPath is the change-cache key for the client generator.
	SchemaPath string
}

// Steps assembles the codegen pipeline segment: the schema generator
// as a plain shell-command step, then a cache-gated callback that runs
// the client generator only when the schema content actually changed.
func Steps(cfg Config, cache *changecache.Cache, sup *supervisor.Supervisor, log *logging.Logger) []step.Spec {
	if log == nil {
		log = logging.NopLogger()
	}

	specs := make([]step.Spec, 0, 2)
	if cfg.SchemaCommand != "" {
		specs = append(specs, step.Command("openapi-schema", cfg.SchemaCommand))
	}
	if cfg.ClientCommand != "" {
		specs = append(specs, step.Callback("openapi-client",
			clientStep(cfg, cache, sup, log.WithStep("openapi-client"))))
	}
	return specs
}

// clientStep returns the cache-gated client generator. The cache is
// committed only after the generator succeeds, so a failed run leaves
// the schema marked dirty and the next run retries.
func clientStep(cfg Config, cache *changecache.Cache, sup *supervisor.Supervisor, log *logging.Logger) step.Func {
	return func(ctx context.Context) error {
		decision, hash := cache.ShouldRun(cfg.SchemaPath)
		switch decision {
		case changecache.Unchanged:
			log.Info("schema unchanged, skipping client generation", "schema", cfg.SchemaPath)
			return nil
		case changecache.Missing:
			log.Warn("schema file missing, skipping client generation", "schema", cfg.SchemaPath)
			return nil
		}

		log.Info("schema changed, generating client", "schema", cfg.SchemaPath)
		if err := sup.Run(ctx, cfg.ClientCommand); err != nil {
			return err
		}
		cache.Commit(cfg.SchemaPath, hash)
		return nil
	}
}
