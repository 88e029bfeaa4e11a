package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apx-dev/apx/internal/config"
	"github.com/apx-dev/apx/internal/logging"
	"github.com/apx-dev/apx/internal/project"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run the pipeline once and stage deployable artifacts",
	Long: `Run the full build pipeline (codegen and any configured steps), then
assemble the .build directory: app.yaml, the bundle output, files
matching build.include, and requirements.txt.`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	log, err := logging.NewLogger("", "apx", cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer log.Close()

	// A broken manifest should fail the build up front, not surface as
	// a staging copy error at the end.
	manifest, err := project.LoadAppConfig(root)
	if err != nil {
		return fmt.Errorf("invalid app manifest: %w", err)
	}
	log.Info("app manifest loaded", "command", strings.Join(manifest.Command, " "))

	adapter, _, err := assemblePipeline(root, cfg, log)
	if err != nil {
		return err
	}

	// One full bundler lifecycle, start to finish.
	adapter.ConfigResolved(adapterOutputDir(root))
	if err := adapter.BuildStarting(); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	adapter.BundleWritten()
	adapter.BundleClosed()

	stager, err := project.NewStager(root, cfg.Build.Include, log)
	if err != nil {
		return err
	}
	bundleDir := ""
	if cfg.Build.OutputDir != "" {
		bundleDir = filepath.Join(root, cfg.Build.OutputDir)
		if _, statErr := os.Stat(bundleDir); statErr != nil {
			// No bundle output is fine for backend-only projects.
			bundleDir = ""
		}
	}
	if err := stager.Stage(bundleDir, cfg.Build.Requirements); err != nil {
		return err
	}

	fmt.Printf("build staged in %s\n", stager.Dir())
	return nil
}
