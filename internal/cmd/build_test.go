package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/apx-dev/apx/internal/project"
)

func setupBuildProject(t *testing.T, manifest string) string {
	t.Helper()
	root := t.TempDir()
	t.Chdir(root)
	viper.Reset()
	t.Cleanup(viper.Reset)

	if manifest != "" {
		if err := os.WriteFile(filepath.Join(root, project.AppConfigName), []byte(manifest), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestRunBuild_MissingManifestFailsEarly(t *testing.T) {
	setupBuildProject(t, "")

	err := runBuild(buildCmd, nil)
	if err == nil {
		t.Fatal("runBuild succeeded without an app manifest")
	}
	if !strings.Contains(err.Error(), "app manifest") {
		t.Errorf("error = %v, want mention of the app manifest", err)
	}
}

func TestRunBuild_InvalidManifestFailsEarly(t *testing.T) {
	setupBuildProject(t, "command: {not a list\n")

	err := runBuild(buildCmd, nil)
	if err == nil {
		t.Fatal("runBuild accepted an unparseable app manifest")
	}
	if !strings.Contains(err.Error(), "app manifest") {
		t.Errorf("error = %v, want mention of the app manifest", err)
	}
}

func TestRunBuild_StagesValidManifest(t *testing.T) {
	root := setupBuildProject(t, "command: [\"uvicorn\", \"server.app:app\"]\n")

	if err := runBuild(buildCmd, nil); err != nil {
		t.Fatalf("runBuild: %v", err)
	}
	staged := filepath.Join(root, project.BuildDir, project.AppConfigName)
	if _, err := os.Stat(staged); err != nil {
		t.Errorf("app manifest not staged: %v", err)
	}
}
