package project

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/apx-dev/apx/internal/logging"
)

// Stager assembles the deployable .build directory: the app manifest,
// the bundle output, extra project files selected by glob patterns, and
// a requirements manifest.
type Stager struct {
	root     string
	buildDir string
	includes []glob.Glob
	log      *logging.Logger
}

// NewStager compiles the include patterns and returns a Stager. Patterns
// use '/' as the path separator regardless of platform and are matched
// against project-root-relative paths.
func NewStager(root string, includePatterns []string, log *logging.Logger) (*Stager, error) {
	if log == nil {
		log = logging.NopLogger()
	}

	includes := make([]glob.Glob, 0, len(includePatterns))
	for _, p := range includePatterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", p, err)
		}
		includes = append(includes, g)
	}

	return &Stager{
		root:     root,
		buildDir: filepath.Join(root, BuildDir),
		includes: includes,
		log:      log,
	}, nil
}

// Dir returns the staging directory.
func (s *Stager) Dir() string {
	return s.buildDir
}

// Stage rebuilds the .build directory from scratch: the previous staging
// is removed so deleted sources cannot linger in the artifact.
// bundleDir is the bundler's output directory; requirements lists the
// Python dependencies written to requirements.txt.
func (s *Stager) Stage(bundleDir string, requirements []string) error {
	if err := os.RemoveAll(s.buildDir); err != nil {
		return fmt.Errorf("failed to clear staging directory: %w", err)
	}
	if err := os.MkdirAll(s.buildDir, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	if err := s.copyFile(filepath.Join(s.root, AppConfigName), filepath.Join(s.buildDir, AppConfigName)); err != nil {
		return err
	}

	if bundleDir != "" {
		dest := filepath.Join(s.buildDir, "static")
		if err := s.copyTree(bundleDir, dest); err != nil {
			return fmt.Errorf("failed to stage bundle output: %w", err)
		}
	}

	if err := s.copyIncluded(); err != nil {
		return err
	}

	if len(requirements) > 0 {
		manifest := strings.Join(requirements, "\n") + "\n"
		path := filepath.Join(s.buildDir, "requirements.txt")
		if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
			return fmt.Errorf("failed to write requirements.txt: %w", err)
		}
	}

	s.log.Info("artifacts staged", "dir", s.buildDir)
	return nil
}

// copyIncluded walks the project and copies every file whose
// root-relative path matches an include pattern. The staging and dot
// directories are never descended into.
func (s *Stager) copyIncluded() error {
	if len(s.includes) == 0 {
		return nil
	}

	return filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == BuildDir || rel == DotDir {
				return filepath.SkipDir
			}
			return nil
		}

		for _, g := range s.includes {
			if g.Match(rel) {
				dest := filepath.Join(s.buildDir, filepath.FromSlash(rel))
				if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
					return err
				}
				return s.copyFile(path, dest)
			}
		}
		return nil
	})
}

func (s *Stager) copyTree(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(src, path)
		if relErr != nil {
			return relErr
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return s.copyFile(path, target)
	})
}

func (s *Stager) copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
