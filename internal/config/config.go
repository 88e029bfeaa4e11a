package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete apx configuration
type Config struct {
	Dev      DevConfig      `mapstructure:"dev"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Codegen  CodegenConfig  `mapstructure:"codegen"`
	Build    BuildConfig    `mapstructure:"build"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DevConfig controls the managed dev processes
type DevConfig struct {
	// FrontendCommand starts the frontend bundler dev server
	FrontendCommand string `mapstructure:"frontend_command"`
	// FrontendPort is the bundler dev server port
	FrontendPort int `mapstructure:"frontend_port"`
	// BackendCommand starts the backend app server
	BackendCommand string `mapstructure:"backend_command"`
	// BackendPort is the backend server port
	BackendPort int `mapstructure:"backend_port"`
	// OpenAPICommand starts the schema watcher process (optional)
	OpenAPICommand string `mapstructure:"openapi_command"`
}

// PipelineStep is one user-configured pipeline step ({name, run})
type PipelineStep struct {
	Name string `mapstructure:"name"`
	Run  string `mapstructure:"run"`
}

// PipelineConfig controls the build pipeline
type PipelineConfig struct {
	// DebounceMs is the quiet period for file-change triggers (in milliseconds)
	DebounceMs int `mapstructure:"debounce_ms"`
	// PreSteps run before the codegen steps, in order
	PreSteps []PipelineStep `mapstructure:"pre_steps"`
	// PostSteps run after the codegen steps, in order
	PostSteps []PipelineStep `mapstructure:"post_steps"`
}

// Debounce returns the quiet period as a time.Duration
func (p *PipelineConfig) Debounce() time.Duration {
	return time.Duration(p.DebounceMs) * time.Millisecond
}

// CodegenConfig controls schema export and client generation
type CodegenConfig struct {
	// SchemaCommand writes the API description file to SchemaPath
	SchemaCommand string `mapstructure:"schema_command"`
	// ClientCommand regenerates the API client from SchemaPath
	ClientCommand string `mapstructure:"client_command"`
	// SchemaPath is the API description file, relative to the project root
	SchemaPath string `mapstructure:"schema_path"`
}

// BuildConfig controls artifact staging
type BuildConfig struct {
	// OutputDir is the bundler's output directory
	OutputDir string `mapstructure:"output_dir"`
	// Include are glob patterns (root-relative, '/' separated) for extra
	// files staged into the build
	Include []string `mapstructure:"include"`
	// Requirements are the Python dependencies written to requirements.txt
	Requirements []string `mapstructure:"requirements"`
}

// WatchConfig controls the file watcher
type WatchConfig struct {
	// Ignore holds substring/path-prefix patterns; changes under matching
	// paths never trigger the pipeline
	Ignore []string `mapstructure:"ignore"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Dev: DevConfig{
			FrontendCommand: "npm run dev",
			FrontendPort:    5173,
			BackendCommand:  "uvicorn server.app:app --reload --port 8000",
			BackendPort:     8000,
			OpenAPICommand:  "",
		},
		Pipeline: PipelineConfig{
			DebounceMs: 300,
			PreSteps:   []PipelineStep{},
			PostSteps:  []PipelineStep{},
		},
		Codegen: CodegenConfig{
			SchemaCommand: "",
			ClientCommand: "",
			SchemaPath:    filepath.Join(".apx", "openapi.json"),
		},
		Build: BuildConfig{
			OutputDir:    "dist",
			Include:      []string{"server/**.py", "app.yaml"},
			Requirements: []string{},
		},
		Watch: WatchConfig{
			Ignore: []string{".apx", ".build", "node_modules", ".git", "dist"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Dev defaults
	viper.SetDefault("dev.frontend_command", defaults.Dev.FrontendCommand)
	viper.SetDefault("dev.frontend_port", defaults.Dev.FrontendPort)
	viper.SetDefault("dev.backend_command", defaults.Dev.BackendCommand)
	viper.SetDefault("dev.backend_port", defaults.Dev.BackendPort)
	viper.SetDefault("dev.openapi_command", defaults.Dev.OpenAPICommand)

	// Pipeline defaults
	viper.SetDefault("pipeline.debounce_ms", defaults.Pipeline.DebounceMs)
	viper.SetDefault("pipeline.pre_steps", defaults.Pipeline.PreSteps)
	viper.SetDefault("pipeline.post_steps", defaults.Pipeline.PostSteps)

	// Codegen defaults
	viper.SetDefault("codegen.schema_command", defaults.Codegen.SchemaCommand)
	viper.SetDefault("codegen.client_command", defaults.Codegen.ClientCommand)
	viper.SetDefault("codegen.schema_path", defaults.Codegen.SchemaPath)

	// Build defaults
	viper.SetDefault("build.output_dir", defaults.Build.OutputDir)
	viper.SetDefault("build.include", defaults.Build.Include)
	viper.SetDefault("build.requirements", defaults.Build.Requirements)

	// Watch defaults
	viper.SetDefault("watch.ignore", defaults.Watch.Ignore)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "apx")
	}
	// Fall back to ~/.config/apx
	home, err := os.UserHomeDir()
	if err != nil {
		return ".apx"
	}
	return filepath.Join(home, ".config", "apx")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
