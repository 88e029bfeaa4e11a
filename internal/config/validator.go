package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "pipeline.debounce_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateDev()...)
	errors = append(errors, c.validatePipeline()...)
	errors = append(errors, c.validateCodegen()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateDev() []ValidationError {
	var errors []ValidationError

	if c.Dev.FrontendPort < 0 || c.Dev.FrontendPort > 65535 {
		errors = append(errors, ValidationError{
			Field:   "dev.frontend_port",
			Value:   c.Dev.FrontendPort,
			Message: "must be a valid port number",
		})
	}
	if c.Dev.BackendPort < 0 || c.Dev.BackendPort > 65535 {
		errors = append(errors, ValidationError{
			Field:   "dev.backend_port",
			Value:   c.Dev.BackendPort,
			Message: "must be a valid port number",
		})
	}

	return errors
}

func (c *Config) validatePipeline() []ValidationError {
	var errors []ValidationError

	if c.Pipeline.DebounceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.debounce_ms",
			Value:   c.Pipeline.DebounceMs,
			Message: "must be non-negative",
		})
	}

	for i, s := range c.Pipeline.PreSteps {
		if s.Name == "" || s.Run == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("pipeline.pre_steps[%d]", i),
				Value:   s,
				Message: "requires both name and run",
			})
		}
	}
	for i, s := range c.Pipeline.PostSteps {
		if s.Name == "" || s.Run == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("pipeline.post_steps[%d]", i),
				Value:   s,
				Message: "requires both name and run",
			})
		}
	}

	return errors
}

func (c *Config) validateCodegen() []ValidationError {
	var errors []ValidationError

	// A client generator without a schema file has nothing to key on.
	if c.Codegen.ClientCommand != "" && c.Codegen.SchemaPath == "" {
		errors = append(errors, ValidationError{
			Field:   "codegen.schema_path",
			Value:   c.Codegen.SchemaPath,
			Message: "required when codegen.client_command is set",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
