package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/docsession/internal/engine"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "editor.autosave_interval_ms")
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

// Bounds for numeric settings.
const (
	MinAutosaveIntervalMs = 100
	MaxAutosaveIntervalMs = 10 * 60 * 1000
	MaxRefreshDebounceMs  = 60 * 1000
	MinImageQuality       = 1
	MaxImageQuality       = 100
)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidViewModes returns the list of valid view mode names
func ValidViewModes() []string {
	modes := engine.Modes()
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = m.String()
	}
	return names
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateEditor()...)
	errors = append(errors, c.validateOutline()...)
	errors = append(errors, c.validateExport()...)
	errors = append(errors, c.validateDocuments()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateEditor validates the EditorConfig
func (c *Config) validateEditor() []ValidationError {
	var errors []ValidationError

	if c.Editor.AutosaveIntervalMs < MinAutosaveIntervalMs {
		errors = append(errors, ValidationError{
			Field:   "editor.autosave_interval_ms",
			Value:   c.Editor.AutosaveIntervalMs,
			Message: fmt.Sprintf("must be at least %d", MinAutosaveIntervalMs),
		})
	}
	if c.Editor.AutosaveIntervalMs > MaxAutosaveIntervalMs {
		errors = append(errors, ValidationError{
			Field:   "editor.autosave_interval_ms",
			Value:   c.Editor.AutosaveIntervalMs,
			Message: fmt.Sprintf("exceeds maximum of %d", MaxAutosaveIntervalMs),
		})
	}

	if strings.TrimSpace(c.Editor.UntitledName) == "" {
		errors = append(errors, ValidationError{
			Field:   "editor.untitled_name",
			Value:   c.Editor.UntitledName,
			Message: "cannot be empty",
		})
	} else if strings.ContainsAny(c.Editor.UntitledName, `/\`+"\x00") {
		errors = append(errors, ValidationError{
			Field:   "editor.untitled_name",
			Value:   c.Editor.UntitledName,
			Message: "must be a file name, not a path",
		})
	}

	if ext := c.Editor.DefaultExtension; ext != "" && (!strings.HasPrefix(ext, ".") || strings.ContainsAny(ext, `/\ `)) {
		errors = append(errors, ValidationError{
			Field:   "editor.default_extension",
			Value:   ext,
			Message: "must start with '.' and contain no separators or spaces",
		})
	}

	if c.Editor.DefaultViewMode != "" {
		if _, err := engine.ParseMode(c.Editor.DefaultViewMode); err != nil {
			errors = append(errors, ValidationError{
				Field:   "editor.default_view_mode",
				Value:   c.Editor.DefaultViewMode,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidViewModes(), ", ")),
			})
		}
	}

	return errors
}

// validateOutline validates the OutlineConfig
func (c *Config) validateOutline() []ValidationError {
	var errors []ValidationError

	if c.Outline.RefreshDebounceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "outline.refresh_debounce_ms",
			Value:   c.Outline.RefreshDebounceMs,
			Message: "must be non-negative",
		})
	}
	if c.Outline.RefreshDebounceMs > MaxRefreshDebounceMs {
		errors = append(errors, ValidationError{
			Field:   "outline.refresh_debounce_ms",
			Value:   c.Outline.RefreshDebounceMs,
			Message: fmt.Sprintf("exceeds maximum of %d", MaxRefreshDebounceMs),
		})
	}

	return errors
}

// validateExport validates the ExportConfig
func (c *Config) validateExport() []ValidationError {
	var errors []ValidationError

	if c.Export.ImageQuality < MinImageQuality || c.Export.ImageQuality > MaxImageQuality {
		errors = append(errors, ValidationError{
			Field:   "export.image_quality",
			Value:   c.Export.ImageQuality,
			Message: fmt.Sprintf("must be between %d and %d", MinImageQuality, MaxImageQuality),
		})
	}

	return errors
}

// validateDocuments validates the DocumentsConfig
func (c *Config) validateDocuments() []ValidationError {
	var errors []ValidationError

	if len(c.Documents.Patterns) == 0 {
		errors = append(errors, ValidationError{
			Field:   "documents.patterns",
			Value:   c.Documents.Patterns,
			Message: "at least one pattern is required",
		})
	}

	for i, p := range c.Documents.Patterns {
		field := fmt.Sprintf("documents.patterns[%d]", i)
		if strings.TrimSpace(p) == "" {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   p,
				Message: "pattern cannot be empty",
			})
			continue
		}
		if _, err := glob.Compile(p); err != nil {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   p,
				Message: fmt.Sprintf("invalid glob pattern: %v", err),
			})
		}
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
