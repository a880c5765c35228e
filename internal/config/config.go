package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/docsession/internal/engine"
)

// Config represents the complete docsession configuration
type Config struct {
	Editor    EditorConfig    `mapstructure:"editor" yaml:"editor"`
	Outline   OutlineConfig   `mapstructure:"outline" yaml:"outline"`
	Export    ExportConfig    `mapstructure:"export" yaml:"export"`
	Documents DocumentsConfig `mapstructure:"documents" yaml:"documents"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	TUI       TUIConfig       `mapstructure:"tui" yaml:"tui"`
}

// EditorConfig controls per-document session behavior
type EditorConfig struct {
	// Autosave enables the debounced autosave of the focused document (default: true)
	Autosave bool `mapstructure:"autosave" yaml:"autosave"`
	// AutosaveIntervalMs is the quiet period after the last edit before an
	// autosave fires (default: 1000, min: 100)
	AutosaveIntervalMs int `mapstructure:"autosave_interval_ms" yaml:"autosave_interval_ms"`
	// UntitledName is the display name of documents that were never saved
	UntitledName string `mapstructure:"untitled_name" yaml:"untitled_name"`
	// DefaultExtension is appended to UntitledName in the save dialog
	DefaultExtension string `mapstructure:"default_extension" yaml:"default_extension"`
	// DefaultViewMode is the representation new sessions open in
	// Options: "structured", "sourceText", "preview"
	DefaultViewMode string `mapstructure:"default_view_mode" yaml:"default_view_mode"`
}

// OutlineConfig controls the table-of-contents refresh
type OutlineConfig struct {
	// Enabled turns outline refreshes on (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// RefreshDebounceMs collapses bursts of refresh requests (default: 1000)
	RefreshDebounceMs int `mapstructure:"refresh_debounce_ms" yaml:"refresh_debounce_ms"`
}

// ExportConfig controls image and HTML export
type ExportConfig struct {
	// MinifyHTML minifies exported HTML and its inline stylesheet (default: true)
	MinifyHTML bool `mapstructure:"minify_html" yaml:"minify_html"`
	// ImageQuality is the JPEG quality of image exports, 1-100 (default: 90)
	ImageQuality int `mapstructure:"image_quality" yaml:"image_quality"`
	// HTMLTitle is the <title> used when the document has no name
	HTMLTitle string `mapstructure:"html_title" yaml:"html_title"`
}

// DocumentsConfig controls which files are treated as documents
type DocumentsConfig struct {
	// Patterns are glob patterns matched against file names when inserting
	// saved documents into the folder tree
	Patterns []string `mapstructure:"patterns" yaml:"patterns"`
	// WatchExternal watches open files for removal or modification by other
	// programs (default: true)
	WatchExternal bool `mapstructure:"watch_external" yaml:"watch_external"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is active (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// MaxSizeMB is the maximum log file size before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
}

// TUIConfig controls the terminal UI behavior
type TUIConfig struct {
	// ShowFullPath shows the document's full path in the title bar instead of
	// "... / name" (default: false)
	ShowFullPath bool `mapstructure:"show_full_path" yaml:"show_full_path"`
	// FullWidth lets the editor use the whole terminal width (default: false)
	FullWidth bool `mapstructure:"full_width" yaml:"full_width"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Editor: EditorConfig{
			Autosave:           true,
			AutosaveIntervalMs: 1000,
			UntitledName:       "Untitled",
			DefaultExtension:   ".md",
			DefaultViewMode:    engine.ModeStructured.String(),
		},
		Outline: OutlineConfig{
			Enabled:           true,
			RefreshDebounceMs: 1000,
		},
		Export: ExportConfig{
			MinifyHTML:   true,
			ImageQuality: 90,
			HTMLTitle:    "Document",
		},
		Documents: DocumentsConfig{
			Patterns:      []string{"*.md", "*.markdown", "*.txt"},
			WatchExternal: true,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		TUI: TUIConfig{
			ShowFullPath: false,
			FullWidth:    false,
		},
	}
}

// AutosaveInterval returns the autosave interval as a time.Duration
func (c *EditorConfig) AutosaveInterval() time.Duration {
	return time.Duration(c.AutosaveIntervalMs) * time.Millisecond
}

// UntitledFileName returns the default file name offered by the save dialog.
func (c *EditorConfig) UntitledFileName() string {
	return c.UntitledName + c.DefaultExtension
}

// ViewMode returns DefaultViewMode parsed, falling back to structured.
func (c *EditorConfig) ViewMode() engine.Mode {
	m, err := engine.ParseMode(c.DefaultViewMode)
	if err != nil {
		return engine.ModeStructured
	}
	return m
}

// RefreshDebounce returns the outline debounce as a time.Duration
func (c *OutlineConfig) RefreshDebounce() time.Duration {
	return time.Duration(c.RefreshDebounceMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Editor defaults
	viper.SetDefault("editor.autosave", defaults.Editor.Autosave)
	viper.SetDefault("editor.autosave_interval_ms", defaults.Editor.AutosaveIntervalMs)
	viper.SetDefault("editor.untitled_name", defaults.Editor.UntitledName)
	viper.SetDefault("editor.default_extension", defaults.Editor.DefaultExtension)
	viper.SetDefault("editor.default_view_mode", defaults.Editor.DefaultViewMode)

	// Outline defaults
	viper.SetDefault("outline.enabled", defaults.Outline.Enabled)
	viper.SetDefault("outline.refresh_debounce_ms", defaults.Outline.RefreshDebounceMs)

	// Export defaults
	viper.SetDefault("export.minify_html", defaults.Export.MinifyHTML)
	viper.SetDefault("export.image_quality", defaults.Export.ImageQuality)
	viper.SetDefault("export.html_title", defaults.Export.HTMLTitle)

	// Documents defaults
	viper.SetDefault("documents.patterns", defaults.Documents.Patterns)
	viper.SetDefault("documents.watch_external", defaults.Documents.WatchExternal)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// TUI defaults
	viper.SetDefault("tui.show_full_path", defaults.TUI.ShowFullPath)
	viper.SetDefault("tui.full_width", defaults.TUI.FullWidth)
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
		return filepath.Join(xdg, "docsession")
	}
	// Fall back to ~/.config/docsession
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docsession"
	}
	return filepath.Join(home, ".config", "docsession")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LogDir returns the directory log files are written to
func LogDir() string {
	return filepath.Join(ConfigDir(), "logs")
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// WriteFile writes cfg as YAML to path, creating parent directories. An
// existing file is only replaced when overwrite is true.
func WriteFile(cfg *Config, path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
