package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/docsession/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify docsession configuration",
	Long: `View or modify docsession configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  docsession config set editor.autosave false
  docsession config set editor.autosave_interval_ms 2000
  docsession config set editor.default_view_mode sourceText

Valid keys:
  editor.autosave              - Debounced autosave of the focused document (true/false)
  editor.autosave_interval_ms  - Quiet period before an autosave, in milliseconds
  editor.untitled_name         - Name of documents that were never saved
  editor.default_extension     - Extension offered for untitled documents
  editor.default_view_mode     - Options: structured, sourceText, preview
  outline.enabled              - Refresh the table of contents (true/false)
  outline.refresh_debounce_ms  - Outline refresh debounce, in milliseconds
  export.minify_html           - Minify exported HTML (true/false)
  export.image_quality         - JPEG quality of image exports, 1-100
  export.html_title            - Title of exported pages without a name
  documents.watch_external     - Watch open files for external changes (true/false)
  logging.enabled              - Write a debug log (true/false)
  logging.level                - debug, info, warn, error
  tui.show_full_path           - Show full document paths (true/false)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/docsession/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

var configInitForce bool

// configKeys maps settable keys to their value type.
var configKeys = map[string]string{
	"editor.autosave":             "bool",
	"editor.autosave_interval_ms": "int",
	"editor.untitled_name":        "string",
	"editor.default_extension":    "string",
	"editor.default_view_mode":    "string",
	"outline.enabled":             "bool",
	"outline.refresh_debounce_ms": "int",
	"export.minify_html":          "bool",
	"export.image_quality":        "int",
	"export.html_title":           "string",
	"documents.watch_external":    "bool",
	"logging.enabled":             "bool",
	"logging.level":               "string",
	"tui.show_full_path":          "bool",
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)

	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing config file")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg := config.Get()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	keyType, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'docsession config set --help' to see valid keys", key)
	}

	// Validate the value based on type
	var typedValue any
	switch keyType {
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = b
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		typedValue = n
	default:
		typedValue = value
	}

	// Validate the whole configuration with the new value before writing
	previous := viper.Get(key)
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		viper.Set(key, previous)
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile()
	}
	if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	if err := config.WriteFile(config.Default(), configFile, configInitForce); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("%w\nUse 'docsession config set' to modify values or --force to overwrite", err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize docsession's behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", configFile)
	fmt.Fprintln(out, "  2. ./config.yaml (current directory)")
	fmt.Fprintln(out, "\nEnvironment variables: DOCSESSION_* (e.g., DOCSESSION_EDITOR_AUTOSAVE)")
	fmt.Fprintf(out, "Logs: %s\n", config.LogDir())
	return nil
}
