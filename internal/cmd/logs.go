package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/docsession/internal/config"
	"github.com/Iron-Ham/docsession/internal/logging"
	"github.com/Iron-Ham/docsession/internal/tui/styles"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View editor logs",
	Long: `View and filter the editor's debug log.

Examples:
  # Show the last 50 lines
  docsession logs

  # Show everything logged for one document
  docsession logs -d 3f2a... -n 0

  # Follow logs in real-time
  docsession logs -f

  # Filter by log level
  docsession logs --level warn

  # Show logs from the last hour
  docsession logs --since 1h

  # Search for specific patterns
  docsession logs --grep "save|export"`,
	RunE: runLogs,
}

var (
	logsDocument string
	logsTail     int
	logsFollow   bool
	logsLevel    string
	logsSince    string
	logsGrep     string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVarP(&logsDocument, "document", "d", "", "Only show entries for this document ID")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter logs matching pattern (regex)")
}

// logEntry represents a parsed JSON log line
type logEntry struct {
	Time       time.Time      `json:"time"`
	Level      string         `json:"level"`
	Msg        string         `json:"msg"`
	DocumentID string         `json:"document_id,omitempty"`
	Component  string         `json:"component,omitempty"`
	Extra      map[string]any `json:"-"` // Captures additional fields
}

// UnmarshalJSON implements custom unmarshaling to capture extra fields
func (e *logEntry) UnmarshalJSON(data []byte) error {
	// First, unmarshal known fields using a type alias to avoid recursion
	type Alias logEntry
	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	// Then unmarshal all fields to capture extras
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	// Remove known fields, keep the rest as extra
	delete(all, "time")
	delete(all, "level")
	delete(all, "msg")
	delete(all, "document_id")
	delete(all, "component")

	if len(all) > 0 {
		e.Extra = all
	}

	return nil
}

// logFilter selects which entries are shown.
type logFilter struct {
	minLevel   int
	since      time.Time
	grep       *regexp.Regexp
	documentID string
}

// Log line styles. lipgloss drops the colors when output is not a terminal.
var (
	logTimeStyle  = lipgloss.NewStyle().Foreground(styles.MutedColor)
	logFieldStyle = lipgloss.NewStyle().Foreground(styles.BlueColor)
	logLevelStyle = map[string]lipgloss.Style{
		logging.LevelDebug: lipgloss.NewStyle().Foreground(styles.MutedColor),
		logging.LevelInfo:  lipgloss.NewStyle().Foreground(styles.BlueColor),
		logging.LevelWarn:  lipgloss.NewStyle().Foreground(styles.WarningColor),
		logging.LevelError: lipgloss.NewStyle().Foreground(styles.ErrorColor).Bold(true),
	}
)

// levelRank orders levels for --level; unknown levels rank -1.
func levelRank(level string) int {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return 0
	case logging.LevelInfo:
		return 1
	case logging.LevelWarn:
		return 2
	case logging.LevelError:
		return 3
	default:
		return -1
	}
}

// formatLogEntry renders one entry as
// "[time] [LEVEL] component: message document_id=... key=value".
func formatLogEntry(entry *logEntry) string {
	level := strings.ToUpper(entry.Level)
	parts := []string{
		logTimeStyle.Render("[" + entry.Time.Format("15:04:05.000") + "]"),
		logLevelStyle[level].Render("[" + level + "]"),
	}
	if entry.Component != "" {
		parts = append(parts, logFieldStyle.Render(entry.Component+":"))
	}
	parts = append(parts, entry.Msg)
	if entry.DocumentID != "" {
		parts = append(parts, logFieldStyle.Render("document_id="+entry.DocumentID))
	}

	keys := make([]string, 0, len(entry.Extra))
	for k := range entry.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, logFieldStyle.Render(k+"=")+fmt.Sprint(entry.Extra[k]))
	}
	return strings.Join(parts, " ")
}

func runLogs(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	logPath := filepath.Join(config.LogDir(), logging.LogFileName)

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "No logs found.")
		fmt.Fprintln(out, "Logs are stored at:", logPath)
		return nil
	}

	filter, err := newLogFilter(logsLevel, logsSince, logsGrep, logsDocument)
	if err != nil {
		return err
	}

	if logsFollow {
		return followLogs(out, logPath, filter)
	}
	return displayLogs(out, logPath, logsTail, filter)
}

func newLogFilter(level, since, grep, documentID string) (logFilter, error) {
	f := logFilter{minLevel: -1, documentID: documentID}
	if level != "" {
		f.minLevel = levelRank(logging.ParseLevel(level))
	}
	if since != "" {
		d, err := time.ParseDuration(since)
		if err != nil {
			return f, fmt.Errorf("invalid duration format: %w", err)
		}
		f.since = time.Now().Add(-d)
	}
	if grep != "" {
		re, err := regexp.Compile(grep)
		if err != nil {
			return f, fmt.Errorf("invalid grep pattern: %w", err)
		}
		f.grep = re
	}
	return f, nil
}

// displayLogs reads the log file and displays filtered entries
func displayLogs(out io.Writer, logPath string, tail int, filter logFilter) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	entries, err := readLogEntries(file, filter)
	if err != nil {
		return err
	}

	// Apply tail limit
	if tail > 0 && len(entries) > tail {
		entries = entries[len(entries)-tail:]
	}

	for _, entry := range entries {
		fmt.Fprintln(out, entry)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No matching log entries found.")
	}
	return nil
}

// readLogEntries formats every line of r passing filter. Lines that are not
// JSON are kept verbatim.
func readLogEntries(r io.Reader, filter logFilter) ([]string, error) {
	var entries []string
	scanner := bufio.NewScanner(r)

	// Increase buffer size for potentially long log lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var entry logEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			entries = append(entries, line)
			continue
		}
		if !filter.passes(&entry) {
			continue
		}
		entries = append(entries, formatLogEntry(&entry))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file: %w", err)
	}
	return entries, nil
}

// followLogs implements tail -f behavior for the log file
func followLogs(out io.Writer, logPath string, filter logFilter) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	fmt.Fprintf(out, "Following logs... (Ctrl+C to stop)\n\n")

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// No new data, wait briefly and try again
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return fmt.Errorf("error reading log file: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var entry logEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			fmt.Fprintln(out, line)
			continue
		}
		if !filter.passes(&entry) {
			continue
		}
		fmt.Fprintln(out, formatLogEntry(&entry))
	}
}

// passes checks if a log entry passes all filter criteria
func (f logFilter) passes(entry *logEntry) bool {
	if f.minLevel >= 0 && levelRank(entry.Level) < f.minLevel {
		return false
	}
	if !f.since.IsZero() && entry.Time.Before(f.since) {
		return false
	}
	if f.documentID != "" && entry.DocumentID != f.documentID {
		return false
	}

	// Grep filter - search in message and extra fields
	if f.grep != nil {
		searchText := entry.Msg
		for _, v := range entry.Extra {
			searchText += " " + fmt.Sprintf("%v", v)
		}
		if !f.grep.MatchString(searchText) {
			return false
		}
	}
	return true
}
