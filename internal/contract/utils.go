package contract

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/leadscore/schema"
)

// Color variables for console output.
var (
	HotColor  = color.New(color.FgRed, color.Bold) // HotColor marks leads to contact now.
	WarmColor = color.New(color.FgYellow)          // WarmColor marks leads worth nurturing.
	ColdColor = color.New(color.FgCyan)            // ColdColor marks low-priority leads.
)

// GetPlainLabel returns the plain tier label used for CSV, JSON, and table printing.
func GetPlainLabel(tier schema.Tier) string {
	switch tier {
	case schema.HotTier, schema.WarmTier, schema.ColdTier:
		return string(tier)
	default:
		return "Unknown"
	}
}

// GetColorLabel returns a colored tier label for console output (table).
func GetColorLabel(tier schema.Tier) string {
	text := GetPlainLabel(tier)

	switch tier {
	case schema.HotTier:
		return HotColor.Sprint(text)
	case schema.WarmTier:
		return WarmColor.Sprint(text)
	default:
		return ColdColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	slog.Error("Fatal "+msg, "error", err)
	os.Exit(1)
}

// LogWarn logs a warning message.
func LogWarn(msg string, err error) {
	slog.Warn(msg, "error", err)
}

// GetConfigDBFilePath returns the path to the SQLite DB file for framework configurations.
func GetConfigDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".leadscore_config.db"
	}
	return filepath.Join(homeDir, ".leadscore_config.db")
}

// GetResultsDBFilePath returns the path to the SQLite DB file for scoring results.
func GetResultsDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".leadscore_results.db"
	}
	return filepath.Join(homeDir, ".leadscore_results.db")
}

// TruncateText truncates text to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for the ellipsis and some content.
func TruncateText(text string, maxWidth int) string {
	runes := []rune(text)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return text
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
