// Package config loads filtr.yaml, the settings shared by the CLI and the REPL.
package config

// Config represents the complete filtr configuration
type Config struct {
	BaseDir string        `yaml:"-"` // Directory containing config file, empty when defaults are used
	Path    string        `yaml:"-"` // Resolved config file, empty when defaults are used
	REPL    REPLConfig    `yaml:"repl"`
	Logging LoggingConfig `yaml:"logging"`
	Import  ImportConfig  `yaml:"import"`
	Export  ExportConfig  `yaml:"export"`
}

// REPLConfig holds interactive session settings
type REPLConfig struct {
	Prompt      string `yaml:"prompt"`
	HistoryFile string `yaml:"history_file"` // "" disables history; "~/" is expanded
	Color       bool   `yaml:"color"`        // Style error headers
}

// LoggingConfig holds diagnostic logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// ImportConfig holds dataset import settings
type ImportConfig struct {
	InferDates bool `yaml:"infer_dates"` // Recognize ISO-8601 dates in cells
}

// ExportConfig holds dataset export settings
type ExportConfig struct {
	JSONStrings bool `yaml:"json_strings"` // Write every JSON value as a string
	CreateDirs  bool `yaml:"create_dirs"`  // Create missing export directories
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		REPL: REPLConfig{
			Prompt:      "> ",
			HistoryFile: "~/.filtr_history",
			Color:       true,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Import: ImportConfig{
			InferDates: true,
		},
	}
}
