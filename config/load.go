package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by resolvePath when no config file exists in the
// default locations.
var ErrNotFound = errors.New("no config file found")

// Load reads configuration with ENV interpolation. If configPath is empty
// it searches the default locations and falls back to Defaults() when none
// exists. An explicit path that does not exist is an error.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	path, err := resolvePath(configPath, getenv)
	if errors.Is(err, ErrNotFound) {
		cfg := Defaults()
		cfg.REPL.HistoryFile = expandHome(cfg.REPL.HistoryFile)
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Path = absPath
	cfg.BaseDir = filepath.Dir(absPath)

	// History paths are relative to the config file, like every other path.
	if h := cfg.REPL.HistoryFile; h != "" {
		h = expandHome(h)
		if !filepath.IsAbs(h) {
			h = filepath.Join(cfg.BaseDir, h)
		}
		cfg.REPL.HistoryFile = h
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enum settings. CLI overrides should be validated again
// after they are applied.
func Validate(cfg *Config) error {
	var errs []string

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be trace, debug, info, warn, or error)", cfg.Logging.Level))
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be json or text)", cfg.Logging.Format))
	}

	if strings.ContainsAny(cfg.REPL.Prompt, "\n\r") {
		errs = append(errs, "repl: prompt must be a single line")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// resolvePath finds the config file to use.
// Search order: explicit path > FILTR_CONFIG env > ./filtr.yaml > ~/.config/filtr/filtr.yaml
func resolvePath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv("FILTR_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("FILTR_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	if _, err := os.Stat("filtr.yaml"); err == nil {
		return "filtr.yaml", nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "filtr", "filtr.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", ErrNotFound
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		value := getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}
