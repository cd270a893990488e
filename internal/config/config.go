// Package config reads and writes the user's persistent settings stored in
// ~/.config/go-separate/config, with environment variable fallbacks.
package config

import (
	"bufio"
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Config keys.
const (
	KeyOutputDir = "output-dir"
	KeyServerURL = "server-url"
	KeyModel     = "model"
)

// Environment variable fallbacks.
const (
	EnvOutputDir = "SEPARATE_OUTPUT_DIR"
	EnvServerURL = "SEPARATE_SERVER_URL"
	EnvModel     = "SEPARATE_MODEL"
)

// appName names the config directory.
const appName = "go-separate"

// Config holds user configuration.
type Config struct {
	OutputDir string
	ServerURL string
	Model     string
}

// Keys returns the supported config keys in display order.
func Keys() []string {
	return []string{KeyOutputDir, KeyServerURL, KeyModel}
}

// envFor maps each key to its environment fallback.
var envFor = map[string]string{
	KeyOutputDir: EnvOutputDir,
	KeyServerURL: EnvServerURL,
	KeyModel:     EnvModel,
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/go-separate.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config"), nil
}

// Load reads the configuration file and environment variables.
// Precedence: config file values, then environment variable fallbacks.
// Returns an empty Config if the file doesn't exist (not an error).
func Load() (Config, error) {
	p, err := path()
	if err != nil {
		return Config{}, err
	}

	data, err := parseFile(p)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	value := func(key string) string {
		if v := data[key]; v != "" {
			return v
		}
		return os.Getenv(envFor[key])
	}

	return Config{
		OutputDir: value(KeyOutputDir),
		ServerURL: value(KeyServerURL),
		Model:     value(KeyModel),
	}, nil
}

// parseFile reads a key=value config file.
// Format: one key=value per line, # comments, empty lines ignored.
func parseFile(p string) (map[string]string, error) {
	f, err := os.Open(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid syntax at line %d: %q", lineNum, line)
		}
		data[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return data, nil
}

// Validate checks that key is supported and value is acceptable for it.
// output-dir is checked by EnsureOutputDir at save time instead.
func Validate(key, value string) error {
	if _, ok := envFor[key]; !ok {
		return fmt.Errorf("%w: %q (valid: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}
	switch key {
	case KeyServerURL:
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %s must be an http(s) URL, got %q", ErrInvalidValue, key, value)
		}
	case KeyModel:
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s cannot be empty", ErrInvalidValue, key)
		}
	}
	return nil
}

// Save writes a single key=value to the config file.
// Creates the config directory and file if they don't exist.
// Preserves existing key=value pairs but discards comments.
func Save(key, value string) error {
	p, err := path()
	if err != nil {
		return err
	}

	d := filepath.Dir(p)
	if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	existing, _ := parseFile(p)
	if existing == nil {
		existing = make(map[string]string)
	}
	existing[key] = value

	return writeFile(p, existing)
}

// writeFile writes the config map sorted by key so diffs stay stable.
func writeFile(p string, data map[string]string) error {
	// #nosec G302 G304 -- config file with standard permissions, path from home dir
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	for _, key := range slices.Sorted(maps.Keys(data)) {
		if _, err := fmt.Fprintf(f, "%s=%s\n", key, data[key]); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	p, err := path()
	if err != nil {
		return "", err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	return data[key], nil
}

// List returns all config values as a map.
func List() (map[string]string, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	return data, nil
}

// ResolveOutputPath resolves an output prefix:
//  1. An absolute output is used as-is
//  2. A relative output is joined to outputDir when one is set
//  3. Otherwise it is relative to the working directory
//
// The result is cleaned with filepath.Clean.
func ResolveOutputPath(output, outputDir string) string {
	output = ExpandPath(output)
	if filepath.IsAbs(output) || outputDir == "" {
		return filepath.Clean(output)
	}
	return filepath.Clean(filepath.Join(ExpandPath(outputDir), output))
}

// EnsureOutputDir checks that d is a writable directory, creating it if missing.
func EnsureOutputDir(d string) error {
	if d == "" {
		return fmt.Errorf("%w: output-dir cannot be empty", ErrInvalidValue)
	}
	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user output dir
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, d)
	}

	testFile := filepath.Join(d, ".go-separate-write-test")
	f, err := os.Create(testFile) // #nosec G304 -- path is constructed from validated dir
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotWritable, err)
	}
	_ = f.Close()
	_ = os.Remove(testFile) // best-effort cleanup

	return nil
}

// ExpandPath expands a leading ~/ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}
