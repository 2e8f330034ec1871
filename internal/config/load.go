package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// matches $(VAR_NAME)
var envPattern = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

// replaces $(VAR) with os.Getenv(VAR)
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		key := mapEnvKey(envPattern.FindStringSubmatch(m)[1])
		return os.Getenv(key)
	})
}

// Load reads a YAML config on top of DefaultConfig. A .env file next to it,
// if present, is loaded first; variables already set in the environment
// win over it.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	// read raw YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// expand $(ENV_VAR) placeholders
	expanded := expandEnvVars(string(data))

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unmarshalling yaml: %v", ErrInvalid, err)
	}

	return &cfg, nil
}
