package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the kvstore process: which
// engine to boot, how often the TTL manager sweeps, and how logging
// and the REPL are set up.
type (
	Config struct {
		Engine  *EngineConfig  `yaml:"engine" json:"engine"`
		TTL     *TTLConfig     `yaml:"ttl" json:"ttl"`
		Logging *LoggingConfig `yaml:"logging" json:"logging"`
		REPL    *REPLConfig    `yaml:"repl" json:"repl"`
	}

	// EngineConfig selects which storage engine variant to construct.
	EngineConfig struct {
		// Type is either "hash" or "rbtree".
		Type string `yaml:"type" json:"type"`
	}

	// TTLConfig controls the process-wide TTL manager.
	TTLConfig struct {
		SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
	}

	LoggingConfig struct {
		Level  string `yaml:"level" json:"level"`
		Output string `yaml:"output" json:"output"`
	}

	// REPLConfig controls the interactive command-line front end.
	REPLConfig struct {
		Prompt      string `yaml:"prompt" json:"prompt"`
		HistoryFile string `yaml:"history_file" json:"history_file"`
	}
)

// GetConfig reads the config at path, falling back to an in-memory
// default document when the file does not exist.
func GetConfig(path string) (Config, error) {
	configContent, err := GetConfigReader(path)
	if err != nil {
		return Config{}, err
	}

	return ParseConfig(configContent)
}

// ParseConfig decodes a config document, trying YAML before JSON.
func ParseConfig(input io.ReadCloser) (Config, error) {
	defer input.Close()

	var (
		cfg      Config
		parseErr strings.Builder
	)

	data, err := io.ReadAll(input)
	if err != nil {
		return cfg, fmt.Errorf("cant read config: %w", err)
	}

	for _, parser := range []func(io.Reader, *Config) error{yamlParser, jsonParser} {
		cfg = Config{}
		if err = parser(bytes.NewReader(data), &cfg); err == nil {
			return cfg, nil
		}
		_, _ = parseErr.WriteString(fmt.Sprintf("Error parsing config: %s\n", err.Error()))
	}

	return cfg, errors.New(parseErr.String())
}

func yamlParser(input io.Reader, config *Config) error {
	decoder := yaml.NewDecoder(input)
	if err := decoder.Decode(config); err != nil {
		return fmt.Errorf("cant decode yaml config: %w", err)
	}

	return nil
}

func jsonParser(input io.Reader, config *Config) error {
	decoder := json.NewDecoder(input)
	if err := decoder.Decode(config); err != nil {
		return fmt.Errorf("cant decode json config: %w", err)
	}

	return nil
}
