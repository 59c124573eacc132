package config_test

import (
	"bytes"
	"io"
	"os"
	"testing"
	"time"

	"github.com/neekrasov/kvstore/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		content     string
		expected    config.Config
		expectError bool
	}{
		{
			name: "valid YAML config",
			content: `
engine:
  type: "hash"
ttl:
  sweep_interval: 2s
logging:
  level: "debug"
  output: "/log/output_test.log"
repl:
  prompt: "> "
  history_file: "/tmp/hist"
`,
			expected: config.Config{
				Engine: &config.EngineConfig{Type: "hash"},
				TTL:    &config.TTLConfig{SweepInterval: 2 * time.Second},
				Logging: &config.LoggingConfig{
					Level:  "debug",
					Output: "/log/output_test.log",
				},
				REPL: &config.REPLConfig{Prompt: "> ", HistoryFile: "/tmp/hist"},
			},
		},
		{
			name: "invalid YAML config (bad duration)",
			content: `
engine:
  type: "hash"
ttl:
  sweep_interval: "not-a-duration"
`,
			expectError: true,
		},
		{
			name: "valid JSON config",
			content: `{
				"engine": {"type": "rbtree"},
				"ttl": {"sweep_interval": 3000000000},
				"logging": {"level": "warn", "output": ""}
			}`,
			expected: config.Config{
				Engine:  &config.EngineConfig{Type: "rbtree"},
				TTL:     &config.TTLConfig{SweepInterval: 3 * time.Second},
				Logging: &config.LoggingConfig{Level: "warn", Output: ""},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := config.ParseConfig(io.NopCloser(bytes.NewReader([]byte(tt.content))))
			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected.Engine.Type, cfg.Engine.Type)
			if tt.expected.TTL != nil {
				assert.Equal(t, tt.expected.TTL.SweepInterval, cfg.TTL.SweepInterval)
			}
			if tt.expected.Logging != nil {
				assert.Equal(t, tt.expected.Logging.Level, cfg.Logging.Level)
				assert.Equal(t, tt.expected.Logging.Output, cfg.Logging.Output)
			}
		})
	}
}

func TestGetConfig_DefaultConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.GetConfig("/path/to/nonexistent/file.yaml")
	require.NoError(t, err)

	assert.Equal(t, "rbtree", cfg.Engine.Type)
	assert.Equal(t, time.Second, cfg.TTL.SweepInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestGetConfig_InvalidFileContent(t *testing.T) {
	t.Parallel()

	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString("not: [valid: yaml: at: all")
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())

	_, err = config.GetConfig(tmpFile.Name())
	assert.Error(t, err)
}
