package config

import (
	"bytes"
	"io"
	"os"
)

// GetConfigReader opens the config file at path, or falls back to the
// baked-in default document when it does not exist.
func GetConfigReader(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err == nil {
		return f, nil
	}

	var defaultConfigYaml = `engine:
  type: "rbtree"
ttl:
  sweep_interval: 1s
logging:
  level: "info"
  output: ""
repl:
  prompt: "kvstore> "
  history_file: ""
`

	var bb bytes.Buffer
	if _, err = bb.WriteString(defaultConfigYaml); err != nil {
		return nil, err
	}

	return io.NopCloser(&bb), nil
}
