package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// sampleConfig is the commented template written by 'chatd config init'.
// Values mirror GetDefaultConfig so a freshly initialized file loads
// identically to running with no file at all.
const sampleConfig = `# Chat Configuration File
#
# This file configures both the chatd server and the chat client.
# Environment variables with the CHAT_ prefix override file values,
# e.g. CHAT_LOGGING_LEVEL=DEBUG or CHAT_SERVER_PORT=51488.

# chatd listener settings
server:
  # Interface to bind. Empty or 0.0.0.0 accepts connections on any interface.
  listen: ""
  # TCP port to listen on.
  port: 51488
  # How long to wait for active sessions to drain on shutdown.
  shutdown_timeout: 30s

# chat client settings
client:
  # chatd host to connect to (IPv4 address or hostname).
  server: 127.0.0.1
  port: 51488
  # Display name announced on connect. Leave empty to be prompted.
  name: ""
  # TCP connect timeout.
  dial_timeout: 10s

# Logging
logging:
  # DEBUG, INFO, WARN or ERROR.
  level: INFO
  # text, json or color. color falls back to text when the output is
  # not a terminal.
  format: text
  # stdout, stderr or a file path. 'chatd logs' requires a file path.
  output: stdout
  # Annotate every record with the source file and line of the call.
  add_source: false

# Prometheus metrics endpoint (chatd only)
metrics:
  enabled: false
  port: 9090

# OpenTelemetry tracing (chatd only)
telemetry:
  enabled: false
  # OTLP gRPC collector endpoint.
  endpoint: localhost:4317
  insecure: true
  # Trace sampling rate, 0.0 to 1.0.
  sample_rate: 1.0
  # Pyroscope continuous profiling.
  profiling:
    enabled: false
    endpoint: http://localhost:4040
    # profile_types:
    #   - cpu
    #   - alloc_objects
    #   - goroutines
`

// InitConfig writes the sample configuration file to the default location
// and returns its path. An existing file is left untouched unless force is
// set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the sample configuration file to the given path,
// creating parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
