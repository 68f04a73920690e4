package cqlmcp

import (
	"errors"
	"fmt"
	"strings"
)

// MCPEndpointPath is where the HTTP transport serves the protocol.
const MCPEndpointPath = "/mcp"

// Config is the base configuration used by library mode via New().
type Config struct {
	// Keyspace is the keyspace list_tables reports on. It should match the
	// keyspace the session was opened with.
	Keyspace     string             `json:"keyspace"`
	Query        QueryConfig        `json:"query"`
	ErrorPrompts []ErrorPromptRule  `json:"error_prompts"`
	Sanitization []SanitizationRule `json:"sanitization"`
}

// ServerConfig embeds Config and adds server-only fields for CLI mode.
type ServerConfig struct {
	Config
	Connection ConnectionConfig `json:"connection"`
	Server     ServerSettings   `json:"server"`
	Logging    LoggingConfig    `json:"logging"`
}

// ConnectionConfig holds cluster connection parameters used by CLI mode.
// The password is never read from the config file, only from the
// environment.
type ConnectionConfig struct {
	ContactPoints         []string `json:"contact_points"`
	Port                  int      `json:"port"`
	LocalDC               string   `json:"local_dc"`
	Keyspace              string   `json:"keyspace"`
	Username              string   `json:"username"`
	Password              string   `json:"-"`
	Consistency           string   `json:"consistency"`
	ProtoVersion          int      `json:"proto_version"`
	ConnectTimeoutSeconds int      `json:"connect_timeout_seconds"`
	TimeoutSeconds        int      `json:"timeout_seconds"`
	ConnectRetrySeconds   int      `json:"connect_retry_seconds"`
}

// ServerSettings holds transport settings for CLI mode.
type ServerSettings struct {
	Transport          string `json:"transport"` // stdio (default), http
	Port               int    `json:"port"`
	HealthCheckEnabled bool   `json:"health_check_enabled"`
	HealthCheckPath    string `json:"health_check_path"`
	MetricsEnabled     bool   `json:"metrics_enabled"`
	MetricsPath        string `json:"metrics_path"`
}

// Validate checks the transport settings. Ports and paths are only checked
// for the http transport, and each path only when its endpoint is enabled.
func (s ServerSettings) Validate() error {
	switch s.Transport {
	case "stdio":
		return nil
	case "http":
	default:
		return fmt.Errorf("server.transport must be \"stdio\" or \"http\", got %q", s.Transport)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", s.Port)
	}
	if s.HealthCheckEnabled {
		if err := validateEndpointPath("server.health_check_path", s.HealthCheckPath); err != nil {
			return err
		}
	}
	if s.MetricsEnabled {
		if err := validateEndpointPath("server.metrics_path", s.MetricsPath); err != nil {
			return err
		}
	}
	if s.HealthCheckEnabled && s.MetricsEnabled && s.HealthCheckPath == s.MetricsPath {
		return errors.New("server.health_check_path and server.metrics_path must differ")
	}
	return nil
}

func validateEndpointPath(field, path string) error {
	switch {
	case path == "":
		return fmt.Errorf("%s must be set when its endpoint is enabled", field)
	case !strings.HasPrefix(path, "/"):
		return fmt.Errorf("%s must start with /, got %q", field, path)
	case path == MCPEndpointPath:
		return fmt.Errorf("%s cannot be %s, it is reserved for the MCP endpoint", field, MCPEndpointPath)
	}
	return nil
}

// LoggingConfig holds logging settings for CLI mode.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stderr, stdout, or file path
}

// QueryConfig holds statement execution settings.
type QueryConfig struct {
	DefaultTimeoutSeconds    int           `json:"default_timeout_seconds"`
	ListTablesTimeoutSeconds int           `json:"list_tables_timeout_seconds"`
	MaxQueryLength           int           `json:"max_query_length"`
	MaxResultLength          int           `json:"max_result_length"`
	MaxConcurrent            int           `json:"max_concurrent"` // 0 = unlimited
	TimeoutRules             []TimeoutRule `json:"timeout_rules"`
}

// TimeoutRule maps a CQL pattern to a specific timeout duration.
type TimeoutRule struct {
	Pattern        string `json:"pattern"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ErrorPromptRule maps an error message pattern to a guidance message.
type ErrorPromptRule struct {
	Pattern string `json:"pattern"`
	Message string `json:"message"`
}

// SanitizationRule defines a regex-based value redaction rule. Column, when
// set, restricts the rule to matching column names.
type SanitizationRule struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	Column      string `json:"column,omitempty"`
	Description string `json:"description"`
}

// DefaultServerConfig returns the settings used when no config file exists.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Config: Config{
			Query: QueryConfig{
				DefaultTimeoutSeconds:    30,
				ListTablesTimeoutSeconds: 10,
				MaxQueryLength:           100000,
				MaxResultLength:          100000,
			},
		},
		Connection: ConnectionConfig{
			ContactPoints:         []string{"localhost"},
			LocalDC:               "datacenter1",
			Username:              "cassandra",
			Consistency:           "quorum",
			ConnectTimeoutSeconds: 10,
			TimeoutSeconds:        30,
		},
		Server: ServerSettings{
			Transport:       "stdio",
			Port:            8080,
			HealthCheckPath: "/health-check",
			MetricsPath:     "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}
