package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	cqlmcp "github.com/rickchristie/cassandra-mcp"
	"github.com/rickchristie/cassandra-mcp/cassandra"
)

const (
	configPathEnv     = "GOCQLMCP_CONFIG_PATH"
	defaultConfigPath = ".gocqlmcp/config.json"
)

// configPath resolves the config file location: an explicit flag value wins,
// then GOCQLMCP_CONFIG_PATH, then the default. explicit is false only for
// the default, which may be absent.
func configPath(flagValue string) (path string, explicit bool) {
	if flagValue != "" {
		return flagValue, true
	}
	if env := os.Getenv(configPathEnv); env != "" {
		return env, true
	}
	return defaultConfigPath, false
}

// loadServerConfig builds the server configuration from defaults, the JSON
// config file, a .env file in the working directory and CASSANDRA_* env vars,
// in that order.
func loadServerConfig(flagValue string) (*cqlmcp.ServerConfig, error) {
	path, explicit := configPath(flagValue)
	config, err := readServerConfig(path, explicit)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	applyEnv(config)
	return config, nil
}

// readServerConfig overlays the file at path on the defaults. A missing file
// is only an error when the path was given explicitly.
func readServerConfig(path string, explicit bool) (*cqlmcp.ServerConfig, error) {
	config := cqlmcp.DefaultServerConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return &config, nil
}

// applyEnv lets CASSANDRA_* variables override the file. The password only
// ever comes from the environment.
func applyEnv(config *cqlmcp.ServerConfig) {
	if v := os.Getenv("CASSANDRA_CONTACT_POINTS"); v != "" {
		var hosts []string
		for _, h := range strings.Split(v, ",") {
			if h = strings.TrimSpace(h); h != "" {
				hosts = append(hosts, h)
			}
		}
		config.Connection.ContactPoints = hosts
	}
	if v := os.Getenv("CASSANDRA_LOCAL_DC"); v != "" {
		config.Connection.LocalDC = v
	}
	if v := os.Getenv("CASSANDRA_KEYSPACE"); v != "" {
		config.Connection.Keyspace = v
		config.Keyspace = v
	}
	if v := os.Getenv("CASSANDRA_USERNAME"); v != "" {
		config.Connection.Username = v
	}
	config.Connection.Password = os.Getenv("CASSANDRA_PASSWORD")

	if config.Keyspace == "" {
		config.Keyspace = config.Connection.Keyspace
	}
}

// sessionConfig maps the connection settings onto the driver session config.
func sessionConfig(conn cqlmcp.ConnectionConfig) cassandra.Config {
	return cassandra.Config{
		Hosts:           conn.ContactPoints,
		Port:            conn.Port,
		LocalDC:         conn.LocalDC,
		Keyspace:        conn.Keyspace,
		Username:        conn.Username,
		Password:        conn.Password,
		Consistency:     conn.Consistency,
		ProtoVersion:    conn.ProtoVersion,
		ConnectTimeout:  time.Duration(conn.ConnectTimeoutSeconds) * time.Second,
		Timeout:         time.Duration(conn.TimeoutSeconds) * time.Second,
		RetryMaxElapsed: time.Duration(conn.ConnectRetrySeconds) * time.Second,
	}
}

// setupLogger builds the process logger. With the stdio transport stdout
// carries the protocol, so logs never go there.
func setupLogger(config cqlmcp.LoggingConfig, stdio bool) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	if config.Output == "stdout" && !stdio {
		output = os.Stdout
	} else if config.Output != "" && config.Output != "stderr" && config.Output != "stdout" {
		f, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}

	if config.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}
