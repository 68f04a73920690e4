package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cqlmcp "github.com/rickchristie/cassandra-mcp"
)

// validServerConfig returns a minimal valid ServerConfig for testing.
func validServerConfig() cqlmcp.ServerConfig {
	cfg := cqlmcp.DefaultServerConfig()
	cfg.Keyspace = "app"
	cfg.Connection.Keyspace = "app"
	cfg.Server.Transport = "http"
	cfg.Server.Port = 8080
	return cfg
}

func writeConfigFile(t *testing.T, dir string, config cqlmcp.ServerConfig) string {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal config: %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// clearEnv blanks every variable loadServerConfig reads so the host
// environment cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		configPathEnv,
		"CASSANDRA_CONTACT_POINTS",
		"CASSANDRA_LOCAL_DC",
		"CASSANDRA_KEYSPACE",
		"CASSANDRA_USERNAME",
		"CASSANDRA_PASSWORD",
	} {
		t.Setenv(key, "")
	}
}

// Note: Tests using t.Setenv() cannot use t.Parallel() in Go.

func TestLoadConfigValid(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg := validServerConfig()
	cfg.Connection.Port = 9142
	path := writeConfigFile(t, dir, cfg)

	t.Setenv(configPathEnv, path)

	loaded, err := loadServerConfig("")
	require.NoError(t, err)
	require.Equal(t, 8080, loaded.Server.Port)
	require.Equal(t, "http", loaded.Server.Transport)
	require.Equal(t, 9142, loaded.Connection.Port)
	require.Equal(t, []string{"localhost"}, loaded.Connection.ContactPoints)
	require.Equal(t, "app", loaded.Keyspace)
	require.Equal(t, 30, loaded.Query.DefaultTimeoutSeconds)
}

func TestLoadConfigFlagWinsOverEnvPath(t *testing.T) {
	clearEnv(t)
	cfg := validServerConfig()
	cfg.Server.Port = 9999
	flagPath := writeConfigFile(t, t.TempDir(), cfg)

	t.Setenv(configPathEnv, "/nonexistent/path/config.json")

	loaded, err := loadServerConfig(flagPath)
	require.NoError(t, err)
	require.Equal(t, 9999, loaded.Server.Port)
}

func TestLoadConfigMissingExplicitPath(t *testing.T) {
	clearEnv(t)
	t.Setenv(configPathEnv, "/nonexistent/path/config.json")

	_, err := loadServerConfig("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "/nonexistent/path/config.json")
}

func TestLoadConfigMissingDefaultPathUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	loaded, err := loadServerConfig("")
	require.NoError(t, err)
	require.Equal(t, "stdio", loaded.Server.Transport)
	require.Equal(t, "datacenter1", loaded.Connection.LocalDC)
	require.Equal(t, "cassandra", loaded.Connection.Username)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{invalid json}"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	_, err := loadServerConfig(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, t.TempDir(), validServerConfig())

	t.Setenv("CASSANDRA_CONTACT_POINTS", " 10.0.0.1 ,10.0.0.2,, ")
	t.Setenv("CASSANDRA_LOCAL_DC", "dc2")
	t.Setenv("CASSANDRA_KEYSPACE", "orders")
	t.Setenv("CASSANDRA_USERNAME", "svc")
	t.Setenv("CASSANDRA_PASSWORD", "s3cret")

	loaded, err := loadServerConfig(path)
	require.NoError(t, err)
	require.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, loaded.Connection.ContactPoints)
	require.Equal(t, "dc2", loaded.Connection.LocalDC)
	require.Equal(t, "orders", loaded.Connection.Keyspace)
	require.Equal(t, "orders", loaded.Keyspace)
	require.Equal(t, "svc", loaded.Connection.Username)
	require.Equal(t, "s3cret", loaded.Connection.Password)
}

func TestLoadConfigDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	// godotenv never overrides variables that are already set, even to "".
	os.Unsetenv("CASSANDRA_PASSWORD")
	os.Unsetenv("CASSANDRA_KEYSPACE")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CASSANDRA_PASSWORD=fromdotenv\nCASSANDRA_KEYSPACE=dotks\n"), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("CASSANDRA_PASSWORD")
		os.Unsetenv("CASSANDRA_KEYSPACE")
	})

	loaded, err := loadServerConfig("")
	require.NoError(t, err)
	require.Equal(t, "fromdotenv", loaded.Connection.Password)
	require.Equal(t, "dotks", loaded.Keyspace)
}

func TestLoadConfigKeyspaceFallsBackToConnection(t *testing.T) {
	clearEnv(t)
	cfg := validServerConfig()
	cfg.Keyspace = ""
	cfg.Connection.Keyspace = "inventory"
	path := writeConfigFile(t, t.TempDir(), cfg)

	loaded, err := loadServerConfig(path)
	require.NoError(t, err)
	require.Equal(t, "inventory", loaded.Keyspace)
}

func TestSessionConfig(t *testing.T) {
	t.Parallel()
	conn := cqlmcp.ConnectionConfig{
		ContactPoints:         []string{"a", "b"},
		Port:                  9042,
		LocalDC:               "dc1",
		Keyspace:              "app",
		Username:              "cassandra",
		Password:              "pw",
		Consistency:           "local_quorum",
		ProtoVersion:          4,
		ConnectTimeoutSeconds: 5,
		TimeoutSeconds:        12,
		ConnectRetrySeconds:   60,
	}

	sc := sessionConfig(conn)
	require.Equal(t, []string{"a", "b"}, sc.Hosts)
	require.Equal(t, 9042, sc.Port)
	require.Equal(t, "dc1", sc.LocalDC)
	require.Equal(t, "app", sc.Keyspace)
	require.Equal(t, "pw", sc.Password)
	require.Equal(t, "local_quorum", sc.Consistency)
	require.Equal(t, 4, sc.ProtoVersion)
	require.Equal(t, 5*time.Second, sc.ConnectTimeout)
	require.Equal(t, 12*time.Second, sc.Timeout)
	require.Equal(t, time.Minute, sc.RetryMaxElapsed)
}

func TestResolvePassword(t *testing.T) {
	t.Parallel()
	conn := cqlmcp.ConnectionConfig{Password: "set"}
	require.NoError(t, resolvePassword(&conn, false))

	conn = cqlmcp.ConnectionConfig{}
	err := resolvePassword(&conn, false)
	require.EqualError(t, err, "CASSANDRA_PASSWORD environment variable is required")
}

func TestSetupLoggerFileOutput(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "server.log")
	logger := setupLogger(cqlmcp.LoggingConfig{Level: "warn", Format: "json", Output: path}, true)

	logger.Info().Msg("dropped")
	logger.Warn().Msg("kept")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "dropped")
	require.Contains(t, string(data), `"message":"kept"`)
}

func TestCallArguments(t *testing.T) {
	t.Parallel()

	raw, err := callArguments([]string{"list_tables"}, nil)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(raw))

	raw, err = callArguments([]string{"insert_data", `{"tableName":"t","data":{"b":1,"a":2}}`}, nil)
	require.NoError(t, err)
	// Key order is kept byte for byte.
	require.Equal(t, `{"tableName":"t","data":{"b":1,"a":2}}`, string(raw))

	raw, err = callArguments([]string{"execute_query", "-"}, strings.NewReader(" {\"query\":\"SELECT 1\"}\n"))
	require.NoError(t, err)
	require.Equal(t, `{"query":"SELECT 1"}`, string(raw))

	_, err = callArguments([]string{"execute_query", "{nope"}, nil)
	require.EqualError(t, err, "arguments must be valid JSON")
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	require.Equal(t, "gocqlmcp "+cqlmcp.Version+"\n", out.String())
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"drop-keyspace"})

	require.Error(t, cmd.Execute())
}
