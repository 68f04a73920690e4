package cqlmcp_test

import (
	"encoding/json"
	"strings"
	"testing"

	cqlmcp "github.com/rickchristie/cassandra-mcp"
)

// expectPanic calls f and asserts that it panics with a message containing substr.
func expectPanic(t *testing.T, substr string, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q, but no panic occurred", substr)
		}
		msg := ""
		switch v := r.(type) {
		case string:
			msg = v
		case error:
			msg = v.Error()
		default:
			t.Fatalf("expected panic string/error containing %q, got %T: %v", substr, r, r)
		}
		if !strings.Contains(msg, substr) {
			t.Fatalf("expected panic containing %q, got %q", substr, msg)
		}
	}()
	f()
}

// expectNoPanic calls f and asserts that it does NOT panic.
func expectNoPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	f()
}

func TestNew_NilSession(t *testing.T) {
	t.Parallel()
	expectPanic(t, "session must be non-nil", func() {
		cqlmcp.New(nil, defaultConfig(), testLogger())
	})
}

func TestNew_NilGatewayDispatcher(t *testing.T) {
	t.Parallel()
	expectPanic(t, "gateway must be non-nil", func() {
		cqlmcp.NewDispatcher(nil, testLogger())
	})
}

func TestNew_InvalidSanitizationRegex(t *testing.T) {
	t.Parallel()
	config := defaultConfig()
	config.Sanitization = []cqlmcp.SanitizationRule{
		{Pattern: "[invalid(regex", Replacement: "***"},
	}
	expectPanic(t, "regex", func() {
		cqlmcp.New(&fakeSession{}, config, testLogger())
	})
}

func TestNew_InvalidSanitizationColumnRegex(t *testing.T) {
	t.Parallel()
	config := defaultConfig()
	config.Sanitization = []cqlmcp.SanitizationRule{
		{Pattern: `\d+`, Replacement: "***", Column: "(unclosed"},
	}
	expectPanic(t, "column pattern", func() {
		cqlmcp.New(&fakeSession{}, config, testLogger())
	})
}

func TestNew_InvalidErrorPromptRegex(t *testing.T) {
	t.Parallel()
	config := defaultConfig()
	config.ErrorPrompts = []cqlmcp.ErrorPromptRule{
		{Pattern: "[invalid(regex", Message: "fix it"},
	}
	expectPanic(t, "regex", func() {
		cqlmcp.New(&fakeSession{}, config, testLogger())
	})
}

func TestNew_InvalidTimeoutRule(t *testing.T) {
	t.Parallel()
	config := defaultConfig()
	config.Query.TimeoutRules = []cqlmcp.TimeoutRule{
		{Pattern: "(?i)ALLOW FILTERING", TimeoutSeconds: 0},
	}
	expectPanic(t, "positive timeout", func() {
		cqlmcp.New(&fakeSession{}, config, testLogger())
	})

	config.Query.TimeoutRules = []cqlmcp.TimeoutRule{
		{Pattern: "[bad", TimeoutSeconds: 5},
	}
	expectPanic(t, "regex", func() {
		cqlmcp.New(&fakeSession{}, config, testLogger())
	})
}

func TestNew_NegativeValues(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		mutate func(*cqlmcp.Config)
		substr string
	}{
		{"default timeout", func(c *cqlmcp.Config) { c.Query.DefaultTimeoutSeconds = -1 }, "default_timeout_seconds"},
		{"list tables timeout", func(c *cqlmcp.Config) { c.Query.ListTablesTimeoutSeconds = -1 }, "list_tables_timeout_seconds"},
		{"max concurrent", func(c *cqlmcp.Config) { c.Query.MaxConcurrent = -1 }, "max_concurrent"},
		{"max query length", func(c *cqlmcp.Config) { c.Query.MaxQueryLength = -1 }, "max_query_length"},
		{"max result length", func(c *cqlmcp.Config) { c.Query.MaxResultLength = -1 }, "max_result_length"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			config := defaultConfig()
			tc.mutate(&config)
			expectPanic(t, tc.substr, func() {
				cqlmcp.New(&fakeSession{}, config, testLogger())
			})
		})
	}
}

func TestNew_ZeroValuesAreValid(t *testing.T) {
	t.Parallel()
	expectNoPanic(t, func() {
		c := cqlmcp.New(&fakeSession{}, cqlmcp.Config{}, testLogger())
		c.Close()
	})
}

func TestClose_ClosesSessionOnce(t *testing.T) {
	t.Parallel()
	session := &fakeSession{}
	c := cqlmcp.New(session, defaultConfig(), testLogger())

	if err := c.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("unexpected close error on second call: %v", err)
	}
	if session.closes != 1 {
		t.Fatalf("expected session to be closed once, got %d", session.closes)
	}
}

func TestDefaultServerConfig(t *testing.T) {
	t.Parallel()
	config := cqlmcp.DefaultServerConfig()

	if config.Server.Transport != "stdio" {
		t.Fatalf("expected stdio transport, got %q", config.Server.Transport)
	}
	if config.Query.DefaultTimeoutSeconds != 30 || config.Query.ListTablesTimeoutSeconds != 10 {
		t.Fatalf("unexpected timeouts: %+v", config.Query)
	}
	if config.Query.MaxResultLength != 100000 || config.Query.MaxQueryLength != 100000 {
		t.Fatalf("unexpected length limits: %+v", config.Query)
	}
	if len(config.Connection.ContactPoints) != 1 || config.Connection.ContactPoints[0] != "localhost" {
		t.Fatalf("expected localhost contact point, got %v", config.Connection.ContactPoints)
	}
	if config.Connection.LocalDC != "datacenter1" {
		t.Fatalf("expected datacenter1, got %q", config.Connection.LocalDC)
	}
	if config.Logging.Output != "stderr" {
		t.Fatalf("expected stderr logging, got %q", config.Logging.Output)
	}
}

func TestServerConfig_PasswordIsNeverSerialized(t *testing.T) {
	t.Parallel()
	config := cqlmcp.DefaultServerConfig()
	config.Connection.Password = "s3cret"

	b, err := json.Marshal(config)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "s3cret") {
		t.Fatalf("password leaked into JSON: %s", b)
	}
}

func TestServerSettings_Validate(t *testing.T) {
	t.Parallel()
	httpSettings := func() cqlmcp.ServerSettings {
		s := cqlmcp.DefaultServerConfig().Server
		s.Transport = "http"
		return s
	}
	cases := []struct {
		name   string
		mutate func(*cqlmcp.ServerSettings)
		errMsg string
	}{
		{"stdio ignores port", func(s *cqlmcp.ServerSettings) { s.Transport = "stdio"; s.Port = 0 }, ""},
		{"http valid", func(s *cqlmcp.ServerSettings) {}, ""},
		{"unknown transport", func(s *cqlmcp.ServerSettings) { s.Transport = "grpc" }, `server.transport must be "stdio" or "http"`},
		{"http without port", func(s *cqlmcp.ServerSettings) { s.Port = 0 }, "server.port must be between 1 and 65535"},
		{"port out of range", func(s *cqlmcp.ServerSettings) { s.Port = 70000 }, "server.port must be between 1 and 65535"},
		{"health check without path", func(s *cqlmcp.ServerSettings) {
			s.HealthCheckEnabled = true
			s.HealthCheckPath = ""
		}, "server.health_check_path must be set"},
		{"health check path not required when disabled", func(s *cqlmcp.ServerSettings) {
			s.HealthCheckEnabled = false
			s.HealthCheckPath = ""
		}, ""},
		{"relative metrics path", func(s *cqlmcp.ServerSettings) {
			s.MetricsEnabled = true
			s.MetricsPath = "metrics"
		}, "server.metrics_path must start with /"},
		{"metrics on the protocol path", func(s *cqlmcp.ServerSettings) {
			s.MetricsEnabled = true
			s.MetricsPath = cqlmcp.MCPEndpointPath
		}, "reserved for the MCP endpoint"},
		{"same health and metrics path", func(s *cqlmcp.ServerSettings) {
			s.HealthCheckEnabled = true
			s.MetricsEnabled = true
			s.HealthCheckPath = "/status"
			s.MetricsPath = "/status"
		}, "must differ"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			settings := httpSettings()
			tc.mutate(&settings)
			err := settings.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Fatalf("expected error containing %q, got %v", tc.errMsg, err)
			}
		})
	}
}
