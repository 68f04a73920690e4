// Package configure is the interactive editor behind `gocqlmcp configure`.
//
// Every answer is checked with the same code serve uses to load it, so a
// file written here starts the server without edits. The cluster password is
// never prompted for or written, it comes from CASSANDRA_PASSWORD at serve
// time.
package configure

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gocql/gocql"

	cqlmcp "github.com/rickchristie/cassandra-mcp"
	"github.com/rickchristie/cassandra-mcp/internal/errprompt"
	"github.com/rickchristie/cassandra-mcp/internal/sanitize"
	"github.com/rickchristie/cassandra-mcp/internal/timeout"
)

// Run edits the config file at configPath on the terminal.
func Run(configPath string) error {
	return run(configPath, os.Stdin, os.Stderr)
}

func run(configPath string, input io.Reader, output io.Writer) error {
	cfg, isNew, err := loadExisting(configPath)
	if err != nil {
		return err
	}
	w := &wizard{in: bufio.NewScanner(input), out: output, label: "current"}
	if isNew {
		w.label = "default"
	}

	fmt.Fprintf(output, "gocqlmcp configuration wizard\n")
	fmt.Fprintf(output, "Config file: %s\n", configPath)

	w.connection(&cfg.Connection)
	w.server(&cfg.Server)
	w.logging(&cfg.Logging, cfg.Server.Transport)
	w.query(&cfg.Query)

	w.section("Timeout Rules")
	cfg.Query.TimeoutRules = editList(w, "timeout rule", cfg.Query.TimeoutRules, showTimeoutRule, addTimeoutRule)
	w.section("Error Prompts")
	cfg.ErrorPrompts = editList(w, "error prompt", cfg.ErrorPrompts, showErrorPrompt, addErrorPrompt)
	w.section("Sanitization Rules")
	cfg.Sanitization = editList(w, "sanitization rule", cfg.Sanitization, showSanitizationRule, addSanitizationRule)

	if err := cfg.Server.Validate(); err != nil {
		return fmt.Errorf("config not saved: %w", err)
	}
	if err := writeConfig(configPath, cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(output, "\nConfiguration saved to %s\n", configPath)
	return nil
}

// loadExisting overlays the file on the defaults, the way serve reads it.
// A missing file starts from the defaults and reports isNew.
func loadExisting(configPath string) (cfg *cqlmcp.ServerConfig, isNew bool, err error) {
	config := cqlmcp.DefaultServerConfig()
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return &config, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, false, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	return &config, false, nil
}

// writeConfig replaces configPath atomically so an interrupted write never
// leaves a truncated file behind.
func writeConfig(configPath string, cfg *cqlmcp.ServerConfig) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".gocqlmcp-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), configPath)
}

var (
	consistencies = []gocql.Consistency{
		gocql.Any, gocql.One, gocql.Two, gocql.Three, gocql.Quorum,
		gocql.All, gocql.LocalQuorum, gocql.EachQuorum, gocql.LocalOne,
	}
	transports = []string{"stdio", "http"}
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "text"}
)

func (w *wizard) connection(c *cqlmcp.ConnectionConfig) {
	w.section("Connection")
	w.list("connection.contact_points", "comma-separated hosts, required", &c.ContactPoints)
	w.integer("connection.port", "0 = driver default 9042", &c.Port, 0, 65535)
	w.text("connection.local_dc", "empty = no datacenter affinity", &c.LocalDC)
	w.text("connection.keyspace", "required for list_tables", &c.Keyspace)
	w.text("connection.username", "", &c.Username)
	w.consistency(&c.Consistency)
	w.integer("connection.proto_version", "0 = negotiate", &c.ProtoVersion, 0, 5)
	w.integer("connection.connect_timeout_seconds", "seconds", &c.ConnectTimeoutSeconds, 1, math.MaxInt)
	w.integer("connection.timeout_seconds", "seconds", &c.TimeoutSeconds, 1, math.MaxInt)
	w.integer("connection.connect_retry_seconds", "seconds, 0 = single attempt", &c.ConnectRetrySeconds, 0, math.MaxInt)
}

// server only asks for the http settings when http is chosen.
func (w *wizard) server(s *cqlmcp.ServerSettings) {
	w.section("Server")
	w.choice("server.transport", transports, &s.Transport)
	if s.Transport != "http" {
		return
	}
	w.integer("server.port", "", &s.Port, 1, 65535)

	w.boolean("server.health_check_enabled", &s.HealthCheckEnabled)
	if s.HealthCheckEnabled {
		w.path("server.health_check_path", &s.HealthCheckPath, func(p string) error {
			trial := *s
			trial.HealthCheckPath, trial.MetricsEnabled = p, false
			return trial.Validate()
		})
	}
	w.boolean("server.metrics_enabled", &s.MetricsEnabled)
	if s.MetricsEnabled {
		w.path("server.metrics_path", &s.MetricsPath, func(p string) error {
			trial := *s
			trial.MetricsPath = p
			return trial.Validate()
		})
	}
}

func (w *wizard) logging(l *cqlmcp.LoggingConfig, transport string) {
	w.section("Logging")
	w.choice("logging.level", logLevels, &l.Level)
	w.choice("logging.format", logFormats, &l.Format)
	w.text("logging.output", "stdout, stderr, or file path", &l.Output)
	if transport == "stdio" && l.Output == "stdout" {
		fmt.Fprintf(w.out, "  Note: stdout carries the protocol under stdio, logs will go to stderr.\n")
	}
}

func (w *wizard) query(q *cqlmcp.QueryConfig) {
	w.section("Query")
	w.integer("query.default_timeout_seconds", "seconds, 0 = no deadline", &q.DefaultTimeoutSeconds, 0, math.MaxInt)
	w.integer("query.list_tables_timeout_seconds", "seconds, 0 = default timeout", &q.ListTablesTimeoutSeconds, 0, math.MaxInt)
	w.integer("query.max_query_length", "bytes", &q.MaxQueryLength, 1, math.MaxInt)
	w.integer("query.max_result_length", "characters", &q.MaxResultLength, 1, math.MaxInt)
	w.integer("query.max_concurrent", "0 = unlimited", &q.MaxConcurrent, 0, math.MaxInt)
}

// wizard reads one answer per line. Once input runs out every remaining
// prompt keeps its value.
type wizard struct {
	in    *bufio.Scanner
	out   io.Writer
	label string // "default" for a new file, "current" otherwise
	eof   bool
}

func (w *wizard) readLine() string {
	if w.in.Scan() {
		return strings.TrimSpace(w.in.Text())
	}
	w.eof = true
	return ""
}

func (w *wizard) section(title string) {
	fmt.Fprintf(w.out, "\n=== %s ===\n", title)
}

// ask prompts until the answer is accepted. A non-empty answer goes to set.
// Enter keeps the shown value, unless keep rejects it.
func (w *wizard) ask(name, hint, shown string, keep func() error, set func(string) error) {
	for {
		if hint != "" {
			fmt.Fprintf(w.out, "%s [%s] (%s: %s): ", name, hint, w.label, shown)
		} else {
			fmt.Fprintf(w.out, "%s (%s: %s): ", name, w.label, shown)
		}
		line := w.readLine()
		var err error
		switch {
		case w.eof:
			return
		case line != "":
			err = set(line)
		case keep != nil:
			err = keep()
		}
		if err == nil {
			return
		}
		fmt.Fprintf(w.out, "  %v, try again.\n", err)
	}
}

func (w *wizard) text(name, hint string, v *string) {
	w.ask(name, hint, strconv.Quote(*v), nil, func(s string) error {
		*v = s
		return nil
	})
}

func (w *wizard) integer(name, hint string, v *int, lo, hi int) {
	inRange := func(n int) error {
		switch {
		case hi == math.MaxInt && n < lo:
			return fmt.Errorf("value must be >= %d", lo)
		case n < lo || n > hi:
			return fmt.Errorf("value must be between %d and %d", lo, hi)
		}
		return nil
	}
	w.ask(name, hint, strconv.Itoa(*v), func() error { return inRange(*v) }, func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		if err := inRange(n); err != nil {
			return err
		}
		*v = n
		return nil
	})
}

func (w *wizard) boolean(name string, v *bool) {
	w.ask(name, "", strconv.FormatBool(*v), nil, func(s string) error {
		switch strings.ToLower(s) {
		case "y", "yes":
			*v = true
		case "n", "no":
			*v = false
		default:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("invalid value %q, use yes or no", s)
			}
			*v = b
		}
		return nil
	})
}

func (w *wizard) choice(name string, options []string, v *string) {
	hint := "options: " + strings.Join(options, ", ")
	w.ask(name, hint, strconv.Quote(*v), nil, func(s string) error {
		for _, o := range options {
			if strings.EqualFold(s, o) {
				*v = o
				return nil
			}
		}
		return fmt.Errorf("invalid value %q, must be one of: %s", s, strings.Join(options, ", "))
	})
}

// list reads a comma-separated list with at least one entry.
func (w *wizard) list(name, hint string, v *[]string) {
	required := errors.New("value is required")
	w.ask(name, hint, strconv.Quote(strings.Join(*v, ",")), func() error {
		if len(*v) == 0 {
			return required
		}
		return nil
	}, func(s string) error {
		var items []string
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			return required
		}
		*v = items
		return nil
	})
}

// consistency stores the level in the lower-case form the driver parses.
func (w *wizard) consistency(v *string) {
	names := make([]string, len(consistencies))
	for i, c := range consistencies {
		names[i] = strings.ToLower(c.String())
	}
	w.ask("connection.consistency", "options: "+strings.Join(names, ", "), strconv.Quote(*v), nil, func(s string) error {
		c, err := gocql.ParseConsistencyWrapper(s)
		if err != nil {
			return err
		}
		*v = strings.ToLower(c.String())
		return nil
	})
}

func (w *wizard) path(name string, v *string, check func(string) error) {
	w.ask(name, "must start with /", strconv.Quote(*v), func() error { return check(*v) }, func(s string) error {
		if err := check(s); err != nil {
			return err
		}
		*v = s
		return nil
	})
}

// field reads one value of a new list entry. Optional fields accept Enter as
// empty.
func (w *wizard) field(name, hint string, required bool, check func(string) error) string {
	for {
		fmt.Fprintf(w.out, "  %s [%s]: ", name, hint)
		line := w.readLine()
		switch {
		case w.eof:
			return ""
		case line == "" && required:
			fmt.Fprintf(w.out, "  %s is required, try again.\n", name)
			continue
		case line == "":
			return ""
		}
		if check != nil {
			if err := check(line); err != nil {
				fmt.Fprintf(w.out, "  %v, try again.\n", err)
				continue
			}
		}
		return line
	}
}

// editList shows items and lets the user add or remove entries until they
// continue. add returns false when the entry was abandoned.
func editList[T any](w *wizard, label string, items []T, show func(T) string, add func(*wizard) (T, bool)) []T {
	for {
		if len(items) == 0 {
			fmt.Fprintf(w.out, "  (no %ss)\n", label)
		}
		for i, item := range items {
			fmt.Fprintf(w.out, "  [%d] %s\n", i, show(item))
		}
		fmt.Fprintf(w.out, "[a]dd, [r]emove, [c]ontinue? ")
		switch strings.ToLower(w.readLine()) {
		case "a":
			if item, ok := add(w); ok {
				items = append(items, item)
			}
		case "r":
			items = removeAt(w, label, items)
		case "c", "":
			return items
		default:
			fmt.Fprintf(w.out, "  Unknown choice, try again.\n")
		}
	}
}

func removeAt[T any](w *wizard, label string, items []T) []T {
	if len(items) == 0 {
		fmt.Fprintf(w.out, "  No %ss to remove.\n", label)
		return items
	}
	line := w.field("index", fmt.Sprintf("0-%d, Enter to cancel", len(items)-1), false, func(s string) error {
		if i, err := strconv.Atoi(s); err != nil || i < 0 || i >= len(items) {
			return fmt.Errorf("index must be between 0 and %d", len(items)-1)
		}
		return nil
	})
	if line == "" {
		return items
	}
	i, _ := strconv.Atoi(line)
	return slices.Delete(items, i, i+1)
}

func showTimeoutRule(r cqlmcp.TimeoutRule) string {
	return fmt.Sprintf("pattern=%q timeout_seconds=%d", r.Pattern, r.TimeoutSeconds)
}

// addTimeoutRule reads a rule and offers to try it on a statement.
func addTimeoutRule(w *wizard) (cqlmcp.TimeoutRule, bool) {
	var rule cqlmcp.TimeoutRule
	rule.Pattern = w.field("pattern", "regex matched against the CQL text", true, func(s string) error {
		_, err := timeout.NewManager(timeout.Config{Rules: []timeout.Rule{{Pattern: s, Timeout: time.Second}}})
		return err
	})
	secs := w.field("timeout_seconds", "must be > 0", true, func(s string) error {
		if n, err := strconv.Atoi(s); err != nil || n <= 0 {
			return fmt.Errorf("invalid timeout %q, must be a positive integer", s)
		}
		return nil
	})
	if w.eof {
		return rule, false
	}
	rule.TimeoutSeconds, _ = strconv.Atoi(secs)

	m, err := timeout.NewManager(timeout.Config{Rules: []timeout.Rule{{
		Pattern: rule.Pattern,
		Timeout: time.Duration(rule.TimeoutSeconds) * time.Second,
	}}})
	if err != nil {
		fmt.Fprintf(w.out, "  %v, rule discarded.\n", err)
		return rule, false
	}
	if stmt := w.field("try it on a statement", "optional", false, nil); stmt != "" {
		if d, pattern := m.GetTimeoutWithPattern(stmt); pattern != "" {
			fmt.Fprintf(w.out, "  Matches, the statement gets %s.\n", d)
		} else {
			fmt.Fprintf(w.out, "  No match, query.default_timeout_seconds applies.\n")
		}
	}
	return rule, true
}

func showErrorPrompt(r cqlmcp.ErrorPromptRule) string {
	return fmt.Sprintf("pattern=%q message=%q", r.Pattern, r.Message)
}

// addErrorPrompt reads a rule and offers to try it on an error message.
func addErrorPrompt(w *wizard) (cqlmcp.ErrorPromptRule, bool) {
	var rule cqlmcp.ErrorPromptRule
	rule.Pattern = w.field("pattern", "regex matched against the error message", true, func(s string) error {
		_, err := errprompt.NewMatcher([]errprompt.Rule{{Pattern: s}})
		return err
	})
	rule.Message = w.field("message", "guidance shown to the agent", true, nil)
	if w.eof {
		return rule, false
	}

	m, err := errprompt.NewMatcher([]errprompt.Rule{{Pattern: rule.Pattern, Message: rule.Message}})
	if err != nil {
		fmt.Fprintf(w.out, "  %v, rule discarded.\n", err)
		return rule, false
	}
	if sample := w.field("try it on an error message", "optional", false, nil); sample != "" {
		if annotated, patterns := m.Annotate(sample); len(patterns) > 0 {
			fmt.Fprintf(w.out, "  The agent would see:\n%s\n", indent(annotated))
		} else {
			fmt.Fprintf(w.out, "  No match, the error is shown unchanged.\n")
		}
	}
	return rule, true
}

func showSanitizationRule(r cqlmcp.SanitizationRule) string {
	return fmt.Sprintf("pattern=%q replacement=%q column=%q description=%q", r.Pattern, r.Replacement, r.Column, r.Description)
}

// addSanitizationRule reads a rule and offers to try it on a column value.
func addSanitizationRule(w *wizard) (cqlmcp.SanitizationRule, bool) {
	var rule cqlmcp.SanitizationRule
	rule.Pattern = w.field("pattern", "regex matched against string values", true, func(s string) error {
		_, err := sanitize.NewSanitizer([]sanitize.Rule{{Pattern: s}})
		return err
	})
	rule.Replacement = w.field("replacement", "may use ${1} groups, Enter for empty", false, nil)
	rule.Column = w.field("column", "regex on column names, Enter for all columns", false, func(s string) error {
		_, err := sanitize.NewSanitizer([]sanitize.Rule{{Pattern: rule.Pattern, Column: s}})
		return err
	})
	rule.Description = w.field("description", "optional", false, nil)
	if w.eof {
		return rule, false
	}

	s, err := sanitize.NewSanitizer([]sanitize.Rule{{Pattern: rule.Pattern, Replacement: rule.Replacement, Column: rule.Column}})
	if err != nil {
		fmt.Fprintf(w.out, "  %v, rule discarded.\n", err)
		return rule, false
	}
	value := w.field("try it on a value", "optional", false, nil)
	if value == "" {
		return rule, true
	}
	column := "value"
	if rule.Column != "" {
		column = w.field("column name for the value", "optional", false, nil)
	}
	got := s.SanitizeRows([]map[string]any{{column: value}})[0][column]
	fmt.Fprintf(w.out, "  Result: %q\n", got)
	return rule, true
}

func indent(s string) string {
	return "    " + strings.ReplaceAll(s, "\n", "\n    ")
}
