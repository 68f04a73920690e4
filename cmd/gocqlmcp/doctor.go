package main

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/gocql/gocql"

	cqlmcp "github.com/rickchristie/cassandra-mcp"
)

func doctor(w io.Writer, useColor bool, configFlag string) error {
	printBanner(w, useColor)
	fmt.Fprintf(w, "gocqlmcp %s\n\n", cqlmcp.Version)

	// Load and validate config
	config, ok := doctorValidateConfig(w, useColor, configFlag)
	if !ok {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Fix the issues above and run 'gocqlmcp doctor' again.")
		return nil
	}

	// Print agent connection snippets
	fmt.Fprintln(w)
	printAgentSnippets(w, useColor, config)
	return nil
}

// doctorValidateConfig loads and validates the configuration, printing check results.
// Returns the parsed config and true if all checks passed.
func doctorValidateConfig(w io.Writer, useColor bool, configFlag string) (*cqlmcp.ServerConfig, bool) {
	allPassed := true
	check := func(pass bool, msg string) {
		printCheck(w, useColor, pass, msg)
		if !pass {
			allPassed = false
		}
	}

	// Check 1: config file readable. The default path may be absent.
	path, explicit := configPath(configFlag)
	config, err := readServerConfig(path, explicit)
	if err != nil {
		check(false, fmt.Sprintf("Config file readable: %v", err))
		return nil, false
	}
	if _, statErr := os.Stat(path); statErr != nil {
		check(true, fmt.Sprintf("No config file at %s, using defaults", path))
	} else {
		check(true, fmt.Sprintf("Config file readable (%s)", path))
	}
	applyEnv(config)

	// Check 2: connection settings
	if len(config.Connection.ContactPoints) == 0 {
		check(false, "connection.contact_points is set")
	} else {
		check(true, fmt.Sprintf("connection.contact_points is set (%s)", strings.Join(config.Connection.ContactPoints, ", ")))
	}
	if config.Keyspace == "" {
		check(false, "keyspace is set (connection.keyspace or CASSANDRA_KEYSPACE, required by list_tables)")
	} else {
		check(true, fmt.Sprintf("keyspace is set (%s)", config.Keyspace))
	}
	check(config.Connection.Password != "", "CASSANDRA_PASSWORD is set")
	if config.Connection.Consistency != "" {
		if _, err := gocql.ParseConsistencyWrapper(config.Connection.Consistency); err != nil {
			check(false, fmt.Sprintf("connection.consistency is valid: %v", err))
		} else {
			check(true, fmt.Sprintf("connection.consistency is valid (%s)", config.Connection.Consistency))
		}
	}

	// Check 3: transport settings
	if err := config.Server.Validate(); err != nil {
		check(false, fmt.Sprintf("server settings are valid: %v", err))
	} else {
		check(true, fmt.Sprintf("server settings are valid (transport %s)", config.Server.Transport))
	}

	// Check 4: limits
	q := config.Query
	if q.DefaultTimeoutSeconds < 0 || q.ListTablesTimeoutSeconds < 0 || q.MaxConcurrent < 0 ||
		q.MaxQueryLength < 0 || q.MaxResultLength < 0 {
		check(false, "query limits are non-negative")
	}

	// Check 5: Regex patterns compile
	regexOK := true
	compiles := func(field, pattern string) {
		if _, err := regexp.Compile(pattern); err != nil {
			check(false, fmt.Sprintf("%s regex compiles: %v", field, err))
			regexOK = false
		}
	}

	for i, rule := range config.ErrorPrompts {
		compiles(fmt.Sprintf("error_prompts[%d]", i), rule.Pattern)
	}
	for i, rule := range config.Sanitization {
		compiles(fmt.Sprintf("sanitization[%d]", i), rule.Pattern)
		if rule.Column != "" {
			compiles(fmt.Sprintf("sanitization[%d].column", i), rule.Column)
		}
	}
	for i, rule := range config.Query.TimeoutRules {
		compiles(fmt.Sprintf("timeout_rules[%d]", i), rule.Pattern)
		if rule.TimeoutSeconds <= 0 {
			check(false, fmt.Sprintf("timeout_rules[%d] has a positive timeout", i))
		}
	}

	if regexOK {
		check(true, "All regex patterns compile")
	}

	return config, allPassed
}

// printCheck prints a colored ✓ or ✗ check line.
func printCheck(w io.Writer, useColor bool, pass bool, msg string) {
	if pass {
		if useColor {
			fmt.Fprintf(w, "  \033[32m✓\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✓ %s\n", msg)
		}
	} else {
		if useColor {
			fmt.Fprintf(w, "  \033[31m✗\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✗ %s\n", msg)
		}
	}
}

// printAgentSnippets prints MCP connection config snippets for various AI agents.
func printAgentSnippets(w io.Writer, useColor bool, config *cqlmcp.ServerConfig) {
	if config.Server.Transport == "stdio" {
		printStdioSnippets(w, useColor, config)
		return
	}
	url := fmt.Sprintf("http://localhost:%d/mcp", config.Server.Port)

	heading, subheading := snippetHeadings(w, useColor)

	heading("Agent Connection Snippets")
	fmt.Fprintln(w)

	// Claude Code
	subheading("Claude Code")
	fmt.Fprintf(w, "  Run this command to add the server:\n\n")
	fmt.Fprintf(w, "    claude mcp add --transport http cassandra %s\n\n", url)
	fmt.Fprintf(w, "  Or add to .mcp.json (project scope):\n\n")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "cassandra": {
        "type": "http",
        "url": "%s"
      }
    }
  }
`, url)
	fmt.Fprintln(w)

	// Copilot CLI
	subheading("Copilot CLI (~/.copilot/mcp-config.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "cassandra": {
        "type": "http",
        "url": "%s"
      }
    }
  }
`, url)
	fmt.Fprintln(w)

	// Gemini CLI
	subheading("Gemini CLI (~/.gemini/settings.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "cassandra": {
        "httpUrl": "%s"
      }
    }
  }
`, url)
	fmt.Fprintln(w)

	// OpenCode
	subheading("OpenCode (opencode.json)")
	fmt.Fprintf(w, `  {
    "mcp": {
      "cassandra": {
        "type": "remote",
        "url": "%s"
      }
    }
  }
`, url)
	fmt.Fprintln(w)

	// Cursor
	subheading("Cursor (.cursor/mcp.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "cassandra": {
        "url": "%s"
      }
    }
  }
`, url)
	fmt.Fprintln(w)

	// Windsurf
	subheading("Windsurf (~/.codeium/windsurf/mcp_config.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "cassandra": {
        "serverUrl": "%s"
      }
    }
  }
`, url)
}

// printStdioSnippets prints launch configs for agents that spawn the server
// as a subprocess.
func printStdioSnippets(w io.Writer, useColor bool, config *cqlmcp.ServerConfig) {
	heading, subheading := snippetHeadings(w, useColor)

	env := fmt.Sprintf(`{
          "CASSANDRA_CONTACT_POINTS": "%s",
          "CASSANDRA_LOCAL_DC": "%s",
          "CASSANDRA_KEYSPACE": "%s",
          "CASSANDRA_USERNAME": "%s",
          "CASSANDRA_PASSWORD": "<password>"
        }`,
		strings.Join(config.Connection.ContactPoints, ","),
		config.Connection.LocalDC,
		config.Keyspace,
		config.Connection.Username,
	)

	heading("Agent Connection Snippets")
	fmt.Fprintln(w)

	subheading("Claude Code")
	fmt.Fprintf(w, "  Run this command to add the server:\n\n")
	fmt.Fprintf(w, "    claude mcp add cassandra -e CASSANDRA_PASSWORD=<password> -- gocqlmcp serve\n\n")
	fmt.Fprintf(w, "  Or add to .mcp.json (project scope):\n\n")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "cassandra": {
        "command": "gocqlmcp",
        "args": ["serve"],
        "env": %s
      }
    }
  }
`, env)
	fmt.Fprintln(w)

	subheading("Cursor (.cursor/mcp.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "cassandra": {
        "command": "gocqlmcp",
        "args": ["serve"],
        "env": %s
      }
    }
  }
`, env)
}

func snippetHeadings(w io.Writer, useColor bool) (heading, subheading func(string)) {
	heading = func(title string) {
		if useColor {
			fmt.Fprintf(w, "\033[1;36m%s\033[0m\n", title)
		} else {
			fmt.Fprintln(w, title)
		}
	}
	subheading = func(title string) {
		if useColor {
			fmt.Fprintf(w, "  \033[1m%s\033[0m\n", title)
		} else {
			fmt.Fprintf(w, "  %s\n", title)
		}
	}
	return heading, subheading
}
