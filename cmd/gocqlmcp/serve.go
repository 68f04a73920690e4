package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	cqlmcp "github.com/rickchristie/cassandra-mcp"
	"github.com/rickchristie/cassandra-mcp/cassandra"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context, configFlag string) error {
	// 1. Load ServerConfig
	serverConfig, err := loadServerConfig(configFlag)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := serverConfig.Server.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	stdio := serverConfig.Server.Transport == "stdio"

	// 2. Resolve the password. stdin is the protocol stream in stdio mode,
	// so prompting is only possible over HTTP.
	if err := resolvePassword(&serverConfig.Connection, !stdio); err != nil {
		return err
	}

	// 3. Setup logger
	logger := setupLogger(serverConfig.Logging, stdio)

	// 4. Open the session and build the gateway
	gateway, err := openGateway(ctx, serverConfig, logger, cqlmcp.WithMetrics(cqlmcp.NewMetrics(prometheus.DefaultRegisterer)))
	if err != nil {
		return err
	}
	dispatcher := cqlmcp.NewDispatcher(gateway, logger)

	// 5. Create MCP server with initialize lifecycle logging
	mcpServer := newMCPServer(dispatcher, logger)

	if stdio {
		return serveStdio(ctx, mcpServer, gateway, logger)
	}
	return serveHTTP(ctx, mcpServer, serverConfig.Server, gateway, logger)
}

// resolvePassword fails when CASSANDRA_PASSWORD is unset, unless prompting
// is allowed and stdin is a terminal.
func resolvePassword(conn *cqlmcp.ConnectionConfig, allowPrompt bool) error {
	if conn.Password != "" {
		return nil
	}
	if allowPrompt && isTTY(os.Stdin.Fd()) {
		conn.Password = promptPassword("Cassandra password: ")
		if conn.Password != "" {
			return nil
		}
	}
	return errors.New("CASSANDRA_PASSWORD environment variable is required")
}

// openGateway connects to the cluster. A connect failure is returned as a
// ConnectionError.
func openGateway(ctx context.Context, serverConfig *cqlmcp.ServerConfig, logger zerolog.Logger, opts ...cqlmcp.Option) (*cqlmcp.CassandraMcp, error) {
	session, err := cassandra.Connect(ctx, sessionConfig(serverConfig.Connection), logger)
	if err != nil {
		connErr := &cqlmcp.ConnectionError{Op: "connect", Err: err}
		logger.Error().Err(connErr).Strs("contact_points", serverConfig.Connection.ContactPoints).Msg("failed to connect to cassandra")
		return nil, connErr
	}
	return cqlmcp.New(session, serverConfig.Config, logger, opts...), nil
}

// closeGateway closes the session. Failures are logged, shutdown goes on.
func closeGateway(gateway *cqlmcp.CassandraMcp, logger zerolog.Logger) {
	if err := gateway.Close(); err != nil {
		logger.Warn().Err(err).Msg("error during shutdown")
	}
}

func newMCPServer(dispatcher *cqlmcp.Dispatcher, logger zerolog.Logger) *server.MCPServer {
	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		logger.Info().
			Str("client_name", req.Params.ClientInfo.Name).
			Str("client_version", req.Params.ClientInfo.Version).
			Msg("AI agent connected (MCP initialize)")
	})

	mcpServer := server.NewMCPServer(cqlmcp.ServerName, cqlmcp.Version,
		server.WithToolCapabilities(true),
		server.WithHooks(hooks),
	)
	cqlmcp.RegisterMCPTools(mcpServer, dispatcher)
	return mcpServer
}

// serveStdio reads envelopes from stdin until it closes or a signal
// arrives. The session is closed before returning.
func serveStdio(ctx context.Context, mcpServer *server.MCPServer, gateway *cqlmcp.CassandraMcp, logger zerolog.Logger) error {
	stdioServer := server.NewStdioServer(mcpServer)
	stdioServer.SetErrorLogger(log.New(logger, "", 0))

	logger.Info().Str("server", cqlmcp.ServerName).Msg("serving MCP over stdio")
	err := stdioServer.Listen(ctx, os.Stdin, os.Stdout)
	closeGateway(gateway, logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serveHTTP serves the Streamable HTTP transport plus the optional health
// check and metrics endpoints. On shutdown the session is closed first,
// then the HTTP server.
func serveHTTP(ctx context.Context, mcpServer *server.MCPServer, settings cqlmcp.ServerSettings, gateway *cqlmcp.CassandraMcp, logger zerolog.Logger) error {
	addr := fmt.Sprintf(":%d", settings.Port)
	mux := http.NewServeMux()

	// Health check endpoint (process liveness only, not cluster connectivity)
	if settings.HealthCheckEnabled {
		mux.HandleFunc(settings.HealthCheckPath, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
	}
	if settings.MetricsEnabled {
		mux.Handle(settings.MetricsPath, promhttp.Handler())
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	streamableServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath(cqlmcp.MCPEndpointPath),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)

	// Start() does not register the handler when a custom *http.Server is
	// provided via WithStreamableHTTPServer.
	mux.Handle(cqlmcp.MCPEndpointPath, streamableServer)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", settings.Port).Msg("starting gocqlmcp server")
		errCh <- streamableServer.Start(addr)
	}()

	select {
	case err := <-errCh:
		closeGateway(gateway, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	closeGateway(gateway, logger)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := streamableServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

func promptPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // newline after password input
	if err != nil {
		return ""
	}
	return string(password)
}
