package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cqlmcp "github.com/rickchristie/cassandra-mcp"
	"github.com/rickchristie/cassandra-mcp/internal/configure"
)

type exitCode int

const (
	exitCodeSuccess exitCode = 0
	exitCodeError   exitCode = 1
)

func main() {
	os.Exit(int(run(os.Args[1:])))
}

func run(args []string) exitCode {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeError
	}
	return exitCodeSuccess
}

func newRootCmd() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "gocqlmcp",
		Short:         "gocqlmcp - Cassandra MCP Server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		fmt.Sprintf("Path to configuration file (default $%s or %s)", configPathEnv, defaultConfigPath))

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the MCP server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context(), configFlag)
			},
		},
		&cobra.Command{
			Use:   "call <tool> [arguments-json|-]",
			Short: "Invoke a single tool and print its result",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCall(cmd.Context(), configFlag, args, cmd.InOrStdin(), cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "configure",
			Short: "Run interactive configuration wizard",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, _ := configPath(configFlag)
				printBanner(os.Stderr, isTTY(os.Stderr.Fd()))
				return configure.Run(path)
			},
		},
		&cobra.Command{
			Use:   "doctor",
			Short: "Validate configuration and print agent connection snippets",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return doctor(os.Stderr, isTTY(os.Stderr.Fd()), configFlag)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "gocqlmcp %s\n", cqlmcp.Version)
			},
		},
	)
	return rootCmd
}
