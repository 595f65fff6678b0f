// Package main provides the orpipe CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/orpipe/cli"
	"github.com/richinex/orpipe/config"
	"github.com/richinex/orpipe/pipe"
	"github.com/richinex/orpipe/server"
)

var (
	// Global flags
	model  string
	dbPath string
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "orpipe",
		Short: "OpenRouter chat pipe with reasoning-token interleaving",
		Long: `Routes chat completions through OpenRouter, wrapping reasoning tokens
in <think> blocks so hosts can render them as collapsible thought sections.

Run 'orpipe serve' for an OpenAI-compatible HTTP surface, or use the
chat/ask commands directly from the terminal.`,
	}

	rootCmd.PersistentFlags().StringVarP(&model, "model", "m", "deepseek/deepseek-r1", "Model identifier")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path for conversation storage")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(sessionsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an OpenAI-compatible HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.New()
			if err != nil {
				return err
			}
			if port != 0 {
				settings.Port = port
			}

			srv, err := server.New(pipe.New(settings), settings.Port)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides ORPIPE_PORT)")
	return cmd
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListModels(context.Background())
		},
	}
}

func askCmd() *cobra.Command {
	var noStream bool

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Run a single prompt and print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.Options{
				Model:    model,
				DBPath:   dbPath,
				NoStream: noStream,
			}
			return cli.Ask(context.Background(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&noStream, "no-stream", false, "Wait for the full response instead of streaming")
	return cmd
}

func chatCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session. Conversation history is persisted
per session; pass --session to resume an earlier conversation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.Options{
				Model:     model,
				SessionID: sessionID,
				DBPath:    dbPath,
			}
			return cli.Chat(context.Background(), opts)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID for conversation persistence")
	return cmd
}

func sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List stored chat sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Sessions(context.Background(), dbPath)
		},
	}
}
