// Package cmd contains the chatdocs command line entry points: the API
// server and the documentation indexer.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
)

// Execute is the main entry point for the chatdocs binary.
//
// Design: following the pattern used by kubectl, hugo, and other
// standard Go CLI tools, all application logic is contained in the cmd
// package, leaving main.go as a minimal entry point.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			return printVersionInfo()
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "serve":
			return runServe()
		case "index":
			return runIndex()
		default:
			printHelp()
			return fmt.Errorf("unknown command %q", os.Args[1])
		}
	}

	printHelp()
	return nil
}

// initLogger initializes the structured logger.
//
// Log level is controlled by the DEBUG environment variable:
//   - DEBUG set (any value): debug level logging
//   - DEBUG not set: info level logging
func initLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if os.Getenv("DEBUG") != "" {
		opts.Level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// checkRequiredEnv verifies provider credentials are present before a
// long startup sequence fails with an opaque API error.
func checkRequiredEnv(provider string) error {
	switch provider {
	case "openai":
		if os.Getenv("OPENAI_API_KEY") == "" {
			fmt.Fprintln(os.Stderr, "Error: OPENAI_API_KEY environment variable not set")
			return fmt.Errorf("OPENAI_API_KEY not set")
		}
	case "ollama":
		// Local server, no key needed.
	default:
		if os.Getenv("GEMINI_API_KEY") == "" {
			fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "To set your API key:")
			fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Get your API key at: https://ai.google.dev/")
			return fmt.Errorf("GEMINI_API_KEY not set")
		}
	}
	return nil
}

// printHelp displays the help message.
func printHelp() {
	fmt.Println("chatdocs - documentation chatbot backend")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  chatdocs serve [addr]              Start the HTTP API server")
	fmt.Println("  chatdocs index <dir> [-corpus x]   Index a documentation tree")
	fmt.Println("  chatdocs version                   Show version information")
	fmt.Println("  chatdocs help                      Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Required for the default gemini provider")
	fmt.Println("  DATABASE_URL       Optional: overrides postgres_* settings")
	fmt.Println("  DEBUG              Optional: enable debug logging")
}
