package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chatdocs/chatdocs/internal/app"
	"github.com/chatdocs/chatdocs/internal/config"
)

// runIndex embeds a documentation tree into the vector store, replacing
// the corpus's previous contents.
func runIndex() error {
	logger := initLogger()

	indexFlags := flag.NewFlagSet("index", flag.ContinueOnError)
	indexFlags.SetOutput(os.Stderr)
	corpus := indexFlags.String("corpus", "", "Corpus label (default: configured corpus_label)")

	args := []string{}
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}

	var dir string
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		dir = args[0]
		args = args[1:]
	}
	if err := indexFlags.Parse(args); err != nil {
		return fmt.Errorf("parsing index flags: %w", err)
	}
	if dir == "" {
		return fmt.Errorf("usage: chatdocs index <dir> [-corpus label]")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = checkRequiredEnv(cfg.Provider); err != nil {
		return err
	}

	label := *corpus
	if label == "" {
		label = cfg.CorpusLabel
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	result, err := a.Indexer.Index(ctx, dir, label)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", dir, err)
	}

	fmt.Printf("Indexed %d files (%d skipped) into corpus %q: %d chunks added, %d failed, took %s\n",
		result.FilesIndexed, result.FilesSkipped, label,
		result.ChunksAdded, result.ChunksFailed, result.Duration.Round(time.Millisecond))
	return nil
}
