package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docchat/internal/config"
	"github.com/ziadkadry99/docchat/internal/ingest"
	"github.com/ziadkadry99/docchat/internal/logging"
	"github.com/ziadkadry99/docchat/internal/progress"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Build the local document index",
	Long: `Walks a directory, splits every text file into chunks, embeds them and
writes the index to search.index_dir. Files whose content has not changed
since the last run are skipped unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Bool("force", false, "re-index every file, even unchanged ones")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	force, _ := cmd.Flags().GetBool("force")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Search.IndexDir == "" {
		return &config.ConfigurationError{Field: "search.index_dir", Reason: "is required"}
	}
	if err := cfg.ValidateEmbedding(); err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := openLocalStore(ctx, cfg, true)
	if err != nil {
		return err
	}

	files, err := ingest.Walk(ingest.WalkConfig{
		Root:    root,
		Include: cfg.Ingest.Include,
		Exclude: cfg.Ingest.Exclude,
	})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No files matched the include and exclude patterns.")
		return nil
	}

	ing := ingest.New(store, ingest.Options{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		Concurrency:  cfg.Ingest.Concurrency,
		Force:        force,
	}, progress.NewReporter("Indexing"), logging.Component(log, "ingest"))

	result, runErr := ing.Run(ctx, files)

	// Persist whatever was indexed, even after an interrupt.
	if err := os.MkdirAll(cfg.Search.IndexDir, 0o755); err != nil {
		return fmt.Errorf("creating index dir: %w", err)
	}
	if err := store.Persist(ctx, cfg.Search.IndexDir); err != nil {
		return fmt.Errorf("saving index: %w", err)
	}

	fmt.Printf("Indexed %d files (%d chunks), skipped %d unchanged in %s.\n",
		result.FilesIndexed, result.Chunks, result.FilesSkipped, result.Duration.Round(time.Millisecond))
	fmt.Printf("Index: %s (%d chunks total)\n", cfg.Search.IndexDir, store.Count())
	for _, e := range result.Errors {
		stderrf("  failed: %v\n", e)
	}

	if runErr != nil {
		return runErr
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d files failed to index", len(result.Errors))
	}
	return nil
}
