package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docchat/internal/chat"
	"github.com/ziadkadry99/docchat/internal/search"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Search the documents without asking the chat model",
	Long:  `Runs the same hybrid search a chat question would and prints the matching documents.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	queryCmd.Flags().Bool("prompt", false, "print the documents exactly as the chat model receives them")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	queryText := args[0]

	jsonOutput, _ := cmd.Flags().GetBool("json")
	promptOutput, _ := cmd.Flags().GetBool("prompt")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateSearch(); err != nil {
		return err
	}
	log := newLogger(cfg)

	retriever, err := createRetrieverFromConfig(ctx, cfg, log)
	if err != nil {
		return err
	}

	docs, err := retriever.Search(ctx, queryText)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	switch {
	case jsonOutput:
		return printQueryResultsJSON(docs)
	case len(docs) == 0:
		fmt.Println(chat.NoResultsAnswer)
	case promptOutput:
		fmt.Println(chat.Format(nil, docs).DocumentsText)
	default:
		printQueryResultsTable(docs)
	}
	return nil
}

type queryResultJSON struct {
	Rank  int    `json:"rank"`
	Title string `json:"title"`
	Path  string `json:"path"`
	Chunk string `json:"chunk"`
}

func printQueryResultsJSON(docs []search.Document) error {
	out := make([]queryResultJSON, 0, len(docs))
	for i, d := range docs {
		out = append(out, queryResultJSON{
			Rank:  i + 1,
			Title: d.Title,
			Path:  d.Path,
			Chunk: d.Chunk,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printQueryResultsTable(docs []search.Document) {
	fmt.Printf("Found %d results:\n\n", len(docs))
	for i, d := range docs {
		fmt.Printf("  %d. %s\n", i+1, d.Title)
		fmt.Printf("     Path: %s\n", d.Path)
		fmt.Printf("     %s\n\n", truncate(d.Chunk, 120))
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
