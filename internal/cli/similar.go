package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ragrec/internal/adapter/retriever"
)

var (
	similarK    int
	similarText string
	similarJSON bool
)

var similarCmd = &cobra.Command{
	Use:   "similar [id]",
	Short: "Find items by embedding similarity",
	Long: `Build a similarity index over the whole catalog and return the items closest
to a catalog item, or to free text with --text. Requires embeddings.

Examples:
  ragrec similar p12 -k 5
  ragrec similar --text "waterproof hiking boots"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSimilar,
}

func init() {
	rootCmd.AddCommand(similarCmd)
	similarCmd.Flags().IntVarP(&similarK, "top-k", "k", 5, "number of results")
	similarCmd.Flags().StringVar(&similarText, "text", "", "free-text query instead of an item id")
	similarCmd.Flags().BoolVar(&similarJSON, "json", false, "output as JSON")
}

func runSimilar(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (similarText == "") {
		return fmt.Errorf("give either an item id or --text")
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.provider.Available() {
		return fmt.Errorf("embeddings are disabled; set embedding.enabled in the config")
	}

	items, err := a.catalog.Items(ctx)
	if err != nil {
		return err
	}
	idx := a.newIndex()
	if err := idx.Build(ctx, items); err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}
	sem := retriever.NewSemanticRetriever(idx, a.provider)

	if similarText != "" {
		results, err := sem.Search(ctx, similarText, similarK)
		if err != nil {
			return err
		}
		return printScored(results)
	}

	it, ok := a.catalog.Get(args[0])
	if !ok {
		return fmt.Errorf("item %s not found", args[0])
	}
	results, err := sem.Similar(ctx, it, similarK)
	if err != nil {
		return err
	}
	return printScored(results)
}
