package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ragrec/internal/usecase"
	"ragrec/internal/validation"
)

var (
	candidatesReq  requestFlags
	candidatesJSON bool
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "Show the candidates the retrieval step would select",
	Long: `Run prefiltering and candidate selection without calling the generative model.

Examples:
  ragrec candidates --history p12 --category Electronics
  ragrec candidates -r request.yaml --json`,
	RunE: runCandidates,
}

func init() {
	rootCmd.AddCommand(candidatesCmd)
	candidatesReq.bind(candidatesCmd)
	candidatesCmd.Flags().BoolVar(&candidatesJSON, "json", false, "output as JSON")
}

// candidateResult is the CLI view of a selection.
type candidateResult struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Brand    string  `json:"brand"`
	Price    float64 `json:"price"`
	Score    float64 `json:"score"`
}

func selectFromFlags(cmd *cobra.Command, flags *requestFlags) (*usecase.Selection, error) {
	req, err := flags.build()
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateRequest(req); err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, false)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	all, err := a.catalog.Items(ctx)
	if err != nil {
		return nil, err
	}
	max := req.MaxCandidates
	if max <= 0 {
		max = a.cfg.Retrieve.MaxCandidates
	}
	return a.selector().SelectCandidates(ctx, req.Preferences, resolveItems(a, req.BrowsingHistory), all, max)
}

func runCandidates(cmd *cobra.Command, args []string) error {
	sel, err := selectFromFlags(cmd, &candidatesReq)
	if err != nil {
		return err
	}

	results := make([]candidateResult, len(sel.Candidates))
	for i, c := range sel.Candidates {
		results[i] = candidateResult{
			ID:       c.Item.ID,
			Name:     c.Item.Name,
			Category: c.Item.Category,
			Brand:    c.Item.Brand,
			Price:    c.Item.Price,
			Score:    c.Score,
		}
	}

	if candidatesJSON {
		return printJSON(map[string]any{
			"strategy":     sel.Strategy,
			"filter_level": sel.Level,
			"loosened":     sel.Loosened,
			"candidates":   results,
		})
	}

	fmt.Printf("%d candidates (strategy %s, filter level %s", len(results), sel.Strategy, sel.Level)
	if sel.Loosened {
		fmt.Print(", loosened to price only")
	}
	fmt.Println(")")
	for i, r := range results {
		fmt.Printf("%2d. %-10s %-40s %-16s $%8.2f  score %.3f\n", i+1, r.ID, r.Name, r.Category, r.Price, r.Score)
	}
	return nil
}
