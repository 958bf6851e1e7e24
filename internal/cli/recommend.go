package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	recommendReq  requestFlags
	recommendJSON bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend catalog items for a shopper",
	Long: `Select candidates from the catalog and ask the generative model to rank and
explain them. Pipeline failures are reported in the result rather than as a
command error.

Examples:
  ragrec recommend --history p12,p7 --category Electronics --max-price 300
  ragrec recommend -r request.yaml --json`,
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	recommendReq.bind(recommendCmd)
	recommendCmd.Flags().BoolVar(&recommendJSON, "json", false, "output as JSON")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	req, err := recommendReq.build()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.recommender().Recommend(ctx, req)
	if err != nil {
		return err
	}

	if recommendJSON {
		return printJSON(res)
	}

	if res.Error != "" {
		fmt.Printf("No recommendations: %s\n", res.Error)
		return nil
	}
	fmt.Printf("%d recommendations (%s retrieval, %d candidates, %d attempt(s))\n\n",
		res.Count, res.Strategy, res.Candidates, res.Attempts)
	for i, r := range res.Recommendations {
		fmt.Printf("%d. %s [%s] score %.2f\n", i+1, r.Item.Name, r.Item.ID, r.RelevanceScore)
		fmt.Printf("   %s, %s, $%.2f\n", r.Item.Category, r.Item.Brand, r.Item.Price)
		if r.Explanation != "" {
			fmt.Printf("   %s\n", strings.TrimSpace(r.Explanation))
		}
	}
	return nil
}
