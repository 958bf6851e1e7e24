package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ragrec/internal/domain"
	"ragrec/internal/usecase"
)

var catalogJSON bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse the product catalog",
	Long: `Inspect the loaded catalog: facets, single items, filtered search and
related items.

Examples:
  ragrec catalog categories
  ragrec catalog subcategories --category Footwear
  ragrec catalog search --category Books --max-price 30 --sort rating --desc
  ragrec catalog related p12 -n 5`,
}

var (
	subcategoryOf string

	searchCategories    []string
	searchSubcategories []string
	searchBrands        []string
	searchTags          []string
	searchMinPrice      float64
	searchMaxPrice      float64
	searchMinRating     float64
	searchText          string
	searchSort          string
	searchDesc          bool
	searchLimit         int

	relatedLimit int
)

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.PersistentFlags().BoolVar(&catalogJSON, "json", false, "output as JSON")

	facet := func(use, short string, list func(*usecase.CatalogUseCase, *cobra.Command) ([]string, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCatalog(cmd, func(uc *usecase.CatalogUseCase) error {
					values, err := list(uc, cmd)
					if err != nil {
						return err
					}
					if catalogJSON {
						return printJSON(values)
					}
					for _, v := range values {
						fmt.Println(v)
					}
					return nil
				})
			},
		}
	}

	subcategoriesCmd := facet("subcategories", "List subcategories", func(uc *usecase.CatalogUseCase, cmd *cobra.Command) ([]string, error) {
		return uc.Subcategories(cmd.Context(), subcategoryOf)
	})
	subcategoriesCmd.Flags().StringVar(&subcategoryOf, "category", "", "only subcategories of this category")

	catalogCmd.AddCommand(
		facet("categories", "List categories", func(uc *usecase.CatalogUseCase, cmd *cobra.Command) ([]string, error) {
			return uc.Categories(cmd.Context())
		}),
		subcategoriesCmd,
		facet("brands", "List brands", func(uc *usecase.CatalogUseCase, cmd *cobra.Command) ([]string, error) {
			return uc.Brands(cmd.Context())
		}),
		facet("tags", "List tags", func(uc *usecase.CatalogUseCase, cmd *cobra.Command) ([]string, error) {
			return uc.Tags(cmd.Context())
		}),
		priceRangeCmd,
		getCmd,
		searchCmd,
		relatedCmd,
	)

	f := searchCmd.Flags()
	f.StringSliceVar(&searchCategories, "category", nil, "categories to include")
	f.StringSliceVar(&searchSubcategories, "subcategory", nil, "subcategories to include")
	f.StringSliceVar(&searchBrands, "brand", nil, "brands to include")
	f.StringSliceVar(&searchTags, "tag", nil, "match items carrying any of these tags")
	f.Float64Var(&searchMinPrice, "min-price", -1, "minimum price")
	f.Float64Var(&searchMaxPrice, "max-price", -1, "maximum price")
	f.Float64Var(&searchMinRating, "min-rating", -1, "minimum rating")
	f.StringVarP(&searchText, "query", "q", "", "text to find in name, description or tags")
	f.StringVar(&searchSort, "sort", "", "sort by name, price or rating")
	f.BoolVar(&searchDesc, "desc", false, "sort descending")
	f.IntVarP(&searchLimit, "limit", "n", 0, "maximum results")

	relatedCmd.Flags().IntVarP(&relatedLimit, "limit", "n", 5, "maximum related items")
}

var priceRangeCmd = &cobra.Command{
	Use:   "price-range",
	Short: "Show the lowest and highest price",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(cmd, func(uc *usecase.CatalogUseCase) error {
			r, err := uc.PriceRange(cmd.Context())
			if err != nil {
				return err
			}
			if catalogJSON {
				return printJSON(r)
			}
			fmt.Printf("$%.2f - $%.2f\n", r.Min, r.Max)
			return nil
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(cmd, func(uc *usecase.CatalogUseCase) error {
			it, err := uc.Get(args[0])
			if err != nil {
				return err
			}
			if catalogJSON {
				return printJSON(it)
			}
			printItem(it)
			return nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Filter and sort catalog items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := usecase.SearchQuery{
			Categories:    searchCategories,
			Subcategories: searchSubcategories,
			Brands:        searchBrands,
			Tags:          searchTags,
			Text:          searchText,
			SortBy:        searchSort,
			Desc:          searchDesc,
			Limit:         searchLimit,
		}
		q.MinPrice = optional(searchMinPrice)
		q.MaxPrice = optional(searchMaxPrice)
		q.MinRating = optional(searchMinRating)

		return withCatalog(cmd, func(uc *usecase.CatalogUseCase) error {
			items, err := uc.Search(cmd.Context(), q)
			if err != nil {
				return err
			}
			if catalogJSON {
				return printJSON(items)
			}
			if len(items) == 0 {
				fmt.Println("No items found.")
				return nil
			}
			for _, it := range items {
				fmt.Printf("%-10s %-40s %-16s %-12s $%8.2f  %.1f\n", it.ID, it.Name, it.Category, it.Brand, it.Price, it.Rating)
			}
			return nil
		})
	},
}

var relatedCmd = &cobra.Command{
	Use:   "related <id>",
	Short: "Show items related to an item by shared attributes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(cmd, func(uc *usecase.CatalogUseCase) error {
			related, err := uc.Related(cmd.Context(), args[0], relatedLimit)
			if err != nil {
				return err
			}
			return printScored(related)
		})
	},
}

func withCatalog(cmd *cobra.Command, fn func(*usecase.CatalogUseCase) error) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(usecase.NewCatalogUseCase(a.catalog))
}

// optional maps the negative "unset" flag value to nil.
func optional(v float64) *float64 {
	if v < 0 {
		return nil
	}
	return &v
}

func printItem(it domain.Item) {
	fmt.Printf("%s [%s]\n", it.Name, it.ID)
	fmt.Printf("  Category: %s / %s\n", it.Category, it.Subcategory)
	fmt.Printf("  Brand:    %s\n", it.Brand)
	fmt.Printf("  Price:    $%.2f\n", it.Price)
	fmt.Printf("  Rating:   %.1f\n", it.Rating)
	if it.Description != "" {
		fmt.Printf("  %s\n", it.Description)
	}
	if len(it.Features) > 0 {
		fmt.Printf("  Features: %s\n", strings.Join(it.Features, ", "))
	}
	if len(it.Tags) > 0 {
		fmt.Printf("  Tags:     %s\n", strings.Join(it.Tags, ", "))
	}
}

type scoredResult struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func printScored(items []domain.ScoredItem) error {
	if catalogJSON || similarJSON {
		out := make([]scoredResult, len(items))
		for i, s := range items {
			out[i] = scoredResult{ID: s.Item.ID, Name: s.Item.Name, Score: s.Score}
		}
		return printJSON(out)
	}
	if len(items) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	for i, s := range items {
		fmt.Printf("%2d. %-10s %-40s score %.3f\n", i+1, s.Item.ID, s.Item.Name, s.Score)
	}
	return nil
}
