package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ragrec/internal/adapter/parser"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Validate a raw model response against the catalog",
	Long: `Extract, repair and validate a recommendation list from raw model output.
Reads from stdin when no file is given or the file is "-".

Examples:
  ragrec parse response.txt
  pbpaste | ragrec parse`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	var raw []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	res := parser.Parse(string(raw), a.catalog)
	out := map[string]any{
		"recommendations": res.Recommendations,
		"count":           len(res.Recommendations),
	}
	if res.Failed() {
		out["error"] = res.Error()
	}
	return printJSON(out)
}
