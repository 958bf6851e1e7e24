package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ragrec/internal/usecase"
)

var (
	runpromptReq    requestFlags
	runpromptStrict int
	runpromptJSON   bool
)

var runpromptCmd = &cobra.Command{
	Use:   "runprompt",
	Short: "Render the prompt sent to the generative model",
	Long: `Run candidate selection and print the rendered system and user prompts, for
manual orchestration or prompt debugging.

Use --strict N to render the prompt used for retry attempt N.

Examples:
  ragrec runprompt --history p12 --category Electronics
  ragrec runprompt -r request.yaml --strict 2`,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(runpromptCmd)
	runpromptReq.bind(runpromptCmd)
	runpromptCmd.Flags().IntVar(&runpromptStrict, "strict", 0, "render the prompt for this retry attempt")
	runpromptCmd.Flags().BoolVar(&runpromptJSON, "json", false, "output as JSON")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	if runpromptStrict < 0 {
		return fmt.Errorf("--strict must not be negative")
	}
	sel, err := selectFromFlags(cmd, &runpromptReq)
	if err != nil {
		return err
	}

	prompt := usecase.StrictPrompt(sel.Prompt, runpromptStrict)
	if runpromptJSON {
		return printJSON(prompt)
	}
	fmt.Println("=== SYSTEM ===")
	fmt.Println(prompt.System)
	fmt.Println()
	fmt.Println("=== USER ===")
	fmt.Println(prompt.User)
	return nil
}
