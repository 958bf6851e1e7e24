package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"ragrec/internal/usecase"
)

var warmWorkers int

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Precompute item embeddings",
	Long: `Embed every catalog item ahead of time so recommendation requests are served
from the embedding cache. Most useful with the bolt or redis cache backends.

Examples:
  ragrec warm
  ragrec warm --workers 8`,
	RunE: runWarm,
}

func init() {
	rootCmd.AddCommand(warmCmd)
	warmCmd.Flags().IntVar(&warmWorkers, "workers", 4, "concurrent embedding batches")
}

func runWarm(cmd *cobra.Command, args []string) error {
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
	fmt.Printf("Embedding %d items with %s...\n", len(items), a.cfg.Embedding.Provider)

	bar := progressbar.NewOptions(len(items),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	start := time.Now()
	progress := func(done, total int) {
		bar.Set(done)
		if done > 0 && done < total {
			rate := float64(done) / time.Since(start).Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	warmUC := usecase.NewWarmUseCase(a.provider, a.cfg.Embedding.BatchSize, warmWorkers)
	result, err := warmUC.Warm(ctx, items, progress)
	if err != nil {
		return fmt.Errorf("warm-up failed: %w", err)
	}

	fmt.Printf("\nWarm-up complete:\n")
	fmt.Printf("  Items:    %d\n", result.Items)
	fmt.Printf("  Batches:  %d\n", result.Batches)
	fmt.Printf("  Failed:   %d\n", result.Failed)
	fmt.Printf("  Cached:   %d\n", a.cache.Len())
	fmt.Printf("  Duration: %s\n", formatDuration(result.Duration))
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
