package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hyeonseo2/hf-translation-hub/internal/discovery"
)

var (
	discoverMax          int
	discoverAll          bool
	discoverAsJSON       bool
	discoverSkipInReview bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List documentation files that need translation",
	Long: `Scan the project's English docs tree and report which files are missing
a translation or have one older than the source.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveProject()
		if err != nil {
			return err
		}

		var inReview map[string]bool
		if discoverSkipInReview {
			pub, err := newPublisher(cmd.Context())
			if err != nil {
				return fmt.Errorf("--skip-in-review: %w", err)
			}
			inReview, err = pub.InReviewPaths(cmd.Context(), cfg, language)
			if err != nil {
				return err
			}
		}

		result, err := discovery.Scan(cfg, discovery.Options{
			Root:            repoRoot,
			Language:        language,
			MaxFiles:        discoverMax,
			IncludeUpToDate: discoverAll,
			InReview:        inReview,
		})
		if err != nil {
			return err
		}

		if discoverAsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		for _, f := range result.Files {
			fmt.Printf("%-10s %3d  %s\n", f.Status, f.Priority, f.Path)
		}
		s := result.Statistics
		fmt.Fprintf(os.Stderr, "\nscanned %d: %d missing, %d outdated, %d up to date\n",
			s.TotalScanned, s.Missing, s.Outdated, s.UpToDate)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	discoverCmd.Flags().IntVar(&discoverMax, "max", 0, "cap the number of results (0 = all)")
	discoverCmd.Flags().BoolVar(&discoverAll, "all", false, "include up-to-date files")
	discoverCmd.Flags().BoolVar(&discoverAsJSON, "json", false, "emit JSON")
	discoverCmd.Flags().BoolVar(&discoverSkipInReview, "skip-in-review", false,
		"exclude files with an open translation PR upstream (needs a GitHub token)")
}
