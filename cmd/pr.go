package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hyeonseo2/hf-translation-hub/internal/ghpub"
	"github.com/hyeonseo2/hf-translation-hub/internal/save"
)

var prAnalyzeRef bool

var prCmd = &cobra.Command{
	Use:   "pr <source-file>",
	Short: "Open a draft pull request for a saved translation",
	Long: `Publish the saved translation of a source file as a draft PR against
the upstream repository. The translation must already exist in the
target language tree (run "translate" first).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveProject()
		if err != nil {
			return err
		}
		pub, err := newPublisher(cmd.Context())
		if err != nil {
			return err
		}

		if prAnalyzeRef {
			ref, err := pub.AnalyzeReferencePR(cmd.Context(), cfg.ReferencePRURL)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(ref)
		}

		sourcePath := args[0]
		targetRel := filepath.ToSlash(save.TargetPath(sourcePath, language))
		content, err := os.ReadFile(filepath.Join(repoRoot, filepath.FromSlash(targetRel)))
		if err != nil {
			return fmt.Errorf("no saved translation at %s (run translate first): %w", targetRel, err)
		}

		result := pub.Publish(cmd.Context(), ghpub.Request{
			Project:    cfg,
			Language:   language,
			SourcePath: sourcePath,
			TargetPath: targetRel,
			Content:    string(content),
		})

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
		if result.Status == ghpub.StatusError {
			return fmt.Errorf("publish failed: %s", result.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(prCmd)
	prCmd.Flags().BoolVar(&prAnalyzeRef, "analyze-reference", false, "inspect the project's reference PR instead of publishing")
}
