package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hyeonseo2/hf-translation-hub/internal/discovery"
	"github.com/hyeonseo2/hf-translation-hub/internal/translator"
	"github.com/hyeonseo2/hf-translation-hub/internal/workflow"
)

var (
	translateService     string
	translateAuto        bool
	translateMax         int
	translatePublish     bool
	translateForce       bool
	translateGate        bool
	translateConcurrency int
	translateRPM         int
	translateInstruction string
	translateAsJSON      bool
)

var translateCmd = &cobra.Command{
	Use:   "translate [files...]",
	Short: "Translate documentation files end to end",
	Long: `Run the full pipeline for the given source files: protect structural
blocks, build the prompt, translate, validate, and save into the target
language tree. Files are paths relative to the repository root, e.g.
docs/source/en/model_doc/bert.md.

With --auto the candidate list comes from discovery instead of arguments.
With --publish each saved translation is pushed as a draft pull request.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !translateAuto && len(args) == 0 {
			return fmt.Errorf("pass source files or use --auto")
		}

		engine, led, svcCfg, err := newEngine(translateService, translateRPM)
		if err != nil {
			return err
		}
		if led != nil {
			defer led.Close()
		}

		ctx := cmd.Context()
		if translatePublish {
			pub, err := newPublisher(ctx)
			if err != nil {
				return err
			}
			engine.Publisher = pub
		}

		files := args
		if translateAuto {
			scan, err := discovery.Scan(engine.Project, discovery.Options{
				Root:     repoRoot,
				Language: language,
				MaxFiles: translateMax,
			})
			if err != nil {
				return err
			}
			for _, f := range scan.Files {
				files = append(files, f.Path)
			}
			if len(files) == 0 {
				fmt.Fprintln(os.Stderr, "nothing to translate")
				return nil
			}
			log.Info().Int("files", len(files)).Msg("discovered translation candidates")
		}

		batch, err := engine.RunBatch(ctx, files, workflow.Options{
			Root:                  repoRoot,
			Language:              language,
			ServiceConfig:         svcCfg,
			Retry:                 translator.DefaultRetryPolicy(),
			GateOnValidation:      translateGate,
			PublishPR:             translatePublish,
			ForceRetranslate:      translateForce,
			AdditionalInstruction: translateInstruction,
			Concurrency:           translateConcurrency,
		})
		if err != nil {
			return err
		}

		if translateAsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(batch); err != nil {
				return err
			}
		} else {
			for _, r := range batch.Results {
				switch r.Status {
				case workflow.StatusCompleted:
					fmt.Printf("ok      %s -> %s (quality %.2f)\n", r.Path, r.SavedPath, r.Validation.QualityScore)
					if r.PR != nil && r.PR.PRURL != "" {
						fmt.Printf("        PR: %s\n", r.PR.PRURL)
					}
				case workflow.StatusReused:
					fmt.Printf("reused  %s -> %s\n", r.Path, r.SavedPath)
				default:
					fmt.Printf("FAILED  %s: %s\n", r.Path, r.Error)
				}
			}
			fmt.Fprintf(os.Stderr, "\n%d completed, %d reused, %d failed\n",
				batch.Completed, batch.Reused, batch.Failed)
		}

		if batch.Failed > 0 {
			return fmt.Errorf("%d file(s) failed", batch.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)
	translateCmd.Flags().StringVar(&translateService, "service", "anthropic", "translation backend (anthropic, openrouter, ollama, google)")
	translateCmd.Flags().BoolVar(&translateAuto, "auto", false, "translate discovered candidates instead of arguments")
	translateCmd.Flags().IntVar(&translateMax, "max", 5, "cap for --auto candidates")
	translateCmd.Flags().BoolVar(&translatePublish, "publish", false, "open a draft PR for each saved translation")
	translateCmd.Flags().BoolVar(&translateForce, "force", false, "retranslate even when the source is unchanged")
	translateCmd.Flags().BoolVar(&translateGate, "gate", false, "fail files whose validation report is invalid")
	translateCmd.Flags().IntVar(&translateConcurrency, "concurrency", 2, "parallel files")
	translateCmd.Flags().IntVar(&translateRPM, "rpm", 0, "backend request budget per minute (0 = unlimited)")
	translateCmd.Flags().StringVar(&translateInstruction, "instruction", "", "extra instruction appended to the prompt")
	translateCmd.Flags().BoolVar(&translateAsJSON, "json", false, "emit JSON results")
}
