package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hyeonseo2/hf-translation-hub/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate <original> <translated>",
	Short: "Validate a translated document against its source",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		original, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read original: %w", err)
		}
		translated, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read translation: %w", err)
		}

		var glossary map[string]string
		if led, err := openLedger(); err == nil && led != nil {
			glossary, _ = led.GlossaryFor(language)
			led.Close()
		}

		report := validate.Check(validate.Input{
			Original:       string(original),
			Translated:     string(translated),
			TargetLanguage: language,
			Glossary:       glossary,
		})

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		if !report.IsValid {
			return fmt.Errorf("validation failed with %d issue(s)", len(report.Issues))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
