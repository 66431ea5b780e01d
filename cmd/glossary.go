package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/hyeonseo2/hf-translation-hub/internal/ledger"
)

var glossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "Manage fixed term translations per language",
	Long: `Glossary terms are injected into every prompt for their language and
checked by the validator, keeping terminology consistent across files.`,
}

var glossaryAddCmd = &cobra.Command{
	Use:   "add <source-term> <target-term>",
	Short: "Add or replace a glossary term",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		led, err := openLedger()
		if err != nil {
			return err
		}
		if led == nil {
			return fmt.Errorf("glossary requires a run database (--db)")
		}
		defer led.Close()

		if err := led.UpsertTerm(ledger.Term{
			Language:   language,
			SourceTerm: args[0],
			TargetTerm: args[1],
		}); err != nil {
			return err
		}
		fmt.Printf("%s: %s → %s\n", language, args[0], args[1])
		return nil
	},
}

var glossaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List glossary terms for the target language",
	RunE: func(cmd *cobra.Command, args []string) error {
		led, err := openLedger()
		if err != nil {
			return err
		}
		if led == nil {
			return fmt.Errorf("glossary requires a run database (--db)")
		}
		defer led.Close()

		terms, err := led.GlossaryFor(language)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(terms))
		for k := range terms {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s → %s\n", k, terms[k])
		}
		return nil
	},
}

var glossaryRemoveCmd = &cobra.Command{
	Use:   "remove <source-term>",
	Short: "Remove a glossary term",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		led, err := openLedger()
		if err != nil {
			return err
		}
		if led == nil {
			return fmt.Errorf("glossary requires a run database (--db)")
		}
		defer led.Close()
		return led.DeleteTerm(language, args[0])
	},
}

func init() {
	rootCmd.AddCommand(glossaryCmd)
	glossaryCmd.AddCommand(glossaryAddCmd, glossaryListCmd, glossaryRemoveCmd)
}
