package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hyeonseo2/hf-translation-hub/internal/ledger"
)

var (
	runsLimit  int
	runsAsJSON bool
)

var runsCmd = &cobra.Command{
	Use:   "runs [source-file]",
	Short: "Show translation run history",
	Long: `Without arguments, list the most recent runs across all files. With a
source file, show that file's full history for the target language.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		led, err := openLedger()
		if err != nil {
			return err
		}
		if led == nil {
			return fmt.Errorf("run history requires a run database (--db)")
		}
		defer led.Close()

		var runs []ledger.Run
		if len(args) == 1 {
			runs, err = led.RunsForFile(args[0], language, runsLimit)
		} else {
			runs, err = led.RecentRuns(runsLimit)
		}
		if err != nil {
			return err
		}

		if runsAsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}
		for _, r := range runs {
			fmt.Printf("%s  %-10s %-10s q=%.2f  %s\n",
				r.CreatedAt.Format("2006-01-02 15:04"), r.Status, r.Service, r.QualityScore, r.FilePath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum rows")
	runsCmd.Flags().BoolVar(&runsAsJSON, "json", false, "emit JSON")
}
