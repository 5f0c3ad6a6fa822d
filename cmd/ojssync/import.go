package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/journal-portal/backend/internal/usecase"
)

var importCmd = &cobra.Command{
	Use:   "import <journal-id>",
	Short: "Import every OJS submission of a journal",
	Long: `Fetch all submissions from the journal's OJS install and import them.

Each submission is imported in its own transaction, so one bad record is
reported and skipped without undoing the others. Re-running is safe: known
submissions are updated and files already present are left alone.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	journalID, err := parseID("journal", args[0])
	if err != nil {
		return err
	}

	lastPct := -1
	reporter := usecase.ProgressFunc(func(p usecase.ProgressState) {
		if p.Stage == usecase.StageImporting && p.Percentage == lastPct {
			return
		}
		lastPct = p.Percentage
		log.Printf("[%s] %d/%d (%d%%) %s", p.Stage, p.Current, p.Total, p.Percentage, p.Message)
	})

	summary, err := a.imports.ImportJournal(ctx, journalID, reporter)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(summary)
	}
	fmt.Printf("Total:     %d\n", summary.Total)
	fmt.Printf("Imported:  %d\n", summary.Imported)
	fmt.Printf("Updated:   %d\n", summary.Updated)
	fmt.Printf("Skipped:   %d\n", summary.Skipped)
	fmt.Printf("Errors:    %d\n", summary.Errors)
	fmt.Printf("Files:     %d imported, %d skipped\n", summary.FilesImported, summary.FilesSkipped)
	for _, detail := range summary.ErrorDetails {
		fmt.Printf("  - %s\n", detail)
	}
	return nil
}
