package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/journal-portal/backend/internal/report"
)

var pushCmd = &cobra.Command{
	Use:   "push <submission-id>",
	Short: "Create or update the OJS copy of a portal submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		submissionID, err := parseID("submission", args[0])
		if err != nil {
			return err
		}
		res, err := a.exports.PushSubmission(ctx, submissionID)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(res)
		}
		verb := "Updated"
		if res.Created {
			verb = "Created"
		}
		fmt.Printf("%s OJS submission %d (%d files uploaded, %d already present)\n",
			verb, res.RemoteSubmissionID, res.FilesUploaded, res.FilesSkipped)
		if res.Warning != "" {
			fmt.Printf("Warning: %s\n", res.Warning)
		}
		return nil
	},
}

var mappingsOut string

var mappingsCmd = &cobra.Command{
	Use:   "mappings <journal-id>",
	Short: "List the sync mappings of a journal",
	Args:  cobra.ExactArgs(1),
	RunE:  runMappings,
}

func init() {
	mappingsCmd.Flags().StringVarP(&mappingsOut, "output", "o", "", "Write an xlsx report to this file")
}

func runMappings(cmd *cobra.Command, args []string) error {
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
	journal, mappings, err := a.exports.Mappings(ctx, journalID)
	if err != nil {
		return err
	}

	if mappingsOut != "" {
		f, err := os.Create(mappingsOut)
		if err != nil {
			return err
		}
		if err := report.WriteMappings(f, journal, mappings); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("Wrote %d mappings to %s\n", len(mappings), mappingsOut)
		return nil
	}

	if jsonOutput {
		return printJSON(mappings)
	}
	for _, m := range mappings {
		fmt.Printf("%6d  %s  %-8s  %-7s  %s\n", m.RemoteSubmissionID, m.SubmissionID,
			m.SyncDirection, m.SyncStatus, m.LastSyncedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
