// ojssync: operator CLI for the OJS sync pipeline. It talks to the same
// database and media root as the server, so imports started here show up in
// the portal immediately.
//
// Usage:
//
//	ojssync import <journal-id>        # Pull every OJS submission into the portal
//	ojssync push <submission-id>       # Create or update the OJS copy of a submission
//	ojssync mappings <journal-id> -o mappings.xlsx
//	ojssync users <journal-id>         # Preview remote OJS accounts
//	ojssync ping <journal-id>          # Check OJS connectivity and credentials
//	ojssync token <email>              # Issue an API access token for scripts
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "ojssync",
	Short: "Synchronise journal submissions with Open Journal Systems",
	Long: `ojssync imports submissions from OJS into the journal portal and pushes
portal submissions back to OJS.

Database and OJS client settings are read from the environment (and .env),
the same way the API server reads them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(mappingsCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", kind, raw, err)
	}
	return id, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
