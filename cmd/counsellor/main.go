// Command counsellor runs the stage-gated study-abroad decision engine.
//
//	counsellor serve              start the JSON API
//	counsellor serve --catalog unis.json --fixtures users.json   (DB_DRIVER=memory)
//	counsellor migrate up|down|status
//	counsellor catalog import FILE
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "counsellor",
		Short: "Stage-gated decision engine for study-abroad counselling",
		Long: `counsellor infers where a student is in their application journey,
recommends universities, and gates every action on that stage. The
shortlist, the single locked university and its task checklist are
kept consistent inside one transaction per user.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newCatalogCmd())
	return root
}
