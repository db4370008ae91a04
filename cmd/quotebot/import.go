package main

import (
	"fmt"

	"github.com/aatumaykin/quotebot/internal/logger"
	"github.com/aatumaykin/quotebot/internal/seed"
	"github.com/spf13/cobra"
)

var importPrune bool

var importCmd = &cobra.Command{
	Use:   "import <seed.yaml>",
	Short: "Import quotes and schedules from a YAML seed file",
	Long: `Import quotes and schedules from a YAML seed file. Quotes are merged
by text and schedules are upserted by name. With --prune, stored schedules
missing from the file are removed.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importPrune, "prune", false, "remove schedules not present in the seed file")
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := seed.Load(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, _, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	res, importErr := seed.Import(ctx, st, f, importPrune, logger.Nop())

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d quotes and %d schedules", res.Quotes, res.Schedules)
	if res.Pruned > 0 {
		fmt.Fprintf(out, ", pruned %d", res.Pruned)
	}
	if res.Skipped > 0 {
		fmt.Fprintf(out, ", skipped %d", res.Skipped)
	}
	fmt.Fprintln(out)

	return importErr
}
