package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/aatumaykin/quotebot/internal/cron"
	"github.com/aatumaykin/quotebot/internal/store"
	"github.com/spf13/cobra"
)

var scheduleTags []string

var schedulesCmd = &cobra.Command{
	Use:   "schedules",
	Short: "Manage send schedules",
	Long: `Manage send schedules. A running bot picks up changes on its next
reconciliation tick.`,
}

var schedulesAddCmd = &cobra.Command{
	Use:   "add <name> <cron>",
	Short: "Add or replace a schedule",
	Long: `Add a schedule, or replace the cron and tags of an existing one.
The cron expression accepts 5 or 6 fields (optional seconds), an optional
trailing year field of * or ?, and descriptors such as @daily or @every 1h.`,
	Args: cobra.ExactArgs(2),
	RunE: runSchedulesAdd,
}

var schedulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules",
	Args:  cobra.NoArgs,
	RunE:  runSchedulesList,
}

var schedulesRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a schedule",
	Long: `Remove a schedule. Its tracking record is kept, so adding the
schedule again resumes the current cycle instead of starting over.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedulesRemove,
}

func init() {
	schedulesAddCmd.Flags().StringSliceVarP(&scheduleTags, "tag", "t", nil, "tag selecting eligible quotes (repeatable)")

	schedulesCmd.AddCommand(schedulesAddCmd)
	schedulesCmd.AddCommand(schedulesListCmd)
	schedulesCmd.AddCommand(schedulesRemoveCmd)
}

func runSchedulesAdd(cmd *cobra.Command, args []string) error {
	name, spec := args[0], args[1]
	if err := cron.ValidateSpec(spec); err != nil {
		return err
	}

	ctx := cmd.Context()
	st, _, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	sched := store.Schedule{Name: name, Cron: spec, Tags: scheduleTags}
	if err := st.UpsertSchedule(ctx, sched); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Schedule saved\n")
	fmt.Fprintf(out, "  Name: %s\n", name)
	fmt.Fprintf(out, "  Cron: %s\n", spec)
	fmt.Fprintf(out, "  Tags: %s\n", strings.Join(store.NormalizeTags(scheduleTags), ", "))
	return nil
}

func runSchedulesList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, _, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	schedules, err := st.ListSchedules(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(schedules) == 0 {
		fmt.Fprintln(out, "No schedules found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCRON\tTAGS")
	for _, s := range schedules {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.Cron, strings.Join(s.Tags, ","))
	}
	return w.Flush()
}

func runSchedulesRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, _, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteSchedule(ctx, args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Schedule %s removed\n", args[0])
	return nil
}
