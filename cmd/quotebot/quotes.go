package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/aatumaykin/quotebot/internal/store"
	"github.com/spf13/cobra"
)

var (
	quoteTags  []string
	listByTags []string
)

var quotesCmd = &cobra.Command{
	Use:   "quotes",
	Short: "Manage quotes",
}

var quotesAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a quote",
	Long: `Add a quote with optional tags. Adding text that already exists
merges the tags into the existing quote.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuotesAdd,
}

var quotesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List quotes",
	Args:  cobra.NoArgs,
	RunE:  runQuotesList,
}

func init() {
	quotesAddCmd.Flags().StringSliceVarP(&quoteTags, "tag", "t", nil, "tag to attach (repeatable)")
	quotesListCmd.Flags().StringSliceVarP(&listByTags, "tag", "t", nil, "only quotes carrying any of these tags")

	quotesCmd.AddCommand(quotesAddCmd)
	quotesCmd.AddCommand(quotesListCmd)
}

func runQuotesAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, _, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	q, err := st.AddQuote(ctx, args[0], quoteTags)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Quote added\n")
	fmt.Fprintf(out, "  ID:   %d\n", q.ID)
	fmt.Fprintf(out, "  Tags: %s\n", strings.Join(q.Tags, ", "))
	return nil
}

func runQuotesList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, _, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	var quotes []store.Quote
	if len(listByTags) > 0 {
		quotes, err = st.ListQuotesByTags(ctx, listByTags)
	} else {
		quotes, err = st.ListQuotes(ctx)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(quotes) == 0 {
		fmt.Fprintln(out, "No quotes found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTAGS\tTEXT")
	for _, q := range quotes {
		fmt.Fprintf(w, "%d\t%s\t%s\n", q.ID, strings.Join(q.Tags, ","), truncate(q.Text, 80))
	}
	return w.Flush()
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
