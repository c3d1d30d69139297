package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"scenario-advisor/internal/advisor"
	"scenario-advisor/internal/query"
)

// appCommands builds the operations shared by the one-shot CLI and the shell.
// getApp is called when a command runs, after bootstrap.
func appCommands(getApp func() *advisor.App) []*cobra.Command {
	var asJSON bool

	emit := func(cmd *cobra.Command, v any, text string) error {
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(text, "\n"))
		return err
	}

	register := &cobra.Command{
		Use:     "register <description> <amount> <symbol> <keywords>",
		Short:   "Register a scenario and schedule its daily news check",
		Example: `  advisor register "rate cuts help banks" "1,000,000" 024110 "rate cut"`,
		Args:    cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := getApp().RegisterScenario(cmd.Context(), args[0], args[1], args[2], args[3])
			if err != nil {
				return err
			}
			return emit(cmd, sc, advisor.DescribeScenario(sc))
		},
	}

	check := &cobra.Command{
		Use:   "check <scenario-id>",
		Short: "Run the news check for a scenario now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := getApp().CheckNewsNow(cmd.Context(), args[0])
			if entry.ScenarioID != "" {
				if perr := emit(cmd, entry, advisor.FormatNewsEntry(entry)); perr != nil {
					return perr
				}
			}
			return err
		},
	}

	scenarios := &cobra.Command{
		Use:   "scenarios",
		Short: "List registered scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := getApp().ListScenarios()
			var b strings.Builder
			tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSYMBOL\tAMOUNT\tKEYWORDS\tDESCRIPTION")
			for _, sc := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", sc.ID, sc.Symbol, sc.Amount.String(), sc.Keywords, sc.Description)
			}
			tw.Flush()
			return emit(cmd, list, b.String())
		},
	}

	var newsScenario string
	newsLog := &cobra.Command{
		Use:   "news",
		Short: "Show the news log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := getApp().ListNewsLog(newsScenario)
			var b strings.Builder
			if len(entries) == 0 {
				b.WriteString("News log is empty")
			}
			for _, e := range entries {
				b.WriteString(advisor.FormatNewsEntry(e))
			}
			return emit(cmd, entries, b.String())
		},
	}
	newsLog.Flags().StringVar(&newsScenario, "scenario", "", "only entries for this scenario ID")

	interpret := &cobra.Command{
		Use:     "interpret <query>",
		Aliases: []string{"ask"},
		Short:   "Interpret a natural-language request and hold it for confirmation",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent := getApp().Interpret(cmd.Context(), strings.Join(args, " "))
			text := intent.Describe()
			if intent.Kind != query.Unrecognized {
				text += "\nRun 'confirm' to proceed or 'cancel' to drop it."
			}
			return emit(cmd, intent, text)
		},
	}

	confirm := &cobra.Command{
		Use:   "confirm",
		Short: "Perform the pending request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := getApp().Confirm(cmd.Context())
			if err != nil {
				return err
			}
			return emit(cmd, res, res.String())
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel",
		Short: "Drop the pending request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := "Nothing pending"
			if getApp().Cancel() {
				text = "Request cancelled"
			}
			return emit(cmd, map[string]string{"status": text}, text)
		},
	}

	lookup := &cobra.Command{
		Use:   "lookup <name-or-symbol>",
		Short: "Search fundamentals by company name or symbol",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := getApp().Lookup(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			var b strings.Builder
			if len(recs) == 0 {
				b.WriteString("No matching company")
			}
			for _, r := range recs {
				fmt.Fprintf(&b, "%s(%s) DPS %s price %s\n", r.Name, r.Symbol, r.DividendPerShare, r.Price)
			}
			return emit(cmd, recs, b.String())
		},
	}

	trade := &cobra.Command{
		Use:   "trade <symbol> <quantity>",
		Short: "Submit a market order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := getApp().SubmitTrade(cmd.Context(), args[0], args[1])
			if perr := emit(cmd, res, advisor.FormatTrade(res)); perr != nil {
				return perr
			}
			return err
		},
	}

	portfolio := &cobra.Command{
		Use:   "portfolio",
		Short: "Show holdings from confirmed trades",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := getApp().Portfolio()
			var b strings.Builder
			if len(entries) == 0 {
				b.WriteString("No holdings")
			}
			for _, e := range entries {
				fmt.Fprintf(&b, "%s: %s\n", e.Symbol, e.Quantity)
			}
			return emit(cmd, entries, b.String())
		},
	}

	jobs := &cobra.Command{
		Use:   "jobs",
		Short: "List scheduled daily news checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := getApp().Jobs()
			var b strings.Builder
			for _, j := range list {
				fmt.Fprintf(&b, "%s at %s, next %s\n", j.ScenarioID, j.At, j.NextRunAt.Format("2006-01-02 15:04"))
			}
			if len(list) == 0 {
				b.WriteString("No scheduled checks")
			}
			return emit(cmd, list, b.String())
		},
	}

	cmds := []*cobra.Command{register, check, scenarios, newsLog, interpret, confirm, cancel, lookup, trade, portfolio, jobs}
	for _, c := range cmds {
		c.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	}
	return cmds
}

func printErr(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
}
