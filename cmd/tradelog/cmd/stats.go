package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelog/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats <session-id>",
	Short: "Show performance statistics for a session",
	Long: `Recompute a session's statistics from its trades. If the stored
current capital has drifted from the trades it is repaired first.

Examples:
  tradelog stats <session-id>
  tradelog stats <session-id> --days
  tradelog stats <session-id> --json`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

var (
	statsDays bool
	statsJSON bool
)

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsDays, "days", false, "include per-day performance")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print the full dashboard as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	t, store, err := openTracker()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	s, err := t.GetSession(ctx, userID, args[0])
	if err != nil {
		return err
	}
	d, err := t.Dashboard(ctx, userID, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}

	st := d.Stats
	f := st.Format()
	fmt.Fprintf(out, "%s\n\n", s.Name)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Trades:\t%d (%d won, %d lost)\n", st.TotalTrades, st.WinningTrades, st.LosingTrades)
	fmt.Fprintf(tw, "Win rate:\t%s\n", f.WinRate)
	fmt.Fprintf(tw, "Initial capital:\t%s\n", stats.FormatCurrency(s.InitialCapital))
	fmt.Fprintf(tw, "Current capital:\t%s\n", f.CurrentCapital)
	fmt.Fprintf(tw, "Net P/L:\t%s (%s)\n", f.NetProfitLoss, f.NetProfitLossPercentage)
	fmt.Fprintf(tw, "Margin used:\t%s\n", f.TotalMarginUsed)
	fmt.Fprintf(tw, "Average ROI:\t%s\n", f.AverageROI)
	if err := tw.Flush(); err != nil {
		return err
	}

	if !statsDays || len(d.Days) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DATE\tTRADES\tVOLUME\tP/L\t")
	for _, day := range d.Days {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t\n",
			day.Date, day.Trades, stats.FormatCurrency(day.Volume), stats.FormatCurrency(day.ProfitLoss))
	}
	return tw.Flush()
}
