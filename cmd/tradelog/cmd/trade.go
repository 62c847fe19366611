package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelog/journal"
	"github.com/rustyeddy/tradelog/stats"
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Record and inspect trades",
	Long: `Add, list and delete trades inside a session. Every change brings the
session's current capital back in line with its trades.

Examples:
  tradelog trade add <session-id> --margin 100 --pl 25 --side long --comment "breakout"
  tradelog trade list <session-id>
  tradelog trade delete <trade-id>`,
}

var tradeAddCmd = &cobra.Command{
	Use:   "add <session-id>",
	Short: "Add a closed trade to a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeAdd,
}

var tradeListCmd = &cobra.Command{
	Use:   "list <session-id>",
	Short: "List a session's trades in Org format, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeList,
}

var tradeDeleteCmd = &cobra.Command{
	Use:   "delete <trade-id>",
	Short: "Delete a trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeDelete,
}

var (
	tradeMargin  string
	tradePL      string
	tradeSide    string
	tradeComment string
	tradeROI     string
)

func init() {
	rootCmd.AddCommand(tradeCmd)
	tradeCmd.AddCommand(tradeAddCmd)
	tradeCmd.AddCommand(tradeListCmd)
	tradeCmd.AddCommand(tradeDeleteCmd)

	tradeAddCmd.Flags().StringVar(&tradeMargin, "margin", "", "margin committed to the trade (required)")
	tradeAddCmd.Flags().StringVar(&tradePL, "pl", "", "realized profit or loss (required)")
	tradeAddCmd.Flags().StringVar(&tradeSide, "side", "long", "entry side: long or short")
	tradeAddCmd.Flags().StringVar(&tradeComment, "comment", "", "free text note")
	tradeAddCmd.Flags().StringVar(&tradeROI, "roi", "", "ROI percent; derived from pl/margin when omitted")
	tradeAddCmd.MarkFlagRequired("margin")
	tradeAddCmd.MarkFlagRequired("pl")
}

func runTradeAdd(cmd *cobra.Command, args []string) error {
	in, err := journal.ParseTradeInput(tradeMargin, tradePL, tradeSide, tradeComment)
	if err != nil {
		return err
	}
	if s := strings.TrimSpace(tradeROI); s != "" {
		roi, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("%w: roi %q is not a number", journal.ErrInvalidTradeInput, s)
		}
		in.ROI = &roi
	}

	t, store, err := openTracker()
	if err != nil {
		return err
	}
	defer store.Close()

	tr, err := t.AddTrade(cmd.Context(), userID, args[0], in)
	if err != nil {
		return err
	}
	s, err := t.GetSession(cmd.Context(), userID, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Recorded %s trade %s: %s (%s)\n",
		tr.EntrySide, tr.ID, stats.FormatCurrency(tr.ProfitLoss), stats.FormatPercentage(tr.ROI))
	fmt.Fprintf(out, "  %s capital now %s\n", s.Name, stats.FormatCurrency(s.CurrentCapital))
	return nil
}

func runTradeList(cmd *cobra.Command, args []string) error {
	t, store, err := openTracker()
	if err != nil {
		return err
	}
	defer store.Close()

	trades, err := t.ListTrades(cmd.Context(), userID, args[0])
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No trades in this session yet.")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatTradesOrg(trades))
	return nil
}

func runTradeDelete(cmd *cobra.Command, args []string) error {
	t, store, err := openTracker()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := t.DeleteTrade(cmd.Context(), userID, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted trade %s\n", args[0])
	return nil
}
