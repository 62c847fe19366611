package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelog/journal"
	"github.com/rustyeddy/tradelog/stats"
	"github.com/rustyeddy/tradelog/tracker"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage trading sessions",
	Long: `Create, list, show, delete and import trading sessions.

Examples:
  tradelog session create "BTC 5 Minute" --capital 1000
  tradelog session list
  tradelog session show <session-id>
  tradelog session delete <session-id>
  tradelog session import BTC_5_Minute_trading_session.json`,
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a session",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSessionCreate,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session with its trades in Org format",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and all its trades",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionDelete,
}

var sessionImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import a JSON session export as a new session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionImport,
}

var sessionCapital string

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionCreateCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
	sessionCmd.AddCommand(sessionImportCmd)

	sessionCreateCmd.Flags().StringVar(&sessionCapital, "capital", "", "initial capital (required)")
	sessionCreateCmd.MarkFlagRequired("capital")
}

func runSessionCreate(cmd *cobra.Command, args []string) error {
	t, store, err := openTracker()
	if err != nil {
		return err
	}
	defer store.Close()

	capital, err := strconv.ParseFloat(strings.ReplaceAll(sessionCapital, ",", ""), 64)
	if err != nil {
		return fmt.Errorf("%w: capital %q is not a number", journal.ErrInvalidSession, sessionCapital)
	}

	s, err := t.CreateSession(cmd.Context(), userID, journal.SessionInput{
		Name:           strings.Join(args, " "),
		InitialCapital: &capital,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created session %q (%s) with %s\n", s.Name, s.ID, stats.FormatCurrency(s.InitialCapital))
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	t, store, err := openTracker()
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := t.ListSessions(cmd.Context(), userID)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions yet. Create one with: tradelog session create <name> --capital <amount>")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tINITIAL\tCURRENT\tCREATED")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Name,
			stats.FormatCurrency(s.InitialCapital),
			stats.FormatCurrency(s.CurrentCapital),
			s.CreatedAt.In(t.Location()).Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	t, store, err := openTracker()
	if err != nil {
		return err
	}
	defer store.Close()

	// the org export is the most complete human readable view
	_, err = t.Export(cmd.Context(), userID, args[0], tracker.FormatOrg, cmd.OutOrStdout())
	return err
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	t, store, err := openTracker()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := t.DeleteSession(cmd.Context(), userID, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted session %s\n", args[0])
	return nil
}

func runSessionImport(cmd *cobra.Command, args []string) error {
	t, store, err := openTracker()
	if err != nil {
		return err
	}
	defer store.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	s, err := t.Import(cmd.Context(), userID, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported session %q (%s), current capital %s\n",
		s.Name, s.ID, stats.FormatCurrency(s.CurrentCapital))
	return nil
}
