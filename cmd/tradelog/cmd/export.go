package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelog/tracker"
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session as JSON, CSV or Org",
	Long: `Write a session, its trades and statistics to a file. The file name
defaults to <Session_Name>_trading_session.<format>; use --output - for stdout.

Examples:
  tradelog export <session-id>
  tradelog export <session-id> --format csv
  tradelog export <session-id> --format org --output -`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var (
	exportFormat string
	exportOutput string
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "export format: json, csv or org")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default derived from the session name, - for stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := tracker.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	t, store, err := openTracker()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if exportOutput == "-" {
		_, err := t.Export(ctx, userID, args[0], format, cmd.OutOrStdout())
		return err
	}

	path := exportOutput
	if path == "" {
		s, err := t.GetSession(ctx, userID, args[0])
		if err != nil {
			return err
		}
		path = tracker.ExportFileName(s.Name, format)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if _, err := t.Export(ctx, userID, args[0], format, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported to %s\n", path)
	return nil
}
