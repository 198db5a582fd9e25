package main

import (
	"fmt"
	"text/tabwriter"

	"osvscan/internal/report"

	"github.com/spf13/cobra"
)

var (
	historyLimit        int
	historyOutputFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent scan results",
	Long:  `Displays the most recent scan results recorded in the local history store.`,
	RunE:  runHistoryCmd,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of records to show")
	historyCmd.Flags().StringVar(&historyOutputFormat, "output-format", "text", "Output format (json or text)")
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	store, err := storeFactory()
	if err != nil {
		return fmt.Errorf("failed to open scan history: %w", err)
	}
	defer store.Close()

	records, err := store.History(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to load scan history: %w", err)
	}

	if historyOutputFormat == "json" {
		rendered, err := report.RenderJSON(records)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return nil
	}

	if len(records) == 0 {
		cmd.Println("No scans recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tPACKAGE\tECOSYSTEM\tVERSION\tVULNS\tCRITICAL\tHIGH\tMEDIUM")
	for _, rec := range records {
		r := rec.Report
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			rec.CreatedAt.Format("2006-01-02 15:04"),
			r.PackageName, r.Ecosystem, r.Version,
			r.VulnerabilitiesFound,
			len(r.CriticalVulnerabilities), len(r.HighVulnerabilities), len(r.MediumVulnerabilities))
	}
	return w.Flush()
}
