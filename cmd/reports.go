package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/shriharshan/incident-commander/internal/store"
)

var (
	reportsService string
	reportsLimit   int
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List stored RCA reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.ListReports(cmd.Context(), store.ReportFilter{
			Service: reportsService,
			Limit:   reportsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list reports")
		}
		if len(records) == 0 {
			fmt.Println("No reports stored.")
			return nil
		}

		fmt.Printf("%-36s %-20s %-18s %s\n", "INCIDENT", "SERVICE", "OUTCOME", "CREATED")
		for _, rec := range records {
			fmt.Printf("%-36s %-20s %-18s %s\n",
				rec.IncidentID,
				rec.Service,
				rec.Outcome,
				rec.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return nil
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show <incident-id>",
	Short: "Print one stored report as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		rec, err := st.GetReport(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrapf(err, "get report %s", args[0])
		}
		fmt.Println(rec.Markdown)
		return nil
	},
}

func init() {
	reportsCmd.Flags().StringVar(&reportsService, "service", "", "filter by service")
	reportsCmd.Flags().IntVar(&reportsLimit, "limit", 20, "max reports to list")
	reportsCmd.AddCommand(reportsShowCmd)
	rootCmd.AddCommand(reportsCmd)
}
