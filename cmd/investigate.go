package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/shriharshan/incident-commander/internal/model"
)

var (
	investigateService   string
	investigateMetric    string
	investigateValue     float64
	investigateThreshold float64
	investigateSeverity  string
	investigateTime      string
	investigateFile      string
	investigateOutput    string
)

var investigateCmd = &cobra.Command{
	Use:   "investigate",
	Short: "Run one investigation for an alert",
	Long:  "Builds an alert from flags or a JSON file, runs the full investigation, and prints the RCA report as Markdown.",
	RunE: func(cmd *cobra.Command, args []string) error {
		alert, err := buildAlert()
		if err != nil {
			return err
		}

		env, err := initPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Run(cmd.Context(), alert)
		if err != nil {
			return eris.Wrap(err, "investigate")
		}

		markdown := result.Report.Markdown()
		if investigateOutput != "" {
			if err := os.WriteFile(investigateOutput, []byte(markdown), 0o644); err != nil {
				return eris.Wrapf(err, "write %s", investigateOutput)
			}
			fmt.Printf("Report written to %s\n", investigateOutput)
		} else {
			fmt.Println(markdown)
		}

		fmt.Printf("Incident: %s\nOutcome: %s\n", result.IncidentID, result.Outcome)
		if result.StoredLocation != "" {
			fmt.Printf("Stored: %s\n", result.StoredLocation)
		}
		return nil
	},
}

// buildAlert assembles the alert from --file when given, otherwise from the
// individual flags. A missing timestamp defaults to now.
func buildAlert() (model.Alert, error) {
	var alert model.Alert
	if investigateFile != "" {
		data, err := os.ReadFile(investigateFile)
		if err != nil {
			return alert, eris.Wrapf(err, "read %s", investigateFile)
		}
		if err := json.Unmarshal(data, &alert); err != nil {
			return alert, eris.Wrapf(err, "parse %s", investigateFile)
		}
	} else {
		alert = model.Alert{
			Service:      investigateService,
			Metric:       investigateMetric,
			CurrentValue: investigateValue,
			Threshold:    investigateThreshold,
			Severity:     investigateSeverity,
		}
		if investigateTime != "" {
			ts, err := time.Parse(time.RFC3339, investigateTime)
			if err != nil {
				return alert, eris.Wrap(err, "parse --time")
			}
			alert.Timestamp = ts
		}
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now().UTC()
	}
	if alert.TriggerSource == "" {
		alert.TriggerSource = "manual"
	}
	return alert, nil
}

func init() {
	investigateCmd.Flags().StringVar(&investigateService, "service", "", "affected service name")
	investigateCmd.Flags().StringVar(&investigateMetric, "metric", "", "breached metric name")
	investigateCmd.Flags().Float64Var(&investigateValue, "value", 0, "observed metric value")
	investigateCmd.Flags().Float64Var(&investigateThreshold, "threshold", 0, "alerting threshold")
	investigateCmd.Flags().StringVar(&investigateSeverity, "severity", "high", "alert severity")
	investigateCmd.Flags().StringVar(&investigateTime, "time", "", "alert timestamp (RFC3339, default now)")
	investigateCmd.Flags().StringVar(&investigateFile, "file", "", "read the alert from a JSON file instead of flags")
	investigateCmd.Flags().StringVar(&investigateOutput, "output", "", "write the Markdown report to a file")
	rootCmd.AddCommand(investigateCmd)
}
