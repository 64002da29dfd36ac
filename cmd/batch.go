package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shriharshan/incident-commander/internal/model"
)

var (
	batchFile        string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Investigate a file of alerts concurrently",
	Long:  "Reads a JSON array of alerts and runs an investigation per alert with bounded concurrency. One invalid alert does not stop the rest.",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(batchFile)
		if err != nil {
			return eris.Wrapf(err, "read %s", batchFile)
		}
		var alerts []model.Alert
		if err := json.Unmarshal(data, &alerts); err != nil {
			return eris.Wrapf(err, "parse %s", batchFile)
		}
		if len(alerts) == 0 {
			return eris.New("batch: no alerts in file")
		}

		env, err := initPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		limit := batchConcurrency
		if limit <= 0 {
			limit = cfg.Batch.MaxConcurrent
		}

		var mu sync.Mutex
		counts := map[model.Outcome]int{}

		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(limit)
		for _, alert := range alerts {
			g.Go(func() error {
				result, runErr := env.Pipeline.Run(ctx, alert)
				outcome := model.OutcomeFailure
				if runErr != nil {
					zap.L().Error("batch: investigation failed",
						zap.String("service", alert.Service),
						zap.Error(runErr),
					)
				} else {
					outcome = result.Outcome
				}
				mu.Lock()
				counts[outcome]++
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "batch")
		}

		fmt.Printf("Batch complete: %d alerts (%d success, %d degraded, %d failed)\n",
			len(alerts),
			counts[model.OutcomeSuccess],
			counts[model.OutcomeDegraded],
			counts[model.OutcomeFailure],
		)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "JSON file holding an array of alerts (required)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max concurrent investigations (default from config)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}
