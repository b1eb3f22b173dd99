package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kerbrat/tripcast/app"
	"github.com/kerbrat/tripcast/infra/logger"
)

var batchOrg string

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Recalculate estimated delivery dates for every pending order of an organization",
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchOrg, "org", "", "organization ID")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	if batchOrg == "" {
		return fmt.Errorf("--org is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("batch-command").Errorf("service close: %v", err)
		}
	}()
	return svc.Batch.RecalculateOrg(context.Background(), batchOrg)
}
