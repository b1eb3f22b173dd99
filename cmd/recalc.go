package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kerbrat/tripcast/app"
	"github.com/kerbrat/tripcast/infra/logger"
)

var (
	recalcOrg     string
	recalcVehicle string
)

var recalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Force a full schedule recompute for one vehicle",
	RunE:  runRecalc,
}

func init() {
	recalcCmd.Flags().StringVar(&recalcOrg, "org", "", "organization ID")
	recalcCmd.Flags().StringVar(&recalcVehicle, "vehicle", "", "vehicle ID")
	rootCmd.AddCommand(recalcCmd)
}

func runRecalc(cmd *cobra.Command, args []string) error {
	if recalcOrg == "" || recalcVehicle == "" {
		return fmt.Errorf("--org and --vehicle are required")
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
			logger.New("recalc-command").Errorf("service close: %v", err)
		}
	}()
	return svc.Scheduler.Recompute(context.Background(), recalcOrg, recalcVehicle)
}
