package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kerbrat/tripcast/app"
	"github.com/kerbrat/tripcast/core/schedule"
	"github.com/kerbrat/tripcast/infra/logger"
	"github.com/kerbrat/tripcast/pkg/export"
)

var (
	quoteOrg      string
	quoteProduct  string
	quoteQuantity int
	quoteFormat   string
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Evaluate an ad-hoc delivery quote against the cached forecasts",
	RunE:  runQuote,
}

func init() {
	quoteCmd.Flags().StringVar(&quoteOrg, "org", "", "organization ID")
	quoteCmd.Flags().StringVar(&quoteProduct, "product", "", "product ID")
	quoteCmd.Flags().IntVar(&quoteQuantity, "quantity", 0, "total quantity to deliver")
	quoteCmd.Flags().StringVar(&quoteFormat, "format", "text", "output format: text, json or csv")
	rootCmd.AddCommand(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) error {
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
			logger.New("quote-command").Errorf("service close: %v", err)
		}
	}()

	options, err := svc.Quotes.Quote(context.Background(), schedule.QuoteRequest{
		OrgID:         quoteOrg,
		ProductID:     quoteProduct,
		TotalQuantity: quoteQuantity,
	})
	if err != nil {
		return err
	}
	switch quoteFormat {
	case "json":
		return export.WriteJSON(os.Stdout, options)
	case "csv":
		return export.WriteCSV(os.Stdout, options)
	case "text":
	default:
		return fmt.Errorf("unknown format %q", quoteFormat)
	}
	if len(options) == 0 {
		fmt.Println("no vehicle can carry the full quantity within the horizon")
		return nil
	}
	for _, o := range options {
		fmt.Printf("%s\t%d trips\t%s -> %s\t[%s]\n",
			o.VehicleID, o.TripsRequired, o.StartDate, o.CompletionDate,
			strings.Join(o.TripDates, ", "))
	}
	return nil
}
