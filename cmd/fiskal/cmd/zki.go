package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/fiskalhr/pkg/fiskal"
)

var (
	zkiOIB    string
	zkiNumber string
	zkiTotal  string
	zkiDate   string
)

var zkiCmd = &cobra.Command{
	Use:   "zki",
	Short: "Compute the issuer protection code (ZKI) offline",
	Long: `Computes the ZKI for the given invoice data using the configured
signing certificate. No network call is made; this reproduces the code that
would be embedded in a submitted invoice, e.g. to verify printed receipts.`,
	Example: `  fiskal zki --oib 12312312316 --number 1/X/1 --total 100.00
  fiskal zki --oib 12312312316 --number 1/X/1 --total 100.00 --date "01.01.2022T10:30:00"`,
	RunE: runZKI,
}

func init() {
	zkiCmd.Flags().StringVar(&zkiOIB, "oib", "", "Issuer OIB (required)")
	zkiCmd.Flags().StringVar(&zkiNumber, "number", "", "Invoice number as seq/location/device (required)")
	zkiCmd.Flags().StringVar(&zkiTotal, "total", "", "Invoice total amount (required)")
	zkiCmd.Flags().StringVar(&zkiDate, "date", "", "Issue timestamp as dd.mm.yyyyThh:mm:ss (default now)")
	_ = zkiCmd.MarkFlagRequired("oib")
	_ = zkiCmd.MarkFlagRequired("number")
	_ = zkiCmd.MarkFlagRequired("total")
	rootCmd.AddCommand(zkiCmd)
}

func parseInvoiceFlags() (fiskal.OIB, time.Time, fiskal.InvoiceNumber, fiskal.Amount, error) {
	var zero fiskal.Amount
	oib, err := fiskal.ParseOIB(zkiOIB)
	if err != nil {
		return fiskal.OIB{}, time.Time{}, fiskal.InvoiceNumber{}, zero, err
	}
	number, err := fiskal.ParseInvoiceNumber(zkiNumber)
	if err != nil {
		return fiskal.OIB{}, time.Time{}, fiskal.InvoiceNumber{}, zero, err
	}
	total, err := fiskal.AmountFromString(zkiTotal)
	if err != nil {
		return fiskal.OIB{}, time.Time{}, fiskal.InvoiceNumber{}, zero, err
	}
	issuedAt := time.Now()
	if zkiDate != "" {
		issuedAt, err = time.ParseInLocation(fiskal.TimestampLayout, zkiDate, time.Local)
		if err != nil {
			return fiskal.OIB{}, time.Time{}, fiskal.InvoiceNumber{}, zero,
				fmt.Errorf("invalid --date %q: expected dd.mm.yyyyThh:mm:ss", zkiDate)
		}
	}
	return oib, issuedAt, number, total, nil
}

func runZKI(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadEnvironment()
	if err != nil {
		return err
	}
	signer, err := newSigner(cfg)
	if err != nil {
		return err
	}

	oib, issuedAt, number, total, err := parseInvoiceFlags()
	if err != nil {
		return err
	}
	zki, err := fiskal.CalculateZKI(oib, issuedAt, number, total, signer)
	if err != nil {
		return err
	}
	fmt.Println(zki.String())
	return nil
}
