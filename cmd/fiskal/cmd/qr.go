package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/fiskalhr/pkg/fiskal"
)

var qrJIR string

var qrCmd = &cobra.Command{
	Use:   "qr",
	Short: "Build the receipt verification link for the QR code",
	Long: `Builds the porezna.gov.hr verification URL that must be encoded into
the receipt QR code. When the invoice was fiscalized pass its JIR with
--jir; without it the link falls back to the ZKI computed from the
configured certificate.`,
	Example: `  fiskal qr --oib 12312312316 --number 1/X/1 --total 100.00 --date "01.01.2022T10:30:00"
  fiskal qr --oib 12312312316 --number 1/X/1 --total 100.00 --date "01.01.2022T10:30:00" --jir <jir>`,
	RunE: runQR,
}

func init() {
	qrCmd.Flags().StringVar(&zkiOIB, "oib", "", "Issuer OIB (required)")
	qrCmd.Flags().StringVar(&zkiNumber, "number", "", "Invoice number as seq/location/device (required)")
	qrCmd.Flags().StringVar(&zkiTotal, "total", "", "Invoice total amount (required)")
	qrCmd.Flags().StringVar(&zkiDate, "date", "", "Issue timestamp as dd.mm.yyyyThh:mm:ss (default now)")
	qrCmd.Flags().StringVar(&qrJIR, "jir", "", "JIR returned by fiscalization; empty uses the ZKI")
	_ = qrCmd.MarkFlagRequired("oib")
	_ = qrCmd.MarkFlagRequired("number")
	_ = qrCmd.MarkFlagRequired("total")
	rootCmd.AddCommand(qrCmd)
}

func runQR(cmd *cobra.Command, args []string) error {
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
	inv := fiskal.NewInvoice()
	inv.OIB = oib
	inv.IssuedAt = issuedAt
	inv.Number = number
	inv.Total = &total

	link, err := inv.VerificationLink(signer, qrJIR)
	if err != nil {
		return err
	}
	fmt.Println(link)
	return nil
}
