package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jhoicas/fiskalhr/pkg/fiskal"
)

var (
	submitCheckOnly bool
	submitShowQR    bool
)

var submitCmd = &cobra.Command{
	Use:   "submit <invoice.json>",
	Short: "Fiscalize an invoice described by a JSON file",
	Long: `Reads the invoice from a JSON file, signs the request with the
configured certificate and submits it to the CIS service. On success the
assigned JIR is printed.

Invoice file format:
  {
    "oib": "12312312316",
    "issued_at": "01.01.2022T10:30:00",
    "number": "1/X/1",
    "vat_registered": true,
    "vat": [{"base": "80.00", "rate": "25.00", "amount": "20.00"}],
    "total": "100.00",
    "payment_method": "K",
    "operator_oib": "98765432198"
  }`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().BoolVar(&submitCheckOnly, "check", false, "Use the provjera verification operation (demo only)")
	submitCmd.Flags().BoolVar(&submitShowQR, "qr", false, "Also print the receipt verification link")
	rootCmd.AddCommand(submitCmd)
}

// invoiceFile is the JSON shape accepted by submit. Amounts are strings to
// keep them exact.
type invoiceFile struct {
	OIB              string        `json:"oib"`
	IssuedAt         string        `json:"issued_at"`
	Number           string        `json:"number"`
	VATRegistered    bool          `json:"vat_registered"`
	SequenceScope    string        `json:"sequence_scope"`
	VAT              []taxLineFile `json:"vat"`
	ConsumptionTax   []taxLineFile `json:"consumption_tax"`
	Fees             []feeFile     `json:"fees"`
	VATExempt        string        `json:"vat_exempt"`
	MarginTaxation   string        `json:"margin_taxation"`
	TaxExemptTotal   string        `json:"tax_exempt_total"`
	Total            string        `json:"total"`
	PaymentMethod    string        `json:"payment_method"`
	OperatorOIB      string        `json:"operator_oib"`
	ParagonNumber    string        `json:"paragon_number"`
	LateRegistration bool          `json:"late_registration"`
}

type taxLineFile struct {
	Base   string `json:"base"`
	Rate   string `json:"rate"`
	Amount string `json:"amount"`
}

type feeFile struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

func loadInvoiceFile(path string) (*fiskal.Invoice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read invoice file: %w", err)
	}
	var file invoiceFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse invoice file: %w", err)
	}
	return file.toInvoice()
}

func (f *invoiceFile) toInvoice() (*fiskal.Invoice, error) {
	inv := fiskal.NewInvoice()

	oib, err := fiskal.ParseOIB(f.OIB)
	if err != nil {
		return nil, err
	}
	inv.OIB = oib

	if f.IssuedAt != "" {
		issuedAt, err := time.ParseInLocation(fiskal.TimestampLayout, f.IssuedAt, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid issued_at %q: expected dd.mm.yyyyThh:mm:ss", f.IssuedAt)
		}
		inv.IssuedAt = issuedAt
	}

	number, err := fiskal.ParseInvoiceNumber(f.Number)
	if err != nil {
		return nil, err
	}
	inv.Number = number

	total, err := fiskal.AmountFromString(f.Total)
	if err != nil {
		return nil, err
	}
	inv.Total = &total

	inv.VATRegistered = f.VATRegistered
	if f.SequenceScope != "" {
		inv.SequenceScope = fiskal.SequenceScope(f.SequenceScope)
	}
	if f.PaymentMethod != "" {
		inv.PaymentMethod = fiskal.PaymentMethod(f.PaymentMethod)
	}
	if f.OperatorOIB != "" {
		operator, err := fiskal.ParseOIB(f.OperatorOIB)
		if err != nil {
			return nil, err
		}
		inv.OperatorOIB = operator
	}
	inv.ParagonNumber = f.ParagonNumber
	inv.LateRegistration = f.LateRegistration

	if inv.VAT, err = taxLines(f.VAT); err != nil {
		return nil, err
	}
	if inv.ConsumptionTax, err = taxLines(f.ConsumptionTax); err != nil {
		return nil, err
	}
	for _, fee := range f.Fees {
		amount, err := decimal.NewFromString(fee.Amount)
		if err != nil {
			return nil, fmt.Errorf("invalid fee amount %q", fee.Amount)
		}
		inv.Fees = append(inv.Fees, fiskal.NewFee(fee.Name, amount))
	}

	if inv.VATExempt, err = optionalAmount(f.VATExempt); err != nil {
		return nil, err
	}
	if inv.MarginTaxation, err = optionalAmount(f.MarginTaxation); err != nil {
		return nil, err
	}
	if inv.TaxExemptTotal, err = optionalAmount(f.TaxExemptTotal); err != nil {
		return nil, err
	}
	return inv, nil
}

func taxLines(lines []taxLineFile) ([]fiskal.TaxItem, error) {
	if lines == nil {
		return nil, nil
	}
	items := make([]fiskal.TaxItem, 0, len(lines))
	for _, line := range lines {
		base, err := decimal.NewFromString(line.Base)
		if err != nil {
			return nil, fmt.Errorf("invalid tax base %q", line.Base)
		}
		rate, err := decimal.NewFromString(line.Rate)
		if err != nil {
			return nil, fmt.Errorf("invalid tax rate %q", line.Rate)
		}
		amount, err := decimal.NewFromString(line.Amount)
		if err != nil {
			return nil, fmt.Errorf("invalid tax amount %q", line.Amount)
		}
		item, err := fiskal.NewTaxItem(base, rate, amount)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func optionalAmount(s string) (*fiskal.Amount, error) {
	if s == "" {
		return nil, nil
	}
	amount, err := fiskal.AmountFromString(s)
	if err != nil {
		return nil, err
	}
	return &amount, nil
}

func runSubmit(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadEnvironment()
	if err != nil {
		return err
	}
	client, err := newClient(cfg, log)
	if err != nil {
		return err
	}
	inv, err := loadInvoiceFile(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 90*time.Second)
	defer cancel()

	if submitCheckOnly {
		if err := client.Check(ctx, inv, nil); err != nil {
			return err
		}
		fmt.Println("OK")
		return nil
	}

	jir, err := client.Submit(ctx, inv, nil)
	if err != nil {
		return err
	}
	fmt.Println(jir)

	if submitShowQR {
		link, err := inv.VerificationLink(client.Signer(), jir)
		if err != nil {
			return err
		}
		fmt.Println(link)
	}
	return nil
}
