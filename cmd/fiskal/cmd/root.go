// Package cmd implements the fiskal CLI: fiscalize invoices against the CIS
// web service, compute ZKI codes offline and build verification links.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jhoicas/fiskalhr/internal/infrastructure/cis"
	"github.com/jhoicas/fiskalhr/pkg/config"
	"github.com/jhoicas/fiskalhr/pkg/fiskal"
	"github.com/jhoicas/fiskalhr/pkg/logger"
)

var (
	version = "1.0.0"

	// Global flags
	demoMode bool
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "fiskal",
	Short: "Fiscalize invoices against the Croatian CIS web service",
	Long: `fiskal submits fiscal invoice records to the Croatian tax authority
(Fiskalizacija CIS), signs them with the issuer's FINA certificate and
verifies the signed responses.

Configuration is read from FISKAL_* environment variables (or a .env file):
  FISKAL_CERT_PATH, FISKAL_KEY_PATH, FISKAL_KEY_PASSWORD, FISKAL_CERT_P12,
  FISKAL_SERVICE_CERT_PATH, FISKAL_CA_CERT_PATHS, FISKAL_TLS_CA_BUNDLE,
  FISKAL_SERVICE_URL.

Examples:
  # Service health check (unsigned echo)
  fiskal echo --demo

  # Compute the ZKI for known invoice data, offline
  fiskal zki --oib 12312312316 --number 1/X/1 --total 100.00

  # Submit an invoice described by a JSON file
  fiskal submit invoice.json --demo`,
	Version: version,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&demoMode, "demo", false, "Use the CIS demo endpoint")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// loadEnvironment builds the shared collaborators from configuration.
func loadEnvironment() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: level})
	return cfg, log, nil
}

func newSigner(cfg *config.Config) (*cis.Signer, error) {
	if cfg.CIS.CertPath == "" {
		return nil, fiskal.NewConfigurationError("FISKAL_CERT_PATH is not set")
	}
	if cfg.CIS.P12 {
		return cis.NewSignerFromP12(cfg.CIS.CertPath, cfg.CIS.KeyPassword)
	}
	return cis.NewSigner(cfg.CIS.CertPath, cfg.CIS.KeyPath, cfg.CIS.KeyPassword)
}

func serviceURL(cfg *config.Config) string {
	if cfg.CIS.ServiceURL != "" {
		return cfg.CIS.ServiceURL
	}
	if demoMode {
		return cis.DemoURL
	}
	return cis.ProductionURL
}

// newClient builds the fully wired client for signed operations. The echo
// command wires its own unsigned client instead.
func newClient(cfg *config.Config, log *logger.Logger) (*cis.Client, error) {
	signer, err := newSigner(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.CIS.ServiceCertPath == "" {
		return nil, fiskal.NewConfigurationError("FISKAL_SERVICE_CERT_PATH is not set")
	}
	verifier, err := cis.NewVerifier(cfg.CIS.ServiceCertPath, cfg.CIS.CACertPaths)
	if err != nil {
		return nil, err
	}
	transport, err := cis.NewHTTPTransport(serviceURL(cfg), cfg.CIS.TLSCABundlePath)
	if err != nil {
		return nil, err
	}
	return cis.NewClient(transport, signer, verifier, log.Zerolog()), nil
}
