// Package config loads the application configuration via Viper from
// environment variables and an optional .env file. Certificate material is
// validated eagerly so a misconfigured deployment fails at startup, not on
// the first invoice.
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/jhoicas/fiskalhr/pkg/fiskal"
)

// Config groups the application configuration.
type Config struct {
	App AppConfig
	CIS CISConfig
	Log LogConfig
}

// AppConfig is the general application configuration.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string
}

// CISConfig configures the connection to the Fiskalizacija CIS web service.
type CISConfig struct {
	// ServiceURL is the CIS endpoint; defaults to the demo service.
	ServiceURL string

	// CertPath is the issuer signing certificate (PEM, possibly combined
	// with the key) or a .p12 keystore when P12 is true.
	CertPath string
	// KeyPath is the separate PEM private key; empty for combined files
	// and keystores.
	KeyPath string
	// KeyPassword decrypts a protected key or keystore; empty for
	// plaintext material.
	KeyPassword string
	// P12 marks CertPath as a PKCS#12 keystore.
	P12 bool

	// ServiceCertPath is the CIS service certificate used as the trust
	// anchor for response verification.
	ServiceCertPath string
	// CACertPaths are additional trusted CA certificates for response
	// verification.
	CACertPaths []string
	// TLSCABundlePath is the PEM bundle trusted for the TLS connection
	// (the FINA combined CA file); empty uses the system pool.
	TLSCABundlePath string
}

// Load reads the configuration from environment variables (FISKAL_CERT_PATH,
// FISKAL_SERVICE_URL, ...) with an optional .env file underneath.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // missing file is fine

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "fiskalhr"),
		},
		Log: LogConfig{
			Level: getString(v, "LOG_LEVEL", "info"),
		},
		CIS: CISConfig{
			ServiceURL:      getString(v, "FISKAL_SERVICE_URL", ""),
			CertPath:        getString(v, "FISKAL_CERT_PATH", ""),
			KeyPath:         getString(v, "FISKAL_KEY_PATH", ""),
			KeyPassword:     getString(v, "FISKAL_KEY_PASSWORD", ""),
			P12:             v.GetBool("FISKAL_CERT_P12"),
			ServiceCertPath: getString(v, "FISKAL_SERVICE_CERT_PATH", ""),
			CACertPaths:     splitList(getString(v, "FISKAL_CA_CERT_PATHS", "")),
			TLSCABundlePath: getString(v, "FISKAL_TLS_CA_BUNDLE", ""),
		},
	}
	return cfg, nil
}

// Validate checks every configured file eagerly and reports the first
// missing one by name.
func (c *Config) Validate() error {
	paths := []string{
		c.CIS.CertPath,
		c.CIS.KeyPath,
		c.CIS.ServiceCertPath,
		c.CIS.TLSCABundlePath,
	}
	paths = append(paths, c.CIS.CACertPaths...)
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return fiskal.NewConfigurationError("configured file not readable: %s", path)
		}
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}
