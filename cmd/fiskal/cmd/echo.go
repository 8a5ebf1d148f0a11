package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/fiskalhr/internal/infrastructure/cis"
)

var echoMessage string

var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Run the unsigned echo self-test against the service",
	Long: `Sends the echo message to the CIS service and checks that it comes
back verbatim. The echo operation is unsigned, so it works without any
certificate configured and is the quickest way to check connectivity.`,
	RunE: runEcho,
}

func init() {
	echoCmd.Flags().StringVarP(&echoMessage, "message", "m", "ping", "Message to echo")
	rootCmd.AddCommand(echoCmd)
}

func runEcho(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadEnvironment()
	if err != nil {
		return err
	}

	transport, err := cis.NewHTTPTransport(serviceURL(cfg), cfg.CIS.TLSCABundlePath)
	if err != nil {
		return err
	}
	client := cis.NewClient(transport, nil, nil, log.Zerolog())

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	if err := client.Echo(ctx, echoMessage); err != nil {
		return err
	}
	fmt.Println("OK")
	return nil
}
