package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/YanXich/xiaozhi-esp32-server/internal/discovery"
	"github.com/YanXich/xiaozhi-esp32-server/internal/ui"
)

func newDiscoverCmd(a *app) *cobra.Command {
	var (
		wait    time.Duration
		service string
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find manager backends on the local network",
		Long: `Browse mDNS for backends advertising the device-management API.

Set discovery.enabled in the config file to use the first backend found
whenever no URL is configured.`,
		Example: `  devmgr discover
  devmgr discover --wait 10s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner := discovery.NewScanner()
			scanner.Timeout = a.cfg.Discovery.Timeout
			scanner.Service = a.cfg.Discovery.Service
			if cmd.Flags().Changed("wait") {
				scanner.Timeout = wait
			}
			if service != "" {
				scanner.Service = service
			}

			var backends []*discovery.Backend
			label := fmt.Sprintf("Browsing %s for %s", scanner.Service, scanner.Timeout)
			err := ui.RunWithSpinner(cmd.Context(), a.errOut, label, func(ctx context.Context) error {
				var err error
				backends, err = scanner.Scan(ctx)
				return err
			})
			if err != nil {
				return err
			}
			if len(backends) == 0 {
				return discovery.ErrNotFound
			}

			if a.format != formatTable {
				return a.printValue(backendViews(backends))
			}
			rows := make([][]string, len(backends))
			for i, b := range backends {
				rows[i] = []string{b.Instance, b.Hostname, b.BaseURL()}
			}
			a.printer().PrintTable([]string{"Instance", "Host", "URL"}, rows, 0)
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", discovery.DefaultScanTimeout, "How long to wait for answers")
	cmd.Flags().StringVar(&service, "service", "", "mDNS service type (default from config)")
	return cmd
}

type backendView struct {
	Instance string            `json:"instance" yaml:"instance"`
	Hostname string            `json:"hostname" yaml:"hostname"`
	URL      string            `json:"url" yaml:"url"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

func backendViews(backends []*discovery.Backend) []backendView {
	views := make([]backendView, len(backends))
	for i, b := range backends {
		views[i] = backendView{Instance: b.Instance, Hostname: b.Hostname, URL: b.BaseURL(), Metadata: b.Metadata}
	}
	return views
}

// isNotFound reports whether err means discovery came back empty
func isNotFound(err error) bool {
	return errors.Is(err, discovery.ErrNotFound)
}
