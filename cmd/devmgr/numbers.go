package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YanXich/xiaozhi-esp32-server/internal/devicemgmt"
)

func newNumbersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "numbers",
		Aliases: []string{"device-numbers"},
		Short:   "Inspect generated device numbers",
	}
	cmd.AddCommand(
		newNumbersListCmd(a),
		newNumbersStatusCmd(a),
		newNumbersExportCmd(a),
	)
	return cmd
}

func newNumbersListCmd(a *app) *cobra.Command {
	var (
		batchID int64
		search  string
		pf      pageFlags
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List device numbers, optionally of one batch",
		Example: `  devmgr numbers list --batch 9
  devmgr numbers list --search 8600602825`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := devicemgmt.PageQuery{Page: pf.page, Limit: pf.limit, Name: search}
			res, err := a.call(cmd, "Fetching device numbers", func(ctx context.Context, cb devicemgmt.Callback) error {
				if batchID > 0 {
					return a.api.GetDeviceNumbersByBatch(ctx, batchID, q, cb)
				}
				return a.api.GetDeviceNumbers(ctx, q, cb)
			})
			if err != nil {
				return err
			}
			return renderPage(a, res, devicemgmt.DeviceNumberColumns, (*devicemgmt.DeviceNumber).Row)
		},
	}
	cmd.Flags().Int64Var(&batchID, "batch", 0, "Only numbers of this batch")
	cmd.Flags().StringVar(&search, "search", "", "Device number contains")
	pf.register(cmd)
	return cmd
}

func newNumbersStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "status <id> <status>",
		Short:   "Set the status of a device number",
		Example: `  devmgr numbers status 41 2`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "device number")
			if err != nil {
				return err
			}
			status, err := strconv.Atoi(args[1])
			if err != nil {
				return usagef("invalid status %q", args[1])
			}
			res, err := a.call(cmd, "Updating status", func(ctx context.Context, cb devicemgmt.Callback) error {
				return a.api.UpdateDeviceNumberStatus(ctx, id, status, cb)
			})
			if err != nil {
				return err
			}
			return a.renderDone(res, "Status updated", map[string]string{
				"Device number": fmt.Sprint(id),
				"Status":        fmt.Sprint(status),
			})
		},
	}
}

func newNumbersExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <batch-id>",
		Short: "Export the device numbers of a batch as text",
		Example: `  devmgr numbers export 9 > batch-9.txt
  devmgr numbers export 9 -o batch-9.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID, err := parseID(args[0], "batch")
			if err != nil {
				return err
			}
			res, err := a.call(cmd, "Exporting device numbers", func(ctx context.Context, cb devicemgmt.Callback) error {
				return a.api.ExportDeviceNumbers(ctx, batchID, cb)
			})
			if err != nil {
				return err
			}
			if err := devicemgmt.Rejected(res); err != nil {
				return err
			}

			var content string
			if err := res.DecodeData(&content); err != nil {
				return err
			}
			if content != "" && !strings.HasSuffix(content, "\n") {
				content += "\n"
			}

			if output == "" || output == "-" {
				_, err := fmt.Fprint(a.out, content)
				return err
			}
			if err := os.WriteFile(output, []byte(content), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			a.printer().PrintSuccess("Device numbers exported", map[string]string{
				"Batch":   fmt.Sprint(batchID),
				"File":    output,
				"Numbers": fmt.Sprint(strings.Count(content, "\n")),
			})
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}
