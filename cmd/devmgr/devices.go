package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YanXich/xiaozhi-esp32-server/internal/devicemgmt"
)

func newDevicesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "devices",
		Aliases: []string{"device", "macs"},
		Short:   "Manage device MAC configs",
		Long: `Manage device configs, the records binding a device number to a MAC
address, a car model and optionally a user.`,
	}
	cmd.AddCommand(
		newDevicesListCmd(a),
		newDevicesGetCmd(a),
		newDevicesCreateCmd(a),
		newDevicesUpdateCmd(a),
		newDevicesDeleteCmd(a),
	)
	return cmd
}

func newDevicesListCmd(a *app) *cobra.Command {
	var (
		q  devicemgmt.DeviceConfigQuery
		pf pageFlags
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List device configs",
		Example: `  devmgr devices list --mac AA:BB
  devmgr devices list --number 86006028251004110000001 --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Page, q.Limit = pf.page, pf.limit
			res, err := a.call(cmd, "Fetching devices", func(ctx context.Context, cb devicemgmt.Callback) error {
				return a.api.GetDeviceConfigs(ctx, q, cb)
			})
			if err != nil {
				return err
			}
			return renderPage(a, res, devicemgmt.DeviceConfigColumns, (*devicemgmt.DeviceConfig).Row)
		},
	}
	cmd.Flags().StringVar(&q.DeviceNumber, "number", "", "Device number contains")
	cmd.Flags().StringVar(&q.MACAddress, "mac", "", "MAC address contains")
	cmd.Flags().StringVar(&q.DeviceName, "name", "", "Device name contains")
	pf.register(cmd)
	return cmd
}

func newDevicesGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "get <id>",
		Short:   "Show one device config",
		Example: `  devmgr devices get 12`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "device")
			if err != nil {
				return err
			}
			res, err := a.call(cmd, "Fetching device", func(ctx context.Context, cb devicemgmt.Callback) error {
				return a.api.GetDeviceConfigByID(ctx, id, cb)
			})
			if err != nil {
				return err
			}
			if a.format != formatTable {
				return a.printData(res, &devicemgmt.DeviceConfig{})
			}
			device, err := devicemgmt.DecodeEntity[devicemgmt.DeviceConfig](res)
			if err != nil {
				return err
			}
			a.printer().Print(device.FormatDetailed())
			return nil
		},
	}
}

// deviceFlags builds a device config from --file and field flags
type deviceFlags struct {
	file   string
	device devicemgmt.DeviceConfig
	userID int64
	status int
}

func (f *deviceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "YAML or JSON file with the device (- for stdin)")
	cmd.Flags().StringVar(&f.device.DeviceNumber, "number", "", "Device number")
	cmd.Flags().StringVar(&f.device.MACAddress, "mac", "", "MAC address")
	cmd.Flags().StringVar(&f.device.CarModel, "car-model", "", "Car model")
	cmd.Flags().StringVar(&f.device.DeviceName, "name", "", "Device name")
	cmd.Flags().StringVar(&f.device.Remark, "remark", "", "Remark")
	cmd.Flags().Int64Var(&f.userID, "user", 0, "Owning user id")
	cmd.Flags().IntVar(&f.status, "status", 0, "Status")
}

func (f *deviceFlags) build(a *app, cmd *cobra.Command) (*devicemgmt.DeviceConfig, error) {
	var device devicemgmt.DeviceConfig
	if f.file != "" {
		if err := a.readPayload(f.file, &device); err != nil {
			return nil, err
		}
	}
	overrideString(&device.DeviceNumber, f.device.DeviceNumber)
	overrideString(&device.MACAddress, f.device.MACAddress)
	overrideString(&device.CarModel, f.device.CarModel)
	overrideString(&device.DeviceName, f.device.DeviceName)
	overrideString(&device.Remark, f.device.Remark)
	if cmd.Flags().Changed("user") {
		userID := f.userID
		device.UserID = &userID
	}
	if cmd.Flags().Changed("status") {
		device.Status = devicemgmt.IntPtr(f.status)
	}
	return &device, nil
}

func newDevicesCreateCmd(a *app) *cobra.Command {
	var f deviceFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Bind a device number to a MAC address",
		Example: `  devmgr devices create --number 86006028251004110000001 --mac AA:BB:CC:DD:EE:FF --car-model X5
  devmgr devices create -f device.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			device, err := f.build(a, cmd)
			if err != nil {
				return err
			}
			if device.DeviceNumber == "" || device.MACAddress == "" {
				return usagef("a device needs a device number and a MAC address")
			}
			res, err := a.call(cmd, "Creating device", func(ctx context.Context, cb devicemgmt.Callback) error {
				return a.api.CreateDeviceConfig(ctx, device, cb)
			})
			if err != nil {
				return err
			}
			return renderEntity(a, res, "Device created", devicemgmt.DeviceConfigColumns, (*devicemgmt.DeviceConfig).Row)
		},
	}
	f.register(cmd)
	return cmd
}

func newDevicesUpdateCmd(a *app) *cobra.Command {
	var f deviceFlags
	cmd := &cobra.Command{
		Use:     "update <id>",
		Short:   "Update a device config",
		Example: `  devmgr devices update 12 --name "Fleet car 7" --user 3`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "device")
			if err != nil {
				return err
			}
			device, err := f.build(a, cmd)
			if err != nil {
				return err
			}
			device.ID = id
			res, err := a.call(cmd, "Updating device", func(ctx context.Context, cb devicemgmt.Callback) error {
				return a.api.UpdateDeviceConfig(ctx, id, device, cb)
			})
			if err != nil {
				return err
			}
			return renderEntity(a, res, "Device updated", devicemgmt.DeviceConfigColumns, (*devicemgmt.DeviceConfig).Row)
		},
	}
	f.register(cmd)
	return cmd
}

func newDevicesDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Short:   "Delete a device config",
		Example: `  devmgr devices delete 12 --yes`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "device")
			if err != nil {
				return err
			}
			if !a.confirm(yes, fmt.Sprintf("Delete device config %d", id),
				"The device number is unbound from its MAC address",
				"This cannot be undone",
			) {
				return nil
			}
			res, err := a.call(cmd, "Deleting device", func(ctx context.Context, cb devicemgmt.Callback) error {
				return a.api.DeleteDeviceConfig(ctx, id, cb)
			})
			if err != nil {
				return err
			}
			return a.renderDone(res, "Device deleted", map[string]string{"ID": fmt.Sprint(id)})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
