package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/YanXich/xiaozhi-esp32-server/internal/devicemgmt"
)

func newFactoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "factories",
		Aliases: []string{"factory"},
		Short:   "Manage factories",
	}
	cmd.AddCommand(
		newFactoriesListCmd(a),
		newFactoriesCreateCmd(a),
		newFactoriesUpdateCmd(a),
	)
	return cmd
}

func newFactoriesListCmd(a *app) *cobra.Command {
	var (
		q  devicemgmt.FactoryQuery
		pf pageFlags
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List factories",
		Example: `  devmgr factories list
  devmgr factories list --name Shen --limit 50
  devmgr factories list --code SZ --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Page, q.Limit = pf.page, pf.limit
			res, err := a.call(cmd, "Fetching factories", func(ctx context.Context, cb devicemgmt.Callback) error {
				return a.api.GetFactories(ctx, q, cb)
			})
			if err != nil {
				return err
			}
			return renderPage(a, res, devicemgmt.FactoryColumns, (*devicemgmt.Factory).Row)
		},
	}
	cmd.Flags().StringVar(&q.Name, "name", "", "Name contains")
	cmd.Flags().StringVar(&q.Code, "code", "", "Exact factory code")
	cmd.Flags().StringVar(&q.Status, "status", "", "Status")
	pf.register(cmd)
	return cmd
}

// factoryFlags builds a factory from --file and field flags
type factoryFlags struct {
	file    string
	factory devicemgmt.Factory
	status  int
}

func (f *factoryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "YAML or JSON file with the factory (- for stdin)")
	cmd.Flags().StringVar(&f.factory.Name, "name", "", "Factory name")
	cmd.Flags().StringVar(&f.factory.Code, "code", "", "Factory code")
	cmd.Flags().StringVar(&f.factory.Country, "country", "", "Numeric country code (e.g. 86)")
	cmd.Flags().IntVar(&f.status, "status", 0, "Status")
}

func (f *factoryFlags) build(a *app, cmd *cobra.Command) (*devicemgmt.Factory, error) {
	var factory devicemgmt.Factory
	if f.file != "" {
		if err := a.readPayload(f.file, &factory); err != nil {
			return nil, err
		}
	}
	overrideString(&factory.Name, f.factory.Name)
	overrideString(&factory.Code, f.factory.Code)
	overrideString(&factory.Country, f.factory.Country)
	if cmd.Flags().Changed("status") {
		factory.Status = devicemgmt.IntPtr(f.status)
	}
	return &factory, nil
}

func newFactoriesCreateCmd(a *app) *cobra.Command {
	var f factoryFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a factory",
		Example: `  devmgr factories create --name Shenzhen --code SZ --country 86
  devmgr factories create -f factory.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			factory, err := f.build(a, cmd)
			if err != nil {
				return err
			}
			if factory.Name == "" {
				return usagef("a factory needs a name (--name or --file)")
			}
			res, err := a.call(cmd, "Creating factory", func(ctx context.Context, cb devicemgmt.Callback) error {
				return a.api.CreateFactory(ctx, factory, cb)
			})
			if err != nil {
				return err
			}
			return renderEntity(a, res, "Factory created", devicemgmt.FactoryColumns, (*devicemgmt.Factory).Row)
		},
	}
	f.register(cmd)
	return cmd
}

func newFactoriesUpdateCmd(a *app) *cobra.Command {
	var f factoryFlags
	cmd := &cobra.Command{
		Use:     "update <id>",
		Short:   "Update a factory",
		Example: `  devmgr factories update 6 --name "Shenzhen Plant 2"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "factory")
			if err != nil {
				return err
			}
			factory, err := f.build(a, cmd)
			if err != nil {
				return err
			}
			factory.ID = id
			res, err := a.call(cmd, "Updating factory", func(ctx context.Context, cb devicemgmt.Callback) error {
				return a.api.UpdateFactory(ctx, id, factory, cb)
			})
			if err != nil {
				return err
			}
			return renderEntity(a, res, "Factory updated", devicemgmt.FactoryColumns, (*devicemgmt.Factory).Row)
		},
	}
	f.register(cmd)
	return cmd
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
