package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YanXich/xiaozhi-esp32-server/internal/devicemgmt"
)

func newBatchesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "batches",
		Aliases: []string{"batch"},
		Short:   "Manage production batches",
	}
	cmd.AddCommand(
		newBatchesListCmd(a),
		newBatchesCreateCmd(a),
		newBatchesPreviewCmd(a),
	)
	return cmd
}

func newBatchesListCmd(a *app) *cobra.Command {
	var (
		q  devicemgmt.BatchQuery
		pf pageFlags
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List production batches",
		Example: `  devmgr batches list --factory 6
  devmgr batches list --from 2025-01-01 --to 2025-06-30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Page, q.Limit = pf.page, pf.limit
			res, err := a.call(cmd, "Fetching batches", func(ctx context.Context, cb devicemgmt.Callback) error {
				return a.api.GetProductionBatches(ctx, q, cb)
			})
			if err != nil {
				return err
			}
			return renderPage(a, res, devicemgmt.BatchColumns, (*devicemgmt.ProductionBatch).Row)
		},
	}
	cmd.Flags().Int64Var(&q.FactoryID, "factory", 0, "Factory id")
	cmd.Flags().StringVar(&q.Status, "status", "", "Status")
	cmd.Flags().StringVar(&q.ModelType, "model", "", "Model type")
	cmd.Flags().StringVar(&q.HardwareVersion, "hw", "", "Hardware version")
	cmd.Flags().StringVar(&q.StartDate, "from", "", "Produced on or after (yyyy-MM-dd)")
	cmd.Flags().StringVar(&q.EndDate, "to", "", "Produced on or before (yyyy-MM-dd)")
	pf.register(cmd)
	return cmd
}

// batchFlags builds a production batch from --file and field flags
type batchFlags struct {
	file  string
	batch devicemgmt.ProductionBatch
	start int
	end   int
}

func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "YAML or JSON file with the batch (- for stdin)")
	cmd.Flags().Int64Var(&f.batch.FactoryID, "factory", 0, "Factory id")
	cmd.Flags().StringVar(&f.batch.ModelType, "model", "", "Model type (2 digits)")
	cmd.Flags().StringVar(&f.batch.ProductionDate, "date", "", "Production date (yyyy-MM-dd)")
	cmd.Flags().StringVar(&f.batch.HardwareVersion, "hw", "", "Hardware version (2 digits)")
	cmd.Flags().StringVar(&f.batch.AgentCode, "agent", "", "Agent code (3 digits)")
	cmd.Flags().IntVar(&f.start, "start", 0, "First serial number")
	cmd.Flags().IntVar(&f.end, "end", 0, "Last serial number")
}

func (f *batchFlags) build(a *app, cmd *cobra.Command) (*devicemgmt.ProductionBatch, error) {
	var batch devicemgmt.ProductionBatch
	if f.file != "" {
		if err := a.readPayload(f.file, &batch); err != nil {
			return nil, err
		}
	}
	if f.batch.FactoryID > 0 {
		batch.FactoryID = f.batch.FactoryID
	}
	overrideString(&batch.ModelType, f.batch.ModelType)
	overrideString(&batch.ProductionDate, f.batch.ProductionDate)
	overrideString(&batch.HardwareVersion, f.batch.HardwareVersion)
	overrideString(&batch.AgentCode, f.batch.AgentCode)
	if cmd.Flags().Changed("start") {
		batch.StartSerialNumber = devicemgmt.IntPtr(f.start)
	}
	if cmd.Flags().Changed("end") {
		batch.EndSerialNumber = devicemgmt.IntPtr(f.end)
	}

	if err := devicemgmt.CheckBatchRange(batch.StartSerialNumber, batch.EndSerialNumber); err != nil {
		return nil, usageError{err}
	}
	if batch.FactoryID <= 0 {
		return nil, usagef("a batch needs a factory (--factory or --file)")
	}
	return &batch, nil
}

func newBatchesCreateCmd(a *app) *cobra.Command {
	var f batchFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a production batch and generate its device numbers",
		Example: `  devmgr batches create --factory 6 --model 04 --date 2025-10-04 --hw 11 --agent 028 --start 1 --end 500
  devmgr batches create -f batch.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := f.build(a, cmd)
			if err != nil {
				return err
			}
			res, err := a.call(cmd, "Creating batch", func(ctx context.Context, cb devicemgmt.Callback) error {
				return a.api.CreateProductionBatch(ctx, batch, cb)
			})
			if err != nil {
				return err
			}
			return renderEntity(a, res, "Batch created", devicemgmt.BatchColumns, (*devicemgmt.ProductionBatch).Row)
		},
	}
	f.register(cmd)
	return cmd
}

func newBatchesPreviewCmd(a *app) *cobra.Command {
	var (
		f       batchFlags
		country string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the device numbers a batch would generate",
		Long: `Compose the device numbers of a batch locally without creating it.

A device number is country(2) factory(3) agent(3) year(2) month(2) model(2)
hardware(2) serial(7). The factory's country code is looked up on the backend
unless --country is given.`,
		Example: `  devmgr batches preview --factory 6 --country 86 --model 4 --date 2025-10-04 --hw 11 --agent 28 --start 1 --end 500`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := f.build(a, cmd)
			if err != nil {
				return err
			}

			factory := &devicemgmt.Factory{ID: batch.FactoryID, Country: country}
			if country == "" {
				factory, err = a.findFactory(cmd, batch.FactoryID)
				if err != nil {
					return err
				}
			}

			numbers, total, err := devicemgmt.PreviewBatchNumbers(factory, batch, limit)
			if err != nil {
				return usageError{err}
			}

			p := a.printer()
			p.PrintHeader("Batch preview", cmd.CommandPath(), map[string]string{
				"Factory": fmt.Sprintf("%d (country %s)", factory.ID, factory.Country),
				"Serials": fmt.Sprintf("%d-%d", *batch.StartSerialNumber, *batch.EndSerialNumber),
			})
			p.Newline()
			rows := make([][]string, len(numbers))
			for i, n := range numbers {
				rows[i] = []string{n}
			}
			p.PrintTable([]string{"Device Number"}, rows, int64(total))
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&country, "country", "", "Factory country code (skips the lookup)")
	cmd.Flags().IntVar(&limit, "limit", 5, "Numbers to show (0 for all)")
	return cmd
}

// findFactory looks a factory up by id in the factory list
func (a *app) findFactory(cmd *cobra.Command, id int64) (*devicemgmt.Factory, error) {
	q := devicemgmt.FactoryQuery{Page: 1, Limit: 1000}
	res, err := a.call(cmd, "Looking up factory", func(ctx context.Context, cb devicemgmt.Callback) error {
		return a.api.GetFactories(ctx, q, cb)
	})
	if err != nil {
		return nil, err
	}
	page, err := devicemgmt.DecodePage[devicemgmt.Factory](res)
	if err != nil {
		return nil, err
	}
	for i := range page.List {
		if page.List[i].ID == id {
			return &page.List[i], nil
		}
	}
	return nil, usagef("factory %d not found", id)
}
