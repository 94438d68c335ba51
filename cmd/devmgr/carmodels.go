package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/YanXich/xiaozhi-esp32-server/internal/devicemgmt"
)

func newCarModelsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "car-models",
		Aliases: []string{"car-model", "models"},
		Short:   "Manage car models and their command configs",
	}
	cmd.AddCommand(
		newCarModelsListCmd(a),
		newCarModelsCreateCmd(a),
		newCarModelsUpdateCmd(a),
		newCarModelsDeleteCmd(a),
	)
	return cmd
}

func newCarModelsListCmd(a *app) *cobra.Command {
	var (
		q  devicemgmt.CarModelQuery
		pf pageFlags
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List car models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Page, q.Limit = pf.page, pf.limit
			res, err := a.call(cmd, "Fetching car models", func(ctx context.Context, cb devicemgmt.Callback) error {
				return a.api.GetCarModels(ctx, q, cb)
			})
			if err != nil {
				return err
			}
			return renderPage(a, res, devicemgmt.CarModelColumns, (*devicemgmt.CarModel).Row)
		},
	}
	cmd.Flags().StringVar(&q.Name, "name", "", "Description contains")
	pf.register(cmd)
	return cmd
}

// carModelFlags builds a car model from --file and field flags
type carModelFlags struct {
	file         string
	description  string
	commandsFile string
}

func (f *carModelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "YAML or JSON file with the car model (- for stdin)")
	cmd.Flags().StringVar(&f.description, "description", "", "Car model description")
	cmd.Flags().StringVar(&f.commandsFile, "commands", "", "JSON file with the command config")
}

func (f *carModelFlags) build(a *app) (*devicemgmt.CarModel, error) {
	var model devicemgmt.CarModel
	if f.file != "" {
		if err := a.readPayload(f.file, &model); err != nil {
			return nil, err
		}
	}
	overrideString(&model.Description, f.description)

	if f.commandsFile != "" {
		data, err := os.ReadFile(f.commandsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.commandsFile, err)
		}
		if !json.Valid(data) {
			return nil, usagef("%s is not valid JSON", f.commandsFile)
		}
		model.CommandConfig = string(data)
	}
	return &model, nil
}

func newCarModelsCreateCmd(a *app) *cobra.Command {
	var f carModelFlags
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a car model",
		Example: `  devmgr car-models create --description "Model Y" --commands commands.json`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := f.build(a)
			if err != nil {
				return err
			}
			res, err := a.call(cmd, "Creating car model", func(ctx context.Context, cb devicemgmt.Callback) error {
				return a.api.CreateCarModel(ctx, model, cb)
			})
			if err != nil {
				return err
			}
			return renderEntity(a, res, "Car model created", devicemgmt.CarModelColumns, (*devicemgmt.CarModel).Row)
		},
	}
	f.register(cmd)
	return cmd
}

func newCarModelsUpdateCmd(a *app) *cobra.Command {
	var f carModelFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a car model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "car model")
			if err != nil {
				return err
			}
			model, err := f.build(a)
			if err != nil {
				return err
			}
			model.ID = id
			res, err := a.call(cmd, "Updating car model", func(ctx context.Context, cb devicemgmt.Callback) error {
				return a.api.UpdateCarModel(ctx, id, model, cb)
			})
			if err != nil {
				return err
			}
			return renderEntity(a, res, "Car model updated", devicemgmt.CarModelColumns, (*devicemgmt.CarModel).Row)
		},
	}
	f.register(cmd)
	return cmd
}

func newCarModelsDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a car model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "car model")
			if err != nil {
				return err
			}
			if !a.confirm(yes, fmt.Sprintf("Delete car model %d", id),
				"Devices configured with this car model keep its name but lose its commands",
				"This cannot be undone",
			) {
				return nil
			}
			res, err := a.call(cmd, "Deleting car model", func(ctx context.Context, cb devicemgmt.Callback) error {
				return a.api.DeleteCarModel(ctx, id, cb)
			})
			if err != nil {
				return err
			}
			return a.renderDone(res, "Car model deleted", map[string]string{"ID": fmt.Sprint(id)})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
