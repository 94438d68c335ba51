package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/YanXich/xiaozhi-esp32-server/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create the config file",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initEnv()
		},
	}
	cmd.AddCommand(
		newConfigPathCmd(a),
		newConfigShowCmd(a),
		newConfigInitCmd(a),
	)
	return cmd
}

// path returns the config file in use
func (a *app) configFile() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.GetConfigPath()
}

func newConfigPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.configFile()
			if err != nil {
				return err
			}
			a.printer().Println(path)
			return nil
		},
	}
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after the config file, DEVMGR_* environment
variables and command-line flags are applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.serviceURL != "" {
				cfg.URL = a.serviceURL
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Timeout = a.timeout
			}
			if !cfg.HasServiceURL() {
				cfg.URL = cfg.ServiceURL()
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			a.printer().Print(string(data))
			return nil
		},
	}
}

func newConfigInitCmd(a *app) *cobra.Command {
	var (
		force    bool
		discover bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default settings",
		Example: `  devmgr config init --url http://10.0.0.2:8002/xiaozhi
  devmgr config init --discover --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.configFile()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return usagef("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			cfg := config.Default()
			cfg.URL = a.serviceURL
			cfg.Discovery.Enabled = discover
			if cmd.Flags().Changed("timeout") {
				cfg.Timeout = a.timeout
			}
			if err := cfg.Validate(); err != nil {
				return usageError{err}
			}
			if err := cfg.Save(path); err != nil {
				return err
			}

			details := map[string]string{"File": path, "Service URL": cfg.ServiceURL()}
			if discover {
				details["Discovery"] = cfg.Discovery.Service
			}
			a.printer().PrintSuccess("Config written", details)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&discover, "discover", false, "Enable mDNS discovery when no URL is set")
	return cmd
}
