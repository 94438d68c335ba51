package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/YanXich/xiaozhi-esp32-server/internal/config"
	"github.com/YanXich/xiaozhi-esp32-server/internal/devicemgmt"
	"github.com/YanXich/xiaozhi-esp32-server/internal/discovery"
	"github.com/YanXich/xiaozhi-esp32-server/internal/logging"
	"github.com/YanXich/xiaozhi-esp32-server/internal/request"
	"github.com/YanXich/xiaozhi-esp32-server/internal/ui"
	"github.com/YanXich/xiaozhi-esp32-server/internal/urls"
	"github.com/YanXich/xiaozhi-esp32-server/internal/version"
)

// Output formats
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// app carries flag values and the clients built from them
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	serviceURL string
	timeout    time.Duration
	format     string
	logLevel   string
	envFiles   []string
	noDiscover bool

	cfg        *config.Config
	api        *devicemgmt.API
	resolveURL func() string

	// discover looks the backend up on the local network
	discover func(ctx context.Context, service string, timeout time.Duration) (string, error)
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{in: in, out: out, errOut: errOut, discover: discovery.Discover}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "devmgr",
		Short: "Device management client for the xiaozhi manager API",
		Long: `A command-line client for the xiaozhi device-management API.

Manages factories, car models, production batches, generated device numbers
and device MAC configs. Requests that fail at the network level are retried
with exponential backoff until the retry window (default 1m) runs out.

The backend URL comes from --url, DEVMGR_SERVICE_URL, the config file or,
when discovery is enabled, an mDNS lookup.

Source and issue tracker: ` + urls.Repository,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&a.serviceURL, "url", "", "Backend base URL (e.g. http://10.0.0.2:8002/xiaozhi)")
	flags.DurationVar(&a.timeout, "timeout", request.DefaultTimeout, "HTTP request timeout")
	flags.StringVar(&a.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/devmgr/config.yaml)")
	flags.StringVar(&a.format, "format", formatTable, "Output format (table, json, yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); default $"+logging.LogLevelEnvVar)
	flags.StringSliceVar(&a.envFiles, "env-file", nil, "Environment files to load (default .env)")
	flags.BoolVar(&a.noDiscover, "no-discover", false, "Never look for the backend with mDNS")

	root.AddCommand(
		newFactoriesCmd(a),
		newCarModelsCmd(a),
		newBatchesCmd(a),
		newNumbersCmd(a),
		newDevicesCmd(a),
		newDiscoverCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return root
}

// initEnv loads .env files and starts logging
func (a *app) initEnv() error {
	if err := config.LoadDotEnv(a.envFiles...); err != nil {
		return err
	}
	return logging.Initialize(a.logLevel)
}

// setup loads configuration, applies flags and builds the API client
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := a.initEnv(); err != nil {
		return err
	}

	switch a.format {
	case formatTable, formatJSON, formatYAML:
	default:
		return usagef("unknown --format %q (want table, json or yaml)", a.format)
	}

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
	if err := cfg.Validate(); err != nil {
		return usageError{err}
	}

	a.cfg = cfg
	config.SetCurrent(cfg)

	svc := request.NewService()
	cfg.ApplyTo(svc)
	a.resolveURL = a.serviceURLResolver(cmd.Context())
	a.api = devicemgmt.New(svc, a.resolveURL)

	logging.Debug("Configured client",
		zap.String("config", a.configPath),
		zap.Duration("timeout", cfg.Timeout),
		zap.Duration("retry_window", cfg.Retry.Window),
	)
	return nil
}

// serviceURLResolver resolves the backend URL once, on first use
func (a *app) serviceURLResolver(ctx context.Context) func() string {
	var (
		once sync.Once
		url  string
	)
	return func() string {
		once.Do(func() { url = a.resolveServiceURL(ctx) })
		return url
	}
}

func (a *app) resolveServiceURL(ctx context.Context) string {
	if a.cfg.HasServiceURL() || a.noDiscover || !a.cfg.Discovery.Enabled {
		return config.ServiceURL()
	}

	found, err := a.discover(ctx, a.cfg.Discovery.Service, a.cfg.Discovery.Timeout)
	if err != nil {
		fallback := a.cfg.ServiceURL()
		logging.Warn("Backend discovery failed, using default URL",
			zap.String("url", fallback),
			zap.Error(err),
		)
		ui.NewPrinter(a.errOut).PrintWarning("Backend discovery failed", map[string]string{
			"Service": a.cfg.Discovery.Service,
			"Reason":  err.Error(),
			"Using":   fallback,
		})
		return fallback
	}
	logging.Info("Using discovered backend", zap.String("url", found))
	return found
}

// call runs one wrapper call behind a spinner and returns the response its
// callback received. The backend URL is resolved first so discovery output
// does not interleave with the spinner.
func (a *app) call(cmd *cobra.Command, label string, op func(context.Context, devicemgmt.Callback) error) (*request.Response, error) {
	if a.resolveURL != nil {
		a.resolveURL()
	}

	var res *request.Response
	err := ui.RunWithSpinner(cmd.Context(), a.errOut, label, func(ctx context.Context) error {
		return op(ctx, func(r *request.Response) { res = r })
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%s: no response", label)
	}
	return res, nil
}

func (a *app) printer() *ui.Printer {
	return ui.NewPrinter(a.out)
}

// printData writes the response data as JSON, or as YAML after decoding it
// into v
func (a *app) printData(res *request.Response, v any) error {
	if err := devicemgmt.Rejected(res); err != nil {
		return err
	}

	if a.format == formatYAML {
		if err := res.DecodeData(v); err != nil {
			return err
		}
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		a.printer().Print(string(data))
		return nil
	}

	raw := res.Body
	if res.Result != nil {
		raw = res.Result.Data
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("null")
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return request.NewParseError("failed to format JSON", err)
	}
	a.printer().Println(buf.String())
	return nil
}

// printValue writes a locally built value as JSON or YAML
func (a *app) printValue(v any) error {
	var (
		data []byte
		err  error
	)
	if a.format == formatYAML {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", a.format, err)
	}
	a.printer().Print(string(data))
	return nil
}

// renderPage prints a list response
func renderPage[T any](a *app, res *request.Response, columns []string, row func(*T) []string) error {
	if a.format != formatTable {
		return a.printData(res, &devicemgmt.Page[T]{})
	}

	page, err := devicemgmt.DecodePage[T](res)
	if err != nil {
		return err
	}
	rows := make([][]string, len(page.List))
	for i := range page.List {
		rows[i] = row(&page.List[i])
	}
	a.printer().PrintTable(columns, rows, page.Total)
	return nil
}

// renderEntity prints a single-entity response under a success title
func renderEntity[T any](a *app, res *request.Response, title string, columns []string, row func(*T) []string) error {
	if a.format != formatTable {
		return a.printData(res, new(T))
	}

	entity, err := devicemgmt.DecodeEntity[T](res)
	if err != nil {
		return err
	}
	p := a.printer()
	p.Println(ui.SuccessTitleStyle.Render(ui.SuccessMarker + " " + title))
	p.PrintTable(columns, [][]string{row(entity)}, 0)
	return nil
}

// renderDone prints a success box for responses without data
func (a *app) renderDone(res *request.Response, title string, details map[string]string) error {
	if err := devicemgmt.Rejected(res); err != nil {
		return err
	}
	if a.format != formatTable {
		return a.printData(res, new(any))
	}
	a.printer().PrintSuccess(title, details)
	return nil
}

// readPayload decodes a JSON or YAML file into v; "-" reads stdin.
// Files ending in .json are decoded with the wire field names, anything else
// as YAML with the snake_case config names.
func (a *app) readPayload(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(a.in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// confirm asks before destructive operations unless skip is set
func (a *app) confirm(skip bool, title string, warnings ...string) bool {
	if skip {
		return true
	}
	return ui.Confirm(a.in, a.errOut, title, warnings)
}

// pageFlags are the paging flags shared by list commands
type pageFlags struct {
	page  int
	limit int
}

func (p *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.page, "page", 1, "Page number")
	cmd.Flags().IntVar(&p.limit, "limit", 10, "Page size")
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, usagef("invalid %s id %q", what, arg)
	}
	return id, nil
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			if a.format == formatTable {
				_, _ = fmt.Fprintf(a.out, "devmgr %s\n", version.Full())
				return
			}
			data, _ := json.MarshalIndent(version.Details(), "", "  ")
			_, _ = fmt.Fprintln(a.out, string(data))
		},
	}
}
