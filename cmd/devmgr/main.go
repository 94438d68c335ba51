// Devmgr is a command-line client for the xiaozhi device-management API.
//
// It manages factories, car models, production batches, generated device
// numbers and device MAC configs on a manager backend, retrying requests
// that fail at the network level.
//
// Usage:
//
//	devmgr [command] [flags]
//
// See 'devmgr --help' for available commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/YanXich/xiaozhi-esp32-server/internal/devicemgmt"
	"github.com/YanXich/xiaozhi-esp32-server/internal/logging"
	"github.com/YanXich/xiaozhi-esp32-server/internal/request"
	"github.com/YanXich/xiaozhi-esp32-server/internal/ui"
	"github.com/YanXich/xiaozhi-esp32-server/internal/urls"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	err := newRootCmd(a).ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportError renders a failure box with troubleshooting tips
func reportError(w io.Writer, err error) {
	var usage usageError
	if errors.As(err, &usage) {
		_, _ = fmt.Fprintf(w, "Error: %v\n", err)
		return
	}

	p := ui.NewPrinter(w)
	var rejected *devicemgmt.RejectedError
	switch {
	case errors.As(err, &rejected):
		p.PrintError("Rejected by backend", err, nil)
	case isNotFound(err):
		p.PrintError("No backend found", err, []string{
			"Check that the manager is running on this network",
			"Multicast DNS may be blocked by the firewall or VPN",
			"Pass the backend with --url instead",
		})
	case errors.Is(err, context.Canceled):
		_, _ = fmt.Fprintln(w, "Interrupted")
	case errors.Is(err, request.ErrRetryWindowExceeded):
		p.PrintError("Backend unreachable", err, request.GetTroubleshootingHint(err))
	default:
		p.PrintError("Request failed", err, append(request.GetTroubleshootingHint(err), urls.IssueHint()))
	}
}

// usageError marks mistakes in the command line itself
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}
