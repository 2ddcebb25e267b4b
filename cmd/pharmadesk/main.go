// Package main is the pharmadesk command line client.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/timzifer/pharmadesk/config"
	"github.com/timzifer/pharmadesk/internal/logging"
	"github.com/timzifer/pharmadesk/runtime/lifecycle"
	"github.com/timzifer/pharmadesk/service"
	"github.com/timzifer/pharmadesk/views"
)

// errReported marks failures whose message was already printed.
var errReported = errors.New("operation failed")

// Global flags.
var (
	configPath string
	logLevel   string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pharmadesk",
		Short: "Warehouse client for the pharmacy ordering platform",
		Long: `pharmadesk signs in to the ordering backend, browses suppliers and
their catalogues, submits orders and handles orders received from pharmacies.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(newServeCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newLoginCmd())
	root.AddCommand(newLogoutCmd())
	root.AddCommand(newWhoamiCmd())
	root.AddCommand(newRegisterCmd())
	root.AddCommand(newStoresCmd())
	root.AddCommand(newSuppliersCmd())
	root.AddCommand(newSupplierCmd())
	root.AddCommand(newOrdersCmd())
	root.AddCommand(newOrderCmd())

	return root
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// withService wires a service for the duration of fn. Notifications and
// navigation are printed to the command output.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.Service) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger, cleanup, err := logging.Setup(cfg.Logging, cmd.CommandPath())
	if err != nil {
		return err
	}
	defer cleanup()

	console := service.NewConsole(cmd.OutOrStdout(), logger)
	svc, err := service.New(cfg, logger, service.WithRouter(console), service.WithNotifier(console))
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return fn(ctx, svc)
}

// settleOp waits for the named operation, lets the page apply the outcome
// and reports whether it failed.
func settleOp(ctx context.Context, svc *service.Service, name string, sync func()) error {
	rec, err := svc.Await(ctx, name)
	if err != nil {
		return err
	}
	sync()
	if rec.Status == lifecycle.StatusFailed {
		return errReported
	}
	return nil
}

// awaitLoad waits for a fetch. A failed fetch is shown by the rendered list.
func awaitLoad(ctx context.Context, svc *service.Service, name string) error {
	_, err := svc.Await(ctx, name)
	return err
}

// listFailed reports a list that ended in the error state.
func listFailed[R any](cmd *cobra.Command, view views.ListView[R]) error {
	if view.State != views.StateError {
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), view.Message)
	return errReported
}

func printPageFooter[R any](cmd *cobra.Command, view views.ListView[R]) {
	if view.PageCount > 1 {
		fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d\n", view.PageIndex+1, view.PageCount)
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
