package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timzifer/pharmadesk/forms"
	"github.com/timzifer/pharmadesk/service"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the operation inspector with health and metrics endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				if listen != "" {
					svc.Config().Inspector.Listen = listen
				}
				addr, err := svc.StartInspector()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "inspector listening on %s\n", addr)
				return svc.Serve(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Override the inspector listen address")

	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and the form rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("configuration invalid: %w", err)
			}
			validator, err := forms.New(cfg.Validation)
			if err != nil {
				return fmt.Errorf("validation rules invalid: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend: %s\n", cfg.Backend.BaseURL)
			fmt.Fprintf(out, "Session: %s\n", cfg.SessionFile())
			names := []string{forms.Login, forms.RegisterDetails, forms.RegisterStore}
			sort.Strings(names)
			for _, form := range names {
				fmt.Fprintf(out, "Form %q: %s\n", form, strings.Join(validator.Fields(form), ", "))
			}
			fmt.Fprintln(out, "Configuration check completed successfully.")
			return nil
		},
	}
}
