package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timzifer/pharmadesk/pages"
	"github.com/timzifer/pharmadesk/service"
)

func newSuppliersCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "suppliers",
		Short: "List suppliers, optionally filtered by name",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				env := svc.Env()
				page := pages.NewSuppliers(env)
				page.SetFilter(name)
				page.Sync()
				if err := awaitLoad(ctx, svc, env.Ops.Suppliers.Name()); err != nil {
					return err
				}
				view := page.Render()
				if err := listFailed(cmd, view); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(view.Rows) == 0 {
					fmt.Fprintln(out, "No suppliers found.")
					return nil
				}
				fmt.Fprintf(out, "%-6s %-30s %-20s %s\n", "ID", "NAME", "LOCATION", "PHONE")
				fmt.Fprintln(out, strings.Repeat("-", 72))
				for _, row := range view.Rows {
					fmt.Fprintf(out, "%-6d %-30s %-20s %s\n", row.ID, row.Name, row.Location, row.PhoneNumber)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Filter by supplier name")

	return cmd
}

func newSupplierCmd() *cobra.Command {
	var (
		page     int
		category string
	)

	cmd := &cobra.Command{
		Use:   "supplier <id>",
		Short: "Show one page of a supplier's catalogue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				env := svc.Env()
				details := pages.NewSupplierDetails(env, id)
				details.SetPage(page - 1)
				details.SetCategory(category)
				details.Sync()
				if err := awaitLoad(ctx, svc, env.Ops.SupplierMedicines.Name()); err != nil {
					return err
				}
				view := details.Render()
				if err := listFailed(cmd, view.Medicines); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(view.Categories) > 0 {
					fmt.Fprintf(out, "Categories: %s\n", strings.Join(view.Categories, ", "))
				}
				if len(view.Medicines.Rows) == 0 {
					fmt.Fprintln(out, "No medicines found.")
					return nil
				}
				fmt.Fprintf(out, "%-6s %-30s %-20s %s\n", "ID", "NAME", "CATEGORY", "PRICE")
				fmt.Fprintln(out, strings.Repeat("-", 72))
				for _, row := range view.Medicines.Rows {
					fmt.Fprintf(out, "%-6d %-30s %-20s %s\n", row.ID, row.Name, row.Category, row.Price)
				}
				printPageFooter(cmd, view.Medicines)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Catalogue page (1-based)")
	cmd.Flags().StringVar(&category, "category", "", "Only show this category")

	return cmd
}
