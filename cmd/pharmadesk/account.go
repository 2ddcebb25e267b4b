package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timzifer/pharmadesk/pages"
	"github.com/timzifer/pharmadesk/remote"
	"github.com/timzifer/pharmadesk/service"
	"github.com/timzifer/pharmadesk/session"
)

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				env := svc.Env()
				page := pages.NewLogin(env)
				if err := page.Submit(email, password); err != nil {
					return err
				}
				return settleOp(ctx, svc, env.Ops.Login.Name(), page.Sync)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				return pages.Logout(svc.Env())
			})
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				current, ok := svc.Sessions().Current()
				if !ok {
					return session.ErrNotLoggedIn
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s", current.Email)
				if current.Name != "" {
					fmt.Fprintf(out, " (%s)", current.Name)
				}
				if current.Role != "" {
					fmt.Fprintf(out, " [%s]", current.Role)
				}
				fmt.Fprintln(out)
				return nil
			})
		},
	}
}

func newRegisterCmd() *cobra.Command {
	var details remote.RegisterDetails

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Complete the account details for review",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				env := svc.Env()
				page := pages.NewRegisterDetails(env)
				if err := page.Submit(details); err != nil {
					return err
				}
				return settleOp(ctx, svc, env.Ops.CompleteInfo.Name(), page.Sync)
			})
		},
	}

	cmd.Flags().StringVar(&details.Name, "name", "", "Warehouse name")
	cmd.Flags().StringVar(&details.Location, "location", "", "Warehouse location")
	cmd.Flags().StringVar(&details.PhoneNumber, "phone", "", "Phone number (09xxxxxxxx)")

	return cmd
}

func newStoresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stores",
		Short: "List the inventories of the warehouse",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				page := pages.NewStores(svc.Env())
				page.Sync()
				if err := awaitLoad(ctx, svc, svc.Env().Ops.Stores.Name()); err != nil {
					return err
				}
				return printStores(cmd, page.Render())
			})
		},
	}

	cmd.AddCommand(newStoresRegisterCmd())

	return cmd
}

func newStoresRegisterCmd() *cobra.Command {
	var in remote.RegisterStoreRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				env := svc.Env()
				page := pages.NewStores(env)
				if err := page.Register(in); err != nil {
					return err
				}
				if err := settleOp(ctx, svc, env.Ops.RegisterStore.Name(), page.Sync); err != nil {
					return err
				}
				if err := awaitLoad(ctx, svc, env.Ops.Stores.Name()); err != nil {
					return err
				}
				return printStores(cmd, page.Render())
			})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Inventory name")
	cmd.Flags().StringVar(&in.Location, "location", "", "Inventory location")
	cmd.Flags().StringVar(&in.PhoneNumber, "phone", "", "Phone number (09xxxxxxxx)")

	return cmd
}

func printStores(cmd *cobra.Command, view pages.StoresView) error {
	if err := listFailed(cmd, view.Stores); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(view.Stores.Rows) == 0 {
		fmt.Fprintln(out, "No inventories registered.")
		return nil
	}
	fmt.Fprintf(out, "%-6s %-30s %-24s %s\n", "ID", "NAME", "LOCATION", "PHONE")
	fmt.Fprintln(out, strings.Repeat("-", 76))
	for _, row := range view.Stores.Rows {
		fmt.Fprintf(out, "%-6d %-30s %-24s %s\n", row.ID, row.Name, row.Location, row.PhoneNumber)
	}
	return nil
}
