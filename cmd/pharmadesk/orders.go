package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timzifer/pharmadesk/pages"
	"github.com/timzifer/pharmadesk/service"
	"github.com/timzifer/pharmadesk/views"
)

func newOrdersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List sent orders",
	}

	cmd.AddCommand(newOrdersListCmd("sent", "List orders sent to suppliers", func(env *pages.Env, index int) (func(), func() views.ListView[pages.OrderRow], string) {
		page := pages.NewOutgoingOrders(env)
		page.SetPage(index)
		return page.Sync, page.Render, env.Ops.SentOrders.Name()
	}))
	cmd.AddCommand(newOrdersListCmd("returns", "List return orders sent to suppliers", func(env *pages.Env, index int) (func(), func() views.ListView[pages.OrderRow], string) {
		page := pages.NewOutgoingReturnOrders(env)
		page.SetPage(index)
		return page.Sync, page.Render, env.Ops.SentReturnOrders.Name()
	}))

	return cmd
}

type ordersPage func(env *pages.Env, index int) (sync func(), render func() views.ListView[pages.OrderRow], op string)

func newOrdersListCmd(use, short string, open ordersPage) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				sync, render, op := open(svc.Env(), page-1)
				sync()
				if err := awaitLoad(ctx, svc, op); err != nil {
					return err
				}
				view := render()
				if err := listFailed(cmd, view); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(view.Rows) == 0 {
					fmt.Fprintln(out, "No orders found.")
					return nil
				}
				fmt.Fprintf(out, "%-8s %-24s %-24s %-14s %s\n", "ORDER", "DATE", "SUPPLIER", "STATUS", "TOTAL")
				fmt.Fprintln(out, strings.Repeat("-", 90))
				for _, row := range view.Rows {
					fmt.Fprintf(out, "%-8s %-24s %-24s %-14s %s\n", row.Label, row.Date, row.Supplier, row.Status.Title, row.Total)
				}
				printPageFooter(cmd, view)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page to show (1-based)")

	return cmd
}

func newOrderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Create orders and handle received orders",
	}

	cmd.AddCommand(newOrderCreateCmd())
	cmd.AddCommand(newOrderShowCmd())
	cmd.AddCommand(newOrderActionCmd(pages.ActionAccept, "Accept a pending received order", (*pages.OrderDetails).Accept, func(ops *pages.Operations) string { return ops.AcceptOrder.Name() }))
	cmd.AddCommand(newOrderActionCmd(pages.ActionReject, "Reject a pending received order", (*pages.OrderDetails).Reject, func(ops *pages.Operations) string { return ops.RejectOrder.Name() }))
	cmd.AddCommand(newOrderActionCmd(pages.ActionDeliver, "Mark an accepted received order delivered", (*pages.OrderDetails).Deliver, func(ops *pages.Operations) string { return ops.DeliverOrder.Name() }))

	return cmd
}

type orderItem struct {
	medicineID int64
	quantity   int
}

// parseItems reads "medicine=quantity" pairs.
func parseItems(raw []string) ([]orderItem, error) {
	items := make([]orderItem, 0, len(raw))
	for _, entry := range raw {
		idPart, qtyPart, found := strings.Cut(entry, "=")
		if !found {
			qtyPart = "1"
		}
		id, err := parseID(strings.TrimSpace(idPart))
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", entry, err)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(qtyPart))
		if err != nil || qty < 1 {
			return nil, fmt.Errorf("item %q: quantity must be a positive number", entry)
		}
		items = append(items, orderItem{medicineID: id, quantity: qty})
	}
	if len(items) == 0 {
		return nil, pages.ErrEmptyBasket
	}
	return items, nil
}

func newOrderCreateCmd() *cobra.Command {
	var rawItems []string

	cmd := &cobra.Command{
		Use:     "create <supplier-id>",
		Short:   "Send an order to a supplier",
		Example: `  pharmadesk order create 4 --item 12=3 --item 7`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			supplierID, err := parseID(args[0])
			if err != nil {
				return err
			}
			items, err := parseItems(rawItems)
			if err != nil {
				return err
			}
			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				env := svc.Env()
				catalogue := pages.NewSupplierDetails(env, supplierID)
				catalogue.Sync()
				if err := awaitLoad(ctx, svc, env.Ops.SupplierMedicines.Name()); err != nil {
					return err
				}
				for _, item := range items {
					if _, err := catalogue.AddToBasket(item.medicineID); err != nil {
						return err
					}
					if env.Basket.Quantity(item.medicineID) > 0 {
						continue
					}
					if err := settleOp(ctx, svc, env.Ops.Medicine.Name(), catalogue.Sync); err != nil {
						return err
					}
					if env.Basket.Quantity(item.medicineID) == 0 {
						return fmt.Errorf("medicine %d is not available", item.medicineID)
					}
				}

				checkout := pages.NewSendOrder(env, supplierID)
				for _, item := range items {
					if err := checkout.SetQuantity(item.medicineID, item.quantity); err != nil {
						return err
					}
				}
				checkout.Sync()
				if err := awaitLoad(ctx, svc, env.Ops.SupplierDetails.Name()); err != nil {
					return err
				}
				printCheckout(cmd, checkout.Render())

				if err := checkout.Submit(); err != nil {
					return err
				}
				return settleOp(ctx, svc, env.Ops.CreateOrder.Name(), checkout.Sync)
			})
		},
	}

	cmd.Flags().StringArrayVar(&rawItems, "item", nil, "Medicine to order as id=quantity (repeatable)")

	return cmd
}

func printCheckout(cmd *cobra.Command, view pages.SendOrderView) {
	out := cmd.OutOrStdout()
	if view.SupplierState == views.StateRows {
		fmt.Fprintf(out, "Supplier: %s (%s)\n", view.SupplierName, view.SupplierLocation)
	}
	for _, item := range view.Items {
		fmt.Fprintf(out, "  %-30s x%-4d %s\n", item.Name, item.Quantity, item.Subtotal)
	}
	fmt.Fprintf(out, "Total: %s\n", view.Total.Title)
}

// loadOrder fetches a received order and adopts its status.
func loadOrder(ctx context.Context, svc *service.Service, raw string) (*pages.OrderDetails, error) {
	id, err := parseID(raw)
	if err != nil {
		return nil, err
	}
	env := svc.Env()
	details := pages.NewOrderDetails(env, id)
	details.Sync()
	if err := awaitLoad(ctx, svc, env.Ops.ReceivedOrder.Name()); err != nil {
		return nil, err
	}
	details.Sync()
	return details, nil
}

func printOrder(cmd *cobra.Command, view pages.OrderDetailsView) error {
	if err := listFailed(cmd, view.Lines); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Order %s  %s\n", view.Title, view.Badge.Title)
	if view.Pharmacy != nil {
		fmt.Fprintf(out, "Pharmacy: %s, %s, %s\n", view.Pharmacy.Name, view.Pharmacy.Location, view.Pharmacy.PhoneNumber)
	}
	for _, line := range view.Lines.Rows {
		fmt.Fprintf(out, "  %-30s %-6s %s\n", line.Name, line.Quantity, line.Price)
	}
	if view.Cost != "" {
		fmt.Fprintf(out, "Cost: %s\n", view.Cost)
	}
	if len(view.Actions) > 0 {
		names := make([]string, 0, len(view.Actions))
		for _, action := range view.Actions {
			names = append(names, action.Name)
		}
		fmt.Fprintf(out, "Actions: %s\n", strings.Join(names, ", "))
	}
	return nil
}

func newOrderShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a received order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				details, err := loadOrder(ctx, svc, args[0])
				if err != nil {
					return err
				}
				return printOrder(cmd, details.Render())
			})
		},
	}
}

func newOrderActionCmd(use, short string, act func(*pages.OrderDetails) error, op func(*pages.Operations) string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				details, err := loadOrder(ctx, svc, args[0])
				if err != nil {
					return err
				}
				if err := act(details); err != nil {
					return err
				}
				if err := settleOp(ctx, svc, op(svc.Env().Ops), details.Sync); err != nil {
					return err
				}
				return printOrder(cmd, details.Render())
			})
		},
	}
}
