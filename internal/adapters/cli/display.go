package cli

import (
	"fmt"
	"io"
	"strings"

	"order-desk/internal/app"
	"order-desk/internal/core"
)

func rule(out io.Writer, ch string) {
	fmt.Fprintln(out, strings.Repeat(ch, 72))
}

func printOrders(out io.Writer, result *app.OrderListResult) {
	fmt.Fprintln(out)
	rule(out, "=")
	fmt.Fprintln(out, "  ORDERS")
	rule(out, "=")
	if len(result.Orders) == 0 {
		fmt.Fprintln(out, "  No orders found.")
		rule(out, "=")
		return
	}
	fmt.Fprintf(out, "  %-12s %-22s %-10s %-10s %s\n", "NUMBER", "CUSTOMER", "PAYMENT", "PACKING", "CREATED")
	rule(out, "-")
	for _, o := range result.Orders {
		customer := ""
		if o.Customer != nil {
			customer = o.Customer.Name
		}
		fmt.Fprintf(out, "  %-12s %-22s %-10s %-10s %s\n",
			o.OrderNumber, truncate(customer, 22), o.PaymentStatus, o.PackingStatus, o.CreatedAt.Format("2006-01-02 15:04"))
	}
	rule(out, "=")
}

func printOrder(out io.Writer, o *core.Order) {
	fmt.Fprintln(out)
	rule(out, "=")
	fmt.Fprintf(out, "  ORDER %s (id %d)\n", o.OrderNumber, o.ID)
	fmt.Fprintf(out, "  Payment  : %s / %s\n", o.PaymentType, o.PaymentStatus)
	fmt.Fprintf(out, "  Packing  : %s\n", o.PackingStatus)
	if o.Notes != "" {
		fmt.Fprintf(out, "  Notes    : %s\n", o.Notes)
	}
	rule(out, "=")
	fmt.Fprintf(out, "  %-3s %-34s %8s %12s %12s\n", "#", "ITEM", "QTY", "UNIT", "TOTAL")
	rule(out, "-")
	for _, it := range o.Items {
		name := fmt.Sprintf("variant %d", it.VariantID)
		if it.Variant != nil {
			name = variantLabel(it.Variant)
		}
		if it.IsPreorder {
			name += " [PO]"
		}
		fmt.Fprintf(out, "  %-3d %-34s %8s %12d %12d\n",
			it.LineNumber, truncate(name, 34), it.Quantity.String(), it.UnitPrice, it.LineTotal())
	}
	rule(out, "-")
	fmt.Fprintf(out, "  %-59s %12d\n", "Items total ("+o.Currency+")", o.ItemsTotal())
	fmt.Fprintf(out, "  %-59s %12d\n", "Delivery fee", o.DeliveryFee)
	fmt.Fprintf(out, "  %-59s %12d\n", "Grand total", o.GrandTotal())
	if len(o.Procurements) > 0 {
		rule(out, "-")
		for _, p := range o.Procurements {
			fmt.Fprintf(out, "  to buy #%d: %s x variant %d (%s)\n", p.ID, p.NeededQty.String(), p.VariantID, p.Status)
		}
	}
	rule(out, "=")
}

func printProcurements(out io.Writer, result *app.ProcurementListResult) {
	fmt.Fprintln(out)
	rule(out, "=")
	fmt.Fprintln(out, "  PROCUREMENTS")
	rule(out, "=")
	if len(result.Procurements) == 0 {
		fmt.Fprintln(out, "  Nothing to buy.")
		rule(out, "=")
		return
	}
	fmt.Fprintf(out, "  %-6s %-8s %-34s %8s  %s\n", "ID", "ORDER", "ITEM", "QTY", "STATUS")
	rule(out, "-")
	for _, p := range result.Procurements {
		name := fmt.Sprintf("variant %d", p.VariantID)
		if p.Variant != nil {
			name = variantLabel(p.Variant)
		}
		fmt.Fprintf(out, "  %-6d %-8d %-34s %8s  %s\n", p.ID, p.OrderID, truncate(name, 34), p.NeededQty.String(), p.Status)
	}
	rule(out, "=")
}

func variantLabel(v *core.Variant) string {
	if v.OptionSignature == "" || v.OptionSignature == core.DefaultOptionSignature {
		return v.ProductName
	}
	return v.ProductName + " (" + v.OptionSignature + ")"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
