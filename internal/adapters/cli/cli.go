package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"order-desk/internal/app"
)

// Usage lists the one-shot commands Run understands.
const Usage = `Usage: app <command> [args]

  migrate                              apply the database schema
  create-user <username> <password> [role]
  orders [limit]                       newest orders first
  order <id|order-number>              order detail with items and procurements
  procurements [STATUS]                TO_BUY, ORDERED or ARRIVED
  procure <id> <STATUS> [notes]        advance a procurement
  draft "<customer message>"           draft an order with the assistant`

// ErrUsage is returned for unknown commands or missing arguments.
var ErrUsage = errors.New("invalid usage")

// Run executes a one-shot CLI command, writing human-readable output to out.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageError("no command given")
	}

	switch args[0] {
	case "migrate":
		// The schema is applied while the runtime is built.
		fmt.Fprintln(out, "Schema is up to date.")
		return nil

	case "create-user":
		if len(args) < 3 {
			return usageError("create-user needs <username> <password>")
		}
		role := ""
		if len(args) > 3 {
			role = args[3]
		}
		u, err := svc.CreateUser(ctx, args[1], args[2], role)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Created user %s (id %d, role %s).\n", u.Username, u.ID, u.Role)
		return nil

	case "orders":
		limit := 20
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return usageError("limit must be a positive integer")
			}
			limit = n
		}
		result, err := svc.ListOrders(ctx, app.ListOrdersRequest{Limit: limit})
		if err != nil {
			return err
		}
		printOrders(out, result)
		return nil

	case "order":
		if len(args) < 2 {
			return usageError("order needs <id|order-number>")
		}
		result, err := svc.GetOrder(ctx, args[1])
		if err != nil {
			return err
		}
		printOrder(out, result.Order)
		return nil

	case "procurements", "procs":
		status := ""
		if len(args) > 1 {
			status = args[1]
		}
		result, err := svc.ListProcurements(ctx, status)
		if err != nil {
			return err
		}
		printProcurements(out, result)
		return nil

	case "procure":
		if len(args) < 3 {
			return usageError("procure needs <id> <STATUS>")
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return usageError("procurement id must be an integer")
		}
		req := app.UpdateProcurementRequest{ProcurementID: id, Status: args[2]}
		if len(args) > 3 {
			notes := strings.Join(args[3:], " ")
			req.Notes = &notes
		}
		p, err := svc.UpdateProcurement(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Procurement %d is now %s.\n", p.ID, p.Status)
		return nil

	case "draft":
		if len(args) < 2 {
			return usageError(`draft needs "<customer message>"`)
		}
		draft, err := svc.DraftOrder(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(draft)

	default:
		return usageError("unknown command: " + args[0])
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%w: %s\n\n%s", ErrUsage, msg, Usage)
}
