package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"rawsite/internal/models"
	"rawsite/internal/payment"
	"rawsite/internal/tasks"
)

// terminalCheckout stands in for the vendor widget: it shows the order and
// reads the result the operator pastes back from the vendor dashboard.
type terminalCheckout struct {
	readLine func() (string, error)
	out      io.Writer
}

func (t terminalCheckout) Open(ctx context.Context, opts payment.CheckoutOptions) payment.Outcome {
	fmt.Fprintf(t.out, "Order %s: %d %s (key %s)\n", opts.OrderID, opts.Amount, opts.Currency, opts.Key)
	for {
		fmt.Fprint(t.out, "Enter \"<payment_id> <signature>\", \"fail\" or \"cancel\": ")
		line, err := t.readLine()
		if err != nil {
			fmt.Fprintln(t.out)
			return payment.Outcome{Kind: payment.Dismissed}
		}
		if ctx.Err() != nil {
			return payment.Outcome{Kind: payment.Dismissed}
		}

		fields := strings.Fields(line)
		switch {
		case len(fields) == 1 && strings.EqualFold(fields[0], "cancel"):
			return payment.Outcome{Kind: payment.Dismissed}
		case len(fields) == 1 && strings.EqualFold(fields[0], "fail"):
			return payment.Outcome{Kind: payment.PaymentFailed}
		case len(fields) == 2:
			return payment.PaidWith(models.PaymentSignature{
				OrderID:   opts.OrderID,
				PaymentID: fields[0],
				Signature: fields[1],
			})
		}
		fmt.Fprintln(t.out, "Unrecognized input.")
	}
}

// Execute implements the go-flags Commander interface for DonateCommand.
func (c *DonateCommand) Execute(args []string) error {
	s, err := c.env.open(c.globals)
	if err != nil {
		return err
	}
	defer s.Close()

	bridge := payment.NewBridge(s.api, s.loader)
	var prompts io.Writer = os.Stdout
	if c.globals.JSON {
		prompts = os.Stderr
	}
	checkout := terminalCheckout{readLine: s.readLine, out: prompts}
	snap, err := bridge.Pay(context.Background(), models.OrderRequest{
		Amount:  c.Amount,
		Name:    c.Name,
		Email:   c.Email,
		Message: c.Message,
	}, checkout)
	if errors.Is(err, payment.ErrBelowMinimum) {
		return err
	}

	if c.globals.JSON {
		if encErr := json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"status":  snap.Status,
			"error":   snap.Error,
			"receipt": snap.Receipt,
		}); encErr != nil {
			return encErr
		}
	}

	switch snap.Status {
	case payment.Success:
		if !c.globals.JSON {
			fmt.Printf("Thank you! Payment %s for %d received.\n", snap.Receipt.ID, snap.Receipt.Amount)
		}
		return nil
	case payment.Failed:
		return fmt.Errorf("donation failed: %s", snap.Error)
	}
	if err != nil {
		return err
	}
	if !c.globals.JSON {
		fmt.Println("Payment cancelled.")
	}
	return nil
}

// Execute implements the go-flags Commander interface for SupportersCommand.
func (c *SupportersCommand) Execute(args []string) error {
	s, err := c.env.open(c.globals)
	if err != nil {
		return err
	}
	defer s.Close()

	snap, err := tasks.NewDonateRefreshHandler(s.api, nil).Fetch(context.Background())
	if err != nil {
		return err
	}

	if c.globals.JSON {
		return json.NewEncoder(os.Stdout).Encode(snap)
	}

	fmt.Printf("Raised ₹%d from %d supporters\n", snap.Stats.Total, snap.Stats.Count)
	now := time.Now()
	for _, sp := range snap.Supporters {
		fmt.Printf("  %s  ₹%d  %s\n", sp.DisplayName(), sp.Amount, models.TimeAgo(now, sp.CreatedAt))
	}
	return nil
}
