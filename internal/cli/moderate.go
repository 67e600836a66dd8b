package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"rawsite/internal/console"
	"rawsite/internal/models"
)

const timeLayout = "2006-01-02 15:04"

func printEmails(asJSON bool, v console.EmailsView) error {
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"page":  v.Page,
			"pages": v.TotalPages,
			"stats": v.Stats,
			"data":  v.Rows,
		})
	}

	fmt.Printf("Emails: %d total, %d new, %d contacted, %d archived\n", v.Stats.Total, v.Stats.New, v.Stats.Contacted, v.Stats.Archived)
	if len(v.Rows) == 0 {
		fmt.Println("No emails.")
	} else {
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tEMAIL\tSOURCE\tSTATUS\tCREATED")
		for _, e := range v.Rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Email, e.Source, e.Status, e.CreatedAt.Format(timeLayout))
		}
		tw.Flush()
	}
	fmt.Printf("Page %d of %d\n", v.Page, v.TotalPages)
	return nil
}

func printVisitors(asJSON bool, v console.VisitorsView) error {
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"page":  v.Page,
			"pages": v.TotalPages,
			"stats": v.Stats,
			"data":  v.Rows,
		})
	}

	fmt.Printf("Visitors: %d total, %d unique, %d today\n", v.Stats.Total, v.Stats.Unique, v.Stats.Today)
	if len(v.Rows) == 0 {
		fmt.Println("No visitors.")
	} else {
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tIP\tLOCATION\tDEVICE\tPAGE\tREFERRER\tTIME")
		for _, e := range v.Rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.IP, e.Location(), console.CopyDevice(e), e.Page, e.Referrer, e.CreatedAt.Format(timeLayout))
		}
		tw.Flush()
	}
	fmt.Printf("Page %d of %d\n", v.Page, v.TotalPages)
	return nil
}

func printBlocked(asJSON bool, v console.BlockedView) error {
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"stats": v.Stats,
			"data":  v.Rows,
		})
	}

	fmt.Printf("Blocked: %d total, %d active\n", v.Stats.Total, v.Stats.Active)
	if len(v.Rows) == 0 {
		fmt.Println("No blocked IPs.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tIP\tREASON\tREQUESTS\tSTATE\tCREATED")
	for _, b := range v.Rows {
		state := "lifted"
		if b.Active {
			state = "active"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", b.ID, b.IP, b.Reason, b.RequestCount, state, b.CreatedAt.Format(timeLayout))
	}
	return tw.Flush()
}

// Execute implements the go-flags Commander interface for EmailsCommand.
func (c *EmailsCommand) Execute(args []string) error {
	filter, err := models.ParseEmailFilter(c.Status)
	if err != nil {
		return err
	}

	s, err := c.env.open(c.globals)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	con, err := s.console(ctx, false)
	if err != nil {
		return err
	}
	con.Emails.Restore(c.Page, filter, c.Search)
	if err := con.SwitchTab(ctx, console.TabEmails); err != nil {
		return fmt.Errorf("fetch emails: %w", err)
	}
	return printEmails(c.globals.JSON, con.Emails.View())
}

// Execute implements the go-flags Commander interface for EmailStatusCommand.
func (c *EmailStatusCommand) Execute(args []string) error {
	if err := requireFlag("id", c.ID); err != nil {
		return err
	}
	status, err := models.ParseEmailStatus(c.Status)
	if err != nil {
		return err
	}

	s, err := c.env.open(c.globals)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	con, err := s.console(ctx, false)
	if err != nil {
		return err
	}
	if err := mutationResult(con.UpdateEmailStatus(ctx, c.ID, status)); err != nil {
		return err
	}
	if !c.globals.JSON {
		fmt.Printf("Email %s marked %s.\n", c.ID, status)
	}
	return printEmails(c.globals.JSON, con.Emails.View())
}

// Execute implements the go-flags Commander interface for EmailDeleteCommand.
func (c *EmailDeleteCommand) Execute(args []string) error {
	if err := requireFlag("id", c.ID); err != nil {
		return err
	}

	s, err := c.env.open(c.globals)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	con, err := s.console(ctx, c.Yes)
	if err != nil {
		return err
	}
	if err := mutationResult(con.DeleteEmail(ctx, c.ID)); err != nil {
		return err
	}
	if !c.globals.JSON {
		fmt.Printf("Email %s deleted.\n", c.ID)
	}
	return printEmails(c.globals.JSON, con.Emails.View())
}

// Execute implements the go-flags Commander interface for VisitorsCommand.
func (c *VisitorsCommand) Execute(args []string) error {
	s, err := c.env.open(c.globals)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	con, err := s.console(ctx, false)
	if err != nil {
		return err
	}
	con.Visitors.Restore(c.Page, c.Search)
	if err := con.SwitchTab(ctx, console.TabVisitors); err != nil {
		return fmt.Errorf("fetch visitors: %w", err)
	}
	return printVisitors(c.globals.JSON, con.Visitors.View())
}

// Execute implements the go-flags Commander interface for VisitorDeleteCommand.
func (c *VisitorDeleteCommand) Execute(args []string) error {
	if err := requireFlag("id", c.ID); err != nil {
		return err
	}

	s, err := c.env.open(c.globals)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	con, err := s.console(ctx, c.Yes)
	if err != nil {
		return err
	}
	if err := mutationResult(con.DeleteVisitor(ctx, c.ID)); err != nil {
		return err
	}
	if !c.globals.JSON {
		fmt.Printf("Visitor record %s deleted.\n", c.ID)
	}
	return printVisitors(c.globals.JSON, con.Visitors.View())
}

// Execute implements the go-flags Commander interface for BlockCommand.
func (c *BlockCommand) Execute(args []string) error {
	if err := requireFlag("ip", c.IP); err != nil {
		return err
	}

	s, err := c.env.open(c.globals)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	con, err := s.console(ctx, c.Yes)
	if err != nil {
		return err
	}
	if err := mutationResult(con.BlockVisitorIP(ctx, c.IP, c.Reason)); err != nil {
		return err
	}
	if !c.globals.JSON {
		fmt.Printf("Blocked %s.\n", c.IP)
	}
	return printBlocked(c.globals.JSON, con.Blocked.View())
}

// Execute implements the go-flags Commander interface for BlockedCommand.
func (c *BlockedCommand) Execute(args []string) error {
	s, err := c.env.open(c.globals)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	con, err := s.console(ctx, false)
	if err != nil {
		return err
	}
	if err := con.SwitchTab(ctx, console.TabBlocked); err != nil {
		return fmt.Errorf("fetch blocked: %w", err)
	}
	return printBlocked(c.globals.JSON, con.Blocked.View())
}

// Execute implements the go-flags Commander interface for BlockToggleCommand.
func (c *BlockToggleCommand) Execute(args []string) error {
	if err := requireFlag("id", c.ID); err != nil {
		return err
	}

	s, err := c.env.open(c.globals)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	con, err := s.console(ctx, false)
	if err != nil {
		return err
	}
	if err := mutationResult(con.ToggleBlock(ctx, c.ID)); err != nil {
		return err
	}
	return printBlocked(c.globals.JSON, con.Blocked.View())
}

// Execute implements the go-flags Commander interface for BlockDeleteCommand.
func (c *BlockDeleteCommand) Execute(args []string) error {
	if err := requireFlag("id", c.ID); err != nil {
		return err
	}

	s, err := c.env.open(c.globals)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	con, err := s.console(ctx, c.Yes)
	if err != nil {
		return err
	}
	if err := mutationResult(con.DeleteBlock(ctx, c.ID)); err != nil {
		return err
	}
	if !c.globals.JSON {
		fmt.Printf("Block entry %s removed.\n", c.ID)
	}
	return printBlocked(c.globals.JSON, con.Blocked.View())
}
