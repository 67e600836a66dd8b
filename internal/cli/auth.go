package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"rawsite/internal/console"
)

// Execute implements the go-flags Commander interface for LoginCommand.
func (c *LoginCommand) Execute(args []string) error {
	if err := requireFlag("email", c.Email); err != nil {
		return err
	}
	if err := requireFlag("password", c.Password); err != nil {
		return err
	}

	s, err := c.env.open(c.globals)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	con := console.New(s.api, s.store, nil)
	if err := con.Login(ctx, c.Email, c.Password); err != nil {
		var loginErr *console.LoginError
		if errors.As(err, &loginErr) {
			return errors.New(loginErr.Message)
		}
		return err
	}
	admin, err := con.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("token rejected right after login: %w", err)
	}

	if c.globals.JSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{"email": admin.Email})
	}
	fmt.Printf("Signed in as %s\n", admin.Email)
	return nil
}

// Execute implements the go-flags Commander interface for LogoutCommand.
func (c *LogoutCommand) Execute(args []string) error {
	s, err := c.env.open(c.globals)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := console.New(s.api, s.store, nil).Logout(); err != nil {
		return fmt.Errorf("clear admin token: %w", err)
	}
	fmt.Println("Signed out.")
	return nil
}

// Execute implements the go-flags Commander interface for WhoamiCommand.
func (c *WhoamiCommand) Execute(args []string) error {
	s, err := c.env.open(c.globals)
	if err != nil {
		return err
	}
	defer s.Close()

	con, err := s.console(context.Background(), false)
	if err != nil {
		return err
	}

	if c.globals.JSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{"email": con.Admin().Email})
	}
	fmt.Println(con.Admin().Email)
	return nil
}
