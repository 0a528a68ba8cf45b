package cli

import (
	"context"
	"fmt"

	"github.com/plantit/plantit/internal/validation"
)

func (c *Cli) runRegister(ctx context.Context) error {
	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	if err := validation.ValidateUsername(username); err != nil {
		return err
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return err
	}

	confirm, err := c.io.ReadPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	session, err := c.session.Register(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Printf("Registered and logged in as %s\n", session.Username)
	return nil
}
