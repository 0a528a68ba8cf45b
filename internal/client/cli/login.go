package cli

import (
	"context"
	"fmt"

	"github.com/plantit/plantit/internal/validation"
)

func (c *Cli) runLogin(ctx context.Context) error {
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

	session, err := c.session.Login(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Printf("Logged in as %s\n", session.Username)
	return nil
}
