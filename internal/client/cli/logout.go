package cli

import "context"

func (c *Cli) runLogout(ctx context.Context) error {
	if err := c.session.Logout(ctx); err != nil {
		return err
	}
	c.io.Println("Logged out")
	return nil
}
