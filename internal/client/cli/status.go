package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runStatus(ctx context.Context) error {
	if c.session.IsAuthenticated(ctx) {
		c.io.Println("Session:  active")
	} else {
		c.io.Println("Session:  not authenticated")
	}

	if c.client.CheckHealth(ctx) {
		c.io.Println("Network:  online")
	} else {
		c.io.Println("Network:  offline")
	}

	pending, err := c.queue.PendingCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count pending mutations: %w", err)
	}
	failed, err := c.queue.FailedCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count failed mutations: %w", err)
	}
	c.io.Printf("Queue:    %d pending, %d failed\n", pending, failed)
	return nil
}
