package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runSync(ctx context.Context) error {
	result, err := c.queue.Replay(ctx)
	if err != nil {
		return err
	}

	c.io.Printf("Отправлено: %d, отложено: %d, failed: %d\n",
		result.Settled, result.Deferred, result.Failed)
	if result.Deferred > 0 && !c.client.Online() {
		c.io.Println("Сервер недоступен, оставшиеся изменения уедут позже")
	}
	return nil
}

func (c *Cli) runQueue(ctx context.Context) error {
	mutations, err := c.queue.List(ctx)
	if err != nil {
		return err
	}
	return c.render("queue", queueTemplate, mutations)
}

func (c *Cli) runRetry(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: plantit retry <mutation-id>")
	}

	result, err := c.queue.RetryFailed(ctx, args[0])
	if err != nil {
		return err
	}
	c.io.Printf("Отправлено: %d, отложено: %d, failed: %d\n",
		result.Settled, result.Deferred, result.Failed)
	return nil
}

func (c *Cli) runDiscard(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: plantit discard <mutation-id>")
	}

	if err := c.queue.Discard(ctx, args[0]); err != nil {
		return err
	}
	c.io.Println("Мутация выброшена из очереди")
	return nil
}
