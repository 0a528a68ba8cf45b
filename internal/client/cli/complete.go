package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/plantit/plantit/internal/client/vmstate"
	"github.com/plantit/plantit/pkg/api"
)

func (c *Cli) runComplete(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: plantit complete <task-id>")
	}

	store := vmstate.NewTasksStore(c.proxy, c.queue, c.settled, c.logger)
	defer store.Close()
	if err := store.Load(ctx); err != nil {
		return describeFetchErr(err)
	}

	if err := store.CompleteTask(ctx, args[0]); err != nil {
		return err
	}
	c.io.Println("Задача отмечена выполненной")
	return nil
}

// runWater создает задачу "полить" со сроком сегодня
func (c *Cli) runWater(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: plantit water <plant-id>")
	}

	store := vmstate.NewTasksStore(c.proxy, c.queue, c.settled, c.logger)
	defer store.Close()
	if err := store.Load(ctx); err != nil {
		return describeFetchErr(err)
	}

	_, err := store.QuickAdd(ctx, api.TaskCreate{
		PlantID: args[0],
		Title:   "Полить",
		DueDate: time.Now().UTC().Format("2006-01-02"),
	})
	if err != nil {
		return err
	}
	c.io.Println("Задача на полив добавлена на сегодня")
	return nil
}
