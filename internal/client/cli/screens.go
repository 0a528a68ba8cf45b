package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/plantit/plantit/internal/client/cache"
	"github.com/plantit/plantit/internal/client/vmstate"
	"github.com/plantit/plantit/pkg/api"
)

func (c *Cli) runHome(ctx context.Context) error {
	store := vmstate.NewHomeStore(c.proxy, c.queue, c.settled, c.logger)
	defer store.Close()

	if err := store.Load(ctx); err != nil {
		return describeFetchErr(err)
	}
	return c.render("home", homeTemplate, store.Get())
}

func (c *Cli) runVillages(ctx context.Context) error {
	res, err := c.proxy.Fetch(ctx, "/api/v1/vm/villages")
	if err != nil {
		return describeFetchErr(err)
	}

	var vm api.VillagesVM
	if err := json.Unmarshal(res.Body, &vm); err != nil {
		return fmt.Errorf("failed to unmarshal villages: %w", err)
	}
	if res.FromCache {
		c.io.Println("(offline: данные из кеша)")
	}
	return c.render("villages", villagesTemplate, vm)
}

func (c *Cli) runVillage(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: plantit village <id>")
	}

	store := vmstate.NewVillageStore(args[0], c.proxy, c.queue, c.settled, c.logger)
	defer store.Close()

	if err := store.Load(ctx); err != nil {
		return describeFetchErr(err)
	}
	return c.render("village", villageTemplate, store.Get())
}

func (c *Cli) runPlant(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: plantit plant <id>")
	}

	store := vmstate.NewPlantStore(args[0], c.proxy, c.queue, c.settled, c.logger)
	defer store.Close()

	if err := store.Load(ctx); err != nil {
		return describeFetchErr(err)
	}
	return c.render("plant", plantTemplate, store.Get())
}

func (c *Cli) runTasks(ctx context.Context) error {
	store := vmstate.NewTasksStore(c.proxy, c.queue, c.settled, c.logger)
	defer store.Close()

	if err := store.Load(ctx); err != nil {
		return describeFetchErr(err)
	}
	return c.render("tasks", tasksTemplate, store.Get())
}

// describeFetchErr переводит miss-offline в понятное пользователю сообщение
func describeFetchErr(err error) error {
	var miss *cache.MissOfflineError
	if errors.As(err, &miss) {
		return fmt.Errorf("offline и в кеше ничего нет, повторите когда появится сеть")
	}
	return err
}
