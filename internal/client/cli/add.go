package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/plantit/plantit/internal/client/queue"
	"github.com/plantit/plantit/internal/client/vmstate"
	"github.com/plantit/plantit/internal/models"
	"github.com/plantit/plantit/pkg/api"
)

func (c *Cli) runAdd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: plantit add <village|plant|task> ...")
	}

	switch args[0] {
	case "village":
		return c.addVillage(ctx, args[1:])
	case "plant":
		return c.addPlant(ctx, args[1:])
	case "task":
		return c.addTask(ctx, args[1:])
	default:
		return fmt.Errorf("unknown resource: %s. Use village, plant or task", args[0])
	}
}

func (c *Cli) addVillage(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: plantit add village <name> [location]")
	}

	in := api.VillageCreate{Name: args[0]}
	if len(args) > 1 {
		in.Location = strings.Join(args[1:], " ")
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal village: %w", err)
	}

	m := queue.NewMutation(
		"POST", "/api/v1/villages",
		body, body,
		models.MutationMetadata{Action: "village.create", Resource: "village"},
		"",
	)
	res, err := c.queue.EnqueueOrSend(ctx, m)
	if err != nil {
		return err
	}

	if res.Queued {
		c.io.Printf("Грядка %q сохранена локально, уедет на сервер при появлении сети\n", in.Name)
		return nil
	}

	var village api.Village
	if err := json.Unmarshal(res.Response.Body, &village); err != nil {
		return fmt.Errorf("failed to unmarshal village: %w", err)
	}
	c.io.Printf("Грядка %q создана, id=%s\n", village.Name, village.ID)
	return nil
}

func (c *Cli) addPlant(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: plantit add plant <village-id> <name> [species]")
	}

	in := api.PlantCreate{VillageID: args[0], Name: args[1]}
	if len(args) > 2 {
		in.Species = strings.Join(args[2:], " ")
	}

	store := vmstate.NewVillageStore(in.VillageID, c.proxy, c.queue, c.settled, c.logger)
	defer store.Close()
	if err := store.Load(ctx); err != nil {
		return describeFetchErr(err)
	}

	id, err := store.CreatePlant(ctx, in)
	if err != nil {
		return err
	}

	if strings.HasPrefix(id, "tmp-") {
		c.io.Printf("Растение %q сохранено локально, уедет на сервер при появлении сети\n", in.Name)
	} else {
		c.io.Printf("Растение %q посажено, id=%s\n", in.Name, id)
	}
	return nil
}

func (c *Cli) addTask(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: plantit add task <plant-id> <title> <due YYYY-MM-DD>")
	}

	in := api.TaskCreate{
		PlantID: args[0],
		Title:   args[1],
		DueDate: args[2],
	}

	store := vmstate.NewTasksStore(c.proxy, c.queue, c.settled, c.logger)
	defer store.Close()
	if err := store.Load(ctx); err != nil {
		return describeFetchErr(err)
	}

	id, err := store.QuickAdd(ctx, in)
	if err != nil {
		return err
	}

	if strings.HasPrefix(id, "tmp-") {
		c.io.Printf("Задача %q сохранена локально\n", in.Title)
	} else {
		c.io.Printf("Задача %q создана, id=%s\n", in.Title, id)
	}
	return nil
}
