package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/plantit/plantit/internal/client/vmstate"
	"github.com/plantit/plantit/pkg/api"
)

func (c *Cli) runRename(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: plantit rename <village-id> <new-name>")
	}
	name := strings.Join(args[1:], " ")

	store := vmstate.NewVillageStore(args[0], c.proxy, c.queue, c.settled, c.logger)
	defer store.Close()
	if err := store.Load(ctx); err != nil {
		return describeFetchErr(err)
	}

	if err := store.UpdateVillage(ctx, api.VillageUpdate{Name: &name}); err != nil {
		return err
	}

	if store.Get().Pending {
		c.io.Printf("Грядка переименована в %q локально, уедет на сервер при появлении сети\n", name)
	} else {
		c.io.Printf("Грядка переименована в %q\n", name)
	}
	return nil
}

func (c *Cli) runRemove(ctx context.Context, args []string) error {
	if len(args) < 2 || args[0] != "plant" {
		return fmt.Errorf("usage: plantit remove plant <plant-id>")
	}

	store := vmstate.NewPlantStore(args[1], c.proxy, c.queue, c.settled, c.logger)
	defer store.Close()
	if err := store.Load(ctx); err != nil {
		return describeFetchErr(err)
	}
	name := store.Get().Plant.Name

	if err := store.DeletePlant(ctx); err != nil {
		return err
	}

	if store.Get().Pending {
		c.io.Printf("Растение %q удалено локально, уедет на сервер при появлении сети\n", name)
	} else {
		c.io.Printf("Растение %q удалено\n", name)
	}
	return nil
}

func (c *Cli) runPhoto(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: plantit photo <plant-id> <file-name> [alt-text]")
	}

	in := api.PhotoCreate{FileName: args[1]}
	if len(args) > 2 {
		in.AltText = strings.Join(args[2:], " ")
	}

	store := vmstate.NewPlantStore(args[0], c.proxy, c.queue, c.settled, c.logger)
	defer store.Close()
	if err := store.Load(ctx); err != nil {
		return describeFetchErr(err)
	}

	id, err := store.AttachPhoto(ctx, in)
	if err != nil {
		return err
	}

	if strings.HasPrefix(id, "tmp-") {
		c.io.Printf("Фото %q записано локально\n", in.FileName)
	} else {
		c.io.Printf("Фото %q прикреплено, id=%s\n", in.FileName, id)
	}
	return nil
}
