package cli

import (
	"context"
	"fmt"
)

// Run выполняет одну команду клиента
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return c.runRegister(ctx)
	case "login":
		return c.runLogin(ctx)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	case "home":
		return c.runHome(ctx)
	case "villages":
		return c.runVillages(ctx)
	case "village":
		return c.runVillage(ctx, args)
	case "plant":
		return c.runPlant(ctx, args)
	case "tasks":
		return c.runTasks(ctx)
	case "add":
		return c.runAdd(ctx, args)
	case "rename":
		return c.runRename(ctx, args)
	case "remove":
		return c.runRemove(ctx, args)
	case "photo":
		return c.runPhoto(ctx, args)
	case "complete":
		return c.runComplete(ctx, args)
	case "water":
		return c.runWater(ctx, args)
	case "sync":
		return c.runSync(ctx)
	case "queue":
		return c.runQueue(ctx)
	case "retry":
		return c.runRetry(ctx, args)
	case "discard":
		return c.runDiscard(ctx, args)
	case "help", "":
		c.PrintUsage()
		return nil
	default:
		c.PrintUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

// PrintUsage печатает справку по командам
func (c *Cli) PrintUsage() {
	c.io.Println(`plantit - offline-first дневник ухода за растениями

Usage: plantit <command> [arguments]

Аккаунт:
  register                  зарегистрировать нового пользователя
  login                     войти
  logout                    выйти и забыть сессию
  status                    состояние сессии, сети и очереди

Экраны:
  home                      сводка: грядки, растения, задачи
  villages                  список грядок
  village <id>              грядка и ее растения
  plant <id>                растение: задачи, фото
  tasks                     задачи, сгруппированные по срокам

Изменения (работают и offline):
  add village <name> [location]
  add plant <village-id> <name> [species]
  add task <plant-id> <title> <due YYYY-MM-DD>
  rename <village-id> <new-name>
  remove plant <plant-id>
  photo <plant-id> <file-name> [alt-text]
  complete <task-id>        отметить задачу выполненной
  water <plant-id>          быстрая задача "полить" на сегодня

Очередь:
  sync                      отправить накопленные изменения
  queue                     показать очередь мутаций
  retry <mutation-id>       повторить failed мутацию
  discard <mutation-id>     выбросить failed мутацию`)
}
