package cli

import (
	"fmt"
	"text/template"
)

// render выполняет text/template и пишет результат в IO клиента
func (c *Cli) render(name, tpl string, data any) error {
	t, err := template.New(name).Parse(tpl)
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	if err := t.Execute(c.io, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return nil
}
