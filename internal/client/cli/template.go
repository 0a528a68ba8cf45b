package cli

const homeTemplate = `
=== plantit ===
{{- if .Stale}}
(offline: данные из кеша)
{{- end}}
{{- if gt .PendingMutations 0}}
({{.PendingMutations}} изменений ждут отправки)
{{- end}}

Грядки:  {{.VM.Villages.Total}}
Растения: {{.VM.Plants.Total}}

Задачи:  {{.VM.Tasks.Overdue}} просрочено, {{.VM.Tasks.DueToday}} на сегодня, {{.VM.Tasks.Upcoming}} впереди
{{- if .VM.Villages.Summaries}}

{{range .VM.Villages.Summaries}}  {{.Name}} ({{.PlantCount}} растений){{if .Location}} - {{.Location}}{{end}}
{{end}}
{{- end}}
{{- if .VM.Plants.Recent}}
Недавние растения:
{{range .VM.Plants.Recent}}  {{.Name}} ({{.Species}})  id={{.ID}}
{{end}}
{{- end}}`

const villagesTemplate = `
=== Грядки ===
{{range .Villages}}
  {{.Name}}{{if .Location}} - {{.Location}}{{end}}
  растений: {{.PlantCount}}  id={{.ID}}
{{else}}
  Пока пусто. Добавьте первую: plantit add village <name>
{{end}}`

const villageTemplate = `
=== {{.Village.Name}} ==={{if .Pending}} (изменения не отправлены){{end}}
{{- if .Village.Location}}
Место: {{.Village.Location}}
{{- end}}
{{- if .Village.Description}}
{{.Village.Description}}
{{- end}}

Растения:
{{range .Plants}}  {{.Name}} ({{.Species}}){{if .Pending}} *{{end}}{{if .HasPhoto}} [фото]{{end}}  id={{.ID}}
{{else}}  Пусто. Посадите что-нибудь: plantit add plant {{$.Village.ID}} <name>
{{end}}`

const plantTemplate = `
=== {{.Plant.Name}} ==={{if .Pending}} (изменения не отправлены){{end}}{{if .Deleted}} (удалено локально){{end}}
Вид:     {{.Plant.Species}}{{if .Plant.Variety}} / {{.Plant.Variety}}{{end}}
Грядка:  {{.Village.Name}}
{{- if .Plant.Tags}}
Теги:    {{range $i, $tag := .Plant.Tags}}{{if $i}}, {{end}}{{$tag}}{{end}}
{{- end}}
{{- if .Plant.Notes}}

{{.Plant.Notes}}
{{- end}}

Открытых задач: {{.OpenTasks}}   Фото: {{.PhotoCount}}
{{- if .Tasks}}

Задачи:
{{range .Tasks}}  [{{if eq .Status "completed"}}x{{else}} {{end}}] {{.Title}} (до {{.DueDate}})  id={{.ID}}
{{end}}
{{- end}}`

const tasksTemplate = `
=== Задачи ===

Просрочено:
{{range .Overdue}}  {{.Title}} (до {{.DueDate}}){{if .Pending}} *{{end}}  id={{.ID}}
{{else}}  -
{{end}}
Сегодня:
{{range .Today}}  {{.Title}}{{if .Pending}} *{{end}}  id={{.ID}}
{{else}}  -
{{end}}
Впереди:
{{range .Upcoming}}  {{.Title}} (до {{.DueDate}}){{if .Pending}} *{{end}}  id={{.ID}}
{{else}}  -
{{end}}
Выполнено за сессию: {{.Completed}}
`

const queueTemplate = `
=== Очередь мутаций ===
{{range .}}
  {{.Metadata.Action}} {{.Method}} {{.Path}}
  статус: {{.Status}}, попыток: {{.Attempts}}{{if .LastErr}}, ошибка: {{.LastErr}}{{end}}
  id={{.ID}}
{{else}}
  Очередь пуста
{{end}}`
