package api

// View-model payloads. Сервер отдает их с ETag заголовком,
// клиент ревалидирует через If-None-Match.

// VillageSummary короткая сводка по village для списков
type VillageSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Location   string `json:"location,omitempty"`
	PlantCount int    `json:"plant_count"`
}

// PlantSummary короткая сводка по растению
type PlantSummary struct {
	ID        string `json:"id"`
	VillageID string `json:"village_id"`
	Name      string `json:"name"`
	Species   string `json:"species"`
}

// TasksOverview агрегированные счетчики задач
type TasksOverview struct {
	Overdue   int `json:"overdue"`
	DueToday  int `json:"due_today"`
	Upcoming  int `json:"upcoming"`
	Completed int `json:"completed"`
}

// HomeVM view-model главного экрана (dashboard)
type HomeVM struct {
	Villages struct {
		Summaries []VillageSummary `json:"summaries"`
		Total     int              `json:"total"`
	} `json:"villages"`
	Plants struct {
		Recent []PlantSummary `json:"recent"`
		Total  int            `json:"total"`
	} `json:"plants"`
	Tasks TasksOverview `json:"tasks"`
}

// VillagesVM view-model списка villages
type VillagesVM struct {
	Villages []VillageSummary `json:"villages"`
}

// PlantCard карточка растения внутри village detail
type PlantCard struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Species      string   `json:"species"`
	Notes        string   `json:"notes,omitempty"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	Tags         []string `json:"tags"`
	HasPhoto     bool     `json:"has_photo"`
}

// VillageVM view-model экрана village detail.
// VillageETag - staleness token записи village: клиент предъявляет его
// в If-Match при обновлении, чтобы сервер поймал конфликт.
type VillageVM struct {
	Village     Village     `json:"village"`
	VillageETag string      `json:"village_etag"`
	Plants      []PlantCard `json:"plants"`
}

// PlantVM view-model экрана plant detail.
// PlantETag - staleness token записи растения для If-Match.
type PlantVM struct {
	Plant      Plant   `json:"plant"`
	PlantETag  string  `json:"plant_etag"`
	Village    Village `json:"village"`
	Tasks      []Task  `json:"tasks"`
	Photos     []Photo `json:"photos"`
	OpenTasks  int     `json:"open_tasks"`
	PhotoCount int     `json:"photo_count"`
}

// TasksVM view-model экрана списка задач, сгруппированного по срокам
type TasksVM struct {
	Overdue  []Task `json:"overdue"`
	Today    []Task `json:"today"`
	Upcoming []Task `json:"upcoming"`
}
