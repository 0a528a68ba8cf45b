package api

import "time"

// Статусы задач, совпадают с серверными значениями
const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// Поддерживаемые категории растений
const (
	PlantKindVegetable = "vegetable"
	PlantKindHerb      = "herb"
	PlantKindFlower    = "flower"
	PlantKindSucculent = "succulent"
	PlantKindTree      = "tree"
)

// Village представляет грядку/место выращивания
type Village struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ID          string    `json:"id"`          // UUID
	Name        string    `json:"name"`        // название (1..200 символов)
	Location    string    `json:"location"`    // опциональное местоположение
	Description string    `json:"description"` // опциональное описание
}

// VillageCreate представляет payload создания village
type VillageCreate struct {
	Name        string `json:"name"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// VillageUpdate представляет частичное обновление village
// nil поля не изменяются
type VillageUpdate struct {
	Name        *string `json:"name,omitempty"`
	Location    *string `json:"location,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Plant представляет растение, привязанное к village
type Plant struct {
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	ID         string    `json:"id"`         // UUID
	VillageID  string    `json:"village_id"` // UUID родительского village
	Name       string    `json:"name"`
	Species    string    `json:"species"`
	Variety    string    `json:"variety,omitempty"`
	Kind       string    `json:"kind"` // см. PlantKind* константы
	Notes      string    `json:"notes,omitempty"`
	AcquiredOn string    `json:"acquired_on,omitempty"` // ISO дата (YYYY-MM-DD)
	Tags       []string  `json:"tags"`
}

// PlantCreate представляет payload создания растения
type PlantCreate struct {
	VillageID  string   `json:"village_id"`
	Name       string   `json:"name"`
	Species    string   `json:"species"`
	Variety    string   `json:"variety,omitempty"`
	Kind       string   `json:"kind,omitempty"`
	Notes      string   `json:"notes,omitempty"`
	AcquiredOn string   `json:"acquired_on,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// PlantUpdate представляет частичное обновление растения
type PlantUpdate struct {
	Name    *string   `json:"name,omitempty"`
	Species *string   `json:"species,omitempty"`
	Variety *string   `json:"variety,omitempty"`
	Kind    *string   `json:"kind,omitempty"`
	Notes   *string   `json:"notes,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

// Task представляет задачу по уходу за растением
type Task struct {
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ID          string     `json:"id"`       // UUID
	PlantID     string     `json:"plant_id"` // UUID растения
	Title       string     `json:"title"`
	Notes       string     `json:"notes,omitempty"`
	DueDate     string     `json:"due_date"` // ISO дата (YYYY-MM-DD)
	Status      string     `json:"status"`   // pending | completed
}

// TaskCreate представляет payload создания задачи
type TaskCreate struct {
	PlantID string `json:"plant_id"`
	Title   string `json:"title"`
	Notes   string `json:"notes,omitempty"`
	DueDate string `json:"due_date"`
}

// TaskUpdate представляет частичное обновление задачи
// Status = completed проставляет completed_at на сервере
type TaskUpdate struct {
	Title   *string `json:"title,omitempty"`
	Notes   *string `json:"notes,omitempty"`
	DueDate *string `json:"due_date,omitempty"`
	Status  *string `json:"status,omitempty"`
}

// Photo представляет запись о фотографии растения
// Сами байты файла живут в media-хранилище, здесь только метаданные
type Photo struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	PlantID   string    `json:"plant_id"`
	FileName  string    `json:"file_name"`
	AltText   string    `json:"alt_text,omitempty"`
}

// PhotoCreate представляет payload attach фотографии
type PhotoCreate struct {
	PlantID  string `json:"plant_id"`
	FileName string `json:"file_name"`
	AltText  string `json:"alt_text,omitempty"`
}

// ErrorDetail описывает одну ошибку в error envelope
type ErrorDetail struct {
	Code    string `json:"code"`            // машинный код, например NOT_FOUND, CONFLICT
	Message string `json:"message"`         // человекочитаемое сообщение
	Field   string `json:"field,omitempty"` // имя поля при ошибке валидации
}

// ErrorResponse представляет envelope ошибки: {"error": {...}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// Коды ошибок, возвращаемые сервером
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeValidation   = "VALIDATION"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL"
)
