package models

import "time"

// User представляет пользователя в системе
type User struct {
	ID           string    `json:"id"`            // UUID пользователя
	Username     string    `json:"username"`      // уникальный username
	PasswordHash string    `json:"password_hash"` // bcrypt хеш пароля
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
