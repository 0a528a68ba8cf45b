// Package validation содержит правила для учетных данных,
// общие для клиента и сервера: клиент проверяет их до отправки,
// сервер - как последнюю линию обороны.
package validation

import (
	"fmt"
	"regexp"
)

// UsernamePattern определяет допустимый формат username:
// латинские буквы, цифры, дефис и нижнее подчеркивание, 3-50 символов
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)

const (
	// MinUsernameLen минимальная длина username
	MinUsernameLen = 3
	// MaxUsernameLen максимальная длина username
	MaxUsernameLen = 50
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 8
)

// ValidateUsername проверяет, что username соответствует требованиям
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	if len(username) < MinUsernameLen {
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLen)
	}

	if len(username) > MaxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	}

	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, - and _")
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}

	return nil
}
