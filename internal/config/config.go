// Package config загружает конфигурацию клиента и сервера из окружения.
// Переменные окружения имеют приоритет над значениями флагов.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// ClientConfig конфигурация CLI клиента
type ClientConfig struct {
	ServerURL string // PLANTIT_SERVER
	DBPath    string // PLANTIT_CLIENT_DB
}

// ServerConfig конфигурация сервера
type ServerConfig struct {
	Addr      string        // PLANTIT_ADDR
	DBPath    string        // PLANTIT_DB
	JWTSecret string        // PLANTIT_JWT_SECRET
	TokenTTL  time.Duration // PLANTIT_TOKEN_TTL
}

// LoadClient возвращает конфигурацию клиента.
// defaults берутся из аргументов (обычно значения флагов).
func LoadClient(serverURL, dbPath string) ClientConfig {
	// .env опционален, отсутствие файла не ошибка
	_ = godotenv.Load()

	return ClientConfig{
		ServerURL: envOr("PLANTIT_SERVER", serverURL),
		DBPath:    envOr("PLANTIT_CLIENT_DB", dbPath),
	}
}

// LoadServer возвращает конфигурацию сервера
func LoadServer(addr, dbPath string) ServerConfig {
	_ = godotenv.Load()

	ttl := 24 * time.Hour
	if raw := os.Getenv("PLANTIT_TOKEN_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			ttl = parsed
		}
	}

	return ServerConfig{
		Addr:      envOr("PLANTIT_ADDR", addr),
		DBPath:    envOr("PLANTIT_DB", dbPath),
		JWTSecret: envOr("PLANTIT_JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:  ttl,
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
