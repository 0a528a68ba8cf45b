// Package etag вычисляет стабильные ETag для JSON payload.
package etag

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Compute возвращает sha256 ETag для payload.
// Payload сначала приводится к канонической JSON форме
// (encoding/json сортирует ключи map), поэтому ETag стабилен
// независимо от порядка полей источника.
func Compute(payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	// Перегоняем через any чтобы получить отсортированные ключи объектов
	var canonical any
	if err := json.Unmarshal(raw, &canonical); err != nil {
		return "", fmt.Errorf("failed to canonicalize payload: %w", err)
	}

	canonicalRaw, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("failed to marshal canonical payload: %w", err)
	}

	sum := sha256.Sum256(canonicalRaw)
	return hex.EncodeToString(sum[:]), nil
}

// Normalize убирает кавычки и weak-префикс из значения ETag заголовка
func Normalize(value string) string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "W/")
	return strings.Trim(value, `"`)
}
