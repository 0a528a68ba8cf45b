// Package jwt выпускает и проверяет access токены сервера
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken возвращается для просроченных и поддельных токенов
var ErrInvalidToken = errors.New("invalid token")

// Claims данные, зашитые в access токен
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager выпускает access токены, подписанные HMAC-SHA256
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager создает менеджер токенов
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

// TTL возвращает срок жизни выпускаемых токенов
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Generate выпускает access токен для пользователя
func (m *Manager) Generate(userID, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate проверяет подпись и срок токена, возвращает claims
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
