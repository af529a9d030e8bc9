package token

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet: base62, безопасен для URL без экранирования.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Kind определяет назначение и длину токена.
type Kind int

const (
	PublicID Kind = iota
	EditToken
	CancelToken
)

func (k Kind) Length() int {
	switch k {
	case PublicID:
		return 22
	case EditToken:
		return 48
	case CancelToken:
		return 64
	default:
		return 0
	}
}

func (k Kind) String() string {
	switch k {
	case PublicID:
		return "public_id"
	case EditToken:
		return "edit_token"
	case CancelToken:
		return "cancel_token"
	default:
		return "unknown"
	}
}

// Generator выдаёт токены. Вынесен в интерфейс, чтобы в тестах
// подставлять детерминированную реализацию (например, для коллизий).
type Generator interface {
	Generate(kind Kind) (string, error)
}

type nanoGenerator struct{}

// NewGenerator возвращает генератор на crypto/rand (через go-nanoid).
func NewGenerator() Generator {
	return nanoGenerator{}
}

func (nanoGenerator) Generate(kind Kind) (string, error) {
	return Generate(kind)
}

// Generate: равномерная выборка из Alphabet фиксированной длины.
// Уникальность не проверяется: коллизию ловит уникальный индекс в хранилище.
func Generate(kind Kind) (string, error) {
	n := kind.Length()
	if n == 0 {
		return "", fmt.Errorf("token: unknown kind %d", kind)
	}
	s, err := gonanoid.Generate(Alphabet, n)
	if err != nil {
		return "", fmt.Errorf("token: generate %s: %w", kind, err)
	}
	return s, nil
}

// Valid проверяет форму токена: длину и алфавит.
func Valid(kind Kind, s string) bool {
	if len(s) != kind.Length() || len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		default:
			return false
		}
	}
	return true
}
