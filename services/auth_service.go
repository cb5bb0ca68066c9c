package services

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Operator — аккаунт, допущенный к административным операциям
// (ручные свипы, сброс карантина).
type Operator struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

const RoleOperator = "operator"

// AuthService проверяет учётные данные единственного оператора,
// заданного окружением. Пароль хранится только как bcrypt-хеш.
type AuthService struct {
	adminEmail        string
	adminPasswordHash string
}

func NewAuthService(adminEmail, adminPasswordHash string) *AuthService {
	return &AuthService{
		adminEmail:        adminEmail,
		adminPasswordHash: adminPasswordHash,
	}
}

// Login сверяет email и пароль с настроенным оператором. Любое
// несовпадение отвечает одной и той же ошибкой, без уточнений.
func (s *AuthService) Login(_ context.Context, email, password string) (*Operator, error) {
	if s.adminEmail == "" || s.adminPasswordHash == "" {
		return nil, ErrLoginNotConfigured
	}

	if !strings.EqualFold(strings.TrimSpace(email), s.adminEmail) {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminPasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &Operator{Email: s.adminEmail, Role: RoleOperator}, nil
}
