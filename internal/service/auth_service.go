package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ideaportal/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// --- DTOs ---

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token         string    `json:"token"`
	ExpiresAt     time.Time `json:"expires_at"`
	EmployeeID    string    `json:"employee_id"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	ApprovalLevel int       `json:"approval_level"`
}

// TokenClaims identify the caller. Subject is the employee id the workflow acts for.
type TokenClaims struct {
	UserID        string `json:"uid"`
	Role          string `json:"role"`
	ApprovalLevel int    `json:"lvl"`
	jwt.RegisteredClaims
}

// --- Interface ---

type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
}

type authService struct {
	users  repository.UserRepository
	secret []byte
	ttl    time.Duration
	log    zerolog.Logger
}

func NewAuthService(users repository.UserRepository, secret []byte, ttl time.Duration, log zerolog.Logger) AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &authService{users: users, secret: secret, ttl: ttl, log: log}
}

// --- Implementation ---

func (s *authService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive || user.Employee == nil || !user.Employee.IsActive() || user.Role == nil {
		s.log.Warn().Str("username", req.Username).Msg("login refused for inactive account")
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(s.ttl)
	token, err := IssueToken(s.secret, TokenClaims{
		UserID:        user.ID.String(),
		Role:          user.Role.ID,
		ApprovalLevel: user.Role.ApprovalLevel,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.EmployeeID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &TokenResponse{
		Token:         token,
		ExpiresAt:     expiresAt,
		EmployeeID:    user.EmployeeID.String(),
		Name:          user.Employee.Name,
		Role:          user.Role.ID,
		ApprovalLevel: user.Role.ApprovalLevel,
	}, nil
}

// IssueToken signs claims with HS256
func IssueToken(secret []byte, claims TokenClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies an HS256 token and returns its claims with the employee id parsed
func ParseToken(secret []byte, tokenString string) (*TokenClaims, uuid.UUID, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, uuid.Nil, errors.New("invalid token")
	}

	employeeID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("invalid token subject: %w", err)
	}
	return claims, employeeID, nil
}

// HashPassword bcrypt-hashes a password for storage
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
