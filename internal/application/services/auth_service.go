package services

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/futuretasks/core/internal/domain/entities"
	"github.com/futuretasks/core/internal/infrastructure/config"
	"github.com/futuretasks/core/internal/infrastructure/logger"
	"github.com/futuretasks/core/internal/ports"
)

// tokenSubject is the only principal; the application has a single owner.
const tokenSubject = "owner"

// Claims represents the JWT claims
type Claims struct {
	jwt.RegisteredClaims
}

// AuthService handles the optional single-user token flow
type AuthService struct {
	cfg    config.AuthConfig
	clock  Clock
	logger *logger.Logger
}

var _ ports.AuthService = (*AuthService)(nil)

// NewAuthService creates a new auth service
func NewAuthService(cfg config.AuthConfig, clock Clock, appLogger *logger.Logger) *AuthService {
	if clock == nil {
		clock = RealClock{}
	}
	if appLogger == nil {
		appLogger = logger.NewNop()
	}
	return &AuthService{
		cfg:    cfg,
		clock:  clock,
		logger: appLogger.WithComponent("auth_service"),
	}
}

// HashPassword produces the bcrypt hash expected in auth.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password must not be empty", entities.ErrInvalidInput)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Enabled reports whether requests must carry a token.
func (s *AuthService) Enabled() bool {
	return s.cfg.Enabled
}

// IssueToken exchanges the owner password for a signed access token.
func (s *AuthService) IssueToken(ctx context.Context, password string) (*ports.TokenResponse, error) {
	if !s.cfg.Enabled {
		return nil, fmt.Errorf("%w: authentication is disabled", entities.ErrInvalidInput)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: wrong password", entities.ErrUnauthorized)
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.cfg.ExpiresIn)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
			Subject:   tokenSubject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Infow("Access token issued", "token_id", claims.ID, "expires_at", expiresAt)

	return &ports.TokenResponse{Token: tokenString, ExpiresAt: expiresAt}, nil
}

// ValidateToken validates a JWT token and returns claims
func (s *AuthService) ValidateToken(tokenString string) (*ports.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithTimeFunc(s.clock.Now), jwt.WithIssuer(s.cfg.Issuer))

	if err != nil {
		return nil, fmt.Errorf("%w: invalid token: %v", entities.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject != tokenSubject {
		return nil, fmt.Errorf("%w: invalid token claims", entities.ErrUnauthorized)
	}

	return &ports.Claims{
		Subject: claims.Subject,
		TokenID: claims.ID,
	}, nil
}
