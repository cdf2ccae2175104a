// Package auth implements the single-operator dashboard login. There is no
// user table; the operator credential comes from configuration.
package auth

import (
	"context"
	"crypto/subtle"
	"time"

	"go.uber.org/zap"

	"github.com/quietline/quietline/errors"
	"github.com/quietline/quietline/pkg/config"
	"github.com/quietline/quietline/pkg/jwt"
)

// TokenPair is the result of a successful login or refresh
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    time.Duration `json:"expires_in"`
}

// Service defines the interface for operator authentication
type Service interface {
	// Login verifies the operator credential and issues a token pair
	Login(ctx context.Context, username, password string) (*TokenPair, error)

	// Refresh exchanges a valid refresh token for a new token pair
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
}

// AuthService implements Service against the configured operator credential
type AuthService struct {
	cfg    *config.Config
	jwt    *jwt.Manager
	logger *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(cfg *config.Config, manager *jwt.Manager, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{cfg: cfg, jwt: manager, logger: logger}
}

var _ Service = (*AuthService)(nil)

// Login verifies the operator credential and issues a token pair
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Auth.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Auth.Password)) == 1
	if !userOK || !passOK {
		s.logger.Warn("failed login attempt", zap.String("username", username))
		return nil, errors.ErrInvalidCredentials()
	}

	return s.issueTokens(username)
}

// Refresh exchanges a valid refresh token for a new token pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	subject, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, errors.ErrInvalidToken()
	}
	if subject != s.cfg.Auth.Username {
		return nil, errors.ErrInvalidToken()
	}

	return s.issueTokens(subject)
}

func (s *AuthService) issueTokens(username string) (*TokenPair, error) {
	access, err := s.jwt.GenerateAccessToken(username)
	if err != nil {
		return nil, errors.ErrInternal(err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(username)
	if err != nil {
		return nil, errors.ErrInternal(err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.jwt.GetAccessExpiry(),
	}, nil
}
