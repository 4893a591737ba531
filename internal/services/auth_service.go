package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"golang-food-checkout/pkg/apiclient"
	"golang-food-checkout/pkg/auth"
)

var (
	ErrInvalidPhone = errors.New("phone number is required")
	ErrInvalidOTP   = errors.New("otp code is required")
)

// TokenStore keeps backend bearer tokens. auth.TokenVault implements it.
type TokenStore interface {
	Put(ctx context.Context, userID, token string) error
	Revoke(ctx context.Context, userID string) error
}

// SessionDropper is the part of SessionService login and logout need.
type SessionDropper interface {
	Drop(ctx context.Context, userID string) error
	Release(ctx context.Context, userID string) error
}

type LoginResult struct {
	Tokens    *auth.TokenPair    `json:"tokens"`
	Customer  apiclient.Customer `json:"customer"`
	SessionID string             `json:"session_id"`
}

// AuthService logs customers in through the backend's OTP endpoints and
// issues this service's own tokens in exchange.
type AuthService struct {
	api      AuthAPI
	vault    TokenStore
	jwt      *auth.JWTManager
	sessions SessionDropper
	logger   *zap.Logger
}

func NewAuthService(api AuthAPI, vault TokenStore, jwt *auth.JWTManager, sessions SessionDropper, logger *zap.Logger) *AuthService {
	return &AuthService{
		api:      api,
		vault:    vault,
		jwt:      jwt,
		sessions: sessions,
		logger:   logger.Named("auth"),
	}
}

func (s *AuthService) SendOTP(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return validationError("send otp", ErrInvalidPhone, "")
	}
	if err := s.api.SendOTP(ctx, phone); err != nil {
		return backendError("send otp", err, nil)
	}
	return nil
}

// VerifyOTP exchanges the code for the backend's token, seals that token
// in the vault and returns a fresh token pair bound to a new session id.
func (s *AuthService) VerifyOTP(ctx context.Context, phone, code string) (*LoginResult, error) {
	const op = "verify otp"

	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if phone == "" {
		return nil, validationError(op, ErrInvalidPhone, "")
	}
	if code == "" {
		return nil, validationError(op, ErrInvalidOTP, "")
	}

	resp, err := s.api.VerifyOTP(ctx, phone, code)
	if err != nil {
		return nil, backendError(op, err, nil)
	}

	customer := resp.Customer
	if customer.Phone == "" {
		customer.Phone = phone
	}
	if customer.ID == "" {
		customer.ID = customer.Phone
	}
	if customer.Role == "" {
		customer.Role = "customer"
	}

	if err := s.vault.Put(ctx, customer.ID, resp.Token); err != nil {
		return nil, err
	}
	// a live session still holds the previous backend token
	if err := s.sessions.Release(ctx, customer.ID); err != nil {
		s.logger.Warn("releasing session", zap.String("user_id", customer.ID), zap.Error(err))
	}

	sessionID := uuid.NewString()
	tokens, err := s.jwt.GenerateTokenPair(auth.Identity{
		UserID:    customer.ID,
		SessionID: sessionID,
		Phone:     customer.Phone,
		Role:      customer.Role,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("customer logged in", zap.String("user_id", customer.ID), zap.String("session_id", sessionID))
	return &LoginResult{Tokens: tokens, Customer: customer, SessionID: sessionID}, nil
}

func (s *AuthService) Refresh(refreshToken string) (*auth.TokenPair, error) {
	return s.jwt.RefreshAccessToken(refreshToken)
}

// Logout revokes the sealed backend token and drops the session. Both are
// attempted; the first failure is returned.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	revokeErr := s.vault.Revoke(ctx, userID)
	if revokeErr != nil {
		s.logger.Warn("revoking backend token", zap.String("user_id", userID), zap.Error(revokeErr))
	}
	dropErr := s.sessions.Drop(ctx, userID)
	if dropErr != nil {
		s.logger.Warn("dropping session", zap.String("user_id", userID), zap.Error(dropErr))
	}
	if revokeErr != nil {
		return revokeErr
	}
	return dropErr
}
