package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrUnexpectedMethod = errors.New("unexpected signing method")
	ErrWrongTokenType   = errors.New("invalid token type: expected refresh token")
)

// JWTManager issues the app-facing tokens. The backend's own bearer token
// never leaves the service; see TokenVault.
type JWTManager struct {
	secretKey         string
	accessExpiryHours int
	refreshExpiryDays int
	now               func() time.Time
}

type Claims struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Identity is what a token is issued for.
type Identity struct {
	UserID    string
	SessionID string
	Phone     string
	Role      string
}

func NewJWTManager(secretKey string, accessExpiryHours, refreshExpiryDays int) *JWTManager {
	return &JWTManager{
		secretKey:         secretKey,
		accessExpiryHours: accessExpiryHours,
		refreshExpiryDays: refreshExpiryDays,
		now:               time.Now,
	}
}

func (j *JWTManager) expiry(tokenType TokenType) time.Time {
	if tokenType == AccessToken {
		return j.now().Add(time.Hour * time.Duration(j.accessExpiryHours))
	}
	return j.now().Add(time.Hour * 24 * time.Duration(j.refreshExpiryDays))
}

func (j *JWTManager) generateToken(id Identity, tokenType TokenType) (string, time.Time, error) {
	issued := j.now()
	expiryTime := j.expiry(tokenType)

	claims := &Claims{
		UserID:    id.UserID,
		SessionID: id.SessionID,
		Phone:     id.Phone,
		Role:      id.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(expiryTime),
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.secretKey))
	return signed, expiryTime, err
}

func (j *JWTManager) GenerateTokenPair(id Identity) (*TokenPair, error) {
	accessToken, expiresAt, err := j.generateToken(id, AccessToken)
	if err != nil {
		return nil, err
	}

	refreshToken, _, err := j.generateToken(id, RefreshToken)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt.Unix(),
	}, nil
}

func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnexpectedMethod
		}
		return []byte(j.secretKey), nil
	}, jwt.WithTimeFunc(j.now))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// ValidateAccessToken rejects refresh tokens presented as bearer tokens.
func (j *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != AccessToken {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (j *JWTManager) RefreshAccessToken(refreshTokenString string) (*TokenPair, error) {
	claims, err := j.ValidateToken(refreshTokenString)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != RefreshToken {
		return nil, ErrWrongTokenType
	}

	accessToken, expiresAt, err := j.generateToken(Identity{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		Phone:     claims.Phone,
		Role:      claims.Role,
	}, AccessToken)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenString,
		ExpiresAt:    expiresAt.Unix(),
	}, nil
}
