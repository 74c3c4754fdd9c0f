package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jwalitptl/radiology-api/pkg/clock"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims are the validated contents of a bearer credential.
type Claims struct {
	UserID   uuid.UUID
	IssuedAt time.Time
	Type     string
}

// TokenService issues and validates the access/refresh credential pair.
type TokenService interface {
	GenerateAccessToken(userID uuid.UUID) (string, error)
	GenerateRefreshToken(userID uuid.UUID) (string, error)
	ValidateAccessToken(token string) (*Claims, error)
	ValidateRefreshToken(token string) (*Claims, error)
}

type Config struct {
	Secret        string
	RefreshSecret string
	Expiry        time.Duration
	RefreshExpiry time.Duration
}

type jwtService struct {
	cfg   Config
	clock clock.Clock
}

func NewJWTService(cfg Config, clk clock.Clock) TokenService {
	return &jwtService{cfg: cfg, clock: clk}
}

func (s *jwtService) GenerateAccessToken(userID uuid.UUID) (string, error) {
	return s.generate(userID, tokenTypeAccess, s.cfg.Secret, s.cfg.Expiry)
}

func (s *jwtService) GenerateRefreshToken(userID uuid.UUID) (string, error) {
	return s.generate(userID, tokenTypeRefresh, s.cfg.RefreshSecret, s.cfg.RefreshExpiry)
}

func (s *jwtService) generate(userID uuid.UUID, typ, secret string, expiry time.Duration) (string, error) {
	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"typ": typ,
		"iat": now.Unix(),
		"exp": now.Add(expiry).Unix(),
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) ValidateAccessToken(token string) (*Claims, error) {
	return s.validate(token, tokenTypeAccess, s.cfg.Secret)
}

func (s *jwtService) ValidateRefreshToken(token string) (*Claims, error) {
	return s.validate(token, tokenTypeRefresh, s.cfg.RefreshSecret)
}

func (s *jwtService) validate(tokenStr, wantType, secret string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if typ, _ := claims["typ"].(string); typ != wantType {
		return nil, fmt.Errorf("unexpected token type")
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid subject in token: %w", err)
	}

	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil {
		return nil, fmt.Errorf("missing issue time in token")
	}

	return &Claims{
		UserID:   userID,
		IssuedAt: iat.Time,
		Type:     wantType,
	}, nil
}
