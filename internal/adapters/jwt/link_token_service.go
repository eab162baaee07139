package token_adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "avito-parser-service"

// LinkTokenService реализует ChatLinkTokenPort на JWT с подписью HS256
type LinkTokenService struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

func NewLinkTokenService(signingKey string, ttl time.Duration) (*LinkTokenService, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("link signing key cannot be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("link token ttl must be positive")
	}
	return &LinkTokenService{signingKey: []byte(signingKey), ttl: ttl, now: time.Now}, nil
}

type linkClaims struct {
	ChatID string `json:"chat_id"`
	jwt.RegisteredClaims
}

// Issue выписывает токен для чата
func (s *LinkTokenService) Issue(ctx context.Context, chatID string) (string, error) {
	if chatID == "" {
		return "", fmt.Errorf("chat id cannot be empty")
	}

	now := s.now()
	claims := &linkClaims{
		ChatID: chatID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to sign link token", err, port.Fields{"component": "LinkTokenService"})
		return "", fmt.Errorf("failed to sign link token: %w", err)
	}
	return signed, nil
}

// Verify проверяет подпись, срок и издателя. Любая ошибка сводится к ErrInvalidLinkToken.
func (s *LinkTokenService) Verify(ctx context.Context, tokenString string) (string, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"component": "LinkTokenService"})

	token, err := jwt.ParseWithClaims(tokenString, &linkClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			logger.Debug("Link token expired", nil)
		} else {
			logger.Warn("Link token rejected", port.Fields{"error": err.Error()})
		}
		return "", domain.ErrInvalidLinkToken
	}

	claims, ok := token.Claims.(*linkClaims)
	if !ok || !token.Valid || claims.ChatID == "" {
		return "", domain.ErrInvalidLinkToken
	}
	return claims.ChatID, nil
}
