package api

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"imagegen-server/internal/models"
)

// TokenVerifier проверяет межсервисные токены.
type TokenVerifier interface {
	VerifyInterServiceToken(tokenString string) (string, error)
}

// JWTVerifier проверяет HS256 токены с общим секретом.
type JWTVerifier struct {
	secret []byte
	logger *zap.Logger
}

var _ TokenVerifier = (*JWTVerifier)(nil)

// NewJWTVerifier создает верификатор. Пустой секрет - ошибка.
func NewJWTVerifier(secret string, logger *zap.Logger) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("inter-service JWT secret is empty")
	}
	return &JWTVerifier{secret: []byte(secret), logger: logger.Named("JWTVerifier")}, nil
}

// VerifyInterServiceToken возвращает subject (имя сервиса-источника).
func (v *JWTVerifier) VerifyInterServiceToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			v.logger.Warn("Inter-service token verification failed: expired")
			return "", models.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			v.logger.Warn("Inter-service token verification failed: malformed")
			return "", models.ErrTokenMalformed
		default:
			v.logger.Warn("Failed to parse inter-service token", zap.Error(err))
			return "", models.ErrTokenInvalid
		}
	}

	if claims, ok := token.Claims.(*jwt.RegisteredClaims); ok && token.Valid {
		v.logger.Debug("Inter-service token verified successfully", zap.String("subject", claims.Subject))
		return claims.Subject, nil
	}
	return "", models.ErrTokenInvalid
}
