package auth

import (
	"fmt"
	"strconv"

	"github.com/DRSN-tech/checkout-backend/internal/cfg"
	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/golang-jwt/jwt/v5"
)

// Claims - утверждения токена провайдера идентификации. Subject содержит id пользователя.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier проверяет HS256-токены, выпущенные внешним провайдером.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTVerifier(cfg *cfg.AuthCfg) *JWTVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &JWTVerifier{
		secret: []byte(cfg.JWTSecret),
		parser: jwt.NewParser(opts...),
	}
}

// Verify возвращает пользователя запроса. Любая ошибка проверки - e.ErrUnauthorized.
// Неизвестная или пустая роль понижается до обычного пользователя.
func (v *JWTVerifier) Verify(token string) (domain.Identity, error) {
	var claims Claims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", e.ErrUnauthorized, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return domain.Identity{}, fmt.Errorf("%w: invalid subject %q", e.ErrUnauthorized, claims.Subject)
	}

	role := domain.RoleUser
	if domain.Role(claims.Role) == domain.RoleAdmin {
		role = domain.RoleAdmin
	}

	return domain.Identity{UserID: userID, Role: role}, nil
}

// Issue подписывает токен. Используется в тестах и локальной разработке вместо провайдера.
func Issue(secret string, identity domain.Identity, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = strconv.FormatInt(identity.UserID, 10)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             string(identity.Role),
		RegisteredClaims: claims,
	})
	return token.SignedString([]byte(secret))
}
