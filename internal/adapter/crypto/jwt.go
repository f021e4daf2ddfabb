package crypto

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/coderunner.net/internal/config"
	"gitlab.com/coderunner.net/internal/core/ports/primary"
)

var _ primary.TokenVerifier = (*JWTServiceImpl)(nil)

var (
	ErrInvalidToken = fmt.Errorf("invalid token")
)

// JWTServiceImpl signs and checks service tokens with a shared HMAC secret.
type JWTServiceImpl struct {
	HMACSecretKey string
}

func NewJWTService(jwtConfig *config.JwtConfig) *JWTServiceImpl {
	return &JWTServiceImpl{
		HMACSecretKey: jwtConfig.Secret,
	}
}

// GenerateTokenHMAC signs claims, adding a one hour expiry when none is set.
func (J JWTServiceImpl) GenerateTokenHMAC(ctx context.Context, method string, claims map[string]interface{}) (string, error) {
	signingMethod := jwt.GetSigningMethod(method)
	if signingMethod == nil {
		return "", fmt.Errorf("unsupported signing method: %s", method)
	}
	if _, ok := signingMethod.(*jwt.SigningMethodHMAC); !ok {
		return "", fmt.Errorf("signing method %s is not HMAC", method)
	}

	if _, exists := claims["exp"]; !exists {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}

	tok := jwt.NewWithClaims(signingMethod, jwt.MapClaims(claims))
	return tok.SignedString([]byte(J.HMACSecretKey))
}

func (J JWTServiceImpl) VerifyTokenHMAC(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, ErrInvalidToken
	}
	parsedToken, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(J.HMACSecretKey), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return false, fmt.Errorf("%w: expired", ErrInvalidToken)
		}
		return false, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return parsedToken.Valid, nil
}
