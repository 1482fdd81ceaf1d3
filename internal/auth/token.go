package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/authtrail/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is stamped into every service token and required on validation.
const Issuer = "authtrail"

// ErrMissingService is returned for tokens that do not name a calling service.
var ErrMissingService = errors.New("invalid token: missing service")

// TokenManager signs and validates service-to-service JWTs (HS256).
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// GenerateServiceToken creates a token for an upstream service. A zero ttl yields
// a token without expiry.
func (tm *TokenManager) GenerateServiceToken(service string, scopes []string, ttl time.Duration) (string, error) {
	if service == "" {
		return "", ErrMissingService
	}
	if bad := models.ValidateScopes(scopes); bad != "" {
		return "", fmt.Errorf("unknown scope %q: %w", bad, models.ErrBadRequest)
	}

	now := tm.now()
	claims := &models.ServiceClaims{
		Service: service,
		Scopes:  scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    Issuer,
			Subject:   service,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken verifies a token and returns its claims
func (tm *TokenManager) ValidateToken(tokenString string) (*models.ServiceClaims, error) {
	claims := &models.ServiceClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Service == "" {
		return nil, ErrMissingService
	}

	return claims, nil
}
