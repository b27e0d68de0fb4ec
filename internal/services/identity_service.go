package services

import (
	"fmt"
	"time"

	"catalog-chat/internal/domain"
	catalog_errors "catalog-chat/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityService validates the access tokens issued by the login layer and
// turns them into connection identities.
type IdentityService struct {
	jwtSecret []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewIdentityService(secret string, accessTTL time.Duration) *IdentityService {
	return &IdentityService{
		jwtSecret: []byte(secret),
		accessTTL: accessTTL,
		now:       time.Now,
	}
}

type AccessClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func (s *IdentityService) IssueAccessToken(identity domain.Identity) (string, time.Time, error) {
	if identity.UserID == "" {
		return "", time.Time{}, fmt.Errorf("issue token: %w: missing user id", catalog_errors.ErrInvalidInput)
	}
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	claims := AccessClaims{
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *IdentityService) ParseAccessToken(tokenString string) (domain.Identity, error) {
	if tokenString == "" {
		return domain.Identity{}, catalog_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, catalog_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", catalog_errors.ErrUnauthorized, err)
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return domain.Identity{}, catalog_errors.ErrUnauthorized
	}

	return domain.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}
