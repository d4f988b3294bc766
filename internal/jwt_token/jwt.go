package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "ringside/pkg/domain"
	dErrors "ringside/pkg/domain-errors"
)

// Claims are the bearer token claims that assert a caller identity.
type Claims struct {
	UserID          string `json:"uid"`
	ClubID          string `json:"club_id,omitempty"`
	IsPlatformAdmin bool   `json:"is_platform_admin,omitempty"`
	jwt.RegisteredClaims
}

// Issuer and audience asserted on every ringside access token.
const (
	DefaultIssuer   = "ringside"
	DefaultAudience = "ringside-api"
)

// JWTService issues and verifies HS256 access tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
}

// GenerateAccessToken signs a token asserting identity. Used by the seed CLI
// and tests; production tokens come from the identity provider.
func (s *JWTService) GenerateAccessToken(identity id.Identity, expiresIn time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:          identity.UID.String(),
		IsPlatformAdmin: identity.Claims.IsPlatformAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	}
	if identity.ClubID != nil {
		claims.ClubID = identity.ClubID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// ValidateToken verifies signature, issuer, audience, and expiry.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthenticated, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid token claims")
	}
	return claims, nil
}
