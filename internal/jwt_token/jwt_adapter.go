package jwttoken

import (
	id "ringside/pkg/domain"
	dErrors "ringside/pkg/domain-errors"
)

// ToIdentity converts verified claims into the caller identity services see.
func ToIdentity(claims *Claims) (*id.Identity, error) {
	uid, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "token has no subject")
	}
	identity := &id.Identity{
		UID:    uid,
		Claims: id.Claims{IsPlatformAdmin: claims.IsPlatformAdmin},
	}
	if claims.ClubID != "" {
		club, err := id.ParseClubID(claims.ClubID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeUnauthenticated, "token has a malformed club")
		}
		identity.ClubID = &club
	}
	return identity, nil
}

// IdentityVerifier adapts JWTService to the auth middleware.
type IdentityVerifier struct {
	service *JWTService
}

func NewIdentityVerifier(service *JWTService) *IdentityVerifier {
	return &IdentityVerifier{service: service}
}

func (v *IdentityVerifier) Verify(tokenString string) (*id.Identity, error) {
	claims, err := v.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToIdentity(claims)
}
