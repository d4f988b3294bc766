package domain

// Claims are the boolean custom claims carried on an identity's token.
type Claims struct {
	IsPlatformAdmin bool `json:"isPlatformAdmin"`
}

// Identity is the authenticated caller of an operation, as asserted by a
// verified bearer token. ClubID is nil when the identity has no club affiliation.
type Identity struct {
	UID    UserID
	ClubID *ClubID
	Claims Claims
}

// IsPlatformAdmin reports whether the identity carries the platform admin claim.
func (i *Identity) IsPlatformAdmin() bool {
	return i != nil && i.Claims.IsPlatformAdmin
}

// AffiliatedWith reports whether the identity belongs to any of the given clubs.
func (i *Identity) AffiliatedWith(clubs ...ClubID) bool {
	if i == nil || i.ClubID == nil || i.ClubID.IsNil() {
		return false
	}
	for _, c := range clubs {
		if c == *i.ClubID {
			return true
		}
	}
	return false
}
