package entity

import (
	"time"
)

// ProviderGoogle is the only identity provider wired today.
const ProviderGoogle = "google"

// User is the aggregate root for the identity domain.
// Email is the immutable natural key and is unique across users.
type User struct {
	ID             string
	Email          string
	Name           string
	ProfilePicture string
	OAuthProvider  string
	OAuthID        string
	IsActive       bool
	IsVerified     bool
	Gender         *string
	Residence      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// WithProviderSubject returns a copy carrying the provider subject id when
// the user has none yet. An existing id is never overwritten; changed reports
// whether a save is needed.
func (u User) WithProviderSubject(provider, subject string) (User, bool) {
	if u.OAuthID != "" || subject == "" {
		return u, false
	}
	u.OAuthID = subject
	if u.OAuthProvider == "" {
		u.OAuthProvider = provider
	}
	return u, true
}

// ProfilePatch lists the self-service mutable fields. Nil means "leave as is".
type ProfilePatch struct {
	Gender    *string
	Residence *string
}

// Apply returns a copy with the patch applied and whether any field changed.
func (u User) Apply(p ProfilePatch) (User, bool) {
	changed := false
	if p.Gender != nil && !equalPtr(u.Gender, p.Gender) {
		v := *p.Gender
		u.Gender = &v
		changed = true
	}
	if p.Residence != nil && !equalPtr(u.Residence, p.Residence) {
		v := *p.Residence
		u.Residence = &v
		changed = true
	}
	return u, changed
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
