package auth

import (
	"context"
	"time"
)

// Ban states carried on an account.
type BanState int

const (
	BanNone BanState = iota
	BanTemporary
	BanPermanent
)

// Account is the identity-service view of a principal. This subsystem treats
// it as read-only except for the TOS acceptance flag.
type Account struct {
	Principal   string
	FirstName   string
	LastName    string
	ScopeID     string
	AccessLevel int

	Ban        BanState
	BanExpires time.Time // meaningful only for BanTemporary

	TOSVersion string // last accepted terms-of-service version

	Created time.Time
}

func (a *Account) DisplayName() string {
	return a.FirstName + " " + a.LastName
}

// Identity is the external identity service.
type Identity interface {
	// LookupByName resolves an account by name within a scope. A missing
	// account is (nil, nil), not an error.
	LookupByName(ctx context.Context, scopeID, firstName, lastName string) (*Account, error)

	LookupByID(ctx context.Context, principal string) (*Account, error)

	// Authenticate exchanges a canonical credential for a short-lived
	// secure session token.
	Authenticate(ctx context.Context, principal, credential string, lifetime time.Duration) (string, error)

	// Create auto-provisions an account (anonymous login).
	Create(ctx context.Context, scopeID, firstName, lastName, credential string) (*Account, error)

	// SetAcceptedTOS persists a terms-of-service acceptance.
	SetAcceptedTOS(ctx context.Context, principal, version string) error
}
