package admission

import (
	"context"
	"time"

	"auroragrid.io/internal/appearance"
	"auroragrid.io/internal/protocol"
)

// Presence is the durable per-account position/status record. Only the
// finalizer (commit) and the rollback path mutate it.
type Presence struct {
	Principal string

	HomeRegion string
	HomePos    protocol.Vec3
	HomeLookAt protocol.Vec3

	LastRegion string
	LastPos    protocol.Vec3
	LastLookAt protocol.Vec3

	LoginLock    bool
	Online       bool
	OnlineRegion string
}

type Profile struct {
	Principal string
	NewUser   bool
	Created   time.Time
}

// Store is the durable state behind the admission pipeline.
type Store interface {
	// Presence returns the account's record, or a zero record if none is
	// stored yet.
	Presence(ctx context.Context, principal string) (*Presence, error)
	PutPresence(ctx context.Context, p *Presence) error
	SetLoginLock(ctx context.Context, principal string, locked bool) error
	SetOnline(ctx context.Context, principal string, online bool, regionID string) error

	// Profile returns nil when the account has never been seen.
	Profile(ctx context.Context, principal string) (*Profile, error)
	PutProfile(ctx context.Context, p *Profile) error

	InventorySkeleton(ctx context.Context, principal string) ([]protocol.FolderRef, error)
	// CreateInventory builds the root folder set, optionally seeded from a
	// named default archive.
	CreateInventory(ctx context.Context, principal, archive string) error

	// Appearance returns nil when no record exists.
	Appearance(ctx context.Context, principal string) (*appearance.Record, error)
	PutAppearance(ctx context.Context, rec *appearance.Record) error

	Friends(ctx context.Context, principal string) ([]protocol.FriendRef, error)
	Gestures(ctx context.Context, principal string) ([]protocol.GestureRef, error)
}
