package simhost

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"auroragrid.io/internal/grid"
)

// Grant is one capability set scoped to an (account, region-handle) pair.
type Grant struct {
	Principal    string
	RegionHandle uint64
	CapsPath     string
	SeedURL      string
	Created      time.Time
}

type capKey struct {
	principal string
	handle    uint64
}

// CapRegistry tracks live capability grants. Creating a circuit for an
// account supersedes every older grant that account holds.
type CapRegistry struct {
	mu     sync.Mutex
	grants map[capKey]*Grant
}

func NewCapRegistry() *CapRegistry {
	return &CapRegistry{grants: make(map[capKey]*Grant)}
}

// Mint revokes the account's existing grants and issues a fresh one for the
// target region. The seed URL is served by the region host.
func (r *CapRegistry) Mint(principal string, region *grid.Region) *Grant {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.grants {
		if k.principal == principal {
			delete(r.grants, k)
		}
	}
	path := fmt.Sprintf("/CAPS/%s0000/", uuid.NewString())
	g := &Grant{
		Principal:    principal,
		RegionHandle: region.Handle(),
		CapsPath:     path,
		SeedURL:      region.BaseURL + path,
		Created:      time.Now(),
	}
	r.grants[capKey{principal, g.RegionHandle}] = g
	return g
}

// Revoke drops the grant for one (account, region-handle) pair, if held.
func (r *CapRegistry) Revoke(principal string, handle uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.grants, capKey{principal, handle})
}

// Held reports whether the pair currently holds a grant.
func (r *CapRegistry) Held(principal string, handle uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.grants[capKey{principal, handle}]
	return ok
}

// Count returns the number of live grants (admin state).
func (r *CapRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.grants)
}
