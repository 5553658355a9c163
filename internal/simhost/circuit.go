package simhost

import (
	"context"

	"auroragrid.io/internal/appearance"
	"auroragrid.io/internal/grid"
	"auroragrid.io/internal/protocol"
)

// Admission flags carried on a circuit.
const (
	FlagViaLogin    uint32 = 1 << 0
	FlagViaLandmark uint32 = 1 << 1
)

// Circuit is one live-session handle offered to a simulation host. A fresh
// circuit is built per admission attempt and discarded if the host rejects.
type Circuit struct {
	Principal string
	FirstName string
	LastName  string

	SessionID       string
	SecureSessionID string
	CircuitCode     uint32
	CapsPath        string

	StartPosition protocol.Vec3
	Flags         uint32

	Appearance *appearance.Record
}

func (c *Circuit) Via() string {
	if c.Flags&FlagViaLandmark != 0 {
		return "landmark"
	}
	return "login"
}

// Rejection is a structured refusal from a simulation host (region full,
// incompatible version, ...). Transport failures are not Rejections but are
// treated identically for fallback purposes.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

// Connector creates and tears down agents on simulation hosts. Calls are
// blocking and bounded by the context deadline.
type Connector interface {
	CreateAgent(ctx context.Context, region *grid.Region, c *Circuit) error
	CloseAgent(ctx context.Context, region *grid.Region, sessionID string) error
}
