package admission

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"time"

	"auroragrid.io/internal/appearance"
	"auroragrid.io/internal/auth"
	"auroragrid.io/internal/grid"
	"auroragrid.io/internal/protocol"
	"auroragrid.io/internal/simhost"
)

// Result is a successfully provisioned session.
type Result struct {
	Circuit  *simhost.Circuit
	Grant    *simhost.Grant
	Region   *grid.Region
	Position protocol.Vec3
	LookAt   protocol.Vec3
	Reason   string
}

// Provisioner walks the candidate list until a simulation host accepts the
// agent. Failed regions are marked unsafe; accepted ones safe.
type Provisioner struct {
	connector      simhost.Connector
	caps           *simhost.CapRegistry
	attemptTimeout time.Duration
	log            *log.Logger
}

func NewProvisioner(connector simhost.Connector, caps *simhost.CapRegistry, attemptTimeout time.Duration, logger *log.Logger) *Provisioner {
	if attemptTimeout <= 0 {
		attemptTimeout = 15 * time.Second
	}
	return &Provisioner{connector: connector, caps: caps, attemptTimeout: attemptTimeout, log: logger}
}

// Provision tries each candidate in list order. A rejection or transport
// failure advances to the next candidate; capability grants from the failed
// attempt are revoked before moving on. Exhaustion is terminal.
func (p *Provisioner) Provision(ctx context.Context, account *auth.Account, rec *appearance.Record, cand *Candidates, sessionID, secureSessionID string) (*Result, *protocol.LoginFailure) {
	lastReason := ""
	for _, src := range cand.Sources {
		for _, reg := range src.Regions {
			grant := p.caps.Mint(account.Principal, reg)
			circuit := &simhost.Circuit{
				Principal:       account.Principal,
				FirstName:       account.FirstName,
				LastName:        account.LastName,
				SessionID:       sessionID,
				SecureSessionID: secureSessionID,
				CircuitCode:     rand.Uint32(),
				CapsPath:        grant.CapsPath,
				StartPosition:   src.Position,
				Flags:           FlagsFor(src),
				Appearance:      rec,
			}

			attemptCtx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
			err := p.connector.CreateAgent(attemptCtx, reg, circuit)
			cancel()
			if err == nil {
				reg.MarkSafe()
				return &Result{
					Circuit:  circuit,
					Grant:    grant,
					Region:   reg,
					Position: src.Position,
					LookAt:   src.LookAt,
					Reason:   src.Reason,
				}, nil
			}

			reg.MarkUnsafe()
			p.caps.Revoke(account.Principal, reg.Handle())
			var rej *simhost.Rejection
			if errors.As(err, &rej) {
				lastReason = rej.Reason
			}
			p.log.Printf("create agent %s on %s (%s): %v", account.Principal, reg.Name, src.Name, err)
		}
	}

	if lastReason != "" {
		return nil, protocol.Failf(protocol.ErrInternal, "No Region Found: %s", lastReason)
	}
	return nil, protocol.Failf(protocol.ErrInternal, "No Region Found")
}

// FlagsFor derives the admission flags for an attempt from its source.
func FlagsFor(src Source) uint32 {
	flags := simhost.FlagViaLogin
	if src.ViaLandmark {
		flags |= simhost.FlagViaLandmark
	}
	return flags
}
