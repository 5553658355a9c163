package admission

import (
	"context"
	"fmt"
	"log"

	"auroragrid.io/internal/auth"
	"auroragrid.io/internal/grid"
	"auroragrid.io/internal/protocol"
)

// Finalizer commits presence state and assembles the success payload.
type Finalizer struct {
	store  Store
	policy *grid.Policy
	cfg    grid.Config
	log    *log.Logger
}

func NewFinalizer(store Store, policy *grid.Policy, cfg grid.Config, logger *log.Logger) *Finalizer {
	return &Finalizer{store: store, policy: policy, cfg: cfg, log: logger}
}

// Commit persists the landing position (and first home, if unset), flips the
// online flag, and builds the response. The login lock itself is released by
// the pipeline guard, not here.
func (f *Finalizer) Commit(ctx context.Context, account *auth.Account, pres *Presence, res *Result, skeleton []protocol.FolderRef) (*protocol.LoginSuccess, error) {
	pres.LastRegion = res.Region.ID
	pres.LastPos = res.Position
	pres.LastLookAt = res.LookAt
	if pres.HomeRegion == "" {
		pres.HomeRegion = res.Region.ID
		pres.HomePos = centerPosition
		pres.HomeLookAt = defaultLookAt
	}
	pres.Online = true
	pres.OnlineRegion = res.Region.ID
	if err := f.store.PutPresence(ctx, pres); err != nil {
		return nil, fmt.Errorf("commit presence: %w", err)
	}
	if err := f.store.SetOnline(ctx, account.Principal, true, res.Region.ID); err != nil {
		return nil, fmt.Errorf("set online: %w", err)
	}

	friends, err := f.store.Friends(ctx, account.Principal)
	if err != nil {
		f.log.Printf("friends %s: %v", account.Principal, err)
	}
	gestures, err := f.store.Gestures(ctx, account.Principal)
	if err != nil {
		f.log.Printf("gestures %s: %v", account.Principal, err)
	}

	inventoryRoot := ""
	for _, fo := range skeleton {
		if fo.ParentID == "" {
			inventoryRoot = fo.FolderID
			break
		}
	}

	return &protocol.LoginSuccess{
		Type:            protocol.TypeLoginOK,
		ProtocolVersion: protocol.Version,

		Principal:   account.Principal,
		FirstName:   account.FirstName,
		LastName:    account.LastName,
		AccessLevel: account.AccessLevel,

		SessionID:       res.Circuit.SessionID,
		SecureSessionID: res.Circuit.SecureSessionID,
		CircuitCode:     res.Circuit.CircuitCode,
		SeedCapability:  res.Grant.SeedURL,

		Destination: protocol.RegionRef{
			RegionID: res.Region.ID,
			Name:     res.Region.Name,
			GridX:    res.Region.GridX,
			GridY:    res.Region.GridY,
			Handle:   res.Region.Handle(),
			BaseURL:  res.Region.BaseURL,
		},
		Reason:   res.Reason,
		Position: res.Position,
		LookAt:   res.LookAt,

		InventoryRoot:     inventoryRoot,
		InventorySkeleton: skeleton,
		Gestures:          gestures,
		Friends:           friends,

		Maturity:    f.cfg.Maturity,
		MaxMaturity: f.cfg.MaxMaturity,
		Grid: protocol.GridStrings{
			WelcomeMessage:      f.policy.WelcomeMessage(),
			DestinationGuideURL: f.cfg.DestinationGuideURL,
			EconomyURL:          f.cfg.EconomyURL,
			SunTextureID:        f.cfg.SunTextureID,
			CloudTextureID:      f.cfg.CloudTextureID,
			MoonTextureID:       f.cfg.MoonTextureID,
		},
	}, nil
}
