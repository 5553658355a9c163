package admission

import (
	"context"
	"log"
	"time"

	"auroragrid.io/internal/appearance"
	"auroragrid.io/internal/auth"
	"auroragrid.io/internal/protocol"
)

// Bootstrap ensures a profile, inventory skeleton, and appearance record
// exist for the account, creating first-login defaults as needed.
type Bootstrap struct {
	store            Store
	validator        *appearance.Validator
	requireInventory bool
	defaultArchive   string
	log              *log.Logger
}

func NewBootstrap(store Store, validator *appearance.Validator, requireInventory bool, defaultArchive string, logger *log.Logger) *Bootstrap {
	return &Bootstrap{
		store:            store,
		validator:        validator,
		requireInventory: requireInventory,
		defaultArchive:   defaultArchive,
		log:              logger,
	}
}

// Ensure runs before any lock or region state is touched; its failures are
// terminal with nothing to roll back.
func (b *Bootstrap) Ensure(ctx context.Context, account *auth.Account) ([]protocol.FolderRef, *appearance.Record, *protocol.LoginFailure) {
	newUser, err := b.ensureProfile(ctx, account)
	if err != nil {
		b.log.Printf("profile %s: %v", account.Principal, err)
		return nil, nil, protocol.Failf(protocol.ErrInternal, "could not load the account profile")
	}

	skeleton, fail := b.ensureInventory(ctx, account, newUser)
	if fail != nil {
		return nil, nil, fail
	}

	rec, err := b.store.Appearance(ctx, account.Principal)
	if err != nil {
		b.log.Printf("appearance %s: %v", account.Principal, err)
	}
	if rec == nil {
		rec = appearance.NewDefaultRecord(account.Principal)
		if err := b.store.PutAppearance(ctx, rec); err != nil {
			b.log.Printf("appearance %s: create default: %v", account.Principal, err)
		}
	}
	b.validator.Repair(ctx, rec)

	return skeleton, rec, nil
}

func (b *Bootstrap) ensureProfile(ctx context.Context, account *auth.Account) (bool, error) {
	prof, err := b.store.Profile(ctx, account.Principal)
	if err != nil {
		return false, err
	}
	if prof != nil {
		return prof.NewUser, nil
	}
	prof = &Profile{Principal: account.Principal, NewUser: true, Created: time.Now().UTC()}
	if err := b.store.PutProfile(ctx, prof); err != nil {
		return false, err
	}
	b.log.Printf("first login for %s (%s)", account.DisplayName(), account.Principal)
	return true, nil
}

func (b *Bootstrap) ensureInventory(ctx context.Context, account *auth.Account, newUser bool) ([]protocol.FolderRef, *protocol.LoginFailure) {
	skeleton, err := b.store.InventorySkeleton(ctx, account.Principal)
	if err != nil {
		b.log.Printf("inventory %s: %v", account.Principal, err)
	}
	if len(skeleton) > 0 || !b.requireInventory {
		return skeleton, nil
	}

	archive := ""
	if newUser {
		archive = b.defaultArchive
	}
	if err := b.store.CreateInventory(ctx, account.Principal, archive); err != nil {
		b.log.Printf("inventory %s: create: %v", account.Principal, err)
		return nil, protocol.Failf(protocol.ErrInventoryProblem, "could not create an inventory for %s", account.DisplayName())
	}
	skeleton, err = b.store.InventorySkeleton(ctx, account.Principal)
	if err != nil || len(skeleton) == 0 {
		return nil, protocol.Failf(protocol.ErrInventoryProblem, "the inventory service is unavailable for %s", account.DisplayName())
	}
	return skeleton, nil
}
