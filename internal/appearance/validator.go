package appearance

import (
	"context"
	"log"
)

// AssetStore resolves asset references. A lookup error means the store was
// unreachable, not that the asset is missing.
type AssetStore interface {
	Exists(ctx context.Context, assetID string) (bool, error)
}

// RecordStore persists repaired appearance records.
type RecordStore interface {
	PutAppearance(ctx context.Context, rec *Record) error
}

// Validator repairs dangling asset references on an appearance record. It
// never fails the admission pipeline: repairs are silent and persisted.
type Validator struct {
	assets AssetStore
	store  RecordStore
	log    *log.Logger
}

func NewValidator(assets AssetStore, store RecordStore, logger *log.Logger) *Validator {
	return &Validator{assets: assets, store: store, log: logger}
}

// Repair resolves every wearable and baked-face asset reference. A slot with
// any missing asset is replaced whole with its system default; a baked face
// holding the undefined sentinel is regenerated. Returns whether the record
// changed. Repairing an already-repaired record is a no-op.
func (v *Validator) Repair(ctx context.Context, rec *Record) bool {
	changed := false
	for i := 0; i < SlotCount; i++ {
		if isDefaultSlot(i, rec.Slots[i]) {
			continue
		}
		if v.slotDangles(ctx, rec.Slots[i]) {
			v.log.Printf("appearance %s: slot %d has a dangling asset, reset to default", rec.Principal, i)
			rec.Slots[i] = DefaultSlot(i)
			changed = true
		}
	}
	for i := 0; i < FaceCount; i++ {
		if rec.Faces[i].AssetID == UndefinedAssetID {
			rec.Faces[i] = DefaultFace()
			changed = true
		}
	}
	if changed {
		rec.Serial++
		if err := v.store.PutAppearance(ctx, rec); err != nil {
			v.log.Printf("appearance %s: persist repaired record: %v", rec.Principal, err)
		}
	}
	return changed
}

// slotDangles reports whether any asset in the slot fails to resolve. The
// slot fails closed as a unit so a partial wearable set is never admitted.
// An unreachable asset store leaves the slot untouched.
func (v *Validator) slotDangles(ctx context.Context, s Slot) bool {
	for _, ref := range s {
		if ref.AssetID == "" {
			continue
		}
		ok, err := v.assets.Exists(ctx, ref.AssetID)
		if err != nil {
			return false
		}
		if !ok {
			return true
		}
	}
	return false
}
