package appearance

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
)

type fakeAssets struct {
	missing map[string]bool
	err     error
}

func (f *fakeAssets) Exists(_ context.Context, assetID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return !f.missing[assetID], nil
}

type memRecords struct {
	puts int
}

func (m *memRecords) PutAppearance(_ context.Context, _ *Record) error {
	m.puts++
	return nil
}

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func wornRecord() *Record {
	rec := NewDefaultRecord("p1")
	rec.Slots[SlotShirt] = Slot{
		{ItemID: "i1", AssetID: "asset-shirt-a"},
		{ItemID: "i2", AssetID: "asset-shirt-b"},
	}
	rec.Slots[SlotPants] = Slot{{ItemID: "i3", AssetID: "asset-pants"}}
	return rec
}

func TestRepair_DanglingSlotReplacedWhole(t *testing.T) {
	rec := wornRecord()
	store := &memRecords{}
	v := NewValidator(&fakeAssets{missing: map[string]bool{"asset-shirt-b": true}}, store, discard())

	changed := v.Repair(context.Background(), rec)
	if !changed {
		t.Fatalf("expected repair")
	}
	// The whole shirt slot resets, not just the dangling entry.
	if len(rec.Slots[SlotShirt]) != len(DefaultSlot(SlotShirt)) {
		t.Fatalf("shirt slot = %v", rec.Slots[SlotShirt])
	}
	// Other slots untouched.
	if len(rec.Slots[SlotPants]) != 1 || rec.Slots[SlotPants][0].AssetID != "asset-pants" {
		t.Fatalf("pants slot altered: %v", rec.Slots[SlotPants])
	}
	if store.puts != 1 {
		t.Fatalf("puts = %d", store.puts)
	}
}

func TestRepair_Idempotent(t *testing.T) {
	rec := wornRecord()
	store := &memRecords{}
	v := NewValidator(&fakeAssets{missing: map[string]bool{"asset-pants": true}}, store, discard())

	if changed := v.Repair(context.Background(), rec); !changed {
		t.Fatalf("first pass should repair")
	}
	serial := rec.Serial
	if changed := v.Repair(context.Background(), rec); changed {
		t.Fatalf("second pass should be a no-op")
	}
	if rec.Serial != serial {
		t.Fatalf("serial moved on no-op: %d -> %d", serial, rec.Serial)
	}
}

func TestRepair_UndefinedFaceRegenerated(t *testing.T) {
	rec := NewDefaultRecord("p1")
	rec.Faces[FaceUpper] = BakedFace{AssetID: UndefinedAssetID}
	v := NewValidator(&fakeAssets{}, &memRecords{}, discard())

	if changed := v.Repair(context.Background(), rec); !changed {
		t.Fatalf("expected face regeneration")
	}
	if rec.Faces[FaceUpper].AssetID == UndefinedAssetID {
		t.Fatalf("face still undefined")
	}
}

func TestRepair_UnreachableAssetStoreLeavesSlots(t *testing.T) {
	rec := wornRecord()
	v := NewValidator(&fakeAssets{err: fmt.Errorf("asset service down")}, &memRecords{}, discard())

	if changed := v.Repair(context.Background(), rec); changed {
		t.Fatalf("outage must not wipe wearables")
	}
	if len(rec.Slots[SlotShirt]) != 2 {
		t.Fatalf("shirt slot = %v", rec.Slots[SlotShirt])
	}
}
