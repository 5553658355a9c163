package appearance

// Wearable slot indices. The set is fixed by the viewer protocol.
const (
	SlotShape = iota
	SlotSkin
	SlotHair
	SlotEyes
	SlotShirt
	SlotPants
	SlotShoes
	SlotSocks
	SlotJacket
	SlotGloves
	SlotUndershirt
	SlotUnderpants
	SlotSkirt
	SlotCount
)

// Baked-texture face indices.
const (
	FaceHead = iota
	FaceUpper
	FaceLower
	FaceEyes
	FaceSkirt
	FaceHair
	FaceCount
)

// UndefinedAssetID is the reserved sentinel a simulation host writes into a
// baked face it could not compose.
const UndefinedAssetID = "ffffffff-ffff-ffff-ffff-ffffffffffff"

// WearableRef binds an inventory item to its underlying asset.
type WearableRef struct {
	ItemID  string `json:"item_id"`
	AssetID string `json:"asset_id"`
}

type Slot []WearableRef

type BakedFace struct {
	AssetID string `json:"asset_id"`
}

// Record is the per-principal appearance state carried into a session.
// Invariant: no asset id reachable from a slot or face may dangle when the
// record is handed to a simulation host.
type Record struct {
	Principal string
	Serial    int
	Slots     [SlotCount]Slot
	Faces     [FaceCount]BakedFace
}

// System default assets for the body-part slots. Clothing slots default to
// empty (nothing worn).
var defaultSlotAssets = map[int]string{
	SlotShape: "66c41e39-38f9-f75a-024e-585989bfab73",
	SlotSkin:  "77c41e39-38f9-f75a-024e-585989bfaba9",
	SlotHair:  "d342e6c0-b9d2-11dc-95ff-0800200c9a66",
	SlotEyes:  "4bb6fa4d-1cd2-498a-a84c-95c1a0e745a7",
}

// Default composite texture for a regenerated baked face.
const defaultFaceAssetID = "c228d1cf-4b5d-4ba8-84f4-899a0796aa97"

// DefaultSlot returns the system default contents for a slot index.
func DefaultSlot(i int) Slot {
	asset, ok := defaultSlotAssets[i]
	if !ok {
		return nil
	}
	return Slot{{ItemID: "", AssetID: asset}}
}

// DefaultFace returns a fresh default baked face entry.
func DefaultFace() BakedFace {
	return BakedFace{AssetID: defaultFaceAssetID}
}

// NewDefaultRecord builds the appearance created for a first-login account.
func NewDefaultRecord(principal string) *Record {
	rec := &Record{Principal: principal, Serial: 1}
	for i := 0; i < SlotCount; i++ {
		rec.Slots[i] = DefaultSlot(i)
	}
	for i := 0; i < FaceCount; i++ {
		rec.Faces[i] = DefaultFace()
	}
	return rec
}

// isDefaultSlot reports whether a slot already holds its system default.
func isDefaultSlot(i int, s Slot) bool {
	def := DefaultSlot(i)
	if len(s) != len(def) {
		return false
	}
	for j := range s {
		if s[j].AssetID != def[j].AssetID {
			return false
		}
	}
	return true
}
