package protocol

// Placement reasons reported in a successful login.
const (
	ReasonHome = "home"
	ReasonLast = "last"
	ReasonSafe = "safe"
	ReasonURL  = "url"
)

// Maturity ratings.
const (
	MaturityGeneral  = "P"
	MaturityModerate = "M"
	MaturityAdult    = "A"
)

// LOGIN (viewer -> grid)
type LoginRequest struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	Principal  string `json:"principal,omitempty"` // account id, when known
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Credential string `json:"credential"` // plain or "$1$"-prefixed md5 hex

	StartLocation string `json:"start_location,omitempty"` // home | last | region-name[@grid-host]&x&y&z

	Channel  string `json:"channel,omitempty"` // viewer software name
	Version  string `json:"version,omitempty"` // viewer version string
	Platform string `json:"platform,omitempty"`
	MAC      string `json:"mac,omitempty"` // hardware signature
	ID0      string `json:"id0,omitempty"` // hardware hash
	Address  string `json:"address,omitempty"`
	ScopeID  string `json:"scope_id,omitempty"`

	AcceptTOS  bool   `json:"accept_tos,omitempty"`
	TOSVersion string `json:"tos_version,omitempty"`
}

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// RegionRef describes the landing region of a successful admission.
type RegionRef struct {
	RegionID string `json:"region_id"`
	Name     string `json:"name"`
	GridX    int    `json:"grid_x"`
	GridY    int    `json:"grid_y"`
	Handle   uint64 `json:"handle"`
	BaseURL  string `json:"base_url"`
}

type FolderRef struct {
	FolderID string `json:"folder_id"`
	ParentID string `json:"parent_id,omitempty"`
	Name     string `json:"name"`
	Kind     int    `json:"kind"`
	Version  int    `json:"version"`
}

type FriendRef struct {
	Principal  string `json:"principal"`
	MyFlags    int    `json:"my_flags"`
	TheirFlags int    `json:"their_flags"`
}

type GestureRef struct {
	ItemID  string `json:"item_id"`
	AssetID string `json:"asset_id"`
}

// GridStrings are grid-wide display values handed to every viewer.
type GridStrings struct {
	WelcomeMessage      string `json:"welcome_message,omitempty"`
	DestinationGuideURL string `json:"destination_guide_url,omitempty"`
	EconomyURL          string `json:"economy_url,omitempty"`
	SunTextureID        string `json:"sun_texture_id,omitempty"`
	CloudTextureID      string `json:"cloud_texture_id,omitempty"`
	MoonTextureID       string `json:"moon_texture_id,omitempty"`
}

// LOGIN_OK (grid -> viewer)
type LoginSuccess struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	Principal   string `json:"principal"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	AccessLevel int    `json:"access_level"`

	SessionID       string `json:"session_id"`
	SecureSessionID string `json:"secure_session_id"`
	CircuitCode     uint32 `json:"circuit_code"`
	SeedCapability  string `json:"seed_capability"`

	Destination RegionRef `json:"destination"`
	Reason      string    `json:"reason"` // home | last | safe | url
	Position    Vec3      `json:"position"`
	LookAt      Vec3      `json:"look_at"`

	InventoryRoot     string      `json:"inventory_root"`
	InventorySkeleton []FolderRef `json:"inventory_skeleton,omitempty"`
	Gestures          []GestureRef `json:"gestures,omitempty"`
	Friends           []FriendRef  `json:"friends,omitempty"`

	Maturity    string      `json:"maturity"`
	MaxMaturity string      `json:"max_maturity"`
	Grid        GridStrings `json:"grid"`
}

// LOGIN_DENIED (grid -> viewer)
type LoginDenied struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
	TOSText         string `json:"tos_text,omitempty"`
}

// ADMISSION (grid -> admin feed)
type AdmissionEvent struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq"`
	Principal       string `json:"principal"`
	Name            string `json:"name,omitempty"`
	Outcome         string `json:"outcome"` // "ok" or a terminal E_* code
	Region          string `json:"region,omitempty"`
	Reason          string `json:"reason,omitempty"`
	DurationMS      int64  `json:"duration_ms"`
	At              string `json:"at"` // RFC 3339
}
