package admission

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"auroragrid.io/internal/appearance"
	"auroragrid.io/internal/auth"
	"auroragrid.io/internal/grid"
	"auroragrid.io/internal/protocol"
	"auroragrid.io/internal/simhost"
)

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

// memStore is an in-memory admission.Store.
type memStore struct {
	mu       sync.Mutex
	presence map[string]*Presence
	profiles map[string]*Profile
	folders  map[string][]protocol.FolderRef
	apps     map[string]*appearance.Record
	friends  map[string][]protocol.FriendRef
	gestures map[string][]protocol.GestureRef

	lockFlags map[string]bool
	online    map[string]bool
	onlineAt  map[string]string

	failCreateInventory bool
}

func newMemStore() *memStore {
	return &memStore{
		presence:  map[string]*Presence{},
		profiles:  map[string]*Profile{},
		folders:   map[string][]protocol.FolderRef{},
		apps:      map[string]*appearance.Record{},
		friends:   map[string][]protocol.FriendRef{},
		gestures:  map[string][]protocol.GestureRef{},
		lockFlags: map[string]bool{},
		online:    map[string]bool{},
		onlineAt:  map[string]string{},
	}
}

func (m *memStore) Presence(_ context.Context, principal string) (*Presence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.presence[principal]; ok {
		cp := *p
		return &cp, nil
	}
	return &Presence{Principal: principal}, nil
}

func (m *memStore) PutPresence(_ context.Context, p *Presence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.presence[p.Principal] = &cp
	return nil
}

func (m *memStore) SetLoginLock(_ context.Context, principal string, locked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockFlags[principal] = locked
	return nil
}

func (m *memStore) SetOnline(_ context.Context, principal string, online bool, regionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[principal] = online
	m.onlineAt[principal] = regionID
	return nil
}

func (m *memStore) Profile(_ context.Context, principal string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[principal], nil
}

func (m *memStore) PutProfile(_ context.Context, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.Principal] = p
	return nil
}

func (m *memStore) InventorySkeleton(_ context.Context, principal string) ([]protocol.FolderRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.folders[principal], nil
}

func (m *memStore) CreateInventory(_ context.Context, principal, archive string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateInventory {
		return errUnavailable
	}
	folders := []protocol.FolderRef{
		{FolderID: "root-" + principal, Name: "My Inventory", Kind: 8, Version: 1},
		{FolderID: "clothing-" + principal, ParentID: "root-" + principal, Name: "Clothing", Kind: 5, Version: 1},
	}
	if archive != "" {
		folders = append(folders, protocol.FolderRef{
			FolderID: "outfit-" + principal, ParentID: "root-" + principal, Name: archive, Kind: 46, Version: 1,
		})
	}
	m.folders[principal] = folders
	return nil
}

func (m *memStore) Appearance(_ context.Context, principal string) (*appearance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apps[principal], nil
}

func (m *memStore) PutAppearance(_ context.Context, rec *appearance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps[rec.Principal] = rec
	return nil
}

func (m *memStore) Friends(_ context.Context, principal string) ([]protocol.FriendRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.friends[principal], nil
}

func (m *memStore) Gestures(_ context.Context, principal string) ([]protocol.GestureRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gestures[principal], nil
}

type errString string

func (e errString) Error() string { return string(e) }

const errUnavailable = errString("inventory backend unavailable")

// fakeConnector scripts per-region create-agent outcomes.
type fakeConnector struct {
	mu       sync.Mutex
	rejects  map[string]error // region id -> error (absent means accept)
	attempts []string
	closed   []string
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{rejects: map[string]error{}}
}

func (f *fakeConnector) CreateAgent(_ context.Context, region *grid.Region, _ *simhost.Circuit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, region.ID)
	return f.rejects[region.ID]
}

func (f *fakeConnector) CloseAgent(_ context.Context, region *grid.Region, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, region.ID)
	return nil
}

func (f *fakeConnector) attemptLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.attempts...)
}

// fakeIdentity backs the gate in pipeline tests.
type fakeIdentity struct {
	mu       sync.Mutex
	accounts map[string]*auth.Account
}

func newFakeIdentity(accounts ...*auth.Account) *fakeIdentity {
	f := &fakeIdentity{accounts: map[string]*auth.Account{}}
	for _, a := range accounts {
		f.accounts[a.FirstName+" "+a.LastName] = a
	}
	return f
}

func (f *fakeIdentity) LookupByName(_ context.Context, _, first, last string) (*auth.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[first+" "+last], nil
}

func (f *fakeIdentity) LookupByID(_ context.Context, principal string) (*auth.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Principal == principal {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeIdentity) Authenticate(_ context.Context, principal, _ string, _ time.Duration) (string, error) {
	return "secure-" + principal, nil
}

func (f *fakeIdentity) Create(_ context.Context, scope, first, last, _ string) (*auth.Account, error) {
	a := &auth.Account{Principal: "new-" + first, FirstName: first, LastName: last, ScopeID: scope}
	f.mu.Lock()
	f.accounts[first+" "+last] = a
	f.mu.Unlock()
	return a, nil
}

func (f *fakeIdentity) SetAcceptedTOS(_ context.Context, _, _ string) error { return nil }

type okAssets struct{}

func (okAssets) Exists(_ context.Context, _ string) (bool, error) { return true, nil }

// recordSink captures emitted admission events.
type recordSink struct {
	mu     sync.Mutex
	events []protocol.AdmissionEvent
}

func (r *recordSink) Admission(ev protocol.AdmissionEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordSink) all() []protocol.AdmissionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.AdmissionEvent(nil), r.events...)
}

// harness wires a full pipeline over fakes.
type harness struct {
	svc       *Service
	store     *memStore
	connector *fakeConnector
	catalog   *grid.Catalog
	caps      *simhost.CapRegistry
	locks     *LockTable
	policy    *grid.Policy
	sink      *recordSink
}

func testGridConfig() grid.Config {
	return grid.Config{
		GridName:       "testgrid",
		WelcomeMessage: "hello",
		Maturity:       "M",
		MaxMaturity:    "A",
		Regions: []grid.RegionSpec{
			{ID: "r-default", Name: "Hub", GridX: 1000, GridY: 1000, BaseURL: "http://h1", Default: true, Fallback: true},
			{ID: "r-fallback", Name: "Annex", GridX: 1001, GridY: 1000, BaseURL: "http://h2", Default: true, Fallback: true},
			{ID: "r-plain", Name: "Backwater", GridX: 1050, GridY: 1080, BaseURL: "http://h3"},
		},
	}
}

func newHarness(accounts ...*auth.Account) *harness {
	logger := discard()
	cfg := testGridConfig()
	catalog := cfg.Catalog()
	policy := grid.NewPolicy(cfg)
	store := newMemStore()
	connector := newFakeConnector()
	caps := simhost.NewCapRegistry()
	locks := NewLockTable()

	gate := auth.NewGate(newFakeIdentity(accounts...), policy, auth.GateConfig{}, logger)
	validator := appearance.NewValidator(okAssets{}, store, logger)
	bootstrap := NewBootstrap(store, validator, true, "", logger)
	resolver := NewResolver(catalog, nil, logger)
	provisioner := NewProvisioner(connector, caps, time.Second, logger)
	finalizer := NewFinalizer(store, policy, cfg, logger)
	sink := &recordSink{}
	svc := NewService(gate, bootstrap, resolver, provisioner, finalizer, store, locks, logger, sink)

	return &harness{
		svc:       svc,
		store:     store,
		connector: connector,
		catalog:   catalog,
		caps:      caps,
		locks:     locks,
		policy:    policy,
		sink:      sink,
	}
}

func testAccount() *auth.Account {
	return &auth.Account{Principal: "p-test", FirstName: "Test", LastName: "Resident"}
}

func testLogin(location string) *protocol.LoginRequest {
	return &protocol.LoginRequest{
		Type:            protocol.TypeLogin,
		ProtocolVersion: protocol.Version,
		FirstName:       "Test",
		LastName:        "Resident",
		Credential:      "secret",
		StartLocation:   location,
	}
}
