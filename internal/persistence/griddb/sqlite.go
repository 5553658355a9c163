package griddb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"auroragrid.io/internal/admission"
	"auroragrid.io/internal/appearance"
	"auroragrid.io/internal/protocol"
)

// Store is the durable grid-side account state: presence, profiles,
// inventory skeletons, appearance, friends, gestures.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func initPragmas(db *sql.DB) error {
	// WAL suits the many-small-writes admission workload.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS presence (
	principal     TEXT PRIMARY KEY,
	home_region   TEXT NOT NULL DEFAULT '',
	home_pos      TEXT NOT NULL DEFAULT '',
	home_look_at  TEXT NOT NULL DEFAULT '',
	last_region   TEXT NOT NULL DEFAULT '',
	last_pos      TEXT NOT NULL DEFAULT '',
	last_look_at  TEXT NOT NULL DEFAULT '',
	login_lock    INTEGER NOT NULL DEFAULT 0,
	online        INTEGER NOT NULL DEFAULT 0,
	online_region TEXT NOT NULL DEFAULT '',
	updated_at    TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS profiles (
	principal  TEXT PRIMARY KEY,
	new_user   INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS inventory_folders (
	folder_id TEXT PRIMARY KEY,
	principal TEXT NOT NULL,
	parent_id TEXT NOT NULL DEFAULT '',
	name      TEXT NOT NULL,
	kind      INTEGER NOT NULL DEFAULT 0,
	version   INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_inventory_principal ON inventory_folders(principal);
CREATE TABLE IF NOT EXISTS appearances (
	principal TEXT PRIMARY KEY,
	serial    INTEGER NOT NULL DEFAULT 1,
	doc       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS friends (
	principal   TEXT NOT NULL,
	friend      TEXT NOT NULL,
	my_flags    INTEGER NOT NULL DEFAULT 0,
	their_flags INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (principal, friend)
);
CREATE TABLE IF NOT EXISTS gestures (
	principal TEXT NOT NULL,
	item_id   TEXT NOT NULL,
	asset_id  TEXT NOT NULL,
	PRIMARY KEY (principal, item_id)
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func vecToDoc(v protocol.Vec3) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func vecFromDoc(doc string) protocol.Vec3 {
	var v protocol.Vec3
	if doc != "" {
		_ = json.Unmarshal([]byte(doc), &v)
	}
	return v
}

func (s *Store) Presence(ctx context.Context, principal string) (*admission.Presence, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT home_region, home_pos, home_look_at, last_region, last_pos, last_look_at,
       login_lock, online, online_region
FROM presence WHERE principal = ?`, principal)

	var homePos, homeLook, lastPos, lastLook string
	p := &admission.Presence{Principal: principal}
	err := row.Scan(&p.HomeRegion, &homePos, &homeLook, &p.LastRegion, &lastPos, &lastLook,
		&p.LoginLock, &p.Online, &p.OnlineRegion)
	if err == sql.ErrNoRows {
		return &admission.Presence{Principal: principal}, nil
	}
	if err != nil {
		return nil, err
	}
	p.HomePos = vecFromDoc(homePos)
	p.HomeLookAt = vecFromDoc(homeLook)
	p.LastPos = vecFromDoc(lastPos)
	p.LastLookAt = vecFromDoc(lastLook)
	return p, nil
}

func (s *Store) PutPresence(ctx context.Context, p *admission.Presence) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO presence (principal, home_region, home_pos, home_look_at,
                      last_region, last_pos, last_look_at,
                      login_lock, online, online_region, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(principal) DO UPDATE SET
	home_region = excluded.home_region,
	home_pos = excluded.home_pos,
	home_look_at = excluded.home_look_at,
	last_region = excluded.last_region,
	last_pos = excluded.last_pos,
	last_look_at = excluded.last_look_at,
	login_lock = excluded.login_lock,
	online = excluded.online,
	online_region = excluded.online_region,
	updated_at = excluded.updated_at`,
		p.Principal, p.HomeRegion, vecToDoc(p.HomePos), vecToDoc(p.HomeLookAt),
		p.LastRegion, vecToDoc(p.LastPos), vecToDoc(p.LastLookAt),
		p.LoginLock, p.Online, p.OnlineRegion, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) SetLoginLock(ctx context.Context, principal string, locked bool) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO presence (principal, login_lock, updated_at) VALUES (?, ?, ?)
ON CONFLICT(principal) DO UPDATE SET
	login_lock = excluded.login_lock,
	updated_at = excluded.updated_at`,
		principal, locked, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) SetOnline(ctx context.Context, principal string, online bool, regionID string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO presence (principal, online, online_region, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(principal) DO UPDATE SET
	online = excluded.online,
	online_region = excluded.online_region,
	updated_at = excluded.updated_at`,
		principal, online, regionID, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) Profile(ctx context.Context, principal string) (*admission.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT new_user, created_at FROM profiles WHERE principal = ?`, principal)
	p := &admission.Profile{Principal: principal}
	var created string
	err := row.Scan(&p.NewUser, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if t, perr := time.Parse(time.RFC3339, created); perr == nil {
		p.Created = t
	}
	return p, nil
}

func (s *Store) PutProfile(ctx context.Context, p *admission.Profile) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO profiles (principal, new_user, created_at) VALUES (?, ?, ?)
ON CONFLICT(principal) DO UPDATE SET new_user = excluded.new_user`,
		p.Principal, p.NewUser, p.Created.UTC().Format(time.RFC3339))
	return err
}

// Standard folder kinds of the viewer inventory skeleton.
const (
	folderKindRoot     = 8
	folderKindClothing = 5
	folderKindBodyPart = 13
	folderKindGestures = 21
	folderKindOutfit   = 46
)

func (s *Store) InventorySkeleton(ctx context.Context, principal string) ([]protocol.FolderRef, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT folder_id, parent_id, name, kind, version
FROM inventory_folders WHERE principal = ?
ORDER BY parent_id, name`, principal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []protocol.FolderRef
	for rows.Next() {
		var f protocol.FolderRef
		if err := rows.Scan(&f.FolderID, &f.ParentID, &f.Name, &f.Kind, &f.Version); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// CreateInventory builds the standard root folder set. A non-empty archive
// name additionally seeds a default outfit folder.
func (s *Store) CreateInventory(ctx context.Context, principal, archive string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insert := func(id, parent, name string, kind int) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO inventory_folders (folder_id, principal, parent_id, name, kind, version)
VALUES (?, ?, ?, ?, ?, 1)`, id, principal, parent, name, kind)
		return err
	}

	rootID := uuid.NewString()
	if err := insert(rootID, "", "My Inventory", folderKindRoot); err != nil {
		return err
	}
	children := []struct {
		name string
		kind int
	}{
		{"Clothing", folderKindClothing},
		{"Body Parts", folderKindBodyPart},
		{"Gestures", folderKindGestures},
	}
	for _, c := range children {
		if err := insert(uuid.NewString(), rootID, c.name, c.kind); err != nil {
			return err
		}
	}
	if archive != "" {
		if err := insert(uuid.NewString(), rootID, archive, folderKindOutfit); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type appearanceDoc struct {
	Slots [appearance.SlotCount]appearance.Slot      `json:"slots"`
	Faces [appearance.FaceCount]appearance.BakedFace `json:"faces"`
}

func (s *Store) Appearance(ctx context.Context, principal string) (*appearance.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT serial, doc FROM appearances WHERE principal = ?`, principal)
	var serial int
	var doc string
	err := row.Scan(&serial, &doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var d appearanceDoc
	if err := json.Unmarshal([]byte(doc), &d); err != nil {
		return nil, fmt.Errorf("appearance %s: %w", principal, err)
	}
	return &appearance.Record{Principal: principal, Serial: serial, Slots: d.Slots, Faces: d.Faces}, nil
}

func (s *Store) PutAppearance(ctx context.Context, rec *appearance.Record) error {
	b, err := json.Marshal(appearanceDoc{Slots: rec.Slots, Faces: rec.Faces})
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO appearances (principal, serial, doc) VALUES (?, ?, ?)
ON CONFLICT(principal) DO UPDATE SET serial = excluded.serial, doc = excluded.doc`,
		rec.Principal, rec.Serial, string(b))
	return err
}

func (s *Store) Friends(ctx context.Context, principal string) ([]protocol.FriendRef, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT friend, my_flags, their_flags FROM friends WHERE principal = ? ORDER BY friend`, principal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []protocol.FriendRef
	for rows.Next() {
		var f protocol.FriendRef
		if err := rows.Scan(&f.Principal, &f.MyFlags, &f.TheirFlags); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) PutFriend(ctx context.Context, principal string, f protocol.FriendRef) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO friends (principal, friend, my_flags, their_flags) VALUES (?, ?, ?, ?)
ON CONFLICT(principal, friend) DO UPDATE SET
	my_flags = excluded.my_flags, their_flags = excluded.their_flags`,
		principal, f.Principal, f.MyFlags, f.TheirFlags)
	return err
}

func (s *Store) Gestures(ctx context.Context, principal string) ([]protocol.GestureRef, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT item_id, asset_id FROM gestures WHERE principal = ? ORDER BY item_id`, principal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []protocol.GestureRef
	for rows.Next() {
		var g protocol.GestureRef
		if err := rows.Scan(&g.ItemID, &g.AssetID); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) PutGesture(ctx context.Context, principal string, g protocol.GestureRef) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO gestures (principal, item_id, asset_id) VALUES (?, ?, ?)
ON CONFLICT(principal, item_id) DO UPDATE SET asset_id = excluded.asset_id`,
		principal, g.ItemID, g.AssetID)
	return err
}
