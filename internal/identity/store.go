package identity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"pkdindustries/warden/internal/core"
)

// ErrPersistence marks archive records that exist but cannot be read,
// parsed, or written. A missing record is not an error.
var ErrPersistence = errors.New("user archive failure")

// record is the explicit on-disk schema. Transient state (sessions, pending
// queries) never appears here.
type record struct {
	Version      int      `yaml:"version"`
	Username     string   `yaml:"username"`
	CurrentNick  string   `yaml:"currentnick"`
	Admin        bool     `yaml:"admin"`
	Hostmasks    []string `yaml:"hostmasks"`
	PasswordHash string   `yaml:"passwordhash,omitempty"`
}

// Store persists identities as one versioned YAML record per username under
// a single archive directory.
type Store struct {
	dir string
	log *zap.SugaredLogger
}

// NewStore opens the archive directory, creating it if needed. Failure here
// is fatal to the caller: without the archive no identity can be trusted.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: opening archive %s: %v", ErrPersistence, dir, err)
	}
	return &Store{
		dir: dir,
		log: core.WithFields("component", "identitystore", "archive", dir),
	}, nil
}

func (s *Store) path(username string) (string, error) {
	if username == "" || strings.ContainsAny(username, "/\\") {
		return "", fmt.Errorf("%w: invalid username %q", ErrPersistence, username)
	}
	return filepath.Join(s.dir, username+".user"), nil
}

// Load reads the record for a username. A missing record returns (nil, nil);
// an unreadable or unparseable record returns ErrPersistence.
func (s *Store) Load(username string) (*Identity, error) {
	path, err := s.path(username)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Debugw("user_not_archived", "username", username)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrPersistence, path, err)
	}

	var rec record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrPersistence, path, err)
	}
	if rec.Version <= 0 || rec.Version > FormatVersion {
		return nil, fmt.Errorf("%w: %s has unsupported version %d", ErrPersistence, path, rec.Version)
	}
	if rec.Version < FormatVersion {
		s.log.Infow("record_upgraded", "username", username, "from_version", rec.Version)
		upgrade(&rec)
	}

	var hash []byte
	if rec.PasswordHash != "" {
		hash, err = hex.DecodeString(rec.PasswordHash)
		if err != nil {
			return nil, fmt.Errorf("%w: %s has a malformed password hash: %v", ErrPersistence, path, err)
		}
	}

	s.log.Infow("user_loaded", "username", username, "version", rec.Version)
	return &Identity{
		Username:     rec.Username,
		CurrentNick:  rec.CurrentNick,
		Admin:        rec.Admin,
		Hostmasks:    rec.Hostmasks,
		PasswordHash: hash,
	}, nil
}

// Save writes the current-version record for a registered identity. Saving
// an unregistered identity is a logged no-op so that nicknames which never
// register leave no trace on disk.
func (s *Store) Save(id *Identity) error {
	if !id.Registered() {
		s.log.Debugw("save_skipped_unregistered", "username", id.Username)
		return nil
	}

	path, err := s.path(id.Username)
	if err != nil {
		return err
	}

	rec := record{
		Version:      FormatVersion,
		Username:     id.Username,
		CurrentNick:  id.CurrentNick,
		Admin:        id.Admin,
		Hostmasks:    id.Hostmasks,
		PasswordHash: hex.EncodeToString(id.PasswordHash),
	}

	data, err := yaml.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", ErrPersistence, id.Username, err)
	}

	// Write via a temp file and rename so a crash never leaves a torn record.
	tmp, err := os.CreateTemp(s.dir, "."+id.Username+".*")
	if err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrPersistence, path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: writing %s: %v", ErrPersistence, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: writing %s: %v", ErrPersistence, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: writing %s: %v", ErrPersistence, path, err)
	}

	s.log.Infow("user_saved", "username", id.Username, "version", FormatVersion)
	return nil
}

// upgrade brings an older record up to the current version in memory. Each
// version increment gets its own explicit defaulting step.
func upgrade(rec *record) {
	if rec.Version == 1 {
		// v1 predates the currentnick field and the admin flag.
		if rec.CurrentNick == "" {
			rec.CurrentNick = rec.Username
		}
		rec.Version = 2
	}
}
