package identity

import (
	"crypto/sha256"
	"crypto/subtle"
)

// FormatVersion is the current on-disk record version.
const FormatVersion = 2

// Identity is the durable record behind a nickname. An identity without a
// password hash is "unregistered": it lives only in memory and is never
// written to the archive.
type Identity struct {
	Username     string
	CurrentNick  string
	Admin        bool
	Hostmasks    []string
	PasswordHash []byte
}

// New creates a fresh unregistered identity for a nickname seen for the
// first time.
func New(username string) *Identity {
	return &Identity{
		Username:    username,
		CurrentNick: username,
	}
}

// Registered reports whether a password hash has been set.
func (id *Identity) Registered() bool {
	return len(id.PasswordHash) > 0
}

// AddHostmask records a hostmask if it is not already known.
func (id *Identity) AddHostmask(hostmask string) {
	if hostmask == "" || id.HasHostmask(hostmask) {
		return
	}
	id.Hostmasks = append(id.Hostmasks, hostmask)
}

// AllowsHostmask reports whether a live hostmask may bind to this identity.
// An empty known set accepts anything; a non-empty set must contain it.
func (id *Identity) AllowsHostmask(hostmask string) bool {
	return len(id.Hostmasks) == 0 || id.HasHostmask(hostmask)
}

// HasHostmask reports whether the hostmask is in the known set.
func (id *Identity) HasHostmask(hostmask string) bool {
	for _, h := range id.Hostmasks {
		if h == hostmask {
			return true
		}
	}
	return false
}

// HashPassword computes the 32-byte digest stored for a password.
func HashPassword(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return sum[:]
}

// MatchPassword compares a candidate password against the stored hash in
// constant time. Always false for unregistered identities.
func (id *Identity) MatchPassword(password string) bool {
	if !id.Registered() {
		return false
	}
	return subtle.ConstantTimeCompare(id.PasswordHash, HashPassword(password)) == 1
}
