package roster

import (
	"strings"
	"sync"
	"time"

	"pkdindustries/warden/internal/identity"
)

// Session is the ephemeral state of a live nickname. The bound identity is
// nil until WHO resolution or login attaches one.
type Session struct {
	Nick         string
	Hostmask     string
	Identity     *identity.Identity
	PenaltyUntil time.Time
}

// LoggedIn reports whether the session is bound to a registered identity.
func (s *Session) LoggedIn() bool {
	return s.Identity != nil && s.Identity.Registered()
}

// Channel tracks the known membership of one channel. Names are stored
// lower-cased; the roster preserves arrival order.
type Channel struct {
	Name   string
	Roster []string
}

// Table holds all live sessions, channel rosters, and the live admin-nick
// set for one bot connection. Each connection owns its own Table; nothing
// here is shared static state.
type Table struct {
	mu       sync.Mutex
	sessions map[string]*Session
	channels map[string]*Channel
	admins   map[string]struct{}
}

func NewTable() *Table {
	return &Table{
		sessions: make(map[string]*Session),
		channels: make(map[string]*Channel),
		admins:   make(map[string]struct{}),
	}
}

// Observe returns the session for a nick, creating an empty one if the nick
// has not been seen before.
func (t *Table) Observe(nick string) Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.observe(nick)
}

func (t *Table) observe(nick string) *Session {
	s, ok := t.sessions[nick]
	if !ok {
		s = &Session{Nick: nick}
		t.sessions[nick] = s
	}
	return s
}

// Get returns a snapshot of the session for a nick.
func (t *Table) Get(nick string) (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[nick]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Drop removes a nick that left or disconnected and returns its final
// session state so the caller can hibernate the bound identity. The nick is
// also removed from every roster and from the admin set.
func (t *Table) Drop(nick string) (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[nick]
	if !ok {
		return Session{}, false
	}
	delete(t.sessions, nick)
	delete(t.admins, nick)
	for _, ch := range t.channels {
		ch.Roster = remove(ch.Roster, nick)
	}
	return *s, true
}

// Rename moves a session, its roster entries, and its admin membership to a
// new nickname.
func (t *Table) Rename(oldNick, newNick string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[oldNick]
	if !ok {
		return
	}
	delete(t.sessions, oldNick)
	s.Nick = newNick
	if s.Identity != nil {
		s.Identity.CurrentNick = newNick
	}
	t.sessions[newNick] = s
	if _, ok := t.admins[oldNick]; ok {
		delete(t.admins, oldNick)
		t.admins[newNick] = struct{}{}
	}
	for _, ch := range t.channels {
		for i, n := range ch.Roster {
			if n == oldNick {
				ch.Roster[i] = newNick
			}
		}
	}
}

// SetHostmask records the WHO-resolved hostmask for a nick, creating the
// session if needed. Returns the previously cached value.
func (t *Table) SetHostmask(nick, hostmask string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.observe(nick)
	prev := s.Hostmask
	s.Hostmask = hostmask
	return prev
}

// SeedHostmask records a message source's hostmask only when nothing is
// cached yet. A WHO-resolved value is never displaced.
func (t *Table) SeedHostmask(nick, hostmask string) {
	if hostmask == "" || hostmask == "@" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.observe(nick)
	if s.Hostmask == "" {
		s.Hostmask = hostmask
	}
}

// Bind attaches an identity to a live session.
func (t *Table) Bind(nick string, id *identity.Identity) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observe(nick).Identity = id
}

// SetPenalty records the login throttle deadline for a nick.
func (t *Table) SetPenalty(nick string, until time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observe(nick).PenaltyUntil = until
}

// AddChannel registers a channel the bot has joined. Names are
// case-insensitive.
func (t *Table) AddChannel(name string) {
	name = strings.ToLower(name)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.channels[name]; !ok {
		t.channels[name] = &Channel{Name: name}
	}
}

// HasChannel reports whether the channel is known.
func (t *Table) HasChannel(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.channels[strings.ToLower(name)]
	return ok
}

// SetRoster replaces the membership of a known channel.
func (t *Table) SetRoster(name string, nicks []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.channels[strings.ToLower(name)]
	if !ok {
		return
	}
	ch.Roster = append([]string(nil), nicks...)
}

// Roster returns a copy of the membership of a channel.
func (t *Table) Roster(name string) ([]string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.channels[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), ch.Roster...), true
}

// AddAdmin adds a nick to the live admin set.
func (t *Table) AddAdmin(nick string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.admins[nick] = struct{}{}
}

// RemoveAdmin removes a nick from the live admin set.
func (t *Table) RemoveAdmin(nick string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.admins, nick)
}

// IsAdmin reports whether a nick is in the live admin set.
func (t *Table) IsAdmin(nick string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.admins[nick]
	return ok
}

func remove(list []string, item string) []string {
	out := list[:0]
	for _, v := range list {
		if v != item {
			out = append(out, v)
		}
	}
	return out
}
