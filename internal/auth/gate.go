package auth

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"pkdindustries/warden/internal/config"
	"pkdindustries/warden/internal/core"
	"pkdindustries/warden/internal/identity"
	"pkdindustries/warden/internal/roster"
)

// Gate owns the credential lifecycle: registration, login with throttling,
// hostmask allow-listing, and the admin flag. It is the only component that
// writes to the identity store.
type Gate struct {
	store    *identity.Store
	table    *roster.Table
	penalty  time.Duration
	override string
	now      func() time.Time
	log      *zap.SugaredLogger
}

func NewGate(store *identity.Store, table *roster.Table, cfg *config.Configuration) *Gate {
	return &Gate{
		store:    store,
		table:    table,
		penalty:  cfg.Auth.LoginPenalty,
		override: cfg.Bot.AdminOverride,
		now:      time.Now,
		log:      core.WithFields("component", "authgate"),
	}
}

// Register sets the password hash for the caller's own identity. Only
// self-registration is allowed, and an existing hash is never overwritten.
func (g *Gate) Register(nick, username, password string) error {
	if nick != username {
		return fmt.Errorf("%w: you can only register yourself, %s", ErrSelfOnly, nick)
	}

	s, ok := g.table.Get(nick)
	if !ok || s.Identity == nil {
		return ErrNotYetResolved
	}
	if s.Identity.Registered() {
		g.log.Infow("register_rejected_existing", "nick", nick)
		return ErrAccountRegistered
	}

	s.Identity.PasswordHash = identity.HashPassword(password)
	s.Identity.CurrentNick = nick
	if err := g.store.Save(s.Identity); err != nil {
		// Roll back so a later retry is not rejected as already registered.
		s.Identity.PasswordHash = nil
		return err
	}
	g.log.Infow("registered", "username", username)
	return nil
}

// Login authenticates the caller against a stored identity. A failed or
// throttled attempt moves the penalty deadline to the attempt time plus the
// penalty window; success records the caller's hostmask and binds the
// session.
func (g *Gate) Login(nick, username, password string) error {
	s, ok := g.table.Get(nick)
	if !ok {
		return ErrNotYetResolved
	}
	now := g.now()

	if now.Before(s.PenaltyUntil) {
		g.table.SetPenalty(nick, now.Add(g.penalty))
		g.log.Infow("login_throttled", "nick", nick, "username", username)
		return fmt.Errorf("%w: added %d seconds again", ErrThrottled, int(g.penalty.Seconds()))
	}

	if s.LoggedIn() {
		return ErrAlreadyLoggedIn
	}

	id, err := g.store.Load(username)
	if err != nil {
		return err
	}
	if id == nil || !id.MatchPassword(password) {
		g.table.SetPenalty(nick, now.Add(g.penalty))
		g.log.Infow("login_bad_credential", "nick", nick, "username", username)
		return fmt.Errorf("%w: try again in %d seconds", ErrBadCredential, int(g.penalty.Seconds()))
	}

	id.AddHostmask(s.Hostmask)
	id.CurrentNick = nick
	if err := g.store.Save(id); err != nil {
		return err
	}

	g.table.Bind(nick, id)
	g.table.SetPenalty(nick, time.Time{})
	if id.Admin || nick == g.override {
		g.table.AddAdmin(nick)
	}
	g.log.Infow("login_ok", "nick", nick, "username", username)
	return nil
}

// CheckHostmask verifies a live hostmask against an identity's known set.
func (g *Gate) CheckHostmask(id *identity.Identity, hostmask string) error {
	if id.AllowsHostmask(hostmask) {
		return nil
	}
	return fmt.Errorf("%w: %s for %s", ErrUnknownHostmask, hostmask, id.Username)
}

// SetAdmin flips the admin flag and persists the record.
func (g *Gate) SetAdmin(id *identity.Identity, admin bool) error {
	id.Admin = admin
	if err := g.store.Save(id); err != nil {
		return err
	}
	g.log.Infow("admin_flag_changed", "username", id.Username, "admin", admin)
	return nil
}

// Persist writes the session's bound identity to the archive. Unregistered
// identities are skipped by the store.
func (g *Gate) Persist(s roster.Session) error {
	if s.Identity == nil {
		return ErrNotYetResolved
	}
	return g.store.Save(s.Identity)
}

// Hibernate flushes a departing session's identity to disk. Used on part
// and quit; the identity itself is never deleted.
func (g *Gate) Hibernate(s roster.Session) {
	if s.Identity == nil || !s.Identity.Registered() {
		return
	}
	if err := g.store.Save(s.Identity); err != nil {
		g.log.Errorw("hibernate_failed", "nick", s.Nick, "error", err)
		return
	}
	g.log.Infow("hibernated", "nick", s.Nick, "username", s.Identity.Username)
}
