package commands

import (
	"errors"
	"fmt"
	"strings"

	"pkdindustries/warden/internal/auth"
	"pkdindustries/warden/internal/identity"
	"pkdindustries/warden/internal/irc"
)

// RegisterCommand sets the password for the caller's own identity.
type RegisterCommand struct{}

func (c *RegisterCommand) Name() string { return "register" }
func (c *RegisterCommand) Privilege() Privilege { return Any }

func (c *RegisterCommand) Execute(ctx irc.ChatContextInterface) {
	args := ctx.GetArgs()
	if len(args) < 3 {
		ctx.Reply("Usage: register <nick> <password>")
		ctx.Reply(fmt.Sprintf("You can only register yourself, so the <nick> in that command should always be %q.", ctx.GetSource()))
		return
	}

	nick, password := args[1], args[2]
	err := ctx.GetGate().Register(ctx.GetSource(), nick, password)
	switch {
	case err == nil:
		ctx.Reply("Password set, please try to login now.")
	case errors.Is(err, auth.ErrSelfOnly):
		ctx.Reply(fmt.Sprintf("You can only register yourself, %s.", ctx.GetSource()))
	case errors.Is(err, auth.ErrNotYetResolved):
		ctx.Reply("Please wait a few seconds and try again, the bot is still getting to know you!")
	case errors.Is(err, auth.ErrAccountRegistered):
		ctx.Reply("Your account is already set or someone else is using this nickname already.")
	case errors.Is(err, identity.ErrPersistence):
		ctx.GetLogger().Errorw("register_persist_failed", "error", err)
		ctx.Reply("I couldn't save your profile, please try again in a moment.")
	default:
		ctx.GetLogger().Errorw("register_failed", "error", err)
		ctx.Reply("Registration failed, please try again.")
	}
}

// LoginCommand authenticates the caller against a stored identity.
type LoginCommand struct{}

func (c *LoginCommand) Name() string { return "login" }
func (c *LoginCommand) Privilege() Privilege { return Any }

func (c *LoginCommand) Execute(ctx irc.ChatContextInterface) {
	args := ctx.GetArgs()
	if len(args) < 3 {
		ctx.Reply("Usage: login <nick> <password>")
		return
	}

	username, password := args[1], args[2]
	err := ctx.GetGate().Login(ctx.GetSource(), username, password)
	switch {
	case err == nil:
		ctx.Reply("Password recognised. You've been logged in and your hostmask has been added to the known list.")
	case errors.Is(err, auth.ErrThrottled):
		ctx.Reply(fmt.Sprintf("You're trying too often to log in! %s.", capitalizeHint(err)))
	case errors.Is(err, auth.ErrAlreadyLoggedIn):
		ctx.Reply("You are already logged in!")
	case errors.Is(err, auth.ErrBadCredential):
		ctx.Reply(fmt.Sprintf("Password not known. %s.", capitalizeHint(err)))
	case errors.Is(err, auth.ErrNotYetResolved):
		ctx.Reply("Please wait a few seconds and try again, the bot is still getting to know you!")
	case errors.Is(err, identity.ErrPersistence):
		ctx.GetLogger().Errorw("login_persist_failed", "error", err)
		ctx.Reply("I couldn't read your profile, please try again in a moment.")
	default:
		ctx.GetLogger().Errorw("login_failed", "error", err)
		ctx.Reply("Login failed, please try again.")
	}
}

// capitalizeHint extracts the human hint after the sentinel prefix, e.g.
// "try again in 20 seconds" out of a wrapped error.
func capitalizeHint(err error) string {
	msg := err.Error()
	if idx := strings.LastIndex(msg, ": "); idx != -1 {
		msg = msg[idx+2:]
	}
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// SaveSelfCommand flushes the caller's identity to the archive on demand.
type SaveSelfCommand struct{}

func (c *SaveSelfCommand) Name() string { return "saveself" }
func (c *SaveSelfCommand) Privilege() Privilege { return LoggedIn }

func (c *SaveSelfCommand) Execute(ctx irc.ChatContextInterface) {
	s, ok := ctx.GetTable().Get(ctx.GetSource())
	if !ok {
		ctx.Reply("You are not logged in.")
		return
	}
	if err := ctx.GetGate().Persist(s); err != nil {
		ctx.GetLogger().Errorw("saveself_failed", "error", err)
		ctx.Reply("I couldn't save your profile, please try again in a moment.")
		return
	}
	ctx.Reply("Profile saved.")
}

// WhoamiCommand reports the caller's resolved identity and privilege.
type WhoamiCommand struct{}

func (c *WhoamiCommand) Name() string { return "whoami" }
func (c *WhoamiCommand) Privilege() Privilege { return LoggedIn }

func (c *WhoamiCommand) Execute(ctx irc.ChatContextInterface) {
	nick := ctx.GetSource()
	s, ok := ctx.GetTable().Get(nick)
	if !ok || s.Identity == nil {
		ctx.Reply("I don't know you yet.")
		return
	}
	role := "user"
	if ctx.GetTable().IsAdmin(nick) {
		role = "admin"
	}
	ctx.Reply(fmt.Sprintf("You are %s (%s), connecting from %s.", s.Identity.Username, role, s.Hostmask))
}

// DebugCommand dumps the caller's known hostmask set.
type DebugCommand struct{}

func (c *DebugCommand) Name() string { return "debug" }
func (c *DebugCommand) Privilege() Privilege { return LoggedIn }

func (c *DebugCommand) Execute(ctx irc.ChatContextInterface) {
	s, ok := ctx.GetTable().Get(ctx.GetSource())
	if !ok || s.Identity == nil {
		ctx.Reply("No identity bound.")
		return
	}
	ctx.Reply(fmt.Sprintf("hostmasks: %v", s.Identity.Hostmasks))
}
