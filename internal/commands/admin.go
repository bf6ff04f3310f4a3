package commands

import (
	"errors"
	"fmt"

	"pkdindustries/warden/internal/identity"
	"pkdindustries/warden/internal/irc"
)

// MakeAdminCommand grants the admin flag to a registered, present user.
type MakeAdminCommand struct{}

func (c *MakeAdminCommand) Name() string { return "makeadmin" }
func (c *MakeAdminCommand) Privilege() Privilege { return Admin }

func (c *MakeAdminCommand) Execute(ctx irc.ChatContextInterface) {
	args := ctx.GetArgs()
	if len(args) < 2 {
		ctx.Reply("Usage: makeadmin <nick>")
		return
	}
	nick := args[1]

	s, ok := ctx.GetTable().Get(nick)
	if !ok || !s.LoggedIn() {
		ctx.Reply(fmt.Sprintf("User %s is not correctly registered (yet).", nick))
		return
	}

	if err := ctx.GetGate().SetAdmin(s.Identity, true); err != nil {
		replyAdminError(ctx, err)
		return
	}
	ctx.GetTable().AddAdmin(nick)
	ctx.Reply(fmt.Sprintf("User %s has been made an admin.", nick))
	ctx.Msg(s.Identity.CurrentNick, fmt.Sprintf("You've been made an admin by %s!", ctx.GetSource()))
}

// RemoveAdminCommand revokes the admin flag from a present admin.
type RemoveAdminCommand struct{}

func (c *RemoveAdminCommand) Name() string { return "removeadmin" }
func (c *RemoveAdminCommand) Privilege() Privilege { return Admin }

func (c *RemoveAdminCommand) Execute(ctx irc.ChatContextInterface) {
	args := ctx.GetArgs()
	if len(args) < 2 {
		ctx.Reply("Usage: removeadmin <nick>")
		return
	}
	nick := args[1]

	s, ok := ctx.GetTable().Get(nick)
	if !ok || !s.LoggedIn() || !ctx.GetTable().IsAdmin(nick) {
		ctx.Reply(fmt.Sprintf("User %s is not correctly registered (yet).", nick))
		return
	}

	if err := ctx.GetGate().SetAdmin(s.Identity, false); err != nil {
		replyAdminError(ctx, err)
		return
	}
	ctx.GetTable().RemoveAdmin(nick)
	ctx.Reply(fmt.Sprintf("Admin has been removed from user %s.", nick))
	ctx.Msg(s.Identity.CurrentNick, fmt.Sprintf("User %s has removed your admin!", ctx.GetSource()))
}

// AmIAdminCommand is a no-op privilege probe.
type AmIAdminCommand struct{}

func (c *AmIAdminCommand) Name() string { return "amiadmin" }
func (c *AmIAdminCommand) Privilege() Privilege { return Admin }

func (c *AmIAdminCommand) Execute(ctx irc.ChatContextInterface) {
	ctx.Reply("Yes, you are admin.")
}

func replyAdminError(ctx irc.ChatContextInterface, err error) {
	if errors.Is(err, identity.ErrPersistence) {
		ctx.GetLogger().Errorw("admin_persist_failed", "error", err)
		ctx.Reply("I couldn't save that change, please try again in a moment.")
		return
	}
	ctx.GetLogger().Errorw("admin_change_failed", "error", err)
	ctx.Reply("That didn't work, please try again.")
}
