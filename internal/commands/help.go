package commands

import (
	"sort"
	"strings"

	"pkdindustries/warden/internal/irc"
)

// HelpCommand lists the commands available to unauthenticated users. When
// invoked from a channel the listing is sent in a query to keep the channel
// quiet.
type HelpCommand struct {
	registry *Registry
}

// NewHelpCommand creates a help command that can list registered commands
func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{registry: registry}
}

func (c *HelpCommand) Name() string { return "help" }
func (c *HelpCommand) Privilege() Privilege { return Public }

func (c *HelpCommand) Execute(ctx irc.ChatContextInterface) {
	names := commandNames(c.registry, LoggedIn)
	listing := "Supported commands: " + strings.Join(names, ", ") +
		". Start with 'register <yournick> <password>', then 'login <yournick> <password>'."

	if ctx.IsPrivate() {
		ctx.Reply(listing)
		return
	}
	ctx.Reply(ctx.GetSource() + ": That's a lot of information, sending it in a query.")
	ctx.Msg(ctx.GetSource(), listing)
}

// AdminHelpCommand lists the admin-only command set.
type AdminHelpCommand struct {
	registry *Registry
}

func NewAdminHelpCommand(registry *Registry) *AdminHelpCommand {
	return &AdminHelpCommand{registry: registry}
}

func (c *AdminHelpCommand) Name() string { return "adminhelp" }
func (c *AdminHelpCommand) Privilege() Privilege { return Admin }

func (c *AdminHelpCommand) Execute(ctx irc.ChatContextInterface) {
	var names []string
	for _, cmd := range c.registry.All(Admin) {
		if cmd.Privilege() == Admin {
			names = append(names, cmd.Name())
		}
	}
	sort.Strings(names)
	ctx.Reply("Admin commands: " + strings.Join(names, ", "))
}

func commandNames(r *Registry, max Privilege) []string {
	var names []string
	for _, cmd := range r.All(max) {
		names = append(names, cmd.Name())
	}
	sort.Strings(names)
	return names
}
