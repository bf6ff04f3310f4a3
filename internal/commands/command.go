package commands

import (
	"pkdindustries/warden/internal/irc"
)

// Privilege is the required access level for a command, ascending.
type Privilege int

const (
	// Public commands may be invoked from a channel by addressing the bot.
	Public Privilege = iota
	// Any commands require a private message but no authentication.
	Any
	// LoggedIn commands require a session bound to a registered identity.
	LoggedIn
	// Admin commands require membership in the live admin set.
	Admin
)

func (p Privilege) String() string {
	switch p {
	case Public:
		return "public"
	case Any:
		return "any"
	case LoggedIn:
		return "logged-in"
	case Admin:
		return "admin"
	}
	return "unknown"
}

// Command defines the interface for bot commands
type Command interface {
	Name() string
	Execute(ctx irc.ChatContextInterface)
	Privilege() Privilege
}

// Registry manages command registration and privilege-gated dispatch
type Registry struct {
	commands map[string]Command
}

// NewRegistry creates a new command registry
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
	}
}

// Register adds a command to the registry
func (r *Registry) Register(cmd Command) {
	r.commands[cmd.Name()] = cmd
}

// Get retrieves a command by name
func (r *Registry) Get(name string) (Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Current derives the caller's privilege level from the session table.
// Channel senders never rise above Public regardless of authentication.
func Current(ctx irc.ChatContextInterface) Privilege {
	if !ctx.IsPrivate() {
		return Public
	}
	nick := ctx.GetSource()
	if ctx.GetTable().IsAdmin(nick) {
		return Admin
	}
	if s, ok := ctx.GetTable().Get(nick); ok && s.LoggedIn() {
		return LoggedIn
	}
	return Any
}

// Dispatch executes the appropriate command based on context, enforcing the
// command's required privilege. Returns true if a command was executed.
func (r *Registry) Dispatch(ctx irc.ChatContextInterface) bool {
	cmd, ok := r.commands[ctx.GetCommand()]
	if !ok {
		// Public misses stay silent to avoid channel noise.
		if ctx.IsPrivate() {
			ctx.Reply("Sorry, I don't get what you want. Try 'help'.")
		}
		return false
	}

	level := Current(ctx)
	required := cmd.Privilege()

	// Admin override: a configured nick is granted admin unconditionally,
	// checked once per admin-gated dispatch and audit-logged.
	if required == Admin && level < Admin && ctx.IsPrivate() {
		if override := ctx.GetConfig().Bot.AdminOverride; override != "" && ctx.GetSource() == override {
			ctx.GetLogger().Warnw("admin_override_applied", "nick", ctx.GetSource(), "command", cmd.Name())
			level = Admin
		}
	}

	if level < required {
		ctx.GetLogger().Infow("dispatch_rejected",
			"command", cmd.Name(),
			"required", required.String(),
			"level", level.String(),
		)
		switch required {
		case Admin:
			ctx.Reply("You don't have permission to perform this action.")
		case LoggedIn:
			ctx.Reply("Sorry, you need to be logged in for this to work.")
		default:
			ctx.Reply("Sorry, that only works in a private message.")
		}
		return false
	}

	cmd.Execute(ctx)
	return true
}

// All returns all registered commands at or below the given privilege
func (r *Registry) All(max Privilege) []Command {
	cmds := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		if cmd.Privilege() <= max {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}
