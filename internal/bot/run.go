package bot

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/girc"
	"go.uber.org/zap"

	"pkdindustries/warden/internal/auth"
	"pkdindustries/warden/internal/commands"
	"pkdindustries/warden/internal/config"
	"pkdindustries/warden/internal/core"
	"pkdindustries/warden/internal/identity"
	"pkdindustries/warden/internal/irc"
	"pkdindustries/warden/internal/roster"
)

// Version is the released version string.
const Version = "0.1"

// ircConn adapts the girc client to the resolver's Conn interface.
type ircConn struct {
	client *girc.Client
}

func (c ircConn) SendRaw(line string) error {
	return c.client.Cmd.SendRaw(line)
}

func (c ircConn) Msg(target, message string) {
	c.client.Cmd.Message(target, message)
}

// Run starts the IRC bot with the given configuration
func Run(ctx context.Context, cfg *config.Configuration) error {
	core.InitLogger(cfg.Bot.Verbose)
	defer zap.L().Sync()

	store, err := identity.NewStore(cfg.Store.Archive)
	if err != nil {
		// No archive means no identity can be trusted; refuse to start.
		return fmt.Errorf("opening user archive: %w", err)
	}

	// Each connection owns its own table; nothing is shared static state.
	table := roster.NewTable()
	gate := auth.NewGate(store, table, cfg)

	registry := commands.NewRegistry()
	registry.Register(commands.NewHelpCommand(registry))
	registry.Register(commands.NewAdminHelpCommand(registry))
	registry.Register(&commands.RegisterCommand{})
	registry.Register(&commands.LoginCommand{})
	registry.Register(&commands.SaveSelfCommand{})
	registry.Register(&commands.WhoamiCommand{})
	registry.Register(&commands.DebugCommand{})
	registry.Register(&commands.MakeAdminCommand{})
	registry.Register(&commands.RemoveAdminCommand{})
	registry.Register(&commands.AmIAdminCommand{})

	ircClient := girc.New(girc.Config{
		Server:    cfg.Server.Server,
		Port:      cfg.Server.Port,
		Nick:      cfg.Server.Nick,
		User:      "warden",
		Name:      "warden",
		SSL:       cfg.Server.SSL,
		TLSConfig: &tls.Config{InsecureSkipVerify: cfg.Server.TLSInsecure},
	})

	if cfg.Server.SASLNick != "" && cfg.Server.SASLPass != "" {
		ircClient.Config.SASL = &girc.SASLPlain{
			User: cfg.Server.SASLNick,
			Pass: cfg.Server.SASLPass,
		}
	}

	resolver := roster.NewResolver(ircConn{ircClient}, table, store, cfg.Server.Nick, cfg.Bot.AdminOverride, cfg.Bot.QueryTimeout)

	go func() {
		<-ctx.Done()
		ircClient.Quit("Shutting down...")
		zap.S().Info("IRC client closed")
	}()

	ircClient.Handlers.AddBg(girc.CONNECTED, func(client *girc.Client, e girc.Event) {
		zap.S().Infof("Joining channel: %s", cfg.Server.Channel)
		client.Cmd.Join(cfg.Server.Channel)
	})

	// Membership and hostmask discovery. These handlers run on the read
	// loop, so protocol replies are processed strictly in arrival order.
	ircClient.Handlers.Add(girc.JOIN, func(client *girc.Client, e girc.Event) {
		if len(e.Params) == 0 || e.Source == nil {
			return
		}
		channel := strings.ToLower(e.Params[0])
		nick := e.Source.Name

		if nick == cfg.Server.Nick {
			table.AddChannel(channel)
			if _, err := resolver.ResolveNames(channel); err != nil {
				zap.S().Warnw("names_not_issued", "channel", channel, "error", err)
			}
			return
		}

		zap.S().Infow("user_joined", "nick", nick, "channel", channel)
		table.Observe(nick)
		if _, err := resolver.ResolveWho(nick); err != nil {
			zap.S().Debugw("who_not_issued", "nick", nick, "error", err)
		}
	})

	departed := func(client *girc.Client, e girc.Event) {
		if e.Source == nil {
			return
		}
		nick := e.Source.Name
		if s, ok := table.Drop(nick); ok {
			zap.S().Infow("user_departed", "nick", nick)
			gate.Hibernate(s)
		}
	}
	ircClient.Handlers.Add(girc.PART, departed)
	ircClient.Handlers.Add(girc.QUIT, departed)

	ircClient.Handlers.Add(girc.NICK, func(client *girc.Client, e girc.Event) {
		if e.Source == nil || len(e.Params) == 0 {
			return
		}
		oldNick, newNick := e.Source.Name, e.Params[0]
		zap.S().Infow("nick_changed", "old", oldNick, "new", newNick)
		table.Rename(oldNick, newNick)
	})

	for _, numeric := range []string{girc.RPL_NAMREPLY, girc.RPL_ENDOFNAMES, girc.RPL_WHOREPLY, girc.RPL_ENDOFWHO} {
		ircClient.Handlers.Add(numeric, func(client *girc.Client, e girc.Event) {
			resolver.HandleEvent(e)
		})
	}

	ircClient.Handlers.AddBg(girc.PRIVMSG, func(client *girc.Client, e girc.Event) {
		cctx, cancel := irc.NewChatContext(ctx, cfg, table, gate, store, client, &e)
		defer cancel()

		if !cctx.Valid() {
			return
		}

		// A message source carries ident@host, which lets commands work
		// before the sender's WHO resolution has completed.
		table.SeedHostmask(cctx.GetSource(), cctx.GetSourceHostmask())

		// Serialize per sender so a slow archive write can't interleave
		// with that sender's next command.
		key := e.Params[0]
		if !girc.IsValidChannel(key) {
			key = e.Source.Name
		}
		lock := core.GetRequestLock(key)

		cctx.GetLogger().Debugf("Acquiring lock for '%s'", key)
		if !lock.LockWithContext(cctx) {
			cctx.GetLogger().Warnf("Failed to acquire lock for '%s' (timeout)", key)
			cctx.Reply("Request timed out waiting for previous operation to complete")
			return
		}
		defer lock.Unlock()

		cctx.GetLogger().Infof(">> %s", strings.Join(e.Params[1:], " "))
		registry.Dispatch(cctx)
	})

	// Reconnect loop
	const maxRetries = 5
	for i := range maxRetries {
		if ctx.Err() != nil {
			return nil
		}

		zap.S().Infow("Connecting to server",
			"server", ircClient.Config.Server,
			"port", ircClient.Config.Port,
			"tls", ircClient.Config.SSL,
			"sasl", ircClient.Config.SASL != nil,
		)

		if err := ircClient.Connect(); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			zap.S().Errorw("Connection failed", "error", err)
			zap.S().Infof("Reconnecting in 5 seconds (attempt %d/%d)", i+1, maxRetries)

			select {
			case <-time.After(5 * time.Second):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	}

	return fmt.Errorf("failed to connect after %d attempts", maxRetries)
}
