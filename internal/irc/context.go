package irc

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/lrstanley/girc"
	"go.uber.org/zap"

	"pkdindustries/warden/internal/auth"
	"pkdindustries/warden/internal/config"
	"pkdindustries/warden/internal/identity"
	"pkdindustries/warden/internal/roster"
)

// ChatContextInterface provides all context needed for handling one inbound
// IRC message.
type ChatContextInterface interface {
	context.Context

	// Event methods
	IsAddressed() bool
	IsPrivate() bool
	Valid() bool
	GetCommand() string
	GetArgs() []string
	GetSource() string
	GetSourceHostmask() string

	// Responder methods
	Reply(string)
	Msg(target, message string)

	// Runtime methods
	GetTable() *roster.Table
	GetGate() *auth.Gate
	GetStore() *identity.Store
	GetConfig() *config.Configuration
	GetLogger() *zap.SugaredLogger
}

type ChatContext struct {
	context.Context
	config    *config.Configuration
	table     *roster.Table
	gate      *auth.Gate
	store     *identity.Store
	client    *girc.Client
	event     *girc.Event
	args      []string
	logger    *zap.SugaredLogger
	requestID string
}

var _ ChatContextInterface = (*ChatContext)(nil)

func NewChatContext(parentctx context.Context, cfg *config.Configuration, table *roster.Table, gate *auth.Gate, store *identity.Store, ircclient *girc.Client, e *girc.Event) (ChatContextInterface, context.CancelFunc) {
	timedctx, cancel := context.WithTimeout(parentctx, cfg.Bot.QueryTimeout)

	// Generate a unique request ID for correlation
	requestID := generateRequestID()

	if e.Source == nil {
		e.Source = &girc.Source{
			Name: cfg.Server.Channel,
		}
	}

	ctx := ChatContext{
		Context:   timedctx,
		config:    cfg,
		table:     table,
		gate:      gate,
		store:     store,
		client:    ircclient,
		event:     e,
		args:      strings.Fields(e.Last()),
		requestID: requestID,
		logger: zap.S().With(
			"request_id", requestID,
			"channel", e.Params[0],
			"source", e.Source.Name,
		),
	}

	if ctx.IsAddressed() {
		ctx.args = StripAddress(ctx.args, ircclient.GetNick())
	}

	return ctx, cancel
}

func (c ChatContext) GetTable() *roster.Table {
	return c.table
}

func (c ChatContext) GetGate() *auth.Gate {
	return c.gate
}

func (c ChatContext) GetStore() *identity.Store {
	return c.store
}

func (c ChatContext) GetConfig() *config.Configuration {
	return c.config
}

func (c ChatContext) GetLogger() *zap.SugaredLogger {
	return c.logger
}

func (c ChatContext) IsAddressed() bool {
	return CheckAddressed(c.event.Last(), c.client.GetNick())
}

func (c ChatContext) IsPrivate() bool {
	return CheckPrivate(c.event.Params[0])
}

// Valid checks if the message is dispatchable: private messages always are,
// public ones only when explicitly addressed to the bot.
func (c ChatContext) Valid() bool {
	return CheckValid(c.IsAddressed(), c.IsPrivate(), len(c.args))
}

func (c ChatContext) GetArgs() []string {
	return c.args
}

func (c ChatContext) GetCommand() string {
	if len(c.args) == 0 {
		return ""
	}
	return strings.ToLower(c.args[0])
}

func (c ChatContext) GetSource() string {
	return c.event.Source.Name
}

// GetSourceHostmask returns the ident@host portion of the event source.
func (c ChatContext) GetSourceHostmask() string {
	return c.event.Source.Ident + "@" + c.event.Source.Host
}

func (c ChatContext) Reply(message string) {
	c.client.Cmd.Reply(*c.event, message)
}

func (c ChatContext) Msg(target, message string) {
	c.client.Cmd.Message(target, message)
}

// generateRequestID creates a unique 8-character request ID for correlation
func generateRequestID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}
