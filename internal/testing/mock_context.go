package testing

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"pkdindustries/warden/internal/auth"
	"pkdindustries/warden/internal/config"
	"pkdindustries/warden/internal/identity"
	"pkdindustries/warden/internal/irc"
	"pkdindustries/warden/internal/roster"
)

// MsgCall records a Msg() invocation
type MsgCall struct {
	Target  string
	Message string
}

// MockChatContext implements irc.ChatContextInterface for testing
type MockChatContext struct {
	context.Context

	// Configurable return values
	Addressed bool
	Private   bool
	Source    string
	Args      []string

	// Recorded calls (for assertions)
	Replies []string
	Msgs    []MsgCall

	// Injected dependencies
	table  *roster.Table
	gate   *auth.Gate
	store  *identity.Store
	cfg    *config.Configuration
	logger *zap.SugaredLogger
}

// Verify MockChatContext implements irc.ChatContextInterface
var _ irc.ChatContextInterface = (*MockChatContext)(nil)

// NewMockContext creates a new MockChatContext with sensible defaults
func NewMockContext() *MockChatContext {
	return &MockChatContext{
		Context:   context.Background(),
		Addressed: true,
		Private:   true,
		Source:    "testuser",
		Args:      []string{},
		Replies:   []string{},
		Msgs:      []MsgCall{},
		table:     roster.NewTable(),
		cfg:       DefaultTestConfig(),
		logger:    zap.NewNop().Sugar(),
	}
}

// Builder methods for fluent test setup

// WithArgs sets the parsed arguments
func (m *MockChatContext) WithArgs(args ...string) *MockChatContext {
	m.Args = args
	return m
}

// WithSource sets the source nick
func (m *MockChatContext) WithSource(nick string) *MockChatContext {
	m.Source = nick
	return m
}

// WithPrivate sets whether this is a private message
func (m *MockChatContext) WithPrivate(private bool) *MockChatContext {
	m.Private = private
	return m
}

// WithAddressed sets whether the bot was addressed
func (m *MockChatContext) WithAddressed(addressed bool) *MockChatContext {
	m.Addressed = addressed
	return m
}

// WithTable injects a session table
func (m *MockChatContext) WithTable(table *roster.Table) *MockChatContext {
	m.table = table
	return m
}

// WithGate injects an auth gate
func (m *MockChatContext) WithGate(gate *auth.Gate) *MockChatContext {
	m.gate = gate
	return m
}

// WithStore injects an identity store
func (m *MockChatContext) WithStore(store *identity.Store) *MockChatContext {
	m.store = store
	return m
}

// WithConfig injects a configuration
func (m *MockChatContext) WithConfig(cfg *config.Configuration) *MockChatContext {
	m.cfg = cfg
	return m
}

// Interface implementation

func (m *MockChatContext) IsAddressed() bool { return m.Addressed }
func (m *MockChatContext) IsPrivate() bool { return m.Private }

func (m *MockChatContext) Valid() bool {
	return (m.Addressed || m.Private) && len(m.Args) > 0
}

func (m *MockChatContext) GetCommand() string {
	if len(m.Args) == 0 {
		return ""
	}
	return strings.ToLower(m.Args[0])
}

func (m *MockChatContext) GetArgs() []string { return m.Args }
func (m *MockChatContext) GetSource() string { return m.Source }
func (m *MockChatContext) GetSourceHostmask() string { return "test@host.example" }

func (m *MockChatContext) Reply(message string) {
	m.Replies = append(m.Replies, message)
}

func (m *MockChatContext) Msg(target, message string) {
	m.Msgs = append(m.Msgs, MsgCall{Target: target, Message: message})
}

func (m *MockChatContext) GetTable() *roster.Table { return m.table }
func (m *MockChatContext) GetGate() *auth.Gate { return m.gate }
func (m *MockChatContext) GetStore() *identity.Store { return m.store }
func (m *MockChatContext) GetConfig() *config.Configuration { return m.cfg }
func (m *MockChatContext) GetLogger() *zap.SugaredLogger { return m.logger }

// Assertion helpers

// ReplyCount returns the number of recorded replies
func (m *MockChatContext) ReplyCount() int {
	return len(m.Replies)
}

// LastReply returns the most recent reply, or empty string
func (m *MockChatContext) LastReply() string {
	if len(m.Replies) == 0 {
		return ""
	}
	return m.Replies[len(m.Replies)-1]
}

// LastMsg returns the most recent private message, or the zero value
func (m *MockChatContext) LastMsg() MsgCall {
	if len(m.Msgs) == 0 {
		return MsgCall{}
	}
	return m.Msgs[len(m.Msgs)-1]
}
