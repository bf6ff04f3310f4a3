package roster

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lrstanley/girc"
	"go.uber.org/zap"

	"pkdindustries/warden/internal/core"
	"pkdindustries/warden/internal/identity"
)

var (
	// ErrQueryPending is returned when a NAMES or WHO resolution is already
	// in flight for the same key.
	ErrQueryPending = errors.New("query already in flight")

	// ErrQueryTimeout completes a pending query whose terminating reply
	// never arrived before the deadline.
	ErrQueryTimeout = errors.New("query deadline exceeded")
)

// Conn is the slice of the IRC client the resolver needs: sending raw
// protocol lines and private notices.
type Conn interface {
	SendRaw(line string) error
	Msg(target, message string)
}

// NamesResult is the completed outcome of a NAMES resolution.
type NamesResult struct {
	Channel string
	Nicks   []string
	Err     error
}

// WhoResult is the completed outcome of a WHO resolution.
type WhoResult struct {
	Nick     string
	Hostmask string
	Err      error
}

type queryKind string

const (
	kindNames queryKind = "NAMES"
	kindWho   queryKind = "WHO"
)

type queryKey struct {
	kind queryKind
	key  string
}

// pendingQuery accumulates partial protocol replies until the terminating
// reply (or the deadline) completes it.
type pendingQuery struct {
	nicks   []string
	seen    map[string]struct{}
	namesCh chan NamesResult
	whoCh   chan WhoResult
	timer   *time.Timer
}

// Resolver correlates asynchronous NAMES/WHO reply sequences into single
// logical results and keeps the session table in sync with them. At most one
// query of a given kind is outstanding per key.
type Resolver struct {
	mu      sync.Mutex
	pending map[queryKey]*pendingQuery

	conn     Conn
	table    *Table
	store    *identity.Store
	botNick  string
	override string
	timeout  time.Duration
	log      *zap.SugaredLogger
}

func NewResolver(conn Conn, table *Table, store *identity.Store, botNick, adminOverride string, timeout time.Duration) *Resolver {
	return &Resolver{
		pending:  make(map[queryKey]*pendingQuery),
		conn:     conn,
		table:    table,
		store:    store,
		botNick:  botNick,
		override: adminOverride,
		timeout:  timeout,
		log:      core.WithFields("component", "resolver"),
	}
}

// ResolveNames issues a NAMES request for a known channel and returns a
// channel that receives the full membership once the end-of-names reply
// arrives. An unknown channel is a silent no-op returning a nil channel.
func (r *Resolver) ResolveNames(channel string) (<-chan NamesResult, error) {
	channel = strings.ToLower(channel)
	if !r.table.HasChannel(channel) {
		r.log.Debugw("names_unknown_channel", "channel", channel)
		return nil, nil
	}

	q, err := r.register(queryKey{kindNames, channel})
	if err != nil {
		return nil, err
	}

	core.WithQuery(r.log, string(kindNames), channel).Debug("query_issued")
	if err := r.conn.SendRaw("NAMES " + channel); err != nil {
		r.take(queryKey{kindNames, channel})
		return nil, err
	}
	return q.namesCh, nil
}

// ResolveWho issues a WHO request for a nick and returns a channel that
// receives the resolved hostmask on the end-of-who reply.
func (r *Resolver) ResolveWho(nick string) (<-chan WhoResult, error) {
	q, err := r.register(queryKey{kindWho, nick})
	if err != nil {
		return nil, err
	}

	r.table.Observe(nick)
	core.WithQuery(r.log, string(kindWho), nick).Debug("query_issued")
	if err := r.conn.SendRaw("WHO " + nick); err != nil {
		r.take(queryKey{kindWho, nick})
		return nil, err
	}
	return q.whoCh, nil
}

// register installs a pending query with its deadline timer. A second query
// for the same key while one is outstanding is rejected, never overwritten.
func (r *Resolver) register(k queryKey) (*pendingQuery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[k]; ok {
		return nil, fmt.Errorf("%w: %s %s", ErrQueryPending, k.kind, k.key)
	}
	q := &pendingQuery{
		seen:    make(map[string]struct{}),
		namesCh: make(chan NamesResult, 1),
		whoCh:   make(chan WhoResult, 1),
	}
	q.timer = time.AfterFunc(r.timeout, func() { r.expire(k) })
	r.pending[k] = q
	return q, nil
}

// take removes and returns the pending query for a key, stopping its timer.
func (r *Resolver) take(k queryKey) *pendingQuery {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.pending[k]
	if !ok {
		return nil
	}
	delete(r.pending, k)
	q.timer.Stop()
	return q
}

// expire completes a query that never received its terminating reply.
func (r *Resolver) expire(k queryKey) {
	q := r.take(k)
	if q == nil {
		return
	}
	core.WithQuery(r.log, string(k.kind), k.key).Warn("query_timeout")
	err := fmt.Errorf("%w: %s %s", ErrQueryTimeout, k.kind, k.key)
	switch k.kind {
	case kindNames:
		q.namesCh <- NamesResult{Channel: k.key, Err: err}
	case kindWho:
		q.whoCh <- WhoResult{Nick: k.key, Err: err}
	}
}

// HandleEvent feeds one protocol reply into the resolver. Reply codes it
// does not care about are logged and dropped without touching any pending
// query.
func (r *Resolver) HandleEvent(e girc.Event) {
	switch e.Command {
	case girc.RPL_NAMREPLY:
		r.handleNamReply(e)
	case girc.RPL_ENDOFNAMES:
		r.handleEndOfNames(e)
	case girc.RPL_WHOREPLY:
		r.handleWhoReply(e)
	case girc.RPL_ENDOFWHO:
		r.handleEndOfWho(e)
	default:
		r.log.Debugw("reply_ignored", "command", e.Command, "params", e.Params)
	}
}

// handleNamReply merges one membership fragment into the pending NAMES
// query for its channel. Fragments for unknown channels are dropped.
func (r *Resolver) handleNamReply(e girc.Event) {
	// :server 353 me = #channel :@alice bob
	if len(e.Params) < 4 {
		r.log.Debugw("names_fragment_malformed", "params", e.Params)
		return
	}
	channel := strings.ToLower(e.Params[2])
	if !r.table.HasChannel(channel) {
		r.log.Debugw("names_fragment_unknown_channel", "channel", channel)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.pending[queryKey{kindNames, channel}]
	if !ok {
		return
	}
	for _, name := range strings.Fields(e.Params[3]) {
		name = strings.TrimLeft(name, "@+%&~")
		if name == "" {
			continue
		}
		if _, dup := q.seen[name]; dup {
			continue
		}
		q.seen[name] = struct{}{}
		q.nicks = append(q.nicks, name)
	}
}

// handleEndOfNames completes the NAMES resolution for a channel, commits
// the roster, and issues WHO for every nick without a resolved session.
func (r *Resolver) handleEndOfNames(e girc.Event) {
	// :server 366 me #channel :End of /NAMES list
	if len(e.Params) < 2 {
		return
	}
	channel := strings.ToLower(e.Params[1])
	q := r.take(queryKey{kindNames, channel})
	if q == nil {
		return
	}

	r.table.SetRoster(channel, q.nicks)
	core.WithQuery(r.log, string(kindNames), channel).Infow("query_complete", "nicks", q.nicks)
	q.namesCh <- NamesResult{Channel: channel, Nicks: q.nicks}

	// Continuation: learn the hostmask of everyone we have not met yet.
	for _, nick := range q.nicks {
		if nick == r.botNick {
			continue
		}
		if s, ok := r.table.Get(nick); ok && s.Hostmask != "" {
			continue
		}
		if _, err := r.ResolveWho(nick); err != nil {
			core.WithQuery(r.log, string(kindWho), nick).Debugw("who_skipped", "error", err)
		}
	}
}

// handleWhoReply caches the hostmask carried by a WHO reply line. A reply
// that disagrees with an already cached hostmask is a protocol
// inconsistency: the existing value wins and the conflict is logged.
func (r *Resolver) handleWhoReply(e girc.Event) {
	// :server 352 me #channel user host server nick flags :0 realname
	if len(e.Params) < 6 {
		r.log.Debugw("who_reply_malformed", "params", e.Params)
		return
	}
	nick := e.Params[5]
	hostmask := e.Params[2] + "@" + e.Params[3]

	_, known := r.table.Get(nick)
	r.mu.Lock()
	_, pending := r.pending[queryKey{kindWho, nick}]
	r.mu.Unlock()
	if !known && !pending {
		r.log.Debugw("who_reply_unknown_nick", "nick", nick)
		return
	}

	if s, ok := r.table.Get(nick); ok && s.Hostmask != "" && s.Hostmask != hostmask {
		core.WithNick(r.log, nick, s.Hostmask).Warnw("protocol_inconsistency",
			"cached_hostmask", s.Hostmask,
			"reply_hostmask", hostmask,
		)
		return
	}
	r.table.SetHostmask(nick, hostmask)
}

// handleEndOfWho completes the WHO resolution for a nick and runs the
// recognition continuation against the identity archive.
func (r *Resolver) handleEndOfWho(e girc.Event) {
	// :server 315 me nick :End of /WHO list
	if len(e.Params) < 2 {
		return
	}
	nick := e.Params[1]
	q := r.take(queryKey{kindWho, nick})
	if q == nil {
		return
	}

	s, ok := r.table.Get(nick)
	if !ok || s.Hostmask == "" {
		core.WithQuery(r.log, string(kindWho), nick).Warn("query_complete_without_hostmask")
		q.whoCh <- WhoResult{Nick: nick, Err: fmt.Errorf("no WHO data received for %s", nick)}
		return
	}

	core.WithNick(r.log, nick, s.Hostmask).Info("who_resolved")
	q.whoCh <- WhoResult{Nick: nick, Hostmask: s.Hostmask}

	if s.Identity == nil {
		r.recognize(nick, s.Hostmask)
	}
}

// recognize binds an identity to a freshly resolved nick: a registered
// archive record with a matching hostmask logs the user in automatically,
// an unknown nick gets a fresh in-memory identity, and a hostmask mismatch
// refuses the binding.
func (r *Resolver) recognize(nick, hostmask string) {
	logger := core.WithNick(r.log, nick, hostmask)

	id, err := r.store.Load(nick)
	if err != nil {
		logger.Errorw("recognition_failed", "error", err)
		r.conn.Msg(nick, "I had trouble reading your profile, please try again in a moment.")
		return
	}

	if id == nil {
		r.table.Bind(nick, identity.New(nick))
		logger.Debug("new_unregistered_identity")
		return
	}

	if !id.AllowsHostmask(hostmask) {
		logger.Infow("hostmask_not_recognised", "known", len(id.Hostmasks))
		r.conn.Msg(nick, "The username you've chosen is already registered to another hostmask. Please choose another name or login.")
		return
	}

	id.CurrentNick = nick
	r.table.Bind(nick, id)
	logger.Infow("user_recognised", "username", id.Username)
	r.conn.Msg(nick, fmt.Sprintf("Hi %s, I recognise you from earlier connections, you have been logged in automatically.", id.Username))

	if id.Admin || nick == r.override {
		r.table.AddAdmin(nick)
		logger.Info("admin_restored")
	}
}
