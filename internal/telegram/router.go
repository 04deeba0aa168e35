// Package telegram wires Telegram updates to the session state machine.
package telegram

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sessions is the slice of the session service the router dispatches into.
type Sessions interface {
	Start(ctx context.Context, userID int64)
	Done(ctx context.Context, userID int64)
	Help(ctx context.Context, userID int64)
	SetTime(ctx context.Context, userID int64, arg string)
	FreeText(ctx context.Context, userID int64, text string)
	Location(ctx context.Context, userID int64, lat, lon float64)
}

type commandFunc func(ctx context.Context, userID int64, arg string)

// Per-user queue depth. A full queue drops updates rather than stalling the
// poll loop.
const queueDepth = 16

// Router dispatches inbound updates to session handlers. Updates for the
// same user are handled in order on a dedicated worker; different users
// never wait on each other.
type Router struct {
	log      *zap.Logger
	sessions Sessions
	commands map[string]commandFunc

	mu     sync.Mutex
	queues map[int64]chan tgbotapi.Update
}

// NewRouter creates a router dispatching into the given session service.
func NewRouter(log *zap.Logger, sessions Sessions) *Router {
	r := &Router{
		log:      log,
		sessions: sessions,
		queues:   make(map[int64]chan tgbotapi.Update),
	}
	r.commands = map[string]commandFunc{
		"/start": func(ctx context.Context, userID int64, _ string) { sessions.Start(ctx, userID) },
		"/done":  func(ctx context.Context, userID int64, _ string) { sessions.Done(ctx, userID) },
		"/help":  func(ctx context.Context, userID int64, _ string) { sessions.Help(ctx, userID) },
		"/time":  func(ctx context.Context, userID int64, arg string) { sessions.SetTime(ctx, userID, arg) },
	}
	return r
}

// Dispatch enqueues one update on its user's queue, starting a worker for
// the user on first contact.
func (r *Router) Dispatch(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil {
		return
	}
	userID := msg.From.ID

	q := r.queue(ctx, userID)
	select {
	case q <- upd:
	default:
		r.log.Warn("user queue full, dropping update", zap.Int64("user_id", userID))
	}
}

func (r *Router) queue(ctx context.Context, userID int64) chan tgbotapi.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[userID]
	if !ok {
		q = make(chan tgbotapi.Update, queueDepth)
		r.queues[userID] = q
		go r.worker(ctx, q)
	}
	return q
}

func (r *Router) worker(ctx context.Context, q <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd := <-q:
			r.handle(ctx, upd)
		}
	}
}

// handle routes a single update: location payloads, then the command table,
// then the free-text fallback. Unknown slash commands fall through to free
// text like any other message.
func (r *Router) handle(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	userID := msg.From.ID

	if msg.Location != nil {
		r.sessions.Location(ctx, userID, msg.Location.Latitude, msg.Location.Longitude)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		cmd, arg := splitCommand(text)
		if h, ok := r.commands[cmd]; ok {
			h(ctx, userID, arg)
			return
		}
	}
	r.sessions.FreeText(ctx, userID, text)
}

// splitCommand separates the command keyword from its argument and strips a
// trailing @botname mention from the keyword.
func splitCommand(text string) (cmd, arg string) {
	cmd, arg, _ = strings.Cut(text, " ")
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}
