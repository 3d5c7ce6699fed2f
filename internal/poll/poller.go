// Package poll keeps a chat view synchronized with the record store by
// re-reading the active chat's messages on an interval. There is no push
// channel anywhere in the system; this periodic re-read is the liveness
// mechanism.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"localchat/internal/domain"
	"localchat/internal/logger"
)

// MessageLister is the read side the poller consumes, satisfied by
// service.Conversation.
type MessageLister interface {
	ListMessages(ctx context.Context, chatID int64) ([]*domain.Message, error)
}

// Poller owns at most one active watch at a time: starting a new watch stops
// the previous one, so reads never race past a chat switch.
type Poller struct {
	lister   MessageLister
	interval time.Duration
	logger   *logger.Logger
	ticks    <-chan time.Time

	mu     sync.Mutex
	active *Watch
}

// Option configures a Poller.
type Option func(*Poller)

// WithTicks replaces the wall-clock ticker with an injected tick channel so
// tests can step the poller deterministically.
func WithTicks(ch <-chan time.Time) Option {
	return func(p *Poller) {
		p.ticks = ch
	}
}

func NewPoller(lister MessageLister, interval time.Duration, l *logger.Logger, opts ...Option) *Poller {
	p := &Poller{
		lister:   lister,
		interval: interval,
		logger:   l,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Watch is the cancelation handle of one polling loop.
type Watch struct {
	ID     string
	chatID int64

	stopOnce sync.Once
	done     chan struct{}
}

// Stop halts further reads. Stopping twice is harmless.
func (w *Watch) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

// Watch performs an immediate read of the chat's messages and then repeats it
// on every tick, handing the full list to onUpdate each time (wholesale
// replacement, no diffing). A failed read is reported to onError once per
// tick and never retried within the tick. Any previously active watch on
// this poller is stopped first.
func (p *Poller) Watch(ctx context.Context, chatID int64, onUpdate func([]*domain.Message), onError func(error)) *Watch {
	w := &Watch{
		ID:     uuid.NewString(),
		chatID: chatID,
		done:   make(chan struct{}),
	}

	p.mu.Lock()
	if p.active != nil {
		p.active.Stop()
	}
	p.active = w
	p.mu.Unlock()

	go p.run(ctx, w, onUpdate, onError)
	return w
}

func (p *Poller) run(ctx context.Context, w *Watch, onUpdate func([]*domain.Message), onError func(error)) {
	p.logger.Debug("watch started", "watch_id", w.ID, "chat_id", w.chatID)
	defer p.logger.Debug("watch stopped", "watch_id", w.ID, "chat_id", w.chatID)

	ticks := p.ticks
	if ticks == nil {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	p.read(ctx, w, onUpdate, onError)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticks:
			p.read(ctx, w, onUpdate, onError)
		}
	}
}

func (p *Poller) read(ctx context.Context, w *Watch, onUpdate func([]*domain.Message), onError func(error)) {
	msgs, err := p.lister.ListMessages(ctx, w.chatID)
	if err != nil {
		p.logger.Error("poll read failed", "watch_id", w.ID, "chat_id", w.chatID, "error", err.Error())
		if onError != nil {
			onError(err)
		}
		return
	}
	// A read may complete concurrently with Stop; don't deliver after it.
	select {
	case <-w.done:
		return
	case <-ctx.Done():
		return
	default:
	}
	onUpdate(msgs)
}
