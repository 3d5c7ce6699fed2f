package poll_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localchat/internal/domain"
	"localchat/internal/poll"
	"localchat/internal/testutil"
)

type fakeLister struct {
	mu     sync.Mutex
	byChat map[int64][]*domain.Message
	err    error
}

func (f *fakeLister) ListMessages(_ context.Context, chatID int64) ([]*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.byChat[chatID], nil
}

func (f *fakeLister) add(chatID int64, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byChat == nil {
		f.byChat = map[int64][]*domain.Message{}
	}
	f.byChat[chatID] = append(f.byChat[chatID], &domain.Message{ChatID: chatID, Body: body})
}

func collect(updates chan []*domain.Message, t *testing.T) []*domain.Message {
	t.Helper()
	select {
	case msgs := <-updates:
		return msgs
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for poll update")
		return nil
	}
}

func TestWatchReadsImmediatelyAndOnTicks(t *testing.T) {
	lister := &fakeLister{}
	lister.add(1, "hello")
	ticks := make(chan time.Time)
	p := poll.NewPoller(lister, time.Hour, testutil.MakeNoopLogger(), poll.WithTicks(ticks))

	updates := make(chan []*domain.Message, 8)
	w := p.Watch(context.Background(), 1, func(msgs []*domain.Message) {
		updates <- msgs
	}, nil)
	defer w.Stop()

	// Initial read happens without any tick.
	first := collect(updates, t)
	require.Len(t, first, 1)
	assert.Equal(t, "hello", first[0].Body)

	lister.add(1, "again")
	ticks <- time.Now()
	second := collect(updates, t)
	assert.Len(t, second, 2)
}

func TestWatchStopHaltsReads(t *testing.T) {
	lister := &fakeLister{}
	ticks := make(chan time.Time, 1)
	p := poll.NewPoller(lister, time.Hour, testutil.MakeNoopLogger(), poll.WithTicks(ticks))

	updates := make(chan []*domain.Message, 8)
	w := p.Watch(context.Background(), 1, func(msgs []*domain.Message) {
		updates <- msgs
	}, nil)
	collect(updates, t)

	w.Stop()
	// Stopping twice is harmless.
	w.Stop()

	// No further updates arrive, with or without pending ticks.
	select {
	case ticks <- time.Now():
	default:
	}
	select {
	case <-updates:
		t.Fatal("received update after Stop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNewWatchStopsPreviousOne(t *testing.T) {
	lister := &fakeLister{}
	lister.add(1, "in-one")
	lister.add(2, "in-two")
	ticks := make(chan time.Time)
	p := poll.NewPoller(lister, time.Hour, testutil.MakeNoopLogger(), poll.WithTicks(ticks))

	updates1 := make(chan []*domain.Message, 8)
	w1 := p.Watch(context.Background(), 1, func(msgs []*domain.Message) {
		updates1 <- msgs
	}, nil)
	collect(updates1, t)

	updates2 := make(chan []*domain.Message, 8)
	w2 := p.Watch(context.Background(), 2, func(msgs []*domain.Message) {
		updates2 <- msgs
	}, nil)
	defer w2.Stop()
	assert.NotEqual(t, w1.ID, w2.ID)

	got := collect(updates2, t)
	require.Len(t, got, 1)
	assert.Equal(t, "in-two", got[0].Body)

	// Feed ticks until the new watch reports again; the replaced watch must
	// stay silent throughout.
	require.Eventually(t, func() bool {
		select {
		case ticks <- time.Now():
		default:
		}
		select {
		case <-updates2:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	select {
	case <-updates1:
		t.Fatal("replaced watch delivered an update")
	default:
	}
}

func TestWatchReportsReadErrorOnce(t *testing.T) {
	readErr := errors.New("backend gone")
	lister := &fakeLister{err: readErr}
	ticks := make(chan time.Time)
	p := poll.NewPoller(lister, time.Hour, testutil.MakeNoopLogger(), poll.WithTicks(ticks))

	errs := make(chan error, 8)
	w := p.Watch(context.Background(), 1, func([]*domain.Message) {
		t.Error("onUpdate must not fire for failed reads")
	}, func(err error) {
		errs <- err
	})
	defer w.Stop()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, readErr)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for poll error")
	}
}

func TestWatchHonorsContextCancel(t *testing.T) {
	lister := &fakeLister{}
	ticks := make(chan time.Time)
	p := poll.NewPoller(lister, time.Hour, testutil.MakeNoopLogger(), poll.WithTicks(ticks))

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan []*domain.Message, 8)
	p.Watch(ctx, 1, func(msgs []*domain.Message) {
		updates <- msgs
	}, nil)
	collect(updates, t)

	cancel()
	select {
	case ticks <- time.Now():
	case <-time.After(50 * time.Millisecond):
		// The loop already exited and nobody is receiving; both outcomes
		// mean no further delivery.
	}
	select {
	case <-updates:
		t.Fatal("received update after context cancel")
	case <-time.After(50 * time.Millisecond):
	}
}
