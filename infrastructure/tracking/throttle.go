// Package tracking delivers transfer progress to logs and other sinks.
package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ul-gh/hdscope/domain/tracking"
)

var _ tracking.Reporter = (*Throttle)(nil)

// Throttle forwards progress to another Reporter at most once per interval
// and transfer. An update arriving too early is held back; only the newest
// held update is delivered, when the interval has passed. Started and
// terminal updates always go through at once, and a terminal update drops
// anything held for its transfer. Deliveries of one transfer never overlap
// and never reorder, so nothing reaches next after its terminal update.
type Throttle struct {
	next     tracking.Reporter
	interval time.Duration

	mu      sync.Mutex
	streams map[string]*stream
}

type stream struct {
	deliver sync.Mutex // held while calling next for this transfer
	sent    time.Time
	held    *tracking.Progress
	timer   *time.Timer
	done    bool
}

// NewThrottle wraps next.
func NewThrottle(next tracking.Reporter, interval time.Duration) *Throttle {
	return &Throttle{next: next, interval: interval, streams: map[string]*stream{}}
}

// OnChange forwards or holds p.
func (t *Throttle) OnChange(ctx context.Context, p tracking.Progress) error {
	id := p.ID()

	t.mu.Lock()
	s, ok := t.streams[id]
	if p.State().IsTerminal() {
		if ok {
			s.stop()
			s.done = true
			delete(t.streams, id)
		}
		t.mu.Unlock()
		if !ok {
			return t.next.OnChange(ctx, p)
		}
		s.deliver.Lock()
		defer s.deliver.Unlock()
		return t.next.OnChange(ctx, p)
	}

	if !ok {
		s = &stream{}
		t.streams[id] = s
	}
	wait := t.interval - time.Since(s.sent)
	if wait > 0 {
		s.held = &p
		if s.timer == nil {
			s.timer = time.AfterFunc(wait, func() { t.release(s) })
		}
		t.mu.Unlock()
		return nil
	}
	s.stop()
	s.sent = time.Now()
	t.mu.Unlock()

	s.deliver.Lock()
	defer s.deliver.Unlock()
	return t.next.OnChange(ctx, p)
}

// release delivers the update held in s unless its transfer has ended.
func (t *Throttle) release(s *stream) {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	t.mu.Lock()
	held := s.held
	s.held, s.timer = nil, nil
	if s.done {
		held = nil
	}
	if held != nil {
		s.sent = time.Now()
	}
	t.mu.Unlock()

	if held != nil {
		_ = t.next.OnChange(context.Background(), *held)
	}
}

// Close delivers every held update and forgets all transfers.
func (t *Throttle) Close() error {
	t.mu.Lock()
	streams := t.streams
	t.streams = map[string]*stream{}
	held := make(map[*stream]*tracking.Progress, len(streams))
	for _, s := range streams {
		held[s] = s.held
		s.stop()
	}
	t.mu.Unlock()

	var errs []error
	for s, p := range held {
		if p == nil {
			continue
		}
		s.deliver.Lock()
		errs = append(errs, t.next.OnChange(context.Background(), *p))
		s.deliver.Unlock()
	}
	return errors.Join(errs...)
}

func (s *stream) stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.held = nil
}
