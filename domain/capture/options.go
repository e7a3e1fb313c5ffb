package capture

import (
	"time"

	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/domain/store"
)

// WithID selects one capture.
func WithID(id int64) store.Option {
	return store.ByID(id)
}

// WithChannel selects captures of one channel.
func WithChannel(ch instrument.Channel) store.Option {
	return store.Where("channel", int(ch))
}

// WithInstrument selects captures taken by the named instrument model.
func WithInstrument(name string) store.Option {
	return store.Where("instrument", name)
}

// WithCapturedAfter selects captures created after t.
func WithCapturedAfter(t time.Time) store.Option {
	return store.After("created_at", t)
}

// WithCapturedBefore selects captures created before t.
func WithCapturedBefore(t time.Time) store.Option {
	return store.Before("created_at", t)
}

// WithPage returns at most limit captures after skipping offset.
func WithPage(limit, offset int) store.Option {
	return store.Page(limit, offset)
}

// WithNewestFirst orders by creation time, most recent first. Captures
// created within the same clock tick fall back to descending ID.
func WithNewestFirst() store.Option {
	return func(q *store.Query) {
		store.OrderByDesc("created_at")(q)
		store.OrderByDesc("id")(q)
	}
}
