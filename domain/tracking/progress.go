// Package tracking describes the progress of chunked waveform transfers.
package tracking

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ul-gh/hdscope/domain/instrument"
)

// State is the lifecycle state of a transfer.
type State string

// State values.
const (
	StateStarted    State = "started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// IsTerminal returns true if the state represents a final state.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Reporter receives progress snapshots.
type Reporter interface {
	OnChange(ctx context.Context, progress Progress) error
}

var sequence atomic.Int64

// Progress is an immutable snapshot of one transfer.
type Progress struct {
	id        string
	channel   instrument.Channel
	state     State
	total     int
	current   int
	chunks    int
	chunk     int
	err       string
	startedAt time.Time
	updatedAt time.Time
}

// NewProgress starts tracking a transfer of total samples of ch split into
// chunks requests. Every call yields a new ID.
func NewProgress(ch instrument.Channel, total, chunks int) Progress {
	now := time.Now().UTC()
	return Progress{
		id:        fmt.Sprintf("%s-%d", ch, sequence.Add(1)),
		channel:   ch,
		state:     StateStarted,
		total:     total,
		chunks:    chunks,
		startedAt: now,
		updatedAt: now,
	}
}

// ID returns the transfer identifier.
func (p Progress) ID() string { return p.id }

// Channel returns the channel being read.
func (p Progress) Channel() instrument.Channel { return p.channel }

// State returns the lifecycle state.
func (p Progress) State() State { return p.state }

// Total returns the record length in samples.
func (p Progress) Total() int { return p.total }

// Current returns the number of samples read so far.
func (p Progress) Current() int { return p.current }

// Chunks returns the number of planned requests.
func (p Progress) Chunks() int { return p.chunks }

// Chunk returns the number of completed requests.
func (p Progress) Chunk() int { return p.chunk }

// Error returns the failure message of a failed transfer.
func (p Progress) Error() string { return p.err }

// StartedAt returns when the transfer began.
func (p Progress) StartedAt() time.Time { return p.startedAt }

// UpdatedAt returns the time of the latest change.
func (p Progress) UpdatedAt() time.Time { return p.updatedAt }

// Elapsed returns the time between start and the latest change.
func (p Progress) Elapsed() time.Duration { return p.updatedAt.Sub(p.startedAt) }

// CompletionPercent returns the share of samples read, 0 to 100.
func (p Progress) CompletionPercent() float64 {
	if p.total <= 0 {
		return 0
	}
	return min(float64(p.current)/float64(p.total)*100, 100)
}

// Advance records one completed request of n samples.
func (p Progress) Advance(n int) Progress {
	p.current += n
	p.chunk++
	p.state = StateInProgress
	p.updatedAt = time.Now().UTC()
	return p
}

// Complete marks the transfer as done.
func (p Progress) Complete() Progress {
	p.state = StateCompleted
	p.updatedAt = time.Now().UTC()
	return p
}

// Fail marks the transfer as failed with err.
func (p Progress) Fail(err error) Progress {
	p.state = StateFailed
	if err != nil {
		p.err = err.Error()
	}
	p.updatedAt = time.Now().UTC()
	return p
}
