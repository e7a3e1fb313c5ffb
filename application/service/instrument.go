package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ul-gh/hdscope/domain/instrument"
)

// Status describes the connected instrument.
type Status struct {
	Identity    instrument.Identity
	Running     bool
	MemoryDepth instrument.MemoryDepth
	// AutoDepth is set when the scope selects its memory depth itself.
	AutoDepth bool
	Channels  int
	MaxChunk  int
}

// Instrument exposes direct control of the connected scope.
type Instrument struct {
	scope  instrument.Scope
	lock   *InstrumentLock
	logger *slog.Logger
}

// NewInstrument creates an Instrument service. scope may be nil, in which
// case every operation returns ErrNoScope.
func NewInstrument(scope instrument.Scope, lock *InstrumentLock, logger *slog.Logger) *Instrument {
	if logger == nil {
		logger = slog.Default()
	}
	return &Instrument{scope: scope, lock: lock, logger: logger}
}

// Connected reports whether a scope is attached.
func (s *Instrument) Connected() bool { return s.scope != nil }

// Identify returns the *IDN? identity.
func (s *Instrument) Identify(ctx context.Context) (instrument.Identity, error) {
	var id instrument.Identity
	err := s.with(ctx, func() error {
		var err error
		id, err = s.scope.Identify(ctx)
		return err
	})
	return id, err
}

// Status returns identity, run state and memory depth.
func (s *Instrument) Status(ctx context.Context) (Status, error) {
	var st Status
	err := s.with(ctx, func() error {
		var err error
		if st.Identity, err = s.scope.Identify(ctx); err != nil {
			return fmt.Errorf("identify: %w", err)
		}
		if st.Running, err = s.scope.Running(ctx); err != nil {
			return fmt.Errorf("run state: %w", err)
		}
		st.MemoryDepth, err = s.scope.MemoryDepth(ctx)
		switch {
		case errors.Is(err, instrument.ErrAutoMemoryDepth):
			st.AutoDepth = true
		case err != nil:
			return fmt.Errorf("memory depth: %w", err)
		}
		st.Channels = s.scope.Channels()
		st.MaxChunk = s.scope.MaxChunk()
		return nil
	})
	return st, err
}

// Run resumes free-running acquisition.
func (s *Instrument) Run(ctx context.Context) error {
	return s.with(ctx, func() error {
		if err := s.scope.Run(ctx); err != nil {
			return err
		}
		s.logger.Info("acquisition running")
		return nil
	})
}

// Stop halts acquisition.
func (s *Instrument) Stop(ctx context.Context) error {
	return s.with(ctx, func() error {
		if err := s.scope.Stop(ctx); err != nil {
			return err
		}
		s.logger.Info("acquisition stopped")
		return nil
	})
}

// SetMemoryDepth changes the acquisition record length.
func (s *Instrument) SetMemoryDepth(ctx context.Context, depth instrument.MemoryDepth) error {
	if depth <= 0 {
		return fmt.Errorf("%w: %d", instrument.ErrInvalidMemoryDepth, depth)
	}
	return s.with(ctx, func() error {
		if err := s.scope.SetMemoryDepth(ctx, depth); err != nil {
			return err
		}
		s.logger.Info("memory depth set", slog.String("depth", depth.String()))
		return nil
	})
}

func (s *Instrument) with(ctx context.Context, fn func() error) error {
	if s.scope == nil {
		return ErrNoScope
	}
	release, err := s.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
