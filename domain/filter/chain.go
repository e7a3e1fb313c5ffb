package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownFilter indicates a filter name that is not registered.
var ErrUnknownFilter = errors.New("unknown filter")

// Kind names a filter step.
type Kind string

// Filter kinds.
const (
	KindDownsample    Kind = "downsample"
	KindMovingAverage Kind = "moving_average"
)

// Step is one parameterised filter in a Chain.
type Step struct {
	kind Kind
	n    int
}

// NewStep validates and creates a Step.
func NewStep(kind Kind, n int) (Step, error) {
	switch kind {
	case KindDownsample, KindMovingAverage:
	default:
		return Step{}, fmt.Errorf("%w: %q", ErrUnknownFilter, kind)
	}
	if n <= 0 {
		return Step{}, fmt.Errorf("%w: %s:%d", ErrInvalidWindow, kind, n)
	}
	return Step{kind: kind, n: n}, nil
}

// Kind returns the filter kind.
func (s Step) Kind() Kind { return s.kind }

// N returns the factor or window length.
func (s Step) N() int { return s.n }

// String renders the step as "kind:n".
func (s Step) String() string { return string(s.kind) + ":" + strconv.Itoa(s.n) }

// Apply runs the step over x.
func (s Step) Apply(x []float64) ([]float64, error) {
	switch s.kind {
	case KindDownsample:
		return DownsampleAverage(x, s.n)
	case KindMovingAverage:
		return MovingAverage(x, s.n)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, s.kind)
	}
}

// Chain is an ordered sequence of filter steps.
type Chain struct {
	steps []Step
}

// NewChain creates a Chain from steps.
func NewChain(steps ...Step) Chain {
	return Chain{steps: append([]Step(nil), steps...)}
}

// ParseChain parses a comma separated list such as
// "downsample:4,moving_average:8". An empty string yields an empty chain.
func ParseChain(s string) (Chain, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Chain{}, nil
	}
	var steps []Step
	for _, part := range strings.Split(s, ",") {
		name, arg, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return Chain{}, fmt.Errorf("filter %q: missing parameter", part)
		}
		n, err := strconv.Atoi(arg)
		if err != nil {
			return Chain{}, fmt.Errorf("filter %q: %w", part, err)
		}
		step, err := NewStep(Kind(name), n)
		if err != nil {
			return Chain{}, err
		}
		steps = append(steps, step)
	}
	return Chain{steps: steps}, nil
}

// Steps returns a copy of the chain's steps.
func (c Chain) Steps() []Step {
	return append([]Step(nil), c.steps...)
}

// Empty reports whether the chain has no steps.
func (c Chain) Empty() bool { return len(c.steps) == 0 }

// String renders the chain in ParseChain syntax.
func (c Chain) String() string {
	parts := make([]string, len(c.steps))
	for i, s := range c.steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}

// Apply runs every step in order. x itself is never modified.
func (c Chain) Apply(x []float64) ([]float64, error) {
	out := x
	for _, s := range c.steps {
		var err error
		out, err = s.Apply(out)
		if err != nil {
			return nil, fmt.Errorf("apply %s: %w", s, err)
		}
	}
	return out, nil
}
