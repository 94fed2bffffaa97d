// Package selector implements weighted random sampling that discourages
// immediate repetition.
//
// After an item is drawn its probability is multiplied by the decay factor
// and the removed mass is handed to the other items in proportion to their
// initial weights, so the distribution drifts back toward the original
// proportions over subsequent draws.
package selector

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// DefaultDecay is the decay factor used by the trainer's selectors. With
// three equal items it keeps a tense from filling a window of three
// consecutive picks in all but a few percent of twelve-pick runs.
const DefaultDecay = 0.25

// Source yields uniform random numbers in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Option configures a Selector.
type Option func(*options)

type options struct {
	src Source
}

// WithSource overrides the random source. Useful for deterministic tests.
func WithSource(src Source) Option {
	return func(o *options) { o.src = src }
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Selector draws items from a fixed pool. It is not safe for concurrent use.
type Selector[T any] struct {
	items   []T
	initial []float64
	current []float64
	decay   float64
	src     Source
}

// New creates a Selector over items. A nil weights slice means equal
// weights; otherwise weights must be index-aligned with items, non-negative
// and not all zero. decay must lie strictly between 0 and 1.
func New[T any](items []T, weights []float64, decay float64, opts ...Option) (*Selector[T], error) {
	if len(items) == 0 {
		return nil, errors.New("selector: empty item pool")
	}
	if decay <= 0 || decay >= 1 {
		return nil, fmt.Errorf("selector: decay %v outside (0, 1)", decay)
	}
	if weights == nil {
		weights = make([]float64, len(items))
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != len(items) {
		return nil, fmt.Errorf("selector: %d weights for %d items", len(weights), len(items))
	}

	var total float64
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("selector: negative weight %v at index %d", w, i)
		}
		total += w
	}
	if total == 0 {
		return nil, errors.New("selector: weights sum to zero")
	}

	o := options{src: globalSource{}}
	for _, opt := range opts {
		opt(&o)
	}

	initial := make([]float64, len(weights))
	for i, w := range weights {
		initial[i] = w / total
	}
	current := make([]float64, len(initial))
	copy(current, initial)

	pool := make([]T, len(items))
	copy(pool, items)

	return &Selector[T]{
		items:   pool,
		initial: initial,
		current: current,
		decay:   decay,
		src:     o.src,
	}, nil
}

// Select draws one item and rebalances the distribution.
func (s *Selector[T]) Select() T {
	i := s.draw()
	s.rebalance(i)
	return s.items[i]
}

// Probabilities returns a copy of the current distribution.
func (s *Selector[T]) Probabilities() []float64 {
	out := make([]float64, len(s.current))
	copy(out, s.current)
	return out
}

// Len returns the pool size.
func (s *Selector[T]) Len() int {
	return len(s.items)
}

// draw picks an index from the current distribution. Work happens on
// indices so duplicate items in the pool keep their own probabilities.
func (s *Selector[T]) draw() int {
	var total float64
	for _, p := range s.current {
		total += p
	}
	r := s.src.Float64() * total

	last := 0
	var acc float64
	for i, p := range s.current {
		if p <= 0 {
			continue
		}
		acc += p
		last = i
		if r < acc {
			return i
		}
	}
	// Float rounding can leave r just above the accumulated sum.
	return last
}

func (s *Selector[T]) rebalance(i int) {
	var othersInitial float64
	for j, p := range s.initial {
		if j != i {
			othersInitial += p
		}
	}
	// Nobody to hand the mass to: keep the distribution as is.
	if othersInitial == 0 {
		return
	}

	old := s.current[i]
	decayed := old * s.decay
	diff := old - decayed

	for j := range s.current {
		if j == i {
			continue
		}
		s.current[j] += diff * s.initial[j] / othersInitial
	}
	s.current[i] = decayed
}
