// Package strategy defines the Strategy interface for signal policies and
// provides a Registry for constructing them by name.
package strategy

import (
	"fmt"
	"sort"

	"norne/internal/domain"
	"norne/internal/indicator"
	"norne/internal/series"
)

// Strategy is the interface that all signal policies must implement.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// GenerateSignal decides what to do with instrument given its history.
	// history holds only rows dated strictly before the decision date.
	GenerateSignal(instrument string, history series.View) domain.Signal
}

// Preparer is implemented by strategies that read indicator columns. The
// engine computes the returned columns once before a run.
type Preparer interface {
	Indicators() []indicator.Spec
}

// Resetter is implemented by strategies that carry per-instrument state.
// The engine calls Reset before every run.
type Resetter interface {
	Reset()
}

// Params configures a strategy built through a Registry. Fields a strategy
// does not use are ignored.
type Params struct {
	// Windows are the moving-average lengths, shortest first.
	Windows []int `yaml:"windows" json:"windows,omitempty"`

	// MinPeriods is the minimum number of valid closes for a moving average.
	// Zero selects the strategy's default.
	MinPeriods int `yaml:"min_periods" json:"min_periods,omitempty"`

	// Entry is the alignment score needed to enter a position.
	Entry int `yaml:"entry" json:"entry,omitempty"`

	// Exit is the score at or below which an open position is left. Nil
	// means Entry-1.
	Exit *int `yaml:"exit" json:"exit,omitempty"`
}

// ExitOrDefault returns Exit, or Entry-1 when unset.
func (p Params) ExitOrDefault() int {
	if p.Exit == nil {
		return p.Entry - 1
	}
	return *p.Exit
}

// Factory builds a fresh strategy instance from params.
type Factory func(p Params) (Strategy, error)

// Registry holds a named collection of strategy factories for lookup and
// enumeration.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory under name, replacing any previous one.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Get retrieves a factory by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// New builds the named strategy.
func (r *Registry) New(name string, p Params) (Strategy, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q: %w", name, ErrUnknownStrategy)
	}
	s, err := f(p)
	if err != nil {
		return nil, fmt.Errorf("strategy %q: %w", name, err)
	}
	return s, nil
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
