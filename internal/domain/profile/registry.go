package profile

import (
	"fmt"

	"github.com/okian/deuce/internal/domain/rating"
)

// Registry holds one validated profile per sport.
type Registry struct {
	profiles map[rating.Sport]*Profile
	errs     []error
}

// Option applies a configuration option to the Registry before validation.
type Option func(*Registry)

// WithRangeScale overrides the range scale of one category of one sport.
// Use CategorySkills for the skill matrix.
func WithRangeScale(sport rating.Sport, categoryName string, scale float64) Option {
	return func(r *Registry) {
		c, err := r.category(sport, categoryName)
		if err != nil {
			r.errs = append(r.errs, err)
			return
		}
		c.RangeScale = scale
	}
}

// WithConfidenceWeight overrides the confidence weight of one category.
func WithConfidenceWeight(sport rating.Sport, categoryName string, weight float64) Option {
	return func(r *Registry) {
		c, err := r.category(sport, categoryName)
		if err != nil {
			r.errs = append(r.errs, err)
			return
		}
		c.ConfidenceWeight = weight
	}
}

// WithDoublesOffset overrides the doubles offset of an offset-rule sport.
// Mirror-rule sports ignore it.
func WithDoublesOffset(sport rating.Sport, offset int) Option {
	return func(r *Registry) {
		p, ok := r.profiles[sport]
		if !ok {
			r.errs = append(r.errs, fmt.Errorf("%w: %s", ErrProfileNotFound, sport))
			return
		}
		if p.Doubles.Kind == DoublesOffsetWhenNegative {
			p.Doubles.Offset = offset
		}
	}
}

// WithProfile replaces (or adds) the profile for p.Sport.
func WithProfile(p *Profile) Option {
	return func(r *Registry) {
		if p != nil {
			r.profiles[p.Sport] = p.clone()
		}
	}
}

// NewRegistry builds the built-in profiles, applies opts and validates the
// result. Any invalid table is reported here, once, at startup.
func NewRegistry(opts ...Option) (*Registry, error) {
	r := &Registry{profiles: make(map[rating.Sport]*Profile, len(rating.Sports()))}
	for _, p := range []*Profile{Tennis(), Pickleball(), Padel()} {
		r.profiles[p.Sport] = p
	}

	for _, opt := range opts {
		opt(r)
	}
	if len(r.errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, r.errs[0])
	}

	for _, sport := range rating.Sports() {
		p, ok := r.profiles[sport]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, sport)
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustNewRegistry is NewRegistry for the built-in tables; it panics on error.
func MustNewRegistry(opts ...Option) *Registry {
	r, err := NewRegistry(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the profile for sport.
func (r *Registry) Get(sport rating.Sport) (*Profile, error) {
	p, ok := r.profiles[sport]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, sport)
	}
	return p, nil
}

func (r *Registry) category(sport rating.Sport, name string) (*Category, error) {
	p, ok := r.profiles[sport]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, sport)
	}
	c, ok := p.Category(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownCategory, sport, name)
	}
	return c, nil
}
