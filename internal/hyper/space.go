// Package hyper models hyperparameter search spaces: named distributions,
// sampled assignments, and the encoding of assignments into fixed-length
// unit vectors consumed by the model-based sampler.
package hyper

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

//////
// Const, vars, types.
//////

// Assignment is one sampled hyperparameter configuration: a mapping from
// parameter name to its sampled value. Values are produced by the space's
// distributions and are read-only from the consumer's perspective.
type Assignment map[string]any

// Distribution describes one searchable parameter.
//
// Encode and Decode translate between a parameter value and a coordinate in
// [0, 1], so that a full Assignment becomes a point in the unit hypercube.
// The surrogate model never sees raw values; log-uniform parameters are
// encoded in log space and categoricals by bucket index, which keeps the
// RBF kernel's notion of distance meaningful across heterogeneous ranges.
type Distribution interface {
	// Name returns the parameter name.
	Name() string

	// Sample draws a value from the distribution using rng.
	Sample(rng *rand.Rand) any

	// Encode maps a value of this distribution to a coordinate in [0, 1].
	Encode(v any) (float64, error)

	// Decode maps a coordinate in [0, 1] back to a valid value.
	Decode(u float64) any
}

// Uniform is a continuous uniform distribution over [Low, High].
type Uniform struct {
	name string

	Low, High float64
}

// LogUniform is a continuous distribution whose logarithm is uniform over
// [log(Low), log(High)]. Low must be positive.
type LogUniform struct {
	name string

	Low, High float64
}

// IntUniform is a discrete uniform distribution over the integers
// [Low, High], both inclusive.
type IntUniform struct {
	name string

	Low, High int
}

// Categorical is a uniform choice among a fixed set of values.
type Categorical struct {
	name string

	Choices []any
}

// Space is an ordered collection of distributions. The order is fixed at
// construction and defines the layout of encoded vectors.
type Space struct {
	dists []Distribution
}

//////
// Factories.
//////

// NewUniform returns a uniform distribution named name over [low, high].
func NewUniform(name string, low, high float64) Uniform {
	return Uniform{name: name, Low: low, High: high}
}

// NewLogUniform returns a log-uniform distribution named name over
// [low, high].
func NewLogUniform(name string, low, high float64) LogUniform {
	return LogUniform{name: name, Low: low, High: high}
}

// NewIntUniform returns a discrete uniform distribution named name over the
// inclusive integer range [low, high].
func NewIntUniform(name string, low, high int) IntUniform {
	return IntUniform{name: name, Low: low, High: high}
}

// Choice returns a categorical distribution named name over the given
// choices. The choices keep their concrete type when sampled.
func Choice[T any](name string, choices ...T) Categorical {
	anys := make([]any, len(choices))
	for i, c := range choices {
		anys[i] = c
	}

	return Categorical{name: name, Choices: anys}
}

// NewSpace builds a Space from the given distributions, in order. Parameter
// names must be unique.
func NewSpace(dists ...Distribution) (Space, error) {
	seen := make(map[string]struct{}, len(dists))
	for _, d := range dists {
		if _, ok := seen[d.Name()]; ok {
			return Space{}, errors.Errorf("duplicate parameter name %q", d.Name())
		}

		seen[d.Name()] = struct{}{}
	}

	return Space{dists: dists}, nil
}

//////
// Methods.
//////

// Name implements Distribution.
func (d Uniform) Name() string { return d.name }

// Sample implements Distribution.
func (d Uniform) Sample(rng *rand.Rand) any {
	return d.Low + rng.Float64()*(d.High-d.Low)
}

// Encode implements Distribution.
func (d Uniform) Encode(v any) (float64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, errors.Errorf("parameter %q: expected float64, got %T", d.name, v)
	}

	if d.High == d.Low {
		return 0, nil
	}

	return (f - d.Low) / (d.High - d.Low), nil
}

// Decode implements Distribution.
func (d Uniform) Decode(u float64) any {
	return d.Low + clampUnit(u)*(d.High-d.Low)
}

// Name implements Distribution.
func (d LogUniform) Name() string { return d.name }

// Sample implements Distribution.
func (d LogUniform) Sample(rng *rand.Rand) any {
	lo, hi := math.Log(d.Low), math.Log(d.High)

	return math.Exp(lo + rng.Float64()*(hi-lo))
}

// Encode implements Distribution.
func (d LogUniform) Encode(v any) (float64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, errors.Errorf("parameter %q: expected float64, got %T", d.name, v)
	}

	lo, hi := math.Log(d.Low), math.Log(d.High)
	if hi == lo {
		return 0, nil
	}

	return (math.Log(f) - lo) / (hi - lo), nil
}

// Decode implements Distribution.
func (d LogUniform) Decode(u float64) any {
	lo, hi := math.Log(d.Low), math.Log(d.High)

	return math.Exp(lo + clampUnit(u)*(hi-lo))
}

// Name implements Distribution.
func (d IntUniform) Name() string { return d.name }

// Sample implements Distribution.
func (d IntUniform) Sample(rng *rand.Rand) any {
	return d.Low + rng.Intn(d.High-d.Low+1)
}

// Encode implements Distribution.
func (d IntUniform) Encode(v any) (float64, error) {
	i, ok := v.(int)
	if !ok {
		return 0, errors.Errorf("parameter %q: expected int, got %T", d.name, v)
	}

	if d.High == d.Low {
		return 0, nil
	}

	return float64(i-d.Low) / float64(d.High-d.Low), nil
}

// Decode implements Distribution.
func (d IntUniform) Decode(u float64) any {
	if d.High == d.Low {
		return d.Low
	}

	return d.Low + int(math.Round(clampUnit(u)*float64(d.High-d.Low)))
}

// Name implements Distribution.
func (d Categorical) Name() string { return d.name }

// Sample implements Distribution.
func (d Categorical) Sample(rng *rand.Rand) any {
	return d.Choices[rng.Intn(len(d.Choices))]
}

// Encode implements Distribution.
func (d Categorical) Encode(v any) (float64, error) {
	for i, c := range d.Choices {
		if c == v {
			if len(d.Choices) == 1 {
				return 0, nil
			}

			return float64(i) / float64(len(d.Choices)-1), nil
		}
	}

	return 0, errors.Errorf("parameter %q: value %v is not a valid choice", d.name, v)
}

// Decode implements Distribution.
func (d Categorical) Decode(u float64) any {
	if len(d.Choices) == 1 {
		return d.Choices[0]
	}

	idx := int(math.Round(clampUnit(u) * float64(len(d.Choices)-1)))

	return d.Choices[idx]
}

// Len returns the number of parameters in the space.
func (s Space) Len() int { return len(s.dists) }

// Distributions returns the space's distributions in declaration order.
func (s Space) Distributions() []Distribution { return s.dists }

// Names returns the parameter names in declaration order.
func (s Space) Names() []string {
	names := make([]string, len(s.dists))
	for i, d := range s.dists {
		names[i] = d.Name()
	}

	return names
}

// Sample draws a fresh assignment covering every parameter in the space.
func (s Space) Sample(rng *rand.Rand) Assignment {
	a := make(Assignment, len(s.dists))
	for _, d := range s.dists {
		a[d.Name()] = d.Sample(rng)
	}

	return a
}

// Encode maps an assignment to a point in the unit hypercube, one coordinate
// per parameter in declaration order.
func (s Space) Encode(a Assignment) ([]float64, error) {
	x := make([]float64, len(s.dists))

	for i, d := range s.dists {
		v, ok := a[d.Name()]
		if !ok {
			return nil, errors.Errorf("assignment is missing parameter %q", d.Name())
		}

		u, err := d.Encode(v)
		if err != nil {
			return nil, err
		}

		x[i] = u
	}

	return x, nil
}

// Decode maps a point in the unit hypercube back to a valid assignment,
// snapping discrete parameters to their nearest admissible value.
func (s Space) Decode(x []float64) (Assignment, error) {
	if len(x) != len(s.dists) {
		return nil, errors.Errorf("expected %d coordinates, got %d", len(s.dists), len(x))
	}

	a := make(Assignment, len(s.dists))
	for i, d := range s.dists {
		a[d.Name()] = d.Decode(x[i])
	}

	return a, nil
}

// Float returns the named parameter as a float64. It panics if the parameter
// is absent or has a different type; assignments are always produced from
// the same space the caller declared, so a mismatch is a programming error.
func (a Assignment) Float(name string) float64 {
	v := a.must(name)

	f, ok := v.(float64)
	if !ok {
		panic("hyper: parameter " + name + " is not a float64")
	}

	return f
}

// Int returns the named parameter as an int.
func (a Assignment) Int(name string) int {
	v := a.must(name)

	i, ok := v.(int)
	if !ok {
		panic("hyper: parameter " + name + " is not an int")
	}

	return i
}

// String returns the named parameter as a string.
func (a Assignment) String(name string) string {
	v := a.must(name)

	s, ok := v.(string)
	if !ok {
		panic("hyper: parameter " + name + " is not a string")
	}

	return s
}

// Clone returns a shallow copy of the assignment.
func (a Assignment) Clone() Assignment {
	c := make(Assignment, len(a))
	for k, v := range a {
		c[k] = v
	}

	return c
}

func (a Assignment) must(name string) any {
	v, ok := a[name]
	if !ok {
		panic("hyper: assignment has no parameter " + name)
	}

	return v
}

//////
// Helpers.
//////

func clampUnit(u float64) float64 {
	switch {
	case u < 0:
		return 0
	case u > 1:
		return 1
	default:
		return u
	}
}
