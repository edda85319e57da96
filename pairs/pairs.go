// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pairs

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
)

// ErrInvalidConfiguration is returned when a pure arithmetic precondition is
// violated, e.g. a variant count below two.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// DefaultVariantCount is the number of variants per base image when the
// backend does not say otherwise.
const DefaultVariantCount = 5

// Provisional range bounds used before the backend refines the session.
const (
	provisionalStartMax = 20
	provisionalEndMin   = 10
	provisionalEndMax   = 80
)

// Range is a half-open interval [Start, End) of base image ids.
type Range struct {
	Start int `json:"start_idx"`
	End   int `json:"end_idx"`
}

// DefaultRange applies whenever no valid range is configured.
var DefaultRange = Range{Start: 0, End: 100}

// Valid reports whether End > Start.
func (r Range) Valid() bool {
	return r.End > r.Start
}

// OrDefault returns r if it is valid, DefaultRange otherwise.
func (r Range) OrDefault() Range {
	if r.Valid() {
		return r
	}
	return DefaultRange
}

// Contains reports whether id lies in [Start, End).
func (r Range) Contains(id int) bool {
	return id >= r.Start && id < r.End
}

// Last returns the last valid id of the range.
func (r Range) Last() int {
	return r.End - 1
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Pair is an unordered pair of distinct variant indices. A and B keep the
// order in which they were drawn; A is shown first.
type Pair struct {
	A int
	B int
}

// Key returns the canonical key of the pair.
func (p Pair) Key() string {
	return Key(p.A, p.B)
}

// Contains reports whether v is one of the two indices.
func (p Pair) Contains(v int) bool {
	return v == p.A || v == p.B
}

// Key returns "min-max" for the unordered pair {a, b}.
func Key(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return strconv.Itoa(a) + "-" + strconv.Itoa(b)
}

// TotalPairs returns n·(n-1)/2, the number of unordered pairs of n variants.
func TotalPairs(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}

// NormalizeImageID wraps id into [start, end): ids below the range map to the
// last id, ids at or past the end map to start.
func NormalizeImageID(id, start, end int) int {
	r := Range{Start: start, End: end}.OrDefault()
	if id < r.Start {
		return r.Last()
	}
	if id >= r.End {
		return r.Start
	}
	return id
}

// NextImageID returns current+1 when current is in range and not the last id,
// and start otherwise.
func NextImageID(current, start, end int) int {
	r := Range{Start: start, End: end}.OrDefault()
	if r.Contains(current) && current < r.Last() {
		return current + 1
	}
	return r.Start
}

// Generator draws random pairs and ids. The zero value uses the global
// math/rand/v2 source.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a Generator backed by src.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

var defaultGenerator = &Generator{}

func (g *Generator) intN(n int) int {
	if g == nil || g.rng == nil {
		return rand.IntN(n)
	}
	return g.rng.IntN(n)
}

// VariantPair returns two distinct indices drawn uniformly from [0, n).
func (g *Generator) VariantPair(n int) (Pair, error) {
	if n < 2 {
		return Pair{}, fmt.Errorf("%w: variant count %d, need at least 2", ErrInvalidConfiguration, n)
	}
	a := g.intN(n)
	b := g.intN(n)
	for b == a {
		b = g.intN(n)
	}
	return Pair{A: a, B: b}, nil
}

// ValidImageID returns current if it lies in [start, end), otherwise a
// uniformly random id from that range.
func (g *Generator) ValidImageID(current, start, end int) int {
	r := Range{Start: start, End: end}.OrDefault()
	if r.Contains(current) {
		return current
	}
	return r.Start + g.intN(r.End-r.Start)
}

// ProvisionalRange draws the range sent with a registration request before
// the backend has refined it: start in [0,20), end in [10,80). The result may
// be invalid; callers fall back through OrDefault.
func (g *Generator) ProvisionalRange() Range {
	start := g.intN(provisionalStartMax)
	end := provisionalEndMin + g.intN(provisionalEndMax-provisionalEndMin)
	return Range{Start: start, End: end}
}

// RandomVariantPair draws a pair using the global source.
func RandomVariantPair(n int) (Pair, error) {
	return defaultGenerator.VariantPair(n)
}

// ValidImageID is Generator.ValidImageID using the global source.
func ValidImageID(current, start, end int) int {
	return defaultGenerator.ValidImageID(current, start, end)
}
