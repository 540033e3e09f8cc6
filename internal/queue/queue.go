// Package queue decides how much of a resting order fills when its price
// level is hit by incoming liquidity.
//
// Every model is a pure function of its inputs plus an injected random
// source, so two runs seeded alike produce identical fills.
package queue

import (
	"math"
	"math/rand/v2"

	"simex/internal/common"
)

// Position locates a resting order inside its price level.
type Position struct {
	Index      int    // Rank in the level's FIFO, 0 is the head
	Ahead      uint64 // Resting size queued in front of the order
	OrderSize  uint64 // Remaining size of the order
	LevelSize  uint64 // Total resting size at the level
	LevelCount int    // Number of resting orders at the level
}

// Context describes the liquidity-taking event hitting the level.
type Context struct {
	Incoming  uint64      // Quantity still available to the level
	Price     int64       // Level price
	Aggressor common.Side // Side of the incoming flow
	Market    bool        // Incoming flow is a market order
}

type Model interface {
	// EstimateFill returns the quantity of the resting order to fill, between
	// zero and min(pos.OrderSize, ctx.Incoming).
	EstimateFill(pos Position, ctx Context) uint64
}

// FIFO is strict price-time priority: the order fills as far as the incoming
// quantity reaches.
type FIFO struct{}

func (FIFO) EstimateFill(pos Position, ctx Context) uint64 {
	return min(pos.OrderSize, ctx.Incoming)
}

// Simple decays the execution probability linearly from Base at the head of
// the queue to zero at the tail position a new order would join at. The
// outcome is a deterministic threshold: one uniform draw per decision, the
// order fills as far as it can iff the draw lands under the probability.
type Simple struct {
	Base float64
	rng  *rand.Rand
}

func NewSimple(base float64, rng *rand.Rand) *Simple {
	if rng == nil {
		panic("queue: nil random source")
	}
	return &Simple{Base: clamp(base), rng: rng}
}

func (s *Simple) Probability(pos Position) float64 {
	if pos.LevelCount <= 0 {
		return s.Base
	}
	return clamp(s.Base * (1 - float64(pos.Index)/float64(pos.LevelCount)))
}

func (s *Simple) EstimateFill(pos Position, ctx Context) uint64 {
	if s.rng.Float64() < s.Probability(pos) {
		return min(pos.OrderSize, ctx.Incoming)
	}
	return 0
}

// Realistic decays exponentially with queue rank, boosts orders that are
// large relative to the level and perturbs the result with bounded noise.
type Realistic struct {
	Base          float64
	SizeAdvantage float64
	Noise         float64
	rng           *rand.Rand
}

const (
	realisticDecay    = 0.9
	realisticMinDecay = 0.05
)

func NewRealistic(base, sizeAdvantage, noise float64, rng *rand.Rand) *Realistic {
	if rng == nil {
		panic("queue: nil random source")
	}
	return &Realistic{
		Base:          clamp(base),
		SizeAdvantage: max(sizeAdvantage, 0),
		Noise:         math.Abs(noise),
		rng:           rng,
	}
}

// Probability consumes one draw for the noise term.
func (r *Realistic) Probability(pos Position) float64 {
	decay := max(realisticMinDecay, math.Pow(realisticDecay, float64(pos.Index)))
	boost := 1.0
	if pos.LevelSize > 0 {
		boost += r.SizeAdvantage * float64(pos.OrderSize) / float64(pos.LevelSize)
	}
	noise := (r.rng.Float64()*2 - 1) * r.Noise
	return clamp(r.Base*decay*boost + noise)
}

func (r *Realistic) EstimateFill(pos Position, ctx Context) uint64 {
	p := r.Probability(pos)
	if r.rng.Float64() < p {
		return min(pos.OrderSize, ctx.Incoming)
	}
	return 0
}

func clamp(p float64) float64 {
	return max(0, min(1, p))
}
