// Package latency models network and order-processing delays. Delays are
// only ever applied as timestamp shifts, nothing here blocks.
package latency

import (
	"math/rand/v2"
	"time"
)

type Model interface {
	Sample() time.Duration
}

// Zero never delays.
type Zero struct{}

func (Zero) Sample() time.Duration { return 0 }

// Constant always returns the same delay.
type Constant time.Duration

func (c Constant) Sample() time.Duration { return time.Duration(c) }

// Gaussian draws from N(mean, stddev), clamped at zero.
type Gaussian struct {
	mean   time.Duration
	stddev time.Duration
	rng    *rand.Rand
}

// NewGaussian panics on a nil source; a shared global source would break
// reproducibility.
func NewGaussian(mean, stddev time.Duration, rng *rand.Rand) *Gaussian {
	if rng == nil {
		panic("latency: nil random source")
	}
	return &Gaussian{mean: mean, stddev: stddev, rng: rng}
}

func (g *Gaussian) Sample() time.Duration {
	d := time.Duration(float64(g.mean) + g.rng.NormFloat64()*float64(g.stddev))
	if d < 0 {
		return 0
	}
	return d
}

// NewSource returns the seeded generator used across the simulator.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
