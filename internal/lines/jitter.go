package lines

import (
	"math"
	"math/rand"
)

// JitterFraction bounds the relative TTL adjustment in either direction.
const JitterFraction = 0.05

// TTLWithJitter returns baseSeconds shifted by a uniform random amount in
// [-5%, +5%) of itself, rounded down.
func TTLWithJitter(baseSeconds int) int {
	return jitterSeconds(baseSeconds, rand.Float64())
}

// jitterSeconds maps u in [0, 1) onto the jitter window.
func jitterSeconds(baseSeconds int, u float64) int {
	offset := (u*2*JitterFraction - JitterFraction) * float64(baseSeconds)
	return baseSeconds + int(math.Floor(offset))
}
