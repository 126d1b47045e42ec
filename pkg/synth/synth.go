// Package synth derives deterministic pseudo-random values from a symbol and
// a purpose-specific salt. Every fallback path in the system goes through
// this package, so an unavailable upstream always degrades to the same
// reproducible numbers for a given symbol, on any machine, at any time.
//
// The mapping is fixed: sha256 of "symbol:salt", first 4 bytes of the digest
// read as a big-endian uint32, reduced mod 10000 and divided by 10000. The
// 32-bit prefix width is part of the contract; changing it would silently
// change every synthetic value ever produced.
package synth

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// Unit maps (symbol, salt) to a value in [0, 1).
func Unit(symbol, salt string) float64 {
	sum := sha256.Sum256([]byte(symbol + ":" + salt))
	v := binary.BigEndian.Uint32(sum[:4])
	return float64(v%10000) / 10000.0
}

// Score linearly maps Unit onto [floor, ceiling], rounded to two decimals.
func Score(symbol string, floor, ceiling float64, salt string) float64 {
	return Round2(floor + (ceiling-floor)*Unit(symbol, salt))
}

// Clamp bounds v to [lower, upper].
func Clamp(v, lower, upper float64) float64 {
	return math.Max(lower, math.Min(v, upper))
}

// Round2 rounds to two decimals, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
