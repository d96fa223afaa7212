/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package mt19937 implements the MT19937-64 pseudo-random generator
// (Matsumoto & Nishimura), seeded from a single uint64. Every engine in
// this module derives its hash-table and theme randomness from one of
// these generators so that a fixed seed reproduces bit-identical
// signatures across runs and platforms (spec invariant I2).
package mt19937

const (
	nw           = 312
	m            = 156
	matrixA      = uint64(0xB5026F5AA96619E9)
	upperMask    = uint64(0xFFFFFFFF80000000)
	lowerMask    = uint64(0x7FFFFFFF)
	f64Resolution = float64(1) / float64(uint64(1)<<53)
)

// Rng is an MT19937-64 generator. The zero value is not valid; construct
// one with New.
type Rng struct {
	state [nw]uint64
	index int
}

// New builds a generator from a single uint64 seed, using the reference
// linear-congruential seeding recurrence for MT19937-64.
func New(seed uint64) *Rng {
	r := &Rng{}
	r.state[0] = seed
	for i := 1; i < nw; i++ {
		prev := r.state[i-1]
		r.state[i] = uint64(6364136223846793005)*(prev^(prev>>62)) + uint64(i)
	}
	r.index = nw
	return r
}

// Uint64 returns the next 64-bit draw from the generator.
func (r *Rng) Uint64() uint64 {
	if r.index >= nw {
		r.twist()
	}
	x := r.state[r.index]
	r.index++

	x ^= (x >> 29) & uint64(0x5555555555555555)
	x ^= (x << 17) & uint64(0x71D67FFFEDA60000)
	x ^= (x << 37) & uint64(0xFFF7EEE000000000)
	x ^= x >> 43
	return x
}

func (r *Rng) twist() {
	var mag01 = [2]uint64{0, matrixA}
	for i := 0; i < nw; i++ {
		x := (r.state[i] & upperMask) | (r.state[(i+1)%nw] & lowerMask)
		xa := x >> 1
		xa ^= mag01[x&1]
		r.state[i] = r.state[(i+m)%nw] ^ xa
	}
	r.index = 0
}

// Float64Open01 returns a uniform draw in the open interval (0,1), built
// from the top 53 bits of a 64-bit draw divided by 2^53, matching the
// reference generator's gen_res53 transform. The result is never exactly
// 0 or 1: exponential/geometric callers require an open interval.
func (r *Rng) Float64Open01() float64 {
	for {
		v := float64(r.Uint64()>>11) * f64Resolution
		if v > 0 {
			return v
		}
		// v == 0 (astronomically rare) is resampled to preserve the open interval.
	}
}

// Uint64n returns a uniform draw in [0,n) using Lemire's method, avoiding
// modulo bias for the bucket/theme indexing the engines rely on.
func (r *Rng) Uint64n(n uint64) uint64 {
	return Reduce64(r.Uint64(), n)
}

// avalanche re-applies Uint64's own tempering transform to an arbitrary
// word. Reduce64 uses it to manufacture a fresh pseudo-random word on its
// rare rejection-sampling retry without consuming a generator's sequential
// state, so a hash-derived word stays a pure, reproducible function of its
// input.
func avalanche(x uint64) uint64 {
	x ^= (x >> 29) & uint64(0x5555555555555555)
	x ^= (x << 17) & uint64(0x71D67FFFEDA60000)
	x ^= (x << 37) & uint64(0xFFF7EEE000000000)
	x ^= x >> 43
	return x
}

// Reduce64 maps word onto [0,n) via Lemire's method, the same
// multiply-shift-with-rejection technique Uint64n applies to a live
// generator draw, but as a pure function of an already-random-looking
// word. This lets hash-driven callers (RS's per-(theme,trial) bin
// selection, ERS's per-bucket densification offset) debias their bin
// index without adopting Uint64n's sequential-state dependency, which
// would break the per-trial hash's role as the sole source of that
// trial's randomness (spec I2 determinism, §5 concurrent-safe engines).
// n == 0 returns 0.
func Reduce64(word uint64, n uint64) uint64 {
	if n == 0 {
		return 0
	}
	hi, lo := mul128(word, n)
	if lo < n {
		threshold := -n % n
		for lo < threshold {
			word = avalanche(word)
			hi, lo = mul128(word, n)
		}
	}
	return hi
}

func mul128(x, y uint64) (hi, lo uint64) {
	const mask32 = uint64(0xFFFFFFFF)
	xLo, xHi := x&mask32, x>>32
	yLo, yHi := y&mask32, y>>32

	t := xLo * yLo
	w0 := t & mask32
	k := t >> 32

	t = xHi*yLo + k
	w1 := t & mask32
	w2 := t >> 32

	t = xLo*yHi + w1
	k = t >> 32

	hi = xHi*yHi + w2 + k
	lo = (t << 32) | w0
	return hi, lo
}
