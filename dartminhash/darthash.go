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

package dartminhash

import (
	"math"

	"github.com/apache/datasketches-go-wmh/internal"
	"github.com/apache/datasketches-go-wmh/internal/mt19937"
	"github.com/apache/datasketches-go-wmh/internal/tabhash"
	"github.com/apache/datasketches-go-wmh/wset"
)

// dart is a single Poisson-process point: a hashed id plus its
// theme-independent rank in [0, maxRank). Spec §4.4 calls this the
// fundamental randomness unit of DMH.
type dart struct {
	id   uint64
	rank float64
}

// darthash generates the darts covering a weighted set's (id, weight)
// region for a given search radius theta, following the dyadic level
// decomposition of spec §4.4. t is the expected dart budget per input
// (k*ln(k) + 2k for a k-sized sketch): darts fall at density t per unit
// of (weight x rank) area, so a search radius theta yields about t*theta
// darts for a whole input whatever its total weight; see
// original_source/src/darthash.rs for the derivation this is ported
// from.
type darthash struct {
	t uint64

	tNu, tRho, tW, tR *tabhash.Family // level/offset region hashers
	tI, tP, tQ        *tabhash.Family // per-item and per-cell hashers
	fH, mH            *tabhash.Family // dart-id hasher, bucket hasher

	powersOfTwo    []float64
	negPowersOfTwo []float64
	poissonCDF     []float64
}

const poissonTableLen = 100

// powersTableLen sizes the powers-of-two tables to cover every dyadic
// level clampLevel can produce: internal.MaxDyadicLevel is the same cap
// spec §4.4's edge cases impose on any single item's weight decomposition,
// so nu and rho never need an entry beyond it.
const powersTableLen = internal.MaxDyadicLevel + 1

func newDarthash(rng *mt19937.Rng, t uint64) *darthash {
	d := &darthash{
		t:    t,
		tNu:  tabhash.NewFamily(rng),
		tRho: tabhash.NewFamily(rng),
		tW:   tabhash.NewFamily(rng),
		tR:   tabhash.NewFamily(rng),
		tI:   tabhash.NewFamily(rng),
		tP:   tabhash.NewFamily(rng),
		tQ:   tabhash.NewFamily(rng),
		fH:   tabhash.NewFamily(rng),
		mH:   tabhash.NewFamily(rng),
	}

	d.powersOfTwo = make([]float64, powersTableLen)
	p := 1.0
	for i := range d.powersOfTwo {
		d.powersOfTwo[i] = p
		p *= 2.0
	}
	d.negPowersOfTwo = make([]float64, powersTableLen)
	q := 1.0
	for i := range d.negPowersOfTwo {
		d.negPowersOfTwo[i] = q
		q *= 0.5
	}

	d.poissonCDF = make([]float64, poissonTableLen)
	pdf := math.Exp(-1.0)
	cdf := pdf
	for i := range d.poissonCDF {
		d.poissonCDF[i] = cdf
		pdf = pdf / float64(i+1)
		cdf += pdf
	}
	return d
}

// darts enumerates every Poisson-process point inside x's region up to
// search radius theta. It never mutates darthash and may be called
// concurrently from multiple goroutines (spec §5, §9 "shared hash
// tables").
func (d *darthash) darts(x wset.Set, theta float64) []dart {
	out := make([]dart, 0, 2*int(d.t))
	totalW := x.TotalWeight()
	if totalW == 0 {
		return out
	}

	maxRank := theta / totalW
	tInv := 1.0 / float64(d.t)
	rhoUpper := clampLevel(math.Floor(math.Log2(1.0 + maxRank)))

	for _, it := range x {
		xi := it.Weight
		if xi <= 0 {
			continue
		}
		iHash := d.tI.Hash(it.ID)
		nuUpper := clampLevel(math.Floor(math.Log2(1.0 + float64(d.t)*xi)))

		for nu := 0; nu <= nuUpper; nu++ {
			nuHash := d.tNu.Hash(uint64(nu))
			for rho := 0; rho <= rhoUpper; rho++ {
				regionHash := nuHash ^ d.tRho.Hash(uint64(rho))

				twoNu := d.powersOfTwo[nu]
				twoRho := d.powersOfTwo[rho]
				wBase := (twoNu - 1.0) * tInv
				rBase := twoRho - 1.0

				deltaNu := twoNu * tInv * d.negPowersOfTwo[rho]
				deltaRho := twoRho * d.negPowersOfTwo[nu]

				wMax := internal.LevelSpan(rho)
				w0 := wBase
				for w := uint32(0); w < wMax; w++ {
					if xi < w0 {
						break
					}
					wHash := d.tW.Hash(uint64(w))
					rMax := internal.LevelSpan(nu)
					r0 := rBase
					for r := uint32(0); r < rMax; r++ {
						if maxRank < r0 {
							break
						}
						areaHash := wHash ^ d.tR.Hash(uint64(r))
						z := iHash ^ regionHash ^ areaHash

						pZ := tabhash.ToUnit(d.tP.Hash(z))
						pCount := 0
						for pCount < len(d.poissonCDF) && pZ > d.poissonCDF[pCount] {
							pCount++
						}

						for q := 0; q < pCount; q++ {
							zq := z ^ (uint64(q) << 56) ^ (uint64(q) << 48) ^ (uint64(q) << 40) ^
								(uint64(q) << 32) ^ (uint64(q) << 24) ^ (uint64(q) << 16) ^
								(uint64(q) << 8) ^ uint64(q)

							uW, uR := tabhash.ToUnits(d.tQ.Hash(zq))
							weight := w0 + deltaNu*uW
							rank := r0 + deltaRho*uR

							if weight < xi && rank < maxRank {
								out = append(out, dart{id: d.fH.Hash(zq), rank: rank})
							}
						}
						r0 += deltaRho
					}
					w0 += deltaNu
				}
			}
		}
	}
	return out
}

// clampLevel floors a level computation to >=0 and caps it at
// internal.MaxDyadicLevel, matching the `.max(0.0)` clamp in
// original_source/src/darthash.rs and spec §4.4's 64-level cap.
func clampLevel(v float64) int {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > float64(internal.MaxDyadicLevel) {
		return internal.MaxDyadicLevel
	}
	return int(v)
}
