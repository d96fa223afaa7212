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

// Package tabhash implements simple tabulation hashing (Hid: uint64 ->
// uint64 and Hpair: (uint64,uint32) -> uint64), the 3-independent hash
// family the DMH, RS and ERS engines all build their theme and bucket
// randomness on top of. Every table is drawn once from an mt19937.Rng at
// construction time and is immutable and safe for concurrent read-only
// use afterwards (spec §4.2, §5).
package tabhash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/apache/datasketches-go-wmh/internal/mt19937"
)

const numLanes = 8
const laneWidth = 256

// Family is Hid: uint64 -> uint64, built from 8 tables of 256 words each,
// one per byte lane of the input.
type Family struct {
	tables [numLanes][laneWidth]uint64
}

// NewFamily draws a fresh table set from rng. rng is consumed only during
// construction, matching the "engines accept a mutable reference and
// consume a bounded number of draws during construction only" contract
// in spec §4.1.
func NewFamily(rng *mt19937.Rng) *Family {
	f := &Family{}
	for lane := 0; lane < numLanes; lane++ {
		for b := 0; b < laneWidth; b++ {
			f.tables[lane][b] = rng.Uint64()
		}
	}
	return f
}

// Hash returns H(x), the XOR of one table lookup per byte of x.
func (f *Family) Hash(x uint64) uint64 {
	var h uint64
	for lane := 0; lane < numLanes; lane++ {
		b := byte(x >> (8 * lane))
		h ^= f.tables[lane][b]
	}
	return h
}

// PairFamily is Hpair: (id uint64, trial uint32) -> uint64, used by the
// rejection-sampling engines to derive per-trial randomness independent
// of the Hid family. The 96-bit composite key is first collapsed to a
// single 64-bit word with xxhash, then run through an ordinary
// tabulation Family so the final output keeps the same avalanche and
// construction properties as every other hash in this package, spec
// §4.2.
type PairFamily struct {
	family *Family
}

// NewPairFamily draws a fresh table set from rng.
func NewPairFamily(rng *mt19937.Rng) *PairFamily {
	return &PairFamily{family: NewFamily(rng)}
}

// Hash returns H(id, trial).
func (f *PairFamily) Hash(id uint64, trial uint32) uint64 {
	var buf [12]byte
	binary.LittleEndian.PutUint64(buf[0:8], id)
	binary.LittleEndian.PutUint32(buf[8:12], trial)
	composite := xxhash.Sum64(buf[:])
	return f.family.Hash(composite)
}

// ToUnit maps a uint64 draw onto the closed interval [0,1] (the largest
// inputs round to exactly 1.0), matching
// the reference implementation's `to_unit` transform (division by
// 2^64-1, original_source/src/hash_utils.rs).
func ToUnit(x uint64) float64 {
	return float64(x) / 18446744073709551615.0
}

// ToUnits splits a uint64 draw into two independent uniforms in [0,1] by
// halving it into high/low 32-bit lanes, matching `to_units` in
// original_source/src/hash_utils.rs.
func ToUnits(x uint64) (float64, float64) {
	hi := uint32(x >> 32)
	lo := uint32(x & 0xFFFFFFFF)
	return float64(hi) / 4294967295.0, float64(lo) / 4294967295.0
}
