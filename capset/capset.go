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

// Package capset builds and validates the per-dimension cap vector m
// that RS and ERS require: a sharp upper bound m_i >= ceil(max_s x_i(s))
// over the dataset (spec §4, Component H). DMH does not consume caps.
package capset

import (
	"fmt"
	"math"
	"slices"

	"github.com/apache/datasketches-go-wmh/wset"
)

// FromWeightedSets builds a caps vector of length dim by taking, for
// each id, the ceiling of the maximum weight seen for that id across all
// of the supplied sets. dim must exceed every id present. Per spec §9's
// resolved Open Question, this follows the source's `ceil(max)`
// convention: a weight exactly equal to its cap is not a CapViolation,
// only weight > cap is.
func FromWeightedSets(dim int, sets ...wset.Set) ([]uint32, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dim must be positive, got %d", wset.ErrParameterError, dim)
	}
	m := make([]float64, dim)
	for _, s := range sets {
		for _, it := range s {
			if it.Weight <= 0 {
				continue
			}
			if it.ID >= uint64(dim) {
				return nil, fmt.Errorf("%w: id=%d dim=%d", wset.ErrOutOfUniverse, it.ID, dim)
			}
			if it.Weight > m[it.ID] {
				m[it.ID] = it.Weight
			}
		}
	}
	caps := make([]uint32, dim)
	for i, w := range m {
		if w <= 0 {
			caps[i] = 1
			continue
		}
		caps[i] = uint32(math.Ceil(w))
	}
	return caps, nil
}

// Validate checks that an item's weight respects its dimension's cap,
// returning ErrOutOfUniverse or ErrCapViolation as appropriate. Per
// spec §9, weight == cap is allowed; only weight > cap is a violation.
func Validate(caps []uint32, it wset.Item) error {
	if it.ID >= uint64(len(caps)) {
		return fmt.Errorf("%w: id=%d universe=%d", wset.ErrOutOfUniverse, it.ID, len(caps))
	}
	if it.Weight > float64(caps[it.ID]) {
		return fmt.Errorf("%w: id=%d weight=%v cap=%d", wset.ErrCapViolation, it.ID, it.Weight, caps[it.ID])
	}
	return nil
}

// Total returns Σ caps[i], the universe size U used by RS to flatten the
// caps vector into logical bins (spec §4.5).
func Total(caps []uint32) uint64 {
	var total uint64
	for _, c := range caps {
		total += uint64(c)
	}
	return total
}

// Max returns the largest single cap, used by callers sizing the
// densification permutation search space.
func Max(caps []uint32) uint32 {
	if len(caps) == 0 {
		return 0
	}
	return slices.Max(caps)
}

// Index flattens a caps vector into U = Σcaps[i] logical bins and maps a
// bin position back to the id owning it via cumulative sums, the shared
// lookup structure RS and ERS both build their rejection tests on
// (spec §4.5's "flatten the universe" step; grounded on
// original_source/src/rejsmp.rs's RedGreenIndex, generalized from
// real-valued to integer caps).
type Index struct {
	cum   []uint64 // cum[0]=0, cum[i+1] = cum[i]+caps[i], length dim+1
	total uint64
}

// NewIndex builds an Index over caps.
func NewIndex(caps []uint32) *Index {
	cum := make([]uint64, len(caps)+1)
	var acc uint64
	for i, c := range caps {
		acc += uint64(c)
		cum[i+1] = acc
	}
	return &Index{cum: cum, total: acc}
}

// Total returns U = Σcaps[i].
func (idx *Index) Total() uint64 { return idx.total }

// Dim returns the number of dimensions covered.
func (idx *Index) Dim() int { return len(idx.cum) - 1 }

// ComponentOf maps a bin position b in [0,Total()) to (id, localOffset),
// where localOffset = b - cum[id] is the bin's position within id's
// strip, via binary search over the cumulative sums.
func (idx *Index) ComponentOf(b uint64) (id uint64, localOffset uint64) {
	if idx.total == 0 {
		return 0, 0
	}
	if b >= idx.total {
		b = idx.total - 1
	}
	lo, hi := 1, len(idx.cum)
	for lo < hi {
		mid := (lo + hi) >> 1
		if idx.cum[mid] > b {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	i := lo - 1
	return uint64(i), b - idx.cum[i]
}
