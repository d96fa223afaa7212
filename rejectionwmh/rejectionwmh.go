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

// Package rejectionwmh implements the RS engine (spec §4.5): the
// k-independent geometric/rejection weighted-MinHash scheme of
// Shrivastava (2016). Each of k hashes draws bins uniformly from the
// caps-flattened universe and accepts the first bin whose id passes a
// weight-ratio test, returning that id as the theme's signature slot.
package rejectionwmh

import (
	"errors"
	"fmt"
	"math"

	"github.com/apache/datasketches-go-wmh/capset"
	"github.com/apache/datasketches-go-wmh/internal/mt19937"
	"github.com/apache/datasketches-go-wmh/internal/randmath"
	"github.com/apache/datasketches-go-wmh/internal/tabhash"
	"github.com/apache/datasketches-go-wmh/wset"
)

// ErrSaturated is returned when a signature slot fails to accept a bin
// within the engine's trial budget. With caps dominating the input this
// has astronomically small probability; seeing it in practice usually
// means the caps vector is far looser than the data it is meant to
// dominate.
var ErrSaturated = errors.New("rejectionwmh: exceeded trial budget without accepting a bin")

// trialFailureProb bounds, for each signature slot, the probability that
// no bin is accepted within the derived trial budget. Every trial is an
// independent Bernoulli(rho) draw (rho = total weight / universe), so
// the smallest trial count achieving this bound is the geometric
// quantile at trialFailureProb — computed via randmath.Geometric rather
// than the fixed multiple of 1/rho a simpler engine might hardcode.
const trialFailureProb = 1e-9
const minTrials = 32

// RS is an immutable, read-only-shareable rejection-sampling engine.
type RS struct {
	k      int
	caps   []uint32
	index  *capset.Index
	binHF  *tabhash.PairFamily // picks a uniform bin per (theme, trial)
	testHF *tabhash.PairFamily // independent uniform for the accept test
}

// New builds an RS engine for sketches of length k over the given
// per-dimension caps vector. caps must be non-empty and every entry >=
// 1; k must be positive.
func New(rng *mt19937.Rng, caps []uint32, k int) (*RS, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", wset.ErrParameterError, k)
	}
	if len(caps) == 0 {
		return nil, fmt.Errorf("%w: caps must be non-empty", wset.ErrParameterError)
	}
	for i, c := range caps {
		if c == 0 {
			return nil, fmt.Errorf("%w: caps[%d] must be >= 1", wset.ErrParameterError, i)
		}
	}
	return &RS{
		k:      k,
		caps:   caps,
		index:  capset.NewIndex(caps),
		binHF:  tabhash.NewPairFamily(rng),
		testHF: tabhash.NewPairFamily(rng),
	}, nil
}

// K returns the configured sketch length.
func (r *RS) K() int { return r.k }

func (r *RS) denseWeights(items wset.Set) ([]float64, error) {
	dim := r.index.Dim()
	w := make([]float64, dim)
	for _, it := range items {
		if err := capset.Validate(r.caps, it); err != nil {
			return nil, err
		}
		w[it.ID] = it.Weight
	}
	return w, nil
}

// SketchIDs computes a k-length RS signature: for each theme, the id of
// the first accepted bin under a rejection test against caps.
func (r *RS) SketchIDs(items wset.Set) ([]uint64, error) {
	ids, _, err := r.sketch(items)
	return ids, err
}

// SketchCounts returns, for each theme, the number of rejection trials
// consumed up to and including the accepted one (so at least 1) — a
// diagnostic proxy for the geometric
// trial count described in spec §4.5, exposed per §6's optional
// `sketch_counts` API.
func (r *RS) SketchCounts(items wset.Set) ([]uint64, error) {
	_, counts, err := r.sketch(items)
	return counts, err
}

func (r *RS) sketch(items wset.Set) ([]uint64, []uint64, error) {
	valid, err := items.Validate()
	if err != nil {
		return nil, nil, err
	}
	w, err := r.denseWeights(valid)
	if err != nil {
		return nil, nil, err
	}

	total := valid.TotalWeight()
	universe := r.index.Total()
	rho := total / float64(universe)

	trials, err := randmath.Geometric(trialFailureProb, rho)
	if err != nil {
		return nil, nil, fmt.Errorf("rejectionwmh: sizing trial budget: %w", err)
	}
	maxTrials := uint32(minTrials)
	if trials > uint64(maxTrials) {
		if trials > uint64(math.MaxUint32) {
			trials = uint64(math.MaxUint32)
		}
		maxTrials = uint32(trials)
	}

	ids := make([]uint64, r.k)
	counts := make([]uint64, r.k)

	for j := 0; j < r.k; j++ {
		accepted := false
		for trial := uint32(1); trial <= maxTrials; trial++ {
			binHash := r.binHF.Hash(uint64(j), trial)
			bin := mt19937.Reduce64(binHash, universe)
			id, _ := r.index.ComponentOf(bin)

			xi := w[id]
			if xi > 0 {
				u := tabhash.ToUnit(r.testHF.Hash(binHash, trial))
				if u < xi/float64(r.caps[id]) {
					ids[j] = id
					counts[j] = uint64(trial)
					accepted = true
					break
				}
			}
		}
		if !accepted {
			return nil, nil, fmt.Errorf("%w: theme=%d trials=%d", ErrSaturated, j, maxTrials)
		}
	}
	return ids, counts, nil
}
