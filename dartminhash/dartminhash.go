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

// Package dartminhash implements the DartMinHash (DMH) engine (spec
// §4.4): a Poisson-process "darts" construction yielding k unbiased
// weighted-MinHash signatures in expected O((L+k)log k) time per input,
// ported from the reference implementation in
// original_source/src/darthash.rs and dartminhash.rs.
package dartminhash

import (
	"fmt"
	"math"

	"github.com/apache/datasketches-go-wmh/internal"
	"github.com/apache/datasketches-go-wmh/internal/mt19937"
	"github.com/apache/datasketches-go-wmh/internal/tabhash"
	"github.com/apache/datasketches-go-wmh/wset"
)

// Option configures a DartMinHash at construction time.
type Option func(*options)

type options struct {
	dartBudgetFn func(k int) uint64
}

// WithDartBudget overrides the expected per-input dart budget t used to
// size DartHash's region (default k*ln(k) + 2k, spec §4.4). Exposed for
// callers who have measured a workload needing a larger safety margin.
func WithDartBudget(fn func(k int) uint64) Option {
	return func(o *options) {
		o.dartBudgetFn = fn
	}
}

func defaultDartBudget(k int) uint64 {
	kf := float64(k)
	return uint64(math.Ceil(kf*math.Log(kf) + 2*kf))
}

// DartMinHash is an immutable, read-only-shareable DMH engine. Construct
// once per (seed, k) pair and reuse across many Sketch calls (spec §5).
type DartMinHash struct {
	k            int
	bucketHasher *tabhash.Family
	dh           *darthash
}

// New builds a DartMinHash engine for sketches of length k, consuming a
// bounded number of draws from rng during construction only. k must be
// positive.
func New(rng *mt19937.Rng, k int, opts ...Option) (*DartMinHash, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", wset.ErrParameterError, k)
	}
	o := &options{dartBudgetFn: defaultDartBudget}
	for _, opt := range opts {
		opt(o)
	}
	t := o.dartBudgetFn(k)
	if t == 0 {
		return nil, fmt.Errorf("%w: dart budget must be positive", wset.ErrParameterError)
	}

	return &DartMinHash{
		k:            k,
		bucketHasher: tabhash.NewFamily(rng),
		dh:           newDarthash(rng, t),
	}, nil
}

// K returns the configured sketch length.
func (m *DartMinHash) K() int { return m.k }

// Stats reports diagnostics from one SketchWithStats call: total darts
// thrown, the number of theta-escalation rounds needed to fill every
// bucket, and the highest dyadic weight level (internal.Log2CeilLevel)
// any input item required. It is returned by value and is not stored on
// the DartMinHash, so concurrent calls each get their own Stats.
type Stats struct {
	DartsThrown int
	Rounds      int
	MaxLevel    int
}

// Sketch computes a k-length DartMinHash signature for items, retrying
// with an enlarged search radius until every bucket has a winner
// (spec §4.4's early-termination / theta-escalation loop). Empty input
// (after filtering zero weights) is wset.ErrEmptyInput.
func (m *DartMinHash) Sketch(items wset.Set) ([]uint64, error) {
	sig, _, err := m.sketchWithStats(items)
	return sig, err
}

// SketchWithStats behaves like Sketch but also returns diagnostics about
// the dart search, per SPEC_FULL's observability supplement.
func (m *DartMinHash) SketchWithStats(items wset.Set) ([]uint64, Stats, error) {
	return m.sketchWithStats(items)
}

func (m *DartMinHash) sketchWithStats(items wset.Set) ([]uint64, Stats, error) {
	valid, err := items.Validate()
	if err != nil {
		return nil, Stats{}, err
	}

	minhashID := make([]uint64, m.k)
	minhashRank := make([]float64, m.k)
	for j := range minhashRank {
		minhashRank[j] = math.Inf(1)
	}

	theta := 1.0
	stats := Stats{}
	for _, it := range valid {
		if lvl, lerr := internal.Log2CeilLevel(it.Weight); lerr == nil && lvl > stats.MaxLevel {
			stats.MaxLevel = lvl
		}
	}
	for {
		stats.Rounds++
		filled := make([]bool, m.k)
		darts := m.dh.darts(valid, theta)
		stats.DartsThrown += len(darts)

		for _, dt := range darts {
			j := m.bucketHasher.Hash(dt.id) % uint64(m.k)
			filled[j] = true
			if dt.rank < minhashRank[j] {
				minhashRank[j] = dt.rank
				minhashID[j] = dt.id
			}
		}

		allFilled := true
		for _, f := range filled {
			if !f {
				allFilled = false
				break
			}
		}
		if allFilled {
			break
		}
		theta += 0.5
	}

	return minhashID, stats, nil
}

// OneBit extracts a 1-bit MinHash sketch (the LSB of each bucket
// winner's hashed id) from a full DartMinHash signature. Per spec §9,
// this is explicitly gated behind a separate API rather than folded
// into Sketch: the source treats the id-parity coupling as experimental.
func (m *DartMinHash) OneBit(items wset.Set) ([]bool, error) {
	sig, err := m.Sketch(items)
	if err != nil {
		return nil, err
	}
	bits := make([]bool, len(sig))
	for i, id := range sig {
		bits[i] = id&1 == 1
	}
	return bits, nil
}
