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

// Package estimator turns a pair of signatures into a weighted Jaccard
// estimate (spec §4.7, Component G) plus the L1-similarity ambient
// utilities the original DartMinHash source exposes alongside it
// (original_source/src/similarity.rs).
package estimator

import (
	"fmt"
	"sort"

	"github.com/apache/datasketches-go-wmh/ers"
	"github.com/apache/datasketches-go-wmh/wset"
)

// JaccardFromIDs computes the collision-rate Jaccard estimate for two
// id-only signatures (DMH or RS output): #{j : a[j]==b[j]} / k. Both
// slices must have equal, nonzero length and must have been produced by
// the same engine instance and seed (spec §4.7 preconditions).
func JaccardFromIDs(sigA, sigB []uint64) (float64, error) {
	if len(sigA) != len(sigB) {
		return 0, fmt.Errorf("estimator: signatures have different lengths (%d vs %d)", len(sigA), len(sigB))
	}
	if len(sigA) == 0 {
		return 0, fmt.Errorf("estimator: signatures must be non-empty")
	}
	var hits int
	for i := range sigA {
		if sigA[i] == sigB[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(sigA)), nil
}

// JaccardFromDarts computes the collision-rate Jaccard estimate for two
// ERS (id, rank) signatures, comparing only the id half of each dart
// (matching original_source/src/similarity.rs::count_collisions, which
// checks only the id).
func JaccardFromDarts(sigA, sigB []ers.Dart) (float64, error) {
	if len(sigA) != len(sigB) {
		return 0, fmt.Errorf("estimator: signatures have different lengths (%d vs %d)", len(sigA), len(sigB))
	}
	if len(sigA) == 0 {
		return 0, fmt.Errorf("estimator: signatures must be non-empty")
	}
	var hits int
	for i := range sigA {
		if sigA[i].ID == sigB[i].ID {
			hits++
		}
	}
	return float64(hits) / float64(len(sigA)), nil
}

// OneBitJaccard estimates weighted Jaccard from a pair of 1-bit MinHash
// sketches via Hamming distance: max(0, 2*(1 - H/T) - 1), the standard
// unbiasing transform for 1-bit minwise sketches
// (original_source/src/similarity.rs::onebit_minhash_jaccard_estimate).
func OneBitJaccard(a, b []bool) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("estimator: bit sketches have different lengths (%d vs %d)", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("estimator: bit sketches must be non-empty")
	}
	var h float64
	for i := range a {
		if a[i] != b[i] {
			h++
		}
	}
	t := float64(len(a))
	est := 2*(1-h/t) - 1
	if est < 0 {
		est = 0
	}
	return est, nil
}

// ExactWeight sums the weights of a weighted set (no validation).
func ExactWeight(x wset.Set) float64 {
	return x.TotalWeight()
}

// ExactIntersection computes Σ min(x_i, y_i) over shared ids by merging
// x and y after sorting on id, matching
// original_source/src/similarity.rs::intersection.
func ExactIntersection(x, y wset.Set) float64 {
	xs := sortedByID(x)
	ys := sortedByID(y)
	var i, j int
	var s float64
	for i < len(xs) && j < len(ys) {
		switch {
		case xs[i].ID == ys[j].ID:
			if xs[i].Weight < ys[j].Weight {
				s += xs[i].Weight
			} else {
				s += ys[j].Weight
			}
			i++
			j++
		case xs[i].ID < ys[j].ID:
			i++
		default:
			j++
		}
	}
	return s
}

// ExactJaccard computes the true weighted Jaccard similarity
// Σmin(x,y)/Σmax(x,y) directly from two weighted sets, for testing
// sketch accuracy against ground truth (spec §8, property P3).
func ExactJaccard(x, y wset.Set) float64 {
	s := ExactIntersection(x, y)
	wx := ExactWeight(x)
	wy := ExactWeight(y)
	return s / (wx + wy - s)
}

// L1Similarity computes the normalized-intersection similarity
// Σmin(x,y) / min(Σx, Σy), an ambient measure the original source
// exposes alongside Jaccard (original_source/src/similarity.rs::l1_similarity).
func L1Similarity(x, y wset.Set) float64 {
	s := ExactIntersection(x, y)
	wx := ExactWeight(x)
	wy := ExactWeight(y)
	if wx < wy {
		return s / wx
	}
	return s / wy
}

// JaccardFromL1 converts an L1 (normalized-intersection) similarity to a
// Jaccard similarity given the two sets' total weights.
func JaccardFromL1(xWeight, yWeight, l1Sim float64) float64 {
	inter := minF(xWeight, yWeight) * l1Sim
	union := xWeight + yWeight - inter
	return inter / union
}

// L1FromJaccard converts a Jaccard similarity to an L1 similarity given
// the two sets' total weights, the inverse of JaccardFromL1.
func L1FromJaccard(xWeight, yWeight, jaccardSim float64) float64 {
	inter := jaccardSim * (xWeight + yWeight) / (1 + jaccardSim)
	return inter / minF(xWeight, yWeight)
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func sortedByID(x wset.Set) wset.Set {
	out := make(wset.Set, len(x))
	copy(out, x)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
