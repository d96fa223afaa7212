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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apache/datasketches-go-wmh/estimator"
	"github.com/apache/datasketches-go-wmh/internal/mt19937"
	"github.com/apache/datasketches-go-wmh/wset"
)

func newEngine(t *testing.T, seed uint64, k int) *DartMinHash {
	t.Helper()
	dm, err := New(mt19937.New(seed), k)
	require.NoError(t, err)
	return dm
}

// TestIdenticalSetsEstimateExactlyOne is spec §8 scenario 1: seed=42,
// k=128, A == B, expected estimate 1.0 exactly.
func TestIdenticalSetsEstimateExactlyOne(t *testing.T) {
	dm := newEngine(t, 42, 128)
	a := wset.Set{
		{ID: 5, Weight: 1.2}, {ID: 17, Weight: 0.9}, {ID: 23, Weight: 1.1},
		{ID: 42, Weight: 0.95}, {ID: 100, Weight: 1.0},
	}
	sigA, err := dm.Sketch(a)
	require.NoError(t, err)
	sigB, err := dm.Sketch(a)
	require.NoError(t, err)

	j, err := estimator.JaccardFromIDs(sigA, sigB)
	require.NoError(t, err)
	assert.Equal(t, 1.0, j)
}

// TestDisjointSetsEstimateZero is spec §8 scenario 2.
func TestDisjointSetsEstimateZero(t *testing.T) {
	dm := newEngine(t, 42, 128)
	a := wset.Set{{ID: 1, Weight: 1.0}}
	b := wset.Set{{ID: 2, Weight: 1.0}}

	sigA, err := dm.Sketch(a)
	require.NoError(t, err)
	sigB, err := dm.Sketch(b)
	require.NoError(t, err)

	j, err := estimator.JaccardFromIDs(sigA, sigB)
	require.NoError(t, err)
	assert.Equal(t, 0.0, j)
}

// TestPermutationInvariance is spec §8 scenario 4 / invariant I1.
func TestPermutationInvariance(t *testing.T) {
	dm := newEngine(t, 42, 128)
	a := wset.Set{
		{ID: 5, Weight: 1.2}, {ID: 17, Weight: 0.9}, {ID: 23, Weight: 1.1},
		{ID: 42, Weight: 0.95}, {ID: 100, Weight: 1.0},
	}
	reversed := make(wset.Set, len(a))
	for i, it := range a {
		reversed[len(a)-1-i] = it
	}

	sigA, err := dm.Sketch(a)
	require.NoError(t, err)
	sigRev, err := dm.Sketch(reversed)
	require.NoError(t, err)

	assert.Equal(t, sigA, sigRev)
}

// TestDeterminismAcrossEngines is spec §8 scenario 5.
func TestDeterminismAcrossEngines(t *testing.T) {
	a := wset.Set{{ID: 1, Weight: 3.0}, {ID: 2, Weight: 1.5}, {ID: 9, Weight: 0.25}}
	dm1 := newEngine(t, 42, 128)
	dm2 := newEngine(t, 42, 128)

	sig1, err := dm1.Sketch(a)
	require.NoError(t, err)
	sig2, err := dm2.Sketch(a)
	require.NoError(t, err)

	assert.Equal(t, sig1, sig2)
}

func TestEmptyInputIsError(t *testing.T) {
	dm := newEngine(t, 42, 64)
	_, err := dm.Sketch(wset.Set{})
	assert.ErrorIs(t, err, wset.ErrEmptyInput)

	_, err = dm.Sketch(wset.Set{{ID: 1, Weight: 0}})
	assert.ErrorIs(t, err, wset.ErrEmptyInput)
}

func TestInvalidWeightIsError(t *testing.T) {
	dm := newEngine(t, 42, 64)
	_, err := dm.Sketch(wset.Set{{ID: 1, Weight: math.NaN()}})
	assert.ErrorIs(t, err, wset.ErrInvalidWeight)
}

func TestNewRejectsNonPositiveK(t *testing.T) {
	_, err := New(mt19937.New(1), 0)
	assert.ErrorIs(t, err, wset.ErrParameterError)
}

// buildOverlapSets constructs A = {0..n) and B shifted by n*(1-rel) so
// that the true weighted Jaccard is close to rel/(2-rel), following the
// generator used in original_source/src/dartminhash.rs's own tests.
func buildOverlapSets(n int, overlap int) (wset.Set, wset.Set) {
	a := make(wset.Set, n)
	for i := 0; i < n; i++ {
		a[i] = wset.Item{ID: uint64(i), Weight: 1.0}
	}
	shift := n - overlap
	b := make(wset.Set, n)
	for i := 0; i < n; i++ {
		b[i] = wset.Item{ID: uint64(i + shift), Weight: 1.0}
	}
	return a, b
}

// TestAccuracySweep is a scaled-down version of spec §8 scenario 3: for
// a handful of target overlaps, sketch and confirm the estimate tracks
// true weighted Jaccard within a tolerance appropriate for k=1024.
func TestAccuracySweep(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping accuracy sweep in -short mode")
	}
	const k = 1024
	dm := newEngine(t, 42, k)
	const n = 200

	for _, overlap := range []int{200, 150, 100, 50, 10, 2} {
		a, b := buildOverlapSets(n, overlap)
		trueJ := estimator.ExactJaccard(a, b)

		sigA, err := dm.Sketch(a)
		require.NoError(t, err)
		sigB, err := dm.Sketch(b)
		require.NoError(t, err)

		est, err := estimator.JaccardFromIDs(sigA, sigB)
		require.NoError(t, err)

		assert.InDelta(t, trueJ, est, 0.05, "overlap=%d trueJ=%.4f est=%.4f", overlap, trueJ, est)
	}
}

func TestOneBitLengthMatchesK(t *testing.T) {
	dm := newEngine(t, 42, 32)
	a := wset.Set{{ID: 1, Weight: 1.0}, {ID: 2, Weight: 2.0}}
	bits, err := dm.OneBit(a)
	require.NoError(t, err)
	assert.Len(t, bits, 32)
}
