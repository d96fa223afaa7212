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

package tabhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twmb/murmur3"

	"github.com/apache/datasketches-go-wmh/internal/mt19937"
)

func TestFamilyIsDeterministic(t *testing.T) {
	fa := NewFamily(mt19937.New(9001))
	fb := NewFamily(mt19937.New(9001))
	for x := uint64(0); x < 1000; x++ {
		assert.Equal(t, fa.Hash(x), fb.Hash(x))
	}
}

func TestFamilyDiffersAcrossSeeds(t *testing.T) {
	fa := NewFamily(mt19937.New(1))
	fb := NewFamily(mt19937.New(2))
	distinct := 0
	for x := uint64(0); x < 200; x++ {
		if fa.Hash(x) != fb.Hash(x) {
			distinct++
		}
	}
	assert.Greater(t, distinct, 190)
}

// TestFamilySpreadsLikeAGeneralPurposeHash cross-checks that the
// tabulation family's output distribution is not obviously degenerate by
// comparing collision counts to what an independent, well-studied hash
// (murmur3) produces over the same domain.
func TestFamilySpreadsLikeAGeneralPurposeHash(t *testing.T) {
	f := NewFamily(mt19937.New(42))
	seen := map[uint32]struct{}{}
	seenMurmur := map[uint32]struct{}{}
	const n = 20000
	for x := uint64(0); x < n; x++ {
		seen[uint32(f.Hash(x)>>32)] = struct{}{}
		seenMurmur[uint32(murmur3.Sum64(uint64ToBytes(x))>>32)] = struct{}{}
	}
	// both should land close to n distinct high-32-bit prefixes; a
	// badly degenerate tabulation hash would collapse to far fewer.
	assert.Greater(t, len(seen), n*9/10)
	assert.Greater(t, len(seenMurmur), n*9/10)
}

func uint64ToBytes(x uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(x >> (8 * i))
	}
	return b
}

func TestToUnitBounds(t *testing.T) {
	assert.Equal(t, 0.0, ToUnit(0))
	assert.InDelta(t, 1.0, ToUnit(^uint64(0)), 1e-15)
}

func TestToUnitsIndependence(t *testing.T) {
	hi, lo := ToUnits(0x00000000FFFFFFFF)
	assert.Equal(t, 0.0, hi)
	assert.InDelta(t, 1.0, lo, 1e-9)
}

func TestPairFamilyIsDeterministic(t *testing.T) {
	fa := NewPairFamily(mt19937.New(5))
	fb := NewPairFamily(mt19937.New(5))
	for id := uint64(0); id < 100; id++ {
		for trial := uint32(0); trial < 5; trial++ {
			assert.Equal(t, fa.Hash(id, trial), fb.Hash(id, trial))
		}
	}
}
