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

package randmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialMonotonic(t *testing.T) {
	a, err := Exponential(0.9, 1.0)
	require.NoError(t, err)
	b, err := Exponential(0.1, 1.0)
	require.NoError(t, err)
	assert.Less(t, a, b, "smaller u should give a larger draw under -ln(u)")
}

func TestExponentialRejectsBadRate(t *testing.T) {
	_, err := Exponential(0.5, 0)
	assert.Error(t, err)
	_, err = Exponential(0.5, -1)
	assert.Error(t, err)
}

func TestExponentialClampsNearZero(t *testing.T) {
	v, err := Exponential(0, 1.0)
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, 0) == false)
}

func TestGeometricReturnsAtLeastOne(t *testing.T) {
	for _, u := range []float64{0.01, 0.5, 0.99} {
		g, err := Geometric(u, 0.5)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, g, uint64(1))
	}
}

func TestGeometricClampsNearOne(t *testing.T) {
	g, err := Geometric(0.5, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), g)
}

func TestGeometricRejectsBadP(t *testing.T) {
	_, err := Geometric(0.5, 0)
	assert.Error(t, err)
	_, err = Geometric(0.5, 1.5)
	assert.Error(t, err)
}

func TestUniformRange(t *testing.T) {
	assert.Equal(t, 5.0, Uniform(0, 5, 10))
	assert.InDelta(t, 10.0, Uniform(1, 5, 10), 1e-9)
	assert.InDelta(t, 7.5, Uniform(0.5, 5, 10), 1e-9)
}
