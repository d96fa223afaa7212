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

// Package randmath implements the exponential and geometric transforms
// shared by all three sketching engines, using a log1p-stable path for
// the geometric transform. Every transform takes its uniform
// input rather than drawing one itself, so callers control exactly which
// hash or RNG draw feeds it (needed for permutation invariance, I1).
package randmath

import (
	"fmt"
	"math"
)

// epsilon guards against the ±Inf that a raw u=0 or p=1 draw would
// otherwise produce; a draw landing in [0,epsilon) or (1-epsilon,1] is
// clamped to the boundary rather than propagating a non-finite value.
const epsilon = 1.0 / (1 << 53)

// Exponential draws Exponential(rate) via inverse-CDF from a uniform u
// in [0,1]. u==0 is clamped to epsilon rather than rejected, so callers
// may feed it a [0,1] draw such as tabhash.ToUnit directly.
func Exponential(u float64, rate float64) (float64, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, fmt.Errorf("randmath: rate must be finite and positive, got %v", rate)
	}
	if u < 0 || u > 1 || math.IsNaN(u) {
		return 0, fmt.Errorf("randmath: u must be in [0,1], got %v", u)
	}
	if u < epsilon {
		u = epsilon
	}
	return -math.Log(u) / rate, nil
}

// Geometric returns the number of Bernoulli(p) trials until the first
// success, drawn from a uniform u in (0,1) via
// ceil(log(u)/log1p(-p)). p near 1 is clamped so the result is always 1
// rather than propagating NaN from log(0).
func Geometric(u float64, p float64) (uint64, error) {
	if p <= 0 || p > 1 || math.IsNaN(p) {
		return 0, fmt.Errorf("randmath: p must be in (0,1], got %v", p)
	}
	if u <= 0 || u >= 1 || math.IsNaN(u) {
		return 0, fmt.Errorf("randmath: u must be in (0,1), got %v", u)
	}
	if p >= 1-epsilon {
		return 1, nil
	}
	denom := math.Log1p(-p)
	trials := math.Ceil(math.Log(u) / denom)
	if trials < 1 {
		trials = 1
	}
	return uint64(trials), nil
}

// Uniform maps u in [0,1) onto [a,b).
func Uniform(u, a, b float64) float64 {
	return a + (b-a)*u
}
