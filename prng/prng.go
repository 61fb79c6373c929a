// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package prng

import (
	"math/rand"
	"time"
)

var (
	nodeSeedGenerator   *rand.Rand
	placementGenerator  *rand.Rand
	trafficGenerator    *rand.Rand
	unitRandGenerator   *rand.Rand
	rootSeedInitialized int64
)

// Init seeds the generators from rootSeed. A rootSeed of 0 selects a time-based seed. Each generator gets
// its own stream so that adding traffic does not change node placement or the CSMA-CA backoffs.
func Init(rootSeed int64) {
	if rootSeed == 0 {
		rootSeed = time.Now().UnixNano()
	}
	rootSeedInitialized = rootSeed
	root := rand.New(rand.NewSource(rootSeed))
	nodeSeedGenerator = rand.New(rand.NewSource(root.Int63()))
	placementGenerator = rand.New(rand.NewSource(root.Int63()))
	trafficGenerator = rand.New(rand.NewSource(root.Int63()))
	unitRandGenerator = rand.New(rand.NewSource(root.Int63()))
}

// RootSeed returns the seed passed to the last Init, after resolving 0.
func RootSeed() int64 {
	return rootSeedInitialized
}

// NewNodeRandomSeed returns the seed of the backoff generator of a new MAC interface.
func NewNodeRandomSeed() int64 {
	return nodeSeedGenerator.Int63()
}

// NewPosition returns a random coordinate in [0, max).
func NewPosition(max int) int {
	if max <= 0 {
		return 0
	}
	return placementGenerator.Intn(max)
}

// NewTrafficJitter returns a random delay in [0, max) us for the start of periodic traffic.
func NewTrafficJitter(max uint64) uint64 {
	if max == 0 {
		return 0
	}
	return uint64(trafficGenerator.Int63n(int64(max)))
}

// NewUnitRandom returns a random float in [0, 1), usable as a probability.
func NewUnitRandom() float64 {
	return unitRandGenerator.Float64()
}
