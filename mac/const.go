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

package mac

// MAC sublayer constants, 802.15.4-2003 Table 70. Durations are in symbols.
const (
	aBaseSlotDuration       = 60
	aNumSuperframeSlots     = 16
	aBaseSuperframeDuration = aBaseSlotDuration * aNumSuperframeSlots
	aUnitBackoffPeriod      = 20
	aMaxBE                  = 5
	aMaxFrameRetries        = 3
	aMaxLostBeacons         = 4
	aGTSDescPersistenceTime = 4
	aMaxNumGts              = 7
	aMinCap                 = 3
	aMinCAPLength           = 440
	aMinLIFSPeriod          = 40
	aMinSIFSPeriod          = 12
	aMaxSIFSFrameSize       = 18
	aResponseWaitTime       = 32 * aBaseSuperframeDuration
	aMaxFrameResponseTime   = 1220
	aTurnaroundTime         = 12
	aCcaTime                = 8
)

// Implementation limits.
const (
	capQueueCapacity      = 64
	gtsQueueCapacity      = 16
	bcastQueueCapacity    = 16
	transactionCapacity   = 20
	MaxMissedTransactions = 3
	MaxScanDuration       = 14

	// beacon loss is declared this many backoff periods after the expected beacon
	beaconLossMargin = 4

	oneDayUs uint64 = 24 * 3600 * 1000000
)
