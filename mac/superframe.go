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

import (
	"github.com/openthread/ot-mac/phy"
	"github.com/openthread/ot-mac/wpan"
)

// capRef selects the beacon a CAP computation refers to.
type capRef uint8

const (
	capOwn capRef = iota
	capParent
	capOther
	numCapRefs
)

func nonBeaconSuperframe() wpan.SuperframeSpec {
	return wpan.SuperframeSpec{BeaconOrder: 15, SuperframeOrder: 15, FinalCapSlot: 15}
}

func (m *Mac) now() uint64 {
	return m.sched.Now()
}

func (m *Mac) symbolUs() uint64 {
	return 1000000 / uint64(m.radio.SymbolRate())
}

// symbols converts n symbols to us.
func (m *Mac) symbols(n uint64) uint64 {
	return n * m.symbolUs()
}

func (m *Mac) backoffUs() uint64 {
	return m.symbols(aUnitBackoffPeriod)
}

// biUs returns the beacon interval of beacon order bo.
func (m *Mac) biUs(bo uint8) uint64 {
	return m.symbols(uint64(aBaseSuperframeDuration) << bo)
}

// sdUs returns the superframe duration of superframe order so.
func (m *Mac) sdUs(so uint8) uint64 {
	return m.symbols(uint64(aBaseSuperframeDuration) << so)
}

func (m *Mac) slotUs(so uint8) uint64 {
	return m.symbols(uint64(aBaseSlotDuration) << so)
}

// ifsUs returns the interframe spacing following a frame of psduLen bytes.
func (m *Mac) ifsUs(psduLen int) uint64 {
	if psduLen > aMaxSIFSFrameSize {
		return m.symbols(aMinLIFSPeriod)
	}
	return m.symbols(aMinSIFSPeriod)
}

// beaconPeriods returns the number of backoff periods a beacon of psduLen bytes occupies.
func (m *Mac) beaconPeriods(psduLen int) uint64 {
	bp := m.backoffUs()
	return (phy.FrameDurationUs(psduLen) + bp - 1) / bp
}

func (m *Mac) scanDurationUs(n uint8) uint64 {
	return m.symbols(uint64(aBaseSuperframeDuration) * (uint64(1)<<n + 1))
}

func (m *Mac) superframe(ref capRef) wpan.SuperframeSpec {
	switch ref {
	case capOwn:
		return m.sfOwn
	case capParent:
		return m.sfParent
	default:
		return m.sfOther
	}
}

// beaconRef returns the start of the last beacon of ref. A received beacon is moved forward by whole beacon
// intervals for the beacons missed since; the stored time is not changed.
func (m *Mac) beaconRef(ref capRef) uint64 {
	sf := m.superframe(ref)
	var t uint64
	switch ref {
	case capOwn:
		return m.bcnTxTime
	case capParent:
		t = m.bcnRxTime
	default:
		t = m.bcnOtherRxTime
	}
	if sf.BeaconOrder < 15 {
		bi := m.biUs(sf.BeaconOrder)
		now := m.now()
		for t+bi < now {
			t += bi
		}
	}
	return t
}

// capEnd returns the end of the contention access period of the superframe of ref. In a non-beacon PAN no
// CAP boundary applies.
func (m *Mac) capEnd(ref capRef) uint64 {
	sf := m.superframe(ref)
	if sf.BeaconOrder == 15 {
		return m.now() + oneDayUs
	}
	t := m.beaconRef(ref)
	if sf.BattLifeExt {
		return t + (m.bcnPeriods[ref]+uint64(m.pib.BattLifeExtPeriods))*m.backoffUs()
	}
	return t + uint64(sf.FinalCapSlot+1)*m.slotUs(sf.SuperframeOrder)
}

// capRefFor returns the superframe a frame contends in: the parent's for frames to the coordinator or when
// this node sends no beacons, the own superframe otherwise.
func (m *Mac) capRefFor(f *wpan.Frame) capRef {
	if m.sfParent.BeaconOrder < 15 && (m.isCoordAddr(f.Dst) || !m.beaconing()) {
		return capParent
	}
	return capOwn
}

func (m *Mac) beaconing() bool {
	return m.coordinator && m.sfOwn.BeaconOrder < 15
}

// minCapSlots returns the number of slots that must stay in the CAP of the own superframe.
func (m *Mac) minCapSlots() int {
	slotSymbols := aBaseSlotDuration << m.sfOwn.SuperframeOrder
	n := (aMinCAPLength + slotSymbols - 1) / slotSymbols
	if n < aMinCap {
		n = aMinCap
	}
	return n
}

// gtsExpiryBeacons returns the number of superframes an idle GTS survives.
func gtsExpiryBeacons(bo uint8) int {
	n := 1
	if bo <= 8 {
		n = 1 << (8 - bo)
	}
	return 2 * n
}

// transactionPersistenceUs returns how long an indirect frame waits for its destination.
func (m *Mac) transactionPersistenceUs() uint64 {
	units := uint64(m.pib.TransactionPersistenceTime)
	if m.sfOwn.BeaconOrder < 15 {
		return units * m.biUs(m.sfOwn.BeaconOrder)
	}
	return units * m.symbols(aBaseSuperframeDuration)
}
