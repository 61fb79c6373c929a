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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openthread/ot-mac/wpan"
)

func TestGtsTableCompaction(t *testing.T) {
	own := NewGtsTable(GtsOwn)
	assert.Equal(t, uint8(15), own.FinalCapSlot())
	assert.True(t, own.Compacted())

	assert.True(t, own.Add(&GtsDescriptor{DevAddr: 1, SlotStart: 14, Length: 2}))
	assert.True(t, own.Add(&GtsDescriptor{DevAddr: 2, SlotStart: 11, Length: 3}))
	assert.True(t, own.Add(&GtsDescriptor{DevAddr: 3, SlotStart: 10, Length: 1, RecvOnly: true}))
	assert.True(t, own.Compacted())
	assert.Equal(t, 6, own.UsedSlots())
	assert.Equal(t, uint8(9), own.FinalCapSlot())

	d := own.Remove(0)
	assert.Equal(t, uint16(1), d.DevAddr)
	assert.True(t, own.Compacted())
	assert.Equal(t, uint8(13), own.Get(0).SlotStart)
	assert.Equal(t, uint8(12), own.Get(1).SlotStart)
	assert.Equal(t, uint8(11), own.FinalCapSlot())

	i, found := own.Find(3, true)
	assert.Equal(t, 1, i)
	assert.Equal(t, uint16(3), found.DevAddr)
	i, found = own.Find(3, false)
	assert.Equal(t, -1, i)
	assert.Nil(t, found)

	// entries of the parent table keep the positions the coordinator announced
	parent := NewGtsTable(GtsParent)
	parent.Add(&GtsDescriptor{DevAddr: 5, SlotStart: 14, Length: 2})
	parent.Add(&GtsDescriptor{DevAddr: 5, SlotStart: 12, Length: 2, RecvOnly: true})
	parent.Remove(0)
	assert.Equal(t, uint8(12), parent.Get(0).SlotStart)
}

func TestGtsTableCapacity(t *testing.T) {
	tab := NewGtsTable(GtsStaging)
	for i := 0; i < aMaxNumGts; i++ {
		assert.True(t, tab.Add(&GtsDescriptor{DevAddr: uint16(i), Length: 1}))
	}
	assert.True(t, tab.Full())
	assert.False(t, tab.Add(&GtsDescriptor{DevAddr: 100, Length: 1}))
	// replacing an entry is possible on a full table
	assert.True(t, tab.Put(&GtsDescriptor{DevAddr: 3, SlotStart: 9, Length: 2}))
	_, d := tab.Find(3, false)
	assert.Equal(t, uint8(9), d.SlotStart)

	assert.Equal(t, aMaxNumGts, len(tab.Descriptors()))
	tab.Reset()
	assert.Equal(t, 0, tab.Len())
}

func TestGtsAllocation(t *testing.T) {
	n := newTestNet(t)
	coord, up := n.addNode(1)
	startCoordinator(t, coord, up, 6, 6)
	n.run(1000, coord)

	coord.gtsRequestReceived(wpan.ShortAddress(testPanId, 5), wpan.GtsCharacteristics{Length: 2, Allocate: true})
	if assert.Equal(t, 1, coord.GtsTable(GtsOwn).Len()) {
		d := coord.GtsTable(GtsOwn).Get(0)
		assert.Equal(t, uint8(14), d.SlotStart)
		assert.Equal(t, uint8(2), d.Length)
	}
	assert.Equal(t, uint8(13), coord.Superframe().FinalCapSlot)
	assert.Equal(t, []uint16{5}, up.gtsInds)

	coord.gtsRequestReceived(wpan.ShortAddress(testPanId, 6), wpan.GtsCharacteristics{Length: 3, Allocate: true})
	assert.Equal(t, uint8(11), coord.GtsTable(GtsOwn).Get(1).SlotStart)
	assert.Equal(t, uint8(10), coord.Superframe().FinalCapSlot)

	// the CAP keeps at least aMinCap slots
	coord.gtsRequestReceived(wpan.ShortAddress(testPanId, 7), wpan.GtsCharacteristics{Length: 9, Allocate: true})
	assert.Equal(t, 2, coord.GtsTable(GtsOwn).Len())
	assert.Equal(t, uint64(1), coord.Stats.GtsRejected)
	_, rejected := coord.GtsTable(GtsStaging).Find(7, false)
	if assert.NotNil(t, rejected) {
		assert.Equal(t, uint8(0), rejected.SlotStart)
	}

	coord.gtsRequestReceived(wpan.ShortAddress(testPanId, 5), wpan.GtsCharacteristics{Length: 2})
	assert.Equal(t, 1, coord.GtsTable(GtsOwn).Len())
	assert.True(t, coord.GtsTable(GtsOwn).Compacted())
	assert.Equal(t, uint8(13), coord.GtsTable(GtsOwn).Get(0).SlotStart)
	assert.Equal(t, uint8(12), coord.Superframe().FinalCapSlot)
	assert.Equal(t, []uint16{5, 6, 5}, up.gtsInds)

	// the next beacon announces the changes
	n.run(coord.biUs(6), coord)
	beacons := n.framesOf(wpan.FrameTypeBeacon)
	if assert.Equal(t, 2, len(beacons)) {
		b, err := wpan.UnmarshalBeacon(beacons[1].frame.Payload)
		assert.Nil(t, err)
		assert.Equal(t, uint8(12), b.Superframe.FinalCapSlot)
		starts := map[uint16]uint8{}
		for _, gd := range b.Gts.List {
			starts[gd.ShortAddr] = gd.StartSlot
		}
		assert.Equal(t, map[uint16]uint8{5: 0, 6: 13, 7: 0}, starts)
	}
}

func TestGtsRequestIgnored(t *testing.T) {
	n := newTestNet(t)
	coord, up := n.addNode(1)
	startCoordinator(t, coord, up, 6, 6)
	n.run(1000, coord)
	assert.Equal(t, Success, coord.MlmeSetRequest(AttrGTSPermit, false))

	coord.gtsRequestReceived(wpan.ShortAddress(testPanId, 5), wpan.GtsCharacteristics{Length: 2, Allocate: true})
	assert.Equal(t, 0, coord.GtsTable(GtsOwn).Len())
	assert.Equal(t, 0, coord.GtsTable(GtsStaging).Len())
	assert.Equal(t, uint64(1), coord.Stats.GtsRequestsIgnored)
	assert.Empty(t, up.gtsInds)
}

func TestGtsParentBeacon(t *testing.T) {
	n := newTestNet(t)
	dev, up := n.addNode(1)
	joinDevice(t, dev, 2)

	tx := &GtsDescriptor{DevAddr: 2, SlotStart: 14, Length: 2}
	rx := &GtsDescriptor{DevAddr: 2, SlotStart: 13, Length: 1, RecvOnly: true}
	dev.GtsTable(GtsParent).Add(tx)
	dev.GtsTable(GtsParent).Add(rx)
	dev.gtsRequestExhausted = true

	dev.gtsParentBeacon(&wpan.Beacon{Gts: wpan.GtsFields{Permit: true, List: []wpan.GtsDescriptor{
		{ShortAddr: 2, StartSlot: 0, Length: 2},
		{ShortAddr: 2, StartSlot: 15, Length: 1, RecvOnly: true},
	}}})
	assert.Equal(t, 1, dev.GtsTable(GtsParent).Len())
	assert.Equal(t, uint8(15), rx.SlotStart)
	assert.Equal(t, []uint16{2}, up.gtsInds)
	// a zero-start descriptor means slots were freed
	assert.False(t, dev.gtsRequestExhausted)
}

func TestEstimateGtsSlots(t *testing.T) {
	const symbolUs = 16
	slotUs := uint64(aBaseSlotDuration<<6) * symbolUs
	biUs := uint64(aBaseSuperframeDuration<<6) * symbolUs

	assert.Equal(t, uint8(0), EstimateGtsSlots(0, 0, 0, slotUs, biUs, symbolUs))
	assert.Equal(t, uint8(1), EstimateGtsSlots(50, 0, 0, slotUs, biUs, symbolUs))
	// never more than the slots outside the minimum CAP
	assert.Equal(t, uint8(aNumSuperframeSlots-aMinCap), EstimateGtsSlots(1000, 20, biUs/100, 1, biUs, symbolUs))
	assert.True(t, EstimateGtsSlots(100, 50, 0, slotUs/32, biUs, symbolUs) >
		EstimateGtsSlots(100, 0, 0, slotUs/32, biUs, symbolUs))
}

func TestGtsRequestExhausted(t *testing.T) {
	n := newTestNet(t)
	coord, cup := n.addNode(1)
	dev, dup := n.addNode(2)
	startCoordinator(t, coord, cup, 6, 6)
	assert.Equal(t, Success, coord.MlmeSetRequest(AttrGTSPermit, false))
	joinDevice(t, dev, 1)
	dev.MlmeSyncRequest(11, true)
	bi := coord.biUs(6)
	n.run(2*bi, coord, dev)

	dev.MlmeGtsRequest(wpan.GtsCharacteristics{Length: 2, Allocate: true})
	n.run(uint64(aGTSDescPersistenceTime+2)*bi, coord, dev)
	assert.Equal(t, []Status{NoData}, dup.gtsConfirms)
	assert.True(t, dev.gtsRequestExhausted)
	assert.Equal(t, uint64(1), coord.Stats.GtsRequestsIgnored)

	// no automatic requests until slots are freed
	dev.lazyGtsRequest(50)
	assert.False(t, dev.procInFlight(ProcGtsRequest))
}

func TestGtsExhaustionClearedByDeallocation(t *testing.T) {
	n := newTestNet(t)
	dev, _ := n.addNode(2)
	joinDevice(t, dev, 1)
	dev.gtsRequestExhausted = true

	beacon := func(gd wpan.GtsDescriptor) *wpan.Beacon {
		return &wpan.Beacon{Gts: wpan.GtsFields{List: []wpan.GtsDescriptor{gd}}}
	}
	// another device was turned down
	dev.gtsParentBeacon(beacon(wpan.GtsDescriptor{ShortAddr: 7, Length: 2}))
	assert.True(t, dev.gtsRequestExhausted)

	dev.gtsParentBeacon(beacon(wpan.GtsDescriptor{ShortAddr: 7, StartSlot: 14, Length: 2}))
	assert.True(t, dev.gtsRequestExhausted)

	// and later freed its slots
	dev.gtsParentBeacon(beacon(wpan.GtsDescriptor{ShortAddr: 7, Length: 2}))
	assert.False(t, dev.gtsRequestExhausted)
}
