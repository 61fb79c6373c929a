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

	"github.com/openthread/ot-mac/phy"
	. "github.com/openthread/ot-mac/types"
	"github.com/openthread/ot-mac/wpan"
)

func TestDataNoAck(t *testing.T) {
	n := newTestNet(t)
	dev, up := n.addNode(1)
	joinDevice(t, dev, 2)

	dev.McpsDataRequest(&DataRequest{SrcAddrMode: wpan.AddrModeShort, Dst: wpan.ShortAddress(testPanId, 5),
		Msdu: []byte{1, 2, 3}, Handle: 7, TxOptions: TxOptAck})
	n.run(1000000, dev)

	data := n.framesOf(wpan.FrameTypeData)
	assert.Equal(t, aMaxFrameRetries+1, len(data))
	for _, cf := range data {
		assert.Equal(t, data[0].frame.Seq, cf.frame.Seq)
	}
	assert.Equal(t, NoAck, up.dataConfirms[7])
	assert.Equal(t, []Status{NoAck}, up.dropped)
	assert.Equal(t, uint64(aMaxFrameRetries), dev.Stats.RetriesNoAck)
	assert.Equal(t, uint64(1), dev.Stats.DropsNoAck)
	assert.Equal(t, uint64(0), dev.Stats.DataSent)
	assert.Nil(t, dev.txPkt)
	assert.False(t, dev.procInFlight(ProcData))
}

func TestDataAcknowledged(t *testing.T) {
	n := newTestNet(t)
	coord, cup := n.addNode(1)
	dev, dup := n.addNode(2)
	startCoordinator(t, coord, cup, 15, 15)
	joinDevice(t, dev, 1)

	for h := uint8(1); h <= 3; h++ {
		dev.McpsDataRequest(&DataRequest{SrcAddrMode: wpan.AddrModeShort, Dst: wpan.ShortAddress(testPanId, 0),
			Msdu: []byte{h}, Handle: h, TxOptions: TxOptAck})
	}
	n.run(500000, coord, dev)

	for h := uint8(1); h <= 3; h++ {
		assert.Equal(t, Success, dup.dataConfirms[h])
	}
	assert.Equal(t, uint64(3), dev.Stats.DataSent)
	assert.Equal(t, uint64(3), dev.Stats.AcksReceived)
	assert.Equal(t, uint64(3), coord.Stats.AcksSent)
	if assert.Equal(t, 3, len(cup.dataInds)) {
		// delivered in request order
		for i, ind := range cup.dataInds {
			assert.Equal(t, []byte{uint8(i + 1)}, ind.Msdu)
			assert.Equal(t, wpan.ShortAddress(testPanId, 1), ind.Src)
		}
	}
}

func TestDataRequestValidation(t *testing.T) {
	n := newTestNet(t)
	dev, up := n.addNode(1)
	assert.Equal(t, Success, dev.MlmeSetRequest(AttrPANId, testPanId))

	// no short address assigned yet
	dev.McpsDataRequest(&DataRequest{SrcAddrMode: wpan.AddrModeShort, Dst: wpan.ShortAddress(testPanId, 5),
		Handle: 1})
	assert.Equal(t, InvalidParameter, up.dataConfirms[1])

	dev.McpsDataRequest(&DataRequest{SrcAddrMode: wpan.AddrModeExtended, Dst: wpan.ShortAddress(testPanId, 5),
		Msdu: make([]byte, 120), Handle: 2})
	assert.Equal(t, FrameTooLong, up.dataConfirms[2])

	dev.McpsDataRequest(&DataRequest{SrcAddrMode: wpan.AddrModeExtended, Dst: wpan.ShortAddress(testPanId, 5),
		Msdu: []byte{1}, Handle: 3, TxOptions: TxOptGts})
	assert.Equal(t, InvalidGts, up.dataConfirms[3])

	// rejected requests do not use sequence numbers
	assert.Equal(t, uint8(0), dev.Pib().DSN)

	dev.McpsDataRequest(&DataRequest{SrcAddrMode: wpan.AddrModeExtended, Dst: wpan.ShortAddress(testPanId, 5),
		Msdu: []byte{1}, Handle: 4})
	assert.Equal(t, uint8(1), dev.Pib().DSN)
	n.run(100000, dev)
	if data := n.framesOf(wpan.FrameTypeData); assert.Equal(t, 1, len(data)) {
		assert.Equal(t, uint8(0), data[0].frame.Seq)
	}
}

func TestPollHasPriorityOverData(t *testing.T) {
	n := newTestNet(t)
	dev, up := n.addNode(1)
	joinDevice(t, dev, 2)

	dev.McpsDataRequest(&DataRequest{SrcAddrMode: wpan.AddrModeShort, Dst: wpan.ShortAddress(testPanId, 0),
		Msdu: []byte{1}, Handle: 1, TxOptions: TxOptAck})
	dev.MlmePollRequest(wpan.ShortAddress(testPanId, 0))
	n.run(1000000, dev)

	if assert.True(t, len(n.frames) >= 2*(aMaxFrameRetries+1)) {
		for _, cf := range n.frames[:aMaxFrameRetries+1] {
			assert.Equal(t, wpan.CmdDataRequest, commandId(cf.frame))
		}
		assert.Equal(t, wpan.FrameTypeData, n.frames[aMaxFrameRetries+1].frame.Type())
	}
	assert.Equal(t, []Status{NoAck}, up.pollConfirms)
	assert.Equal(t, NoAck, up.dataConfirms[1])
	assert.Equal(t, uint64(1), dev.Stats.Polls)
}

// The command slot beats the second command slot, which beats the data slot, whatever the request order.
func TestSlotPriority(t *testing.T) {
	n := newTestNet(t)
	dev, up := n.addNode(1)
	joinDevice(t, dev, 2)
	assert.Equal(t, Success, dev.MlmeSetRequest(AttrCoordExtendedAddress, NodeExtAddr(9)))

	dev.McpsDataRequest(&DataRequest{SrcAddrMode: wpan.AddrModeShort, Dst: wpan.ShortAddress(testPanId, 0),
		Msdu: []byte{1}, Handle: 1, TxOptions: TxOptAck})
	dev.MlmePollRequest(wpan.ShortAddress(testPanId, 0))
	dev.MlmeDisassociateRequest(NodeExtAddr(9), 2)
	n.run(2000000, dev)

	attempts := aMaxFrameRetries + 1
	if assert.Equal(t, 3*attempts, len(n.frames)) {
		for i, cf := range n.frames {
			switch i / attempts {
			case 0:
				assert.Equal(t, wpan.CmdDisassociation, commandId(cf.frame))
				assert.Equal(t, uint8(2), cf.frame.Seq)
			case 1:
				assert.Equal(t, wpan.CmdDataRequest, commandId(cf.frame))
				assert.Equal(t, uint8(1), cf.frame.Seq)
			default:
				assert.Equal(t, wpan.FrameTypeData, cf.frame.Type())
				assert.Equal(t, uint8(0), cf.frame.Seq)
			}
		}
	}
	assert.Equal(t, []Status{NoAck}, up.disassocConfs)
	assert.Equal(t, []Status{NoAck}, up.pollConfirms)
	assert.Equal(t, NoAck, up.dataConfirms[1])
}

func TestBroadcastFollowsBeacon(t *testing.T) {
	n := newTestNet(t)
	coord, cup := n.addNode(1)
	startCoordinator(t, coord, cup, 6, 6)
	n.run(1000, coord)
	assert.Equal(t, []Status{Success}, cup.startConfirms)

	coord.McpsDataRequest(&DataRequest{SrcAddrMode: wpan.AddrModeShort,
		Dst: wpan.ShortAddress(testPanId, BroadcastShortAddr), Msdu: []byte{0xaa}, Handle: 4})
	coord.McpsDataRequest(&DataRequest{SrcAddrMode: wpan.AddrModeShort,
		Dst: wpan.ShortAddress(testPanId, BroadcastShortAddr), Msdu: []byte{0xbb}, Handle: 5})
	assert.Equal(t, 2, len(coord.bcastQueue))
	// nothing goes out before the next beacon
	n.run(coord.biUs(6)/2, coord)
	assert.Equal(t, 0, len(n.framesOf(wpan.FrameTypeData)))

	n.run(coord.biUs(6), coord)
	beacons := n.framesOf(wpan.FrameTypeBeacon)
	data := n.framesOf(wpan.FrameTypeData)
	if assert.Equal(t, 2, len(beacons)) && assert.Equal(t, 2, len(data)) {
		second := beacons[1]
		assert.True(t, second.frame.FrameControl.FramePending())
		end := second.ts + phy.FrameDurationUs(len(second.psdu))
		assert.Equal(t, end+coord.ifsUs(len(second.psdu)), data[0].ts)
		assert.True(t, data[0].frame.FrameControl.FramePending())
		assert.False(t, data[1].frame.FrameControl.FramePending())
		assert.True(t, data[1].ts > data[0].ts)
	}
	assert.Equal(t, Success, cup.dataConfirms[4])
	assert.Equal(t, Success, cup.dataConfirms[5])
	assert.Empty(t, cup.dropped)
}

func TestIndirectPurgeAndExpiry(t *testing.T) {
	n := newTestNet(t)
	coord, up := n.addNode(1)
	startCoordinator(t, coord, up, 15, 15)
	assert.Equal(t, Success, coord.MlmeSetRequest(AttrTransactionPersistenceTime, 2))

	for h := uint8(1); h <= 2; h++ {
		coord.McpsDataRequest(&DataRequest{SrcAddrMode: wpan.AddrModeShort, Dst: wpan.ShortAddress(testPanId, 9),
			Msdu: []byte{h}, Handle: h, TxOptions: TxOptAck | TxOptIndirect})
	}
	assert.Equal(t, 2, coord.Transactions().Len())

	coord.McpsPurgeRequest(1)
	coord.McpsPurgeRequest(1)
	assert.Equal(t, []Status{Success, InvalidHandle}, up.purgeConfirms)
	assert.Equal(t, 1, coord.Transactions().Len())

	pending := coord.Transactions().PendingAddrs()
	assert.Equal(t, []uint16{9}, pending.Short)

	n.run(2*coord.symbols(aBaseSuperframeDuration)+1, coord)
	assert.Equal(t, 0, coord.Transactions().Len())
	assert.Equal(t, TransactionExpired, up.dataConfirms[2])
	assert.Equal(t, []Status{TransactionExpired}, up.dropped)
	assert.Equal(t, uint64(1), coord.Stats.DropsExpired)
}

func TestTransactionOverflow(t *testing.T) {
	n := newTestNet(t)
	coord, up := n.addNode(1)
	startCoordinator(t, coord, up, 15, 15)

	for h := 0; h <= transactionCapacity; h++ {
		coord.McpsDataRequest(&DataRequest{SrcAddrMode: wpan.AddrModeShort, Dst: wpan.ShortAddress(testPanId, 9),
			Msdu: []byte{1}, Handle: uint8(h), TxOptions: TxOptIndirect})
	}
	assert.Equal(t, transactionCapacity, coord.Transactions().Len())
	assert.Equal(t, TransactionOverflow, up.dataConfirms[transactionCapacity])
	assert.Equal(t, uint64(1), coord.Stats.DropsOverflow)
}
