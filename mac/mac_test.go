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

	"github.com/openthread/ot-mac/event"
	"github.com/openthread/ot-mac/phy"
	. "github.com/openthread/ot-mac/types"
	"github.com/openthread/ot-mac/wpan"
)

const testPanId = 0x1234

type capturedFrame struct {
	ts      uint64
	channel ChannelId
	frame   *wpan.Frame
	psdu    []byte
}

type testUpper struct {
	NopUpper

	dataConfirms  map[uint8]Status
	dataInds      []*DataIndication
	dropped       []Status
	purgeConfirms []Status
	assocConfirms []Status
	assocShort    uint16
	assocInds     []uint64
	commStatus    []Status
	startConfirms []Status
	scanConfirms  []*ScanResult
	pollConfirms  []Status
	syncLoss      []Status
	gtsInds       []uint16
	gtsConfirms   []Status
	disassocInds  []uint64
	disassocConfs []Status
	orphans       []uint64
	rxEnable      []Status

	onAssociate func(devAddr uint64, capability wpan.Capability)
}

func newTestUpper() *testUpper {
	return &testUpper{dataConfirms: map[uint8]Status{}}
}

func (u *testUpper) McpsDataConfirm(handle uint8, status Status) {
	u.dataConfirms[handle] = status
}

func (u *testUpper) McpsDataIndication(ind *DataIndication) {
	u.dataInds = append(u.dataInds, ind)
}

func (u *testUpper) McpsPurgeConfirm(handle uint8, status Status) {
	u.purgeConfirms = append(u.purgeConfirms, status)
}

func (u *testUpper) PacketDropped(handle uint8, dst wpan.Address, status Status) {
	u.dropped = append(u.dropped, status)
}

func (u *testUpper) MlmeAssociateConfirm(shortAddr uint16, status Status) {
	u.assocShort = shortAddr
	u.assocConfirms = append(u.assocConfirms, status)
}

func (u *testUpper) MlmeAssociateIndication(devAddr uint64, capability wpan.Capability) {
	u.assocInds = append(u.assocInds, devAddr)
	if u.onAssociate != nil {
		u.onAssociate(devAddr, capability)
	}
}

func (u *testUpper) MlmeCommStatusIndication(panId uint16, src, dst wpan.Address, status Status) {
	u.commStatus = append(u.commStatus, status)
}

func (u *testUpper) MlmeStartConfirm(status Status) {
	u.startConfirms = append(u.startConfirms, status)
}

func (u *testUpper) MlmeScanConfirm(res *ScanResult) {
	u.scanConfirms = append(u.scanConfirms, res)
}

func (u *testUpper) MlmePollConfirm(status Status) {
	u.pollConfirms = append(u.pollConfirms, status)
}

func (u *testUpper) MlmeSyncLossIndication(reason Status) {
	u.syncLoss = append(u.syncLoss, reason)
}

func (u *testUpper) MlmeGtsIndication(devAddr uint16, gts wpan.GtsCharacteristics) {
	u.gtsInds = append(u.gtsInds, devAddr)
}

func (u *testUpper) MlmeGtsConfirm(gts wpan.GtsCharacteristics, status Status) {
	u.gtsConfirms = append(u.gtsConfirms, status)
}

func (u *testUpper) MlmeDisassociateIndication(devAddr uint64, reason uint8) {
	u.disassocInds = append(u.disassocInds, devAddr)
}

func (u *testUpper) MlmeDisassociateConfirm(status Status) {
	u.disassocConfs = append(u.disassocConfs, status)
}

func (u *testUpper) MlmeOrphanIndication(orphanAddr uint64) {
	u.orphans = append(u.orphans, orphanAddr)
}

func (u *testUpper) MlmeRxEnableConfirm(status Status) {
	u.rxEnable = append(u.rxEnable, status)
}

type testNet struct {
	t      *testing.T
	sched  *event.Scheduler
	medium *phy.Medium
	frames []capturedFrame
}

func newTestNet(t *testing.T) *testNet {
	n := &testNet{
		t:     t,
		sched: event.NewScheduler(),
	}
	n.medium = phy.NewMedium(n.sched)
	n.medium.Capture = func(ts uint64, channel ChannelId, psdu []byte) {
		f, err := wpan.Decode(psdu)
		assert.Nil(t, err)
		n.frames = append(n.frames, capturedFrame{ts: ts, channel: channel, frame: f, psdu: psdu})
	}
	return n
}

func (n *testNet) addNode(id NodeId) (*Mac, *testUpper) {
	radio := n.medium.AddRadio(id, phy.RadioConfig{X: id * 10})
	up := newTestUpper()
	m := New(n.sched, radio, up, Config{Id: id, ExtAddr: NodeExtAddr(id), Seed: int64(id)})
	return m, up
}

// run advances the simulation by d us, checking that a node transmits at most one frame at a time.
func (n *testNet) run(d uint64, macs ...*Mac) {
	end := n.sched.Now() + d
	for n.sched.NextTimestamp() <= end {
		n.sched.Step()
		for _, m := range macs {
			assert.Equal(n.t, m.inTransmission, m.txPkt != nil)
		}
	}
	n.sched.RunUntil(end)
}

// framesOf returns the captured frames of the given type.
func (n *testNet) framesOf(typ wpan.FrameType) []capturedFrame {
	var res []capturedFrame
	for _, cf := range n.frames {
		if cf.frame.Type() == typ {
			res = append(res, cf)
		}
	}
	return res
}

func commandId(f *wpan.Frame) wpan.CommandId {
	if f.Type() != wpan.FrameTypeCommand || len(f.Payload) == 0 {
		return 0
	}
	return wpan.CommandId(f.Payload[0])
}

// startCoordinator makes m the PAN coordinator of testPanId with short address 0.
func startCoordinator(t *testing.T, m *Mac, up *testUpper, bo, so uint8) {
	assert.Equal(t, Success, m.MlmeSetRequest(AttrShortAddress, 0))
	assert.Equal(t, Success, m.MlmeSetRequest(AttrAssociationPermit, true))
	m.MlmeStartRequest(StartRequest{PanId: testPanId, Channel: 11, BeaconOrder: bo, SuperframeOrder: so,
		PanCoordinator: true})
}

// joinDevice gives m the PIB of an associated device without running the association.
func joinDevice(t *testing.T, m *Mac, short uint16) {
	assert.Equal(t, Success, m.MlmeSetRequest(AttrPANId, testPanId))
	assert.Equal(t, Success, m.MlmeSetRequest(AttrShortAddress, short))
	assert.Equal(t, Success, m.MlmeSetRequest(AttrCoordShortAddress, 0))
}

func TestPibSetGet(t *testing.T) {
	n := newTestNet(t)
	m, _ := n.addNode(1)

	st, v := m.MlmeGetRequest(AttrMinBE)
	assert.Equal(t, Success, st)
	assert.Equal(t, uint8(3), v)

	assert.Equal(t, InvalidParameter, m.MlmeSetRequest(AttrMinBE, 5))
	assert.Equal(t, Success, m.MlmeSetRequest(AttrMinBE, uint8(2)))
	_, v = m.MlmeGetRequest(AttrMinBE)
	assert.Equal(t, uint8(2), v)

	assert.Equal(t, InvalidParameter, m.MlmeSetRequest(AttrRxOnWhenIdle, 1))
	assert.Equal(t, UnsupportedAttribute, m.MlmeSetRequest(PibAttribute(0x99), 1))
	st, _ = m.MlmeGetRequest(PibAttribute(0x99))
	assert.Equal(t, UnsupportedAttribute, st)

	assert.Equal(t, Success, m.MlmeSetRequest(AttrBeaconPayload, []byte{1, 2, 3, 4}))
	assert.Equal(t, Success, m.MlmeSetRequest(AttrBeaconPayloadLength, 2))
	_, v = m.MlmeGetRequest(AttrBeaconPayload)
	assert.Equal(t, []byte{1, 2}, v)

	assert.False(t, m.Superframe().AssociationPermit)
	assert.Equal(t, Success, m.MlmeSetRequest(AttrAssociationPermit, true))
	assert.True(t, m.Superframe().AssociationPermit)

	a, ok := ParsePibAttribute("macTransactionPersistenceTime")
	assert.True(t, ok)
	assert.Equal(t, AttrTransactionPersistenceTime, a)
	assert.Equal(t, 24, len(PibAttributes()))
}

func TestReceiverFollowsRxOnWhenIdle(t *testing.T) {
	n := newTestNet(t)
	m, _ := n.addNode(1)
	radio := n.medium.GetRadio(1)

	assert.Equal(t, phy.RxOn, radio.State())
	assert.Equal(t, Success, m.MlmeSetRequest(AttrRxOnWhenIdle, false))
	assert.Equal(t, phy.TrxOff, radio.State())
	assert.Equal(t, Success, m.MlmeSetRequest(AttrRxOnWhenIdle, true))
	assert.Equal(t, phy.RxOn, radio.State())
}

func TestResetClearsState(t *testing.T) {
	n := newTestNet(t)
	m, up := n.addNode(1)
	startCoordinator(t, m, up, 15, 15)
	m.McpsDataRequest(&DataRequest{SrcAddrMode: wpan.AddrModeShort, Dst: wpan.ShortAddress(testPanId, 5),
		Msdu: []byte{1}, Handle: 1, TxOptions: TxOptIndirect})
	assert.Equal(t, 1, m.Transactions().Len())

	resets := 0
	m.SetUpper(&resetUpper{testUpper: up, resets: &resets})
	m.MlmeResetRequest(true)
	assert.Equal(t, 1, resets)
	assert.Equal(t, 0, m.Transactions().Len())
	assert.False(t, m.IsCoordinator())
	assert.Equal(t, BroadcastShortAddr, m.Pib().ShortAddress)
	assert.Equal(t, uint16(BroadcastPanId), m.Pib().PANId)
	assert.Empty(t, m.procs)
}

type resetUpper struct {
	*testUpper
	resets *int
}

func (u *resetUpper) MlmeResetConfirm(status Status) {
	*u.resets++
}

func TestSlotSequencingAsserts(t *testing.T) {
	n := newTestNet(t)
	m, _ := n.addNode(1)

	assert.Panics(t, func() { m.csmaDone(SlotData, Success) })
	assert.Panics(t, func() { m.transferDone(SlotBcnCmd, NoAck, false) })

	// a confirm for a transmission dropped by a reset is ignored
	m.MlmeResetRequest(true)
	assert.NotPanics(t, func() { m.PdDataConfirm(phy.Success) })
}
