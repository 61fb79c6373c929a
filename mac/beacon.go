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
	. "github.com/openthread/ot-mac/types"
)

func (m *Mac) startBeaconing() {
	m.startTimerFunc(TimerBeaconTx, 0, m.beaconTimer)
}

func (m *Mac) stopBeaconing() {
	m.cancelTimer(TimerBeaconTx)
	m.beaconWaiting = false
}

func (m *Mac) beaconTimer() {
	m.startTimerFunc(TimerBeaconTx, m.biUs(m.sfOwn.BeaconOrder), m.beaconTimer)
	if m.inTransmission || m.ackPending {
		m.beaconWaiting = true
		return
	}
	m.sendBeaconNow()
}

// buildBeacon creates the beacon frame of the own superframe.
func (m *Mac) buildBeacon() *wpan.Frame {
	m.sfOwn.FinalCapSlot = m.gtsOwn.FinalCapSlot()
	m.sfOwn.AssociationPermit = m.pib.AssociationPermit
	m.sfOwn.PanCoordinator = m.panCoordinator
	if m.sfOwn.BeaconOrder < 15 {
		m.sfOwn.BattLifeExt = m.pib.BattLifeExt
	}
	b := &wpan.Beacon{
		Superframe: m.sfOwn,
		Gts: wpan.GtsFields{
			Permit: m.pib.GTSPermit,
			List:   m.gtsStaging.Descriptors(),
		},
		Pending: m.transactions.PendingAddrs(),
		Payload: m.pib.BeaconPayload,
	}
	f := wpan.NewFrame(wpan.FrameTypeBeacon, m.pib.BSN, wpan.Address{}, m.ownAddress(), false, b.Marshal())
	m.pib.BSN++
	return f
}

// sendBeaconNow puts the periodic beacon on the air, ahead of every queued frame. Broadcasts queued until
// now follow the beacon.
func (m *Mac) sendBeaconNow() {
	m.abortBroadcast()
	if s := m.csma.slot; s != SlotNone {
		m.csma.cancel()
		m.slots[s].phase = phaseQueued
	}
	f := m.buildBeacon()
	m.bcastSnapshot = len(m.bcastQueue)
	f.FrameControl.SetFramePending(m.bcastSnapshot > 0)
	m.radio.SetTrxState(phy.ForceTrxOff)
	m.send(SlotBeacon, f, Continuation{}, sendOpts{noCsma: true})
}

func (m *Mac) beaconSent(o *outstanding, st Status) {
	if st != Success {
		m.log.Warnf("beacon not sent: %s", st)
		return
	}
	m.bcnTxTime = m.now() - phy.FrameDurationUs(len(o.psdu))
	m.pib.BeaconTxTime = m.bcnTxTime
	m.bcnPeriods[capOwn] = m.beaconPeriods(len(o.psdu))
	m.Stats.BeaconsSent++
	m.log.Tracef("beacon sent, BSN %d, %s", o.frame.Seq, m.sfOwn)

	m.gtsBeaconSent()
	m.armGtsSlots(capOwn)
	if m.procInFlight(ProcStart) {
		m.dispatch(Continuation{Proc: ProcStart, Step: StepAny}, procEvent{kind: evBeaconSent})
	}
	m.csma.newBeacon(capOwn)
	if m.bcastSnapshot > 0 {
		m.startProc(ProcBroadcast, &bcastParams{remaining: m.bcastSnapshot, ifs: m.ifsUs(len(o.psdu))})
	}
}

func (m *Mac) handleBeacon(f *wpan.Frame, psduLen int, lqi uint8) {
	b, err := wpan.UnmarshalBeacon(f.Payload)
	if err != nil {
		m.Stats.RxDropped++
		m.log.Debugf("bad beacon: %v", err)
		return
	}
	m.Stats.BeaconsReceived++
	rxTime := m.now() - phy.FrameDurationUs(psduLen)
	pd := PanDescriptor{
		CoordAddr:   f.Src,
		Channel:     m.channel(),
		Superframe:  b.Superframe,
		GtsPermit:   b.Gts.Permit,
		LinkQuality: lqi,
		Timestamp:   rxTime,
	}

	if m.scanning() {
		m.dispatch(Continuation{Proc: ProcScan, Step: StepAny}, procEvent{kind: evFrame, frame: f, beacon: b, pan: &pd})
		return
	}

	parent := m.isParentBeacon(f)
	switch {
	case parent:
		m.parentBeacon(b, rxTime, psduLen)
	case f.Src.PanId == m.pib.PANId:
		m.sfOther = b.Superframe
		m.bcnOtherRxTime = rxTime
		m.bcnPeriods[capOther] = m.beaconPeriods(psduLen)
	}
	if m.panCoordinator && !parent && b.Superframe.PanCoordinator && f.Src.PanId == m.pib.PANId {
		m.log.Warnf("PAN id conflict with %s", f.Src)
		m.upper.MlmeSyncLossIndication(PanIdConflict)
	}
	if !m.pib.AutoRequest || len(b.Payload) > 0 {
		m.upper.MlmeBeaconNotifyIndication(&BeaconNotify{Bsn: f.Seq, Pan: pd, Pending: b.Pending, Payload: b.Payload})
	}
}

func (m *Mac) isParentBeacon(f *wpan.Frame) bool {
	return m.pib.PANId != BroadcastPanId && f.Src.PanId == m.pib.PANId && m.isCoordAddr(f.Src)
}

func (m *Mac) parentBeacon(b *wpan.Beacon, rxTime uint64, psduLen int) {
	m.sfParent = b.Superframe
	m.bcnRxTime = rxTime
	m.bcnPeriods[capParent] = m.beaconPeriods(psduLen)
	m.lostBeacons = 0
	m.syncLost = false
	if m.trackBeacon {
		m.armBeaconLoss()
	}
	if m.procInFlight(ProcSync) {
		m.dispatch(Continuation{Proc: ProcSync, Step: StepAny}, procEvent{kind: evFrame, beacon: b})
	}
	m.gtsParentBeacon(b)
	m.armGtsSlots(capParent)
	m.csma.newBeacon(capParent)

	if m.pib.AutoRequest && m.listedPending(b.Pending) && !m.procInFlight(ProcAssociate) &&
		!m.procInFlight(ProcPoll) {
		m.startPoll(m.coordAddress(), true)
	}
}

// listedPending returns true if the pending address list names this node.
func (m *Mac) listedPending(p wpan.PendingAddrs) bool {
	if m.pib.ShortAddress < NoShortAddr && p.ContainsShort(m.pib.ShortAddress) {
		return true
	}
	return p.ContainsExt(m.ExtAddr)
}

func (m *Mac) armBeaconLoss() {
	if m.sfParent.BeaconOrder >= 15 {
		m.cancelTimer(TimerBeaconLoss)
		return
	}
	bi := m.biUs(m.sfParent.BeaconOrder)
	m.startTimerFunc(TimerBeaconLoss, bi+beaconLossMargin*m.backoffUs(), m.beaconLost)
}

// beaconLost counts a missed parent beacon. After aMaxLostBeacons in a row the loss is indicated once;
// listening goes on.
func (m *Mac) beaconLost() {
	m.lostBeacons++
	m.Stats.BeaconsLost++
	if m.lostBeacons >= aMaxLostBeacons && !m.syncLost {
		m.syncLost = true
		m.log.Infof("lost sync with %s", m.coordAddress())
		m.upper.MlmeSyncLossIndication(BeaconLoss)
	}
	m.startTimerFunc(TimerBeaconLoss, m.biUs(m.sfParent.BeaconOrder), m.beaconLost)
}
