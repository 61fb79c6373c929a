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

const (
	startStepBegin Step = iota
	startStepRealignSent
	startStepApply
	startStepFirstBeacon
)

// MlmeStartRequest is MLME-START.request. A beacon order of 15 starts a non-beacon PAN and forces the
// superframe order to 15.
func (m *Mac) MlmeStartRequest(req StartRequest) {
	switch {
	case req.BeaconOrder > 15 || req.SuperframeOrder > 15 ||
		(req.SuperframeOrder > req.BeaconOrder && req.SuperframeOrder != 15) || !IsValidChannel(req.Channel):
		m.upper.MlmeStartConfirm(InvalidParameter)
	case m.pib.ShortAddress == BroadcastShortAddr:
		m.upper.MlmeStartConfirm(NoShortAddress)
	case m.procInFlight(ProcStart) || m.scanning():
		m.upper.MlmeStartConfirm(TxActive)
	default:
		r := req
		m.startProc(ProcStart, &r)
	}
}

func (m *Mac) procStart(p *procState, ev procEvent) {
	req := p.params.(*StartRequest)
	for {
		switch p.step {
		case startStepBegin:
			if !req.CoordRealignment {
				p.step = startStepApply
				continue
			}
			cmd := &wpan.Command{Id: wpan.CmdCoordRealignment, PanId: req.PanId, CoordShortAddr: m.pib.ShortAddress,
				Channel: req.Channel, ShortAddr: BroadcastShortAddr}
			f := m.newCommand(wpan.ShortAddress(BroadcastPanId, BroadcastShortAddr),
				wpan.ExtAddress(m.pib.PANId, m.ExtAddr), cmd, false)
			p.step = startStepRealignSent
			m.send(SlotBcnCmd, f, m.cont(p), sendOpts{})
			return

		case startStepRealignSent:
			if ev.status != Success {
				m.endProc(p)
				m.upper.MlmeStartConfirm(ev.status)
				return
			}
			p.step = startStepApply

		case startStepApply:
			bo, so := req.BeaconOrder, req.SuperframeOrder
			if bo == 15 {
				so = 15
			}
			m.pib.PANId = req.PanId
			m.pib.BeaconOrder, m.pib.SuperframeOrder = bo, so
			m.pib.BattLifeExt = req.BattLifeExt
			m.setChannel(req.Channel)
			m.coordinator = true
			m.panCoordinator = req.PanCoordinator
			m.sfOwn = wpan.SuperframeSpec{
				BeaconOrder:       bo,
				SuperframeOrder:   so,
				FinalCapSlot:      m.gtsOwn.FinalCapSlot(),
				BattLifeExt:       req.BattLifeExt && bo < 15,
				PanCoordinator:    req.PanCoordinator,
				AssociationPermit: m.pib.AssociationPermit,
			}
			m.stopBeaconing()
			m.log.Infof("started PAN %04x on channel %d, %s", req.PanId, req.Channel, m.sfOwn)
			if bo == 15 {
				m.endProc(p)
				m.upper.MlmeStartConfirm(Success)
				return
			}
			p.step = startStepFirstBeacon
			m.startBeaconing()
			return

		case startStepFirstBeacon:
			if ev.kind == evBeaconSent {
				m.endProc(p)
				m.upper.MlmeStartConfirm(Success)
			}
			return
		}
	}
}

type assocParams struct {
	coord      wpan.Address
	capability wpan.Capability
}

const (
	assocStepSend Step = iota
	assocStepSent
	assocStepWaitResponse
	assocStepPollSent
	assocStepWaitData
)

// MlmeAssociateRequest is MLME-ASSOCIATE.request.
func (m *Mac) MlmeAssociateRequest(channel ChannelId, coord wpan.Address, capability wpan.Capability) {
	if m.procInFlight(ProcAssociate) {
		m.upper.MlmeAssociateConfirm(BroadcastShortAddr, TxActive)
		return
	}
	if !IsValidChannel(channel) || coord.PanId == BroadcastPanId ||
		(coord.Mode != wpan.AddrModeShort && coord.Mode != wpan.AddrModeExtended) {
		m.upper.MlmeAssociateConfirm(BroadcastShortAddr, InvalidParameter)
		return
	}
	m.setChannel(channel)
	m.pib.PANId = coord.PanId
	if coord.Mode == wpan.AddrModeShort {
		m.pib.CoordShortAddress = coord.Short
	} else {
		m.pib.CoordShortAddress = NoShortAddr
		m.pib.CoordExtendedAddress = coord.Ext
	}
	m.startProc(ProcAssociate, &assocParams{coord: coord, capability: capability})
}

func (m *Mac) procAssociate(p *procState, ev procEvent) {
	ap := p.params.(*assocParams)
	if ev.kind == evFrame {
		if p.step >= assocStepWaitResponse && ev.cmd != nil && ev.cmd.Id == wpan.CmdAssociationResponse {
			m.associationResponse(p, ev.frame, ev.cmd)
		}
		return
	}
	switch p.step {
	case assocStepSend:
		f := m.newCommand(ap.coord, wpan.ExtAddress(BroadcastPanId, m.ExtAddr),
			&wpan.Command{Id: wpan.CmdAssociationRequest, Capability: ap.capability}, true)
		p.step = assocStepSent
		m.send(SlotBcnCmd, f, m.cont(p), sendOpts{})

	case assocStepSent:
		if ev.status != Success {
			m.associationFailed(p, ev.status)
			return
		}
		p.step = assocStepWaitResponse
		m.startTimer(TimerAssocResponseWait, m.symbols(aResponseWaitTime), m.cont(p))

	case assocStepWaitResponse:
		f := m.newCommand(ap.coord, wpan.ExtAddress(m.pib.PANId, m.ExtAddr),
			&wpan.Command{Id: wpan.CmdDataRequest}, true)
		p.step = assocStepPollSent
		m.send(SlotBcnCmd2, f, m.cont(p), sendOpts{})

	case assocStepPollSent:
		switch {
		case ev.status != Success:
			m.associationFailed(p, ev.status)
		case !ev.framePending:
			m.associationFailed(p, NoData)
		default:
			p.step = assocStepWaitData
			m.startTimer(TimerAssocResponseWait, m.symbols(aMaxFrameResponseTime), m.cont(p))
		}

	case assocStepWaitData:
		m.associationFailed(p, NoData)
	}
}

func (m *Mac) associationResponse(p *procState, f *wpan.Frame, cmd *wpan.Command) {
	m.cancelTimer(TimerAssocResponseWait)
	st := assocStatus(cmd.Status)
	if st != Success {
		m.associationFailed(p, st)
		return
	}
	m.pib.ShortAddress = cmd.ShortAddr
	if f.Src.Mode == wpan.AddrModeExtended {
		m.pib.CoordExtendedAddress = f.Src.Ext
	}
	m.log.Infof("associated with %s as %04x", f.Src, cmd.ShortAddr)
	m.endProc(p)
	m.upper.MlmeAssociateConfirm(cmd.ShortAddr, Success)
}

func (m *Mac) associationFailed(p *procState, st Status) {
	m.cancelTimer(TimerAssocResponseWait)
	m.pib.PANId = BroadcastPanId
	m.pib.CoordShortAddress = BroadcastShortAddr
	m.log.Debugf("association failed: %s", st)
	m.endProc(p)
	m.upper.MlmeAssociateConfirm(BroadcastShortAddr, st)
}

// MlmeAssociateResponse is MLME-ASSOCIATE.response. The answer waits in the transaction link for the
// device to poll.
func (m *Mac) MlmeAssociateResponse(devAddr uint64, shortAddr uint16, status Status) {
	src := wpan.ExtAddress(m.pib.PANId, m.ExtAddr)
	dst := wpan.ExtAddress(m.pib.PANId, devAddr)
	if !m.coordinator {
		m.upper.MlmeCommStatusIndication(m.pib.PANId, src, dst, InvalidParameter)
		return
	}
	f := m.newCommand(dst, src, &wpan.Command{Id: wpan.CmdAssociationResponse, ShortAddr: shortAddr,
		Status: uint8(status)}, true)
	m.queueIndirect(&pendingFrame{kind: kindAssocResponse, frame: f, status: status, shortAddr: shortAddr})
}

const (
	disassocStepSend Step = iota
	disassocStepSent
)

// MlmeDisassociateRequest is MLME-DISASSOCIATE.request. Naming the coordinator leaves the PAN; naming a
// child queues the notification for it.
func (m *Mac) MlmeDisassociateRequest(devAddr uint64, reason uint8) {
	if m.associated() && devAddr == m.pib.CoordExtendedAddress {
		if !m.startProc(ProcDisassociate, reason) {
			m.upper.MlmeDisassociateConfirm(TxActive)
		}
		return
	}
	d := m.devices.Find(wpan.ExtAddress(m.pib.PANId, devAddr))
	if !m.coordinator || d == nil {
		m.upper.MlmeDisassociateConfirm(InvalidParameter)
		return
	}
	dst := wpan.ExtAddress(m.pib.PANId, d.ExtAddr)
	if d.ShortAddr < NoShortAddr {
		dst = wpan.ShortAddress(m.pib.PANId, d.ShortAddr)
	}
	f := m.newCommand(dst, wpan.ExtAddress(m.pib.PANId, m.ExtAddr),
		&wpan.Command{Id: wpan.CmdDisassociation, Reason: reason}, true)
	m.queueIndirect(&pendingFrame{kind: kindDisassociation, frame: f})
}

func (m *Mac) procDisassociate(p *procState, ev procEvent) {
	switch p.step {
	case disassocStepSend:
		f := m.newCommand(m.coordAddress(), wpan.ExtAddress(m.pib.PANId, m.ExtAddr),
			&wpan.Command{Id: wpan.CmdDisassociation, Reason: p.params.(uint8)}, true)
		p.step = disassocStepSent
		m.send(SlotBcnCmd, f, m.cont(p), sendOpts{})
	case disassocStepSent:
		m.Stats.Disassociations++
		m.leavePan()
		m.endProc(p)
		m.upper.MlmeDisassociateConfirm(ev.status)
	}
}

const syncStepSearch Step = 0

// MlmeSyncRequest is MLME-SYNC.request: search the beacon of the coordinator on channel and, with
// trackBeacon, keep tracking it.
func (m *Mac) MlmeSyncRequest(channel ChannelId, trackBeacon bool) {
	if !IsValidChannel(channel) {
		m.log.Warnf("sync on invalid channel %d", channel)
		return
	}
	if p := m.procs[ProcSync]; p != nil {
		m.cancelTimer(TimerBeaconSearch)
		m.endProc(p)
	}
	m.setChannel(channel)
	m.trackBeacon = trackBeacon
	m.lostBeacons, m.syncLost = 0, false
	if !trackBeacon {
		m.cancelTimer(TimerBeaconLoss)
	}
	m.startProc(ProcSync, nil)
}

func (m *Mac) procSync(p *procState, ev procEvent) {
	switch ev.kind {
	case evStart:
		bo := uint8(14)
		if m.sfParent.BeaconOrder < 15 {
			bo = m.sfParent.BeaconOrder
		}
		m.startTimer(TimerBeaconSearch, m.scanDurationUs(bo), m.cont(p))
	case evFrame:
		m.cancelTimer(TimerBeaconSearch)
		m.endProc(p)
	case evTimer:
		m.trackBeacon = false
		m.endProc(p)
		m.log.Infof("no beacon from %s", m.coordAddress())
		m.upper.MlmeSyncLossIndication(BeaconLoss)
	}
}

type pollParams struct {
	coord wpan.Address
	auto  bool
}

const (
	pollStepSend Step = iota
	pollStepSent
	pollStepWaitData
)

// MlmePollRequest is MLME-POLL.request.
func (m *Mac) MlmePollRequest(coord wpan.Address) {
	if coord.Mode != wpan.AddrModeShort && coord.Mode != wpan.AddrModeExtended {
		m.upper.MlmePollConfirm(InvalidParameter)
		return
	}
	m.startPoll(coord, false)
}

// startPoll sends a data request to coord. While another poll runs or the command slot is busy, the request
// is kept and issued when the slot frees.
func (m *Mac) startPoll(coord wpan.Address, auto bool) {
	if m.procInFlight(ProcPoll) || m.slots[SlotBcnCmd2] != nil {
		if !auto || m.pollPending == nil {
			m.pollPending = &pollParams{coord: coord, auto: auto}
		}
		return
	}
	m.Stats.Polls++
	m.startProc(ProcPoll, &pollParams{coord: coord, auto: auto})
}

func (m *Mac) procPoll(p *procState, ev procEvent) {
	pp := p.params.(*pollParams)
	switch p.step {
	case pollStepSend:
		f := m.newCommand(pp.coord, m.ownAddress(), &wpan.Command{Id: wpan.CmdDataRequest}, true)
		p.step = pollStepSent
		m.send(SlotBcnCmd2, f, m.cont(p), sendOpts{})
	case pollStepSent:
		switch {
		case ev.status != Success:
			m.pollDone(p, ev.status)
		case !ev.framePending:
			m.pollDone(p, NoData)
		default:
			p.step = pollStepWaitData
			m.startTimer(TimerDataWait, m.symbols(aMaxFrameResponseTime), m.cont(p))
		}
	case pollStepWaitData:
		if ev.kind == evFrame {
			m.cancelTimer(TimerDataWait)
			m.pollDone(p, Success)
		} else {
			m.pollDone(p, NoData)
		}
	}
}

func (m *Mac) pollDone(p *procState, st Status) {
	pp := p.params.(*pollParams)
	m.endProc(p)
	if !pp.auto {
		m.upper.MlmePollConfirm(st)
	}
}

type rxEnableParams struct {
	delay    uint64
	duration uint32
}

const (
	rxEnableStepWait Step = iota
	rxEnableStepOn
	rxEnableStepOff
)

// MlmeRxEnableRequest is MLME-RX-ENABLE.request. Times are in symbols; in a beacon-enabled PAN rxOnTime
// counts from the start of the current superframe.
func (m *Mac) MlmeRxEnableRequest(deferPermit bool, rxOnTime, rxOnDuration uint32) {
	if p := m.procs[ProcRxEnable]; p != nil {
		m.cancelTimer(TimerRxEnable)
		m.rxEnabled = false
		m.endProc(p)
	}
	if rxOnDuration == 0 {
		m.rxIdle()
		m.upper.MlmeRxEnableConfirm(Success)
		return
	}
	if m.inTransmission {
		m.upper.MlmeRxEnableConfirm(TxActive)
		return
	}

	var delay uint64
	ref := capOwn
	if !m.beaconing() {
		ref = capParent
	}
	if sf := m.superframe(ref); sf.BeaconOrder < 15 {
		if uint64(rxOnTime)+uint64(rxOnDuration) > uint64(aBaseSuperframeDuration)<<sf.BeaconOrder {
			m.upper.MlmeRxEnableConfirm(InvalidParameter)
			return
		}
		start := m.beaconRef(ref) + m.symbols(uint64(rxOnTime))
		if now := m.now(); start < now {
			if !deferPermit {
				m.upper.MlmeRxEnableConfirm(OutOfCap)
				return
			}
			start += m.biUs(sf.BeaconOrder)
		}
		delay = start - m.now()
	}
	m.startProc(ProcRxEnable, &rxEnableParams{delay: delay, duration: rxOnDuration})
}

func (m *Mac) procRxEnable(p *procState, ev procEvent) {
	rp := p.params.(*rxEnableParams)
	switch p.step {
	case rxEnableStepWait:
		p.step = rxEnableStepOn
		m.startTimer(TimerRxEnable, rp.delay, m.cont(p))
	case rxEnableStepOn:
		m.rxEnabled = true
		m.rxIdle()
		p.step = rxEnableStepOff
		m.startTimer(TimerRxEnable, m.symbols(uint64(rp.duration)), m.cont(p))
		m.upper.MlmeRxEnableConfirm(Success)
	case rxEnableStepOff:
		m.rxEnabled = false
		m.endProc(p)
	}
}

type orphanParams struct {
	orphan    uint64
	shortAddr uint16
}

const (
	orphanStepSend Step = iota
	orphanStepSent
)

// MlmeOrphanResponse is MLME-ORPHAN.response. Only a former child is answered, with a realignment.
func (m *Mac) MlmeOrphanResponse(orphanAddr uint64, shortAddr uint16, associatedMember bool) {
	if !associatedMember {
		return
	}
	if m.procInFlight(ProcOrphanResponse) {
		m.upper.MlmeCommStatusIndication(m.pib.PANId, wpan.ExtAddress(m.pib.PANId, m.ExtAddr),
			wpan.ExtAddress(BroadcastPanId, orphanAddr), TransactionOverflow)
		return
	}
	m.startProc(ProcOrphanResponse, &orphanParams{orphan: orphanAddr, shortAddr: shortAddr})
}

func (m *Mac) procOrphanResponse(p *procState, ev procEvent) {
	op := p.params.(*orphanParams)
	switch p.step {
	case orphanStepSend:
		cmd := &wpan.Command{Id: wpan.CmdCoordRealignment, PanId: m.pib.PANId, CoordShortAddr: m.pib.ShortAddress,
			Channel: m.channel(), ShortAddr: op.shortAddr}
		f := m.newCommand(wpan.ExtAddress(BroadcastPanId, op.orphan), wpan.ExtAddress(m.pib.PANId, m.ExtAddr), cmd, true)
		p.step = orphanStepSent
		m.send(SlotBcnCmd, f, m.cont(p), sendOpts{})
	case orphanStepSent:
		m.endProc(p)
		m.upper.MlmeCommStatusIndication(m.pib.PANId, ev.frame.Src, ev.frame.Dst, ev.status)
	}
}

const (
	beaconReplyStepSend Step = iota
	beaconReplyStepSent
)

// procBeaconReply answers a beacon request of a non-beacon PAN with one beacon sent using CSMA-CA.
func (m *Mac) procBeaconReply(p *procState, ev procEvent) {
	switch p.step {
	case beaconReplyStepSend:
		p.step = beaconReplyStepSent
		m.send(SlotBcnCmd, m.buildBeacon(), m.cont(p), sendOpts{})
	case beaconReplyStepSent:
		if ev.status == Success {
			m.Stats.BeaconsSent++
		}
		m.endProc(p)
	}
}

// MlmeResetRequest is MLME-RESET.request: every procedure, timer, queue and table is dropped without
// confirmation.
func (m *Mac) MlmeResetRequest(setDefaultPib bool) {
	m.cancelAllTimers()
	m.csma.cancel()
	m.procs = map[ProcKind]*procState{}
	for s := range m.slots {
		m.slots[s] = nil
		m.waiters[s] = nil
	}
	m.ackSlot, m.txSlot = SlotNone, SlotNone
	m.ackPending, m.inTransmission, m.beaconWaiting = false, false, false
	m.txPkt = nil
	m.capQueue, m.bcastQueue, m.bcastSnapshot = nil, nil, 0
	m.transactions.Clear()
	m.devices.Clear()
	m.gtsOwn.Reset()
	m.gtsParent.Reset()
	m.gtsStaging.Reset()
	m.gtsRequestPending, m.gtsRequestExhausted = nil, false
	m.gtsAnnounced = map[gtsKey]bool{}
	m.pollPending = nil
	m.assocCaps = map[uint64]wpan.Capability{}
	m.lastRx = map[rxKey]uint8{}
	m.rxEnabled = false
	m.coordinator, m.panCoordinator = false, false
	m.sfOwn, m.sfParent, m.sfOther = nonBeaconSuperframe(), nonBeaconSuperframe(), nonBeaconSuperframe()
	m.trackBeacon, m.lostBeacons, m.syncLost = false, 0, false

	st := Success
	if ps := m.radio.SetTrxState(phy.ForceTrxOff); !phy.IsTrxReady(ps) {
		st = DisableTrxFailure
	}
	if setDefaultPib {
		m.pib = DefaultPIB()
	}
	m.log.Debugf("reset: %s", st)
	m.rxIdle()
	m.upper.MlmeResetConfirm(st)
}
