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
	"github.com/openthread/ot-mac/wpan"
	. "github.com/openthread/ot-mac/types"
)

// McpsDataRequest is MCPS-DATA.request. The frame goes to a GTS, the transaction link, the broadcast queue
// or the CAP queue; invalid requests are confirmed immediately and leave the DSN alone.
func (m *Mac) McpsDataRequest(req *DataRequest) {
	f, st := m.newDataFrame(req)
	if st != Success {
		m.upper.McpsDataConfirm(req.Handle, st)
		return
	}
	pf := &pendingFrame{kind: kindData, frame: f, handle: req.Handle}

	gts := req.TxOptions&TxOptGts != 0 || req.Priority > m.pib.GtsTriggerPrecedence
	var d *GtsDescriptor
	if gts {
		d = m.gtsFor(req.Dst)
	}
	if d == nil && req.TxOptions&TxOptGts != 0 {
		m.upper.McpsDataConfirm(req.Handle, InvalidGts)
		return
	}
	m.pib.DSN++

	if d != nil {
		if !d.enqueue(pf) {
			m.overflow(pf)
			return
		}
		m.Stats.GtsQueued++
		return
	}
	if gts && m.isCoordAddr(req.Dst) {
		m.lazyGtsRequest(len(req.Msdu))
	}

	if m.coordinator && (req.TxOptions&TxOptIndirect != 0 || m.sleepyChild(req.Dst)) {
		m.queueIndirect(pf)
		return
	}
	if req.Dst.IsBroadcast() && m.beaconing() {
		if len(m.bcastQueue) >= bcastQueueCapacity {
			m.overflow(pf)
			return
		}
		m.bcastQueue = append(m.bcastQueue, pf)
		m.Stats.BcastQueued++
		return
	}
	if len(m.capQueue) >= capQueueCapacity {
		m.overflow(pf)
		return
	}
	m.capQueue = append(m.capQueue, pf)
	m.Stats.CapQueued++
	m.serviceCap()
}

func (m *Mac) newDataFrame(req *DataRequest) (*wpan.Frame, Status) {
	var src wpan.Address
	switch req.SrcAddrMode {
	case wpan.AddrModeNone:
	case wpan.AddrModeShort:
		if m.pib.ShortAddress >= NoShortAddr {
			return nil, InvalidParameter
		}
		src = wpan.ShortAddress(m.pib.PANId, m.pib.ShortAddress)
	case wpan.AddrModeExtended:
		src = wpan.ExtAddress(m.pib.PANId, m.ExtAddr)
	default:
		return nil, InvalidParameter
	}
	dstMode := req.Dst.Mode
	if dstMode == wpan.AddrModeReserved || dstMode > wpan.AddrModeExtended ||
		(dstMode == wpan.AddrModeNone && src.Mode == wpan.AddrModeNone) {
		return nil, InvalidParameter
	}
	ackReq := req.TxOptions&TxOptAck != 0 && !req.Dst.IsBroadcast() && dstMode != wpan.AddrModeNone
	f := wpan.NewFrame(wpan.FrameTypeData, m.pib.DSN, req.Dst, src, ackReq, append([]byte(nil), req.Msdu...))
	if f.Len() > MaxPhyPacketSize {
		return nil, FrameTooLong
	}
	return f, Success
}

// gtsFor returns the GTS that carries frames to dst: this device's transmit GTS when dst is the coordinator,
// or the receive GTS of child dst.
func (m *Mac) gtsFor(dst wpan.Address) *GtsDescriptor {
	if m.isCoordAddr(dst) {
		if m.pib.ShortAddress >= NoShortAddr {
			return nil
		}
		_, d := m.gtsParent.Find(m.pib.ShortAddress, false)
		return d
	}
	if m.coordinator && dst.Mode == wpan.AddrModeShort {
		_, d := m.gtsOwn.Find(dst.Short, true)
		return d
	}
	return nil
}

func (m *Mac) sleepyChild(dst wpan.Address) bool {
	d := m.devices.Find(dst)
	return d != nil && d.Sleepy()
}

func (m *Mac) serviceCap() {
	if m.procInFlight(ProcData) || len(m.capQueue) == 0 {
		return
	}
	pf := m.capQueue[0]
	m.capQueue[0] = nil
	m.capQueue = m.capQueue[1:]
	m.Stats.CapDequeued++
	m.startProc(ProcData, pf)
}

const (
	dataStepSend Step = iota
	dataStepSent
)

func (m *Mac) procData(p *procState, ev procEvent) {
	pf := p.params.(*pendingFrame)
	switch p.step {
	case dataStepSend:
		p.step = dataStepSent
		m.send(SlotData, pf.frame, m.cont(p), sendOpts{})
	case dataStepSent:
		m.dataDone(pf, ev.status)
		m.endProc(p)
	}
}

func (m *Mac) dataDone(pf *pendingFrame, st Status) {
	if st != Success {
		m.dropFrame(pf, st)
		return
	}
	m.Stats.DataSent++
	m.upper.McpsDataConfirm(pf.handle, Success)
}

// dropFrame confirms a failed data frame. Unicast frames are also reported as dropped.
func (m *Mac) dropFrame(pf *pendingFrame, st Status) {
	m.upper.McpsDataConfirm(pf.handle, st)
	if pf.frame.Dst.IsBroadcast() {
		return
	}
	m.Stats.PktDropped++
	m.upper.PacketDropped(pf.handle, pf.frame.Dst, st)
}

func (m *Mac) overflow(pf *pendingFrame) {
	m.Stats.DropsOverflow++
	switch pf.kind {
	case kindData:
		m.dropFrame(pf, TransactionOverflow)
	case kindAssocResponse:
		m.upper.MlmeCommStatusIndication(m.pib.PANId, pf.frame.Src, pf.frame.Dst, TransactionOverflow)
	case kindDisassociation:
		m.upper.MlmeDisassociateConfirm(TransactionOverflow)
	}
}

// queueIndirect stores pf in the transaction link until its destination polls or the transaction expires.
func (m *Mac) queueIndirect(pf *pendingFrame) bool {
	pf.expiry = m.now() + m.transactionPersistenceUs()
	if !m.transactions.Add(pf) {
		m.overflow(pf)
		return false
	}
	m.log.Debugf("indirect %s queued", pf.frame)
	m.armTransactionExpiry()
	return true
}

func (m *Mac) armTransactionExpiry() {
	next := m.transactions.NextExpiry()
	if next == Ever {
		m.cancelTimer(TimerTransactionExpiry)
		return
	}
	var delay uint64
	if now := m.now(); next > now {
		delay = next - now
	}
	m.startTimerFunc(TimerTransactionExpiry, delay, m.expireTransactions)
}

func (m *Mac) expireTransactions() {
	for _, pf := range m.transactions.Expire(m.now()) {
		m.Stats.DropsExpired++
		m.log.Debugf("indirect %s expired", pf.frame)
		switch pf.kind {
		case kindData:
			m.dropFrame(pf, TransactionExpired)
		case kindAssocResponse:
			delete(m.assocCaps, pf.frame.Dst.Ext)
			m.upper.MlmeCommStatusIndication(m.pib.PANId, pf.frame.Src, pf.frame.Dst, TransactionExpired)
		case kindDisassociation:
			m.upper.MlmeDisassociateConfirm(TransactionExpired)
		}
		if d := m.devices.Find(pf.frame.Dst); d != nil {
			if d.Missed++; d.Missed >= MaxMissedTransactions {
				m.devices.Remove(d)
				m.Stats.ChildrenPruned++
				m.log.Infof("child %016x pruned after %d missed transactions", d.ExtAddr, d.Missed)
			}
		}
	}
	m.armTransactionExpiry()
}

// pendingFor returns the oldest transaction for a, trying the other address of a known child too.
func (m *Mac) pendingFor(a wpan.Address) *pendingFrame {
	if pf := m.transactions.First(a); pf != nil {
		return pf
	}
	d := m.devices.Find(a)
	if d == nil {
		return nil
	}
	if a.Mode == wpan.AddrModeShort {
		return m.transactions.First(wpan.ExtAddress(a.PanId, d.ExtAddr))
	}
	if d.ShortAddr < NoShortAddr {
		return m.transactions.First(wpan.ShortAddress(a.PanId, d.ShortAddr))
	}
	return nil
}

type indirectParams struct {
	requesters []wpan.Address
	current    *pendingFrame
}

const (
	indirectStepNext Step = iota
	indirectStepSent
)

func (m *Mac) dataRequestReceived(f *wpan.Frame) {
	m.Stats.DataRequests++
	if m.pendingFor(f.Src) == nil {
		return
	}
	if p := m.procs[ProcIndirect]; p != nil {
		ip := p.params.(*indirectParams)
		for _, a := range ip.requesters {
			if a.SameNode(f.Src) {
				return
			}
		}
		ip.requesters = append(ip.requesters, f.Src)
		return
	}
	m.startProc(ProcIndirect, &indirectParams{requesters: []wpan.Address{f.Src}})
}

// procIndirect delivers one pending transaction per data request, in the order the requests came in.
func (m *Mac) procIndirect(p *procState, ev procEvent) {
	ip := p.params.(*indirectParams)
	for {
		switch p.step {
		case indirectStepNext:
			if len(ip.requesters) == 0 {
				m.endProc(p)
				return
			}
			a := ip.requesters[0]
			ip.requesters = ip.requesters[1:]
			pf := m.pendingFor(a)
			if pf == nil {
				continue
			}
			pf.frame.FrameControl.SetFramePending(m.transactions.CountFor(pf.frame.Dst) > 1)
			ip.current = pf
			p.step = indirectStepSent
			m.send(SlotBcnCmd, pf.frame, m.cont(p), sendOpts{})
			return

		case indirectStepSent:
			pf := ip.current
			ip.current = nil
			if ev.status == Success {
				if m.transactions.Remove(pf) {
					m.armTransactionExpiry()
					m.indirectDelivered(pf)
				}
			} else {
				m.log.Debugf("indirect %s not delivered: %s", pf.frame, ev.status)
			}
			p.step = indirectStepNext
		}
	}
}

func (m *Mac) indirectDelivered(pf *pendingFrame) {
	dst := pf.frame.Dst
	if d := m.devices.Find(dst); d != nil {
		d.Missed = 0
	}
	switch pf.kind {
	case kindData:
		m.Stats.DataSent++
		if _, d := m.gtsOwn.Find(dst.Short, true); d != nil && dst.Mode == wpan.AddrModeShort {
			d.ExpiryCount = gtsExpiryBeacons(m.sfOwn.BeaconOrder)
		}
		m.upper.McpsDataConfirm(pf.handle, Success)
	case kindAssocResponse:
		m.Stats.AssocResponses++
		capability := m.assocCaps[dst.Ext]
		delete(m.assocCaps, dst.Ext)
		if pf.status == Success {
			m.devices.Add(dst.Ext, pf.shortAddr, capability)
			m.log.Infof("child %016x associated as %04x", dst.Ext, pf.shortAddr)
		}
		m.upper.MlmeCommStatusIndication(m.pib.PANId, pf.frame.Src, dst, Success)
	case kindDisassociation:
		if d := m.devices.Find(dst); d != nil {
			m.devices.Remove(d)
		}
		m.Stats.Disassociations++
		m.upper.MlmeDisassociateConfirm(Success)
	}
}

type bcastParams struct {
	remaining int
	ifs       uint64
	current   *pendingFrame
}

const (
	bcastStepIfs Step = iota
	bcastStepSend
	bcastStepSent
)

// procBroadcast sends the broadcasts that were queued when the beacon went out, one IFS apart.
func (m *Mac) procBroadcast(p *procState, ev procEvent) {
	bp := p.params.(*bcastParams)
	for {
		switch p.step {
		case bcastStepIfs:
			if bp.remaining == 0 || len(m.bcastQueue) == 0 {
				m.endProc(p)
				return
			}
			p.step = bcastStepSend
			m.startTimer(TimerIfs, bp.ifs, m.cont(p))
			return

		case bcastStepSend:
			pf := m.bcastQueue[0]
			m.bcastQueue[0] = nil
			m.bcastQueue = m.bcastQueue[1:]
			bp.remaining--
			bp.current = pf
			pf.frame.FrameControl.SetFramePending(bp.remaining > 0 && len(m.bcastQueue) > 0)
			p.step = bcastStepSent
			m.send(SlotBeacon, pf.frame, m.cont(p), sendOpts{noCsma: true})
			return

		case bcastStepSent:
			pf := bp.current
			bp.current = nil
			m.dataDone(pf, ev.status)
			bp.ifs = m.ifsUs(pf.frame.Len())
			p.step = bcastStepIfs
		}
	}
}

// abortBroadcast ends a broadcast burst before the next beacon; the unsent frame goes back to the queue.
func (m *Mac) abortBroadcast() {
	p := m.procs[ProcBroadcast]
	if p == nil {
		return
	}
	bp := p.params.(*bcastParams)
	m.cancelTimer(TimerIfs)
	if pf := bp.current; pf != nil {
		if o := m.slots[SlotBeacon]; o != nil && o.frame == pf.frame && o.phase == phaseQueued {
			m.slots[SlotBeacon] = nil
			m.bcastQueue = append([]*pendingFrame{pf}, m.bcastQueue...)
		}
	}
	delete(m.procs, ProcBroadcast)
}

// McpsPurgeRequest is MCPS-PURGE.request.
func (m *Mac) McpsPurgeRequest(handle uint8) {
	if pf := m.transactions.FindHandle(handle); pf != nil {
		m.transactions.Remove(pf)
		m.armTransactionExpiry()
		m.upper.McpsPurgeConfirm(handle, Success)
		return
	}
	if removeHandle(&m.capQueue, handle) || removeHandle(&m.bcastQueue, handle) {
		m.upper.McpsPurgeConfirm(handle, Success)
		return
	}
	for _, t := range []*GtsTable{m.gtsOwn, m.gtsParent} {
		for _, d := range t.Entries() {
			if removeHandle(&d.queue, handle) {
				m.upper.McpsPurgeConfirm(handle, Success)
				return
			}
		}
	}
	m.upper.McpsPurgeConfirm(handle, InvalidHandle)
}

func removeHandle(q *[]*pendingFrame, handle uint8) bool {
	for i, pf := range *q {
		if pf.kind == kindData && pf.handle == handle {
			*q = append((*q)[:i], (*q)[i+1:]...)
			return true
		}
	}
	return false
}
