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

func (m *Mac) gtsTableFor(ref capRef) (*GtsTable, TimerKind) {
	if ref == capParent {
		return m.gtsParent, TimerGtsSlotParent
	}
	return m.gtsOwn, TimerGtsSlot
}

// armGtsSlots arms the timer of the earliest GTS of the superframe that just began. Each slot timer arms
// the one of the next slot when it fires.
func (m *Mac) armGtsSlots(ref capRef) {
	t, kind := m.gtsTableFor(ref)
	m.cancelTimer(kind)
	if t.Len() > 0 {
		m.armGtsSlot(ref, t.Len()-1)
	}
}

func (m *Mac) gtsSlotTimes(ref capRef, d *GtsDescriptor) (start, end uint64) {
	sf := m.superframe(ref)
	slot := m.slotUs(sf.SuperframeOrder)
	start = m.beaconRef(ref) + uint64(d.SlotStart)*slot
	return start, start + uint64(d.Length)*slot
}

func (m *Mac) armGtsSlot(ref capRef, i int) {
	t, kind := m.gtsTableFor(ref)
	start, _ := m.gtsSlotTimes(ref, t.Get(i))
	var delay uint64
	if now := m.now(); start > now {
		delay = start - now
	}
	m.startTimerFunc(kind, delay, func() {
		m.gtsSlotFired(ref, i)
	})
}

func (m *Mac) gtsSlotFired(ref capRef, i int) {
	t, _ := m.gtsTableFor(ref)
	if i >= t.Len() {
		return
	}
	d := t.Get(i)
	if i > 0 {
		m.armGtsSlot(ref, i-1)
	}
	if ref == capOwn && !d.RecvOnly {
		return
	}
	if ref == capParent && (d.RecvOnly || d.DevAddr != m.pib.ShortAddress) {
		return
	}
	_, end := m.gtsSlotTimes(ref, d)
	m.startProc(ProcGtsData, &gtsDataParams{desc: d, deadline: end})
}

type gtsDataParams struct {
	desc     *GtsDescriptor
	deadline uint64
}

const (
	gtsDataStepNext Step = iota
	gtsDataStepSent
)

// procGtsData sends the queued frames of one GTS while they fit in the slot. A frame that does not fit, or
// whose retry does not, is kept for the next superframe.
func (m *Mac) procGtsData(p *procState, ev procEvent) {
	gp := p.params.(*gtsDataParams)
	d := gp.desc
	for {
		switch p.step {
		case gtsDataStepNext:
			pf := d.inFlight
			if pf == nil {
				if pf = d.dequeue(); pf != nil {
					m.Stats.GtsDequeued++
				}
			}
			if pf == nil {
				m.endProc(p)
				return
			}
			d.inFlight = pf
			o := &outstanding{frame: pf.frame, psdu: pf.frame.Encode()}
			if m.now()+m.transactionUs(o) > gp.deadline {
				m.endProc(p)
				return
			}
			p.step = gtsDataStepSent
			m.send(SlotGts, pf.frame, m.cont(p), sendOpts{noCsma: true, deadline: gp.deadline})
			return

		case gtsDataStepSent:
			pf := d.inFlight
			switch ev.status {
			case OutOfCap:
				m.endProc(p)
				return
			case Success:
				d.inFlight = nil
				m.Stats.GtsDataSent++
				m.Stats.DataSent++
				d.ExpiryCount = gtsExpiryBeacons(m.sfOwn.BeaconOrder)
				if d.deallocTimer != nil {
					m.armGtsDealloc(d)
				}
				m.upper.McpsDataConfirm(pf.handle, Success)
			default:
				d.inFlight = nil
				m.dropFrame(pf, ev.status)
			}
			p.step = gtsDataStepNext
		}
	}
}

// gtsRequestReceived handles a GTS request command on the coordinator. The answer is the descriptor staged
// for the next beacons.
func (m *Mac) gtsRequestReceived(src wpan.Address, gc wpan.GtsCharacteristics) {
	m.Stats.GtsRequestsReceived++
	if !m.pib.GTSPermit || !m.beaconing() || src.Mode != wpan.AddrModeShort {
		m.Stats.GtsRequestsIgnored++
		m.log.Debugf("GTS request %s from %s ignored", gc, src)
		return
	}
	dev := src.Short
	i, d := m.gtsOwn.Find(dev, gc.RecvOnly)
	if !gc.Allocate {
		if d != nil {
			m.gtsDeallocate(i)
		}
		return
	}
	if d != nil {
		m.stage(d.DevAddr, d.SlotStart, d.Length, d.RecvOnly)
		return
	}

	newStart := aNumSuperframeSlots - (m.gtsOwn.UsedSlots() + int(gc.Length))
	if m.gtsOwn.Full() || gc.Length == 0 || newStart < m.minCapSlots() {
		m.stage(dev, 0, gc.Length, gc.RecvOnly)
		m.Stats.GtsRejected++
		m.log.Debugf("GTS request %s from %04x rejected", gc, dev)
		return
	}
	d = &GtsDescriptor{
		DevAddr:     dev,
		SlotStart:   uint8(newStart),
		Length:      gc.Length,
		RecvOnly:    gc.RecvOnly,
		ExpiryCount: gtsExpiryBeacons(m.sfOwn.BeaconOrder),
	}
	m.gtsOwn.Add(d)
	m.stage(d.DevAddr, d.SlotStart, d.Length, d.RecvOnly)
	m.sfOwn.FinalCapSlot = m.gtsOwn.FinalCapSlot()
	m.Stats.GtsAllocated++
	m.log.Infof("GTS %s allocated", d)
	m.upper.MlmeGtsIndication(dev, gc)
}

// gtsDeallocate frees own entry i. The entries after it move up; their new positions are announced along
// with the zero-start descriptor of the freed one.
func (m *Mac) gtsDeallocate(i int) {
	shifted := append([]*GtsDescriptor(nil), m.gtsOwn.Entries()[i+1:]...)
	d := m.gtsOwn.Remove(i)
	m.stage(d.DevAddr, 0, d.Length, d.RecvOnly)
	for _, o := range shifted {
		m.stage(o.DevAddr, o.SlotStart, o.Length, o.RecvOnly)
	}
	m.sfOwn.FinalCapSlot = m.gtsOwn.FinalCapSlot()
	m.dropGtsQueue(d, InvalidGts)
	m.Stats.GtsDeallocated++
	m.log.Infof("GTS %s deallocated", d)
	m.upper.MlmeGtsIndication(d.DevAddr, wpan.GtsCharacteristics{Length: d.Length, RecvOnly: d.RecvOnly})
}

// stage announces a descriptor in the next aGTSDescPersistenceTime beacons.
func (m *Mac) stage(dev uint16, start, length uint8, recvOnly bool) {
	d := &GtsDescriptor{DevAddr: dev, SlotStart: start, Length: length, RecvOnly: recvOnly,
		PersistCount: aGTSDescPersistenceTime}
	if !m.gtsStaging.Put(d) {
		m.gtsStaging.Remove(0)
		m.gtsStaging.Add(d)
	}
}

// dropGtsQueue gives up the frames waiting for d, except the one a running GTS transfer owns.
func (m *Mac) dropGtsQueue(d *GtsDescriptor, st Status) {
	for pf := d.dequeue(); pf != nil; pf = d.dequeue() {
		m.dropFrame(pf, st)
	}
	if d.inFlight != nil {
		if p := m.procs[ProcGtsData]; p != nil && p.params.(*gtsDataParams).desc == d {
			return
		}
		m.dropFrame(d.inFlight, st)
		d.inFlight = nil
	}
}

func (m *Mac) gtsBeaconSent() {
	for i := m.gtsStaging.Len() - 1; i >= 0; i-- {
		if d := m.gtsStaging.Get(i); d.PersistCount <= 1 {
			m.gtsStaging.Remove(i)
		} else {
			d.PersistCount--
		}
	}
	for i := m.gtsOwn.Len() - 1; i >= 0; i-- {
		d := m.gtsOwn.Get(i)
		if d.RecvOnly && !m.pib.DataAcks {
			continue
		}
		if d.ExpiryCount--; d.ExpiryCount <= 0 {
			m.Stats.GtsExpired++
			m.log.Infof("GTS %s expired", d)
			m.gtsDeallocate(i)
		}
	}
}

// gtsDataReceived keeps the transmit GTS of src alive.
func (m *Mac) gtsDataReceived(src wpan.Address) {
	if src.Mode != wpan.AddrModeShort {
		return
	}
	if _, d := m.gtsOwn.Find(src.Short, false); d != nil {
		d.ExpiryCount = gtsExpiryBeacons(m.sfOwn.BeaconOrder)
		if m.now() > m.capEnd(capOwn) {
			m.Stats.GtsDataReceived++
		}
	}
}

// gtsParentBeacon applies the GTS list of a parent beacon to the parent table.
func (m *Mac) gtsParentBeacon(b *wpan.Beacon) {
	my := m.pib.ShortAddress
	var req *wpan.GtsCharacteristics
	if p := m.procs[ProcGtsRequest]; p != nil {
		req = &p.params.(*gtsRequestParams).gc
	}
	for _, gd := range b.Gts.List {
		requested := req != nil && gd.ShortAddr == my && gd.RecvOnly == req.RecvOnly
		key := gtsKey{addr: gd.ShortAddr, recvOnly: gd.RecvOnly}
		if gd.StartSlot != 0 {
			m.gtsAnnounced[key] = true
		} else if _, own := m.gtsParent.Find(gd.ShortAddr, gd.RecvOnly); m.gtsAnnounced[key] || own != nil {
			// a freed GTS, not a rejection
			delete(m.gtsAnnounced, key)
			if !requested {
				m.gtsRequestExhausted = false
			}
		}
		if gd.ShortAddr != my || my >= NoShortAddr || requested {
			continue
		}
		i, d := m.gtsParent.Find(my, gd.RecvOnly)
		if d == nil {
			continue
		}
		if gd.StartSlot == 0 {
			m.gtsParent.Remove(i)
			d.deallocTimer.Cancel()
			m.dropGtsQueue(d, InvalidGts)
			m.log.Infof("GTS %s deallocated by the coordinator", d)
			m.upper.MlmeGtsIndication(my, wpan.GtsCharacteristics{Length: d.Length, RecvOnly: d.RecvOnly})
			continue
		}
		d.SlotStart, d.Length = gd.StartSlot, gd.Length
	}
	if req != nil {
		m.dispatch(Continuation{Proc: ProcGtsRequest, Step: gtsReqStepAwaitBeacon}, procEvent{kind: evFrame, beacon: b})
	}
}

// gtsKey names a GTS in the parent beacons by owner and direction.
type gtsKey struct {
	addr     uint16
	recvOnly bool
}

type gtsRequestParams struct {
	gc       wpan.GtsCharacteristics
	internal bool
	beacons  int
}

const (
	gtsReqStepSend Step = iota
	gtsReqStepSent
	gtsReqStepAwaitBeacon
)

// requestGts starts a GTS request, or keeps it until the one in flight completes.
func (m *Mac) requestGts(gc wpan.GtsCharacteristics, internal bool) {
	if m.procInFlight(ProcGtsRequest) {
		m.gtsRequestPending = &gtsRequestParams{gc: gc, internal: internal}
		return
	}
	m.startProc(ProcGtsRequest, &gtsRequestParams{gc: gc, internal: internal})
}

func (m *Mac) procGtsRequest(p *procState, ev procEvent) {
	gp := p.params.(*gtsRequestParams)
	my := m.pib.ShortAddress
	switch p.step {
	case gtsReqStepSend:
		f := m.newCommand(m.coordAddress(), wpan.ShortAddress(m.pib.PANId, my),
			&wpan.Command{Id: wpan.CmdGtsRequest, Gts: gp.gc}, true)
		if gp.gc.Allocate {
			m.Stats.GtsAllocRequestsSent++
		} else {
			m.Stats.GtsDeallocRequestsSent++
		}
		p.step = gtsReqStepSent
		m.send(SlotBcnCmd2, f, m.cont(p), sendOpts{})

	case gtsReqStepSent:
		if ev.status != Success {
			m.gtsRequestDone(p, ev.status)
			return
		}
		if !gp.gc.Allocate {
			if i, d := m.gtsParent.Find(my, gp.gc.RecvOnly); d != nil {
				m.gtsParent.Remove(i)
				d.deallocTimer.Cancel()
				m.dropGtsQueue(d, InvalidGts)
			}
			m.gtsRequestDone(p, Success)
			return
		}
		p.step = gtsReqStepAwaitBeacon

	case gtsReqStepAwaitBeacon:
		if ev.kind != evFrame {
			return
		}
		for _, gd := range ev.beacon.Gts.List {
			if gd.ShortAddr != my || gd.RecvOnly != gp.gc.RecvOnly {
				continue
			}
			if gd.StartSlot == 0 {
				m.gtsRequestDone(p, Denied)
				return
			}
			_, d := m.gtsParent.Find(my, gd.RecvOnly)
			if d == nil {
				d = &GtsDescriptor{DevAddr: my, RecvOnly: gd.RecvOnly}
				m.gtsParent.Add(d)
			}
			d.SlotStart, d.Length = gd.StartSlot, gd.Length
			if !d.RecvOnly {
				m.armGtsDealloc(d)
			}
			m.Stats.GtsConfirmed++
			m.log.Infof("GTS %s confirmed", d)
			m.gtsRequestDone(p, Success)
			return
		}
		if gp.beacons++; gp.beacons >= aGTSDescPersistenceTime {
			m.gtsRequestExhausted = true
			m.gtsRequestDone(p, NoData)
		}
	}
}

func (m *Mac) gtsRequestDone(p *procState, st Status) {
	gp := p.params.(*gtsRequestParams)
	if !gp.internal {
		m.upper.MlmeGtsConfirm(gp.gc, st)
	}
	m.endProc(p)
}

// armGtsDealloc (re)starts the idle timer of a transmit GTS granted by the parent.
func (m *Mac) armGtsDealloc(d *GtsDescriptor) {
	d.deallocTimer.Cancel()
	idle := uint64(gtsExpiryBeacons(m.sfParent.BeaconOrder)) * m.biUs(m.sfParent.BeaconOrder)
	d.deallocTimer = m.sched.After(idle, func() {
		d.deallocTimer = nil
		if _, cur := m.gtsParent.Find(d.DevAddr, d.RecvOnly); cur == d {
			m.log.Debugf("GTS %s idle", d)
			m.requestGts(wpan.GtsCharacteristics{Length: d.Length, RecvOnly: d.RecvOnly}, true)
		}
	})
}

// MlmeGtsRequest is MLME-GTS.request.
func (m *Mac) MlmeGtsRequest(gc wpan.GtsCharacteristics) {
	switch {
	case m.pib.ShortAddress >= NoShortAddr:
		m.upper.MlmeGtsConfirm(gc, NoShortAddress)
	case !m.associated() || m.sfParent.BeaconOrder >= 15:
		m.upper.MlmeGtsConfirm(gc, InvalidParameter)
	case gc.Allocate && (gc.Length == 0 || gc.Length > aNumSuperframeSlots-aMinCap):
		m.upper.MlmeGtsConfirm(gc, InvalidParameter)
	default:
		m.requestGts(gc, false)
	}
}

// lazyGtsRequest asks the parent for a transmit GTS sized for payloadLen bytes, unless one exists, a
// request is under way or the last one found the parent out of slots.
func (m *Mac) lazyGtsRequest(payloadLen int) {
	if m.gtsRequestExhausted || m.procInFlight(ProcGtsRequest) || m.gtsRequestPending != nil ||
		!m.associated() || m.pib.ShortAddress >= NoShortAddr || m.sfParent.BeaconOrder >= 15 {
		return
	}
	if _, d := m.gtsParent.Find(m.pib.ShortAddress, false); d != nil {
		return
	}
	n := EstimateGtsSlots(payloadLen, wpan.MaxPayload, 0, m.slotUs(m.sfParent.SuperframeOrder),
		m.biUs(m.sfParent.BeaconOrder), m.symbolUs())
	if n == 0 {
		n = 1
	}
	m.requestGts(wpan.GtsCharacteristics{Length: n, Allocate: true}, true)
}
