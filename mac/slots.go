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
	"fmt"

	"github.com/openthread/ot-mac/logger"
	"github.com/openthread/ot-mac/phy"
	"github.com/openthread/ot-mac/wpan"
)

// SlotKind names an entry of the arena of outstanding transmissions. Each slot holds at most one frame;
// further frames for the same slot wait in its FIFO.
type SlotKind uint8

const (
	SlotNone SlotKind = iota
	SlotBeacon
	SlotAck
	SlotBcnCmd
	SlotBcnCmd2
	SlotData
	SlotGts
	numSlots
)

var slotNames = [numSlots]string{"none", "beacon", "ack", "bcn-cmd", "bcn-cmd2", "data", "gts"}

func (s SlotKind) String() string {
	if s < numSlots {
		return slotNames[s]
	}
	return fmt.Sprintf("SlotKind(%d)", uint8(s))
}

// CSMA slots in order of priority.
var csmaOrder = [...]SlotKind{SlotBcnCmd, SlotBcnCmd2, SlotData}

type txPhase uint8

const (
	phaseQueued txPhase = iota
	phaseContending
	phaseTransmitting
	phaseAwaitingAck
)

// outstanding is a frame owned by the transfer driver until it reports the result to cont.
type outstanding struct {
	slot     SlotKind
	frame    *wpan.Frame
	psdu     []byte
	cont     Continuation
	phase    txPhase
	retries  int
	noCsma   bool
	deadline uint64
}

type sendOpts struct {
	noCsma   bool
	deadline uint64
}

// send hands frame f to the transfer driver. The result is reported to cont as an evSendDone event, after
// the acknowledgement and the retries if f requests an acknowledgement.
func (m *Mac) send(slot SlotKind, f *wpan.Frame, cont Continuation, opts sendOpts) {
	o := &outstanding{
		slot:     slot,
		frame:    f,
		psdu:     f.Encode(),
		cont:     cont,
		noCsma:   opts.noCsma,
		deadline: opts.deadline,
	}
	if m.slots[slot] != nil {
		m.waiters[slot] = append(m.waiters[slot], o)
		return
	}
	m.slots[slot] = o
	m.pump()
}

// pump starts the next transmission: queued frames without channel access first, then the highest priority
// CSMA slot. A lower priority attempt still in its first backoff is pre-empted.
func (m *Mac) pump() {
	if m.inTransmission || m.ackPending {
		return
	}
	for _, s := range [...]SlotKind{SlotBeacon, SlotGts} {
		o := m.slots[s]
		if o == nil || o.phase != phaseQueued || !o.noCsma {
			continue
		}
		if o.frame.Type() != wpan.FrameTypeBeacon && m.ackSlot != SlotNone {
			continue
		}
		m.transmit(s)
		return
	}
	if m.ackSlot != SlotNone {
		return
	}
	for _, s := range csmaOrder {
		o := m.slots[s]
		if o == nil || (m.scanning() && o.cont.Proc != ProcScan) {
			continue
		}
		if o.phase != phaseQueued {
			return
		}
		if busy := m.csma.slot; busy != SlotNone {
			if !m.csma.preemptible() {
				return
			}
			m.log.Tracef("csma %s pre-empted by %s", busy, s)
			m.csma.cancel()
			m.slots[busy].phase = phaseQueued
		}
		o.phase = phaseContending
		m.csma.begin(s, m.capRefFor(o.frame))
		return
	}
}

func (m *Mac) csmaDone(slot SlotKind, st Status) {
	if !logger.AssertTrue(m.slots[slot] != nil, "CSMA done for empty slot %s", slot) {
		return
	}
	if st != Success {
		m.Stats.DropsCsma++
		m.transferDone(slot, st, false)
		return
	}
	m.transmit(slot)
}

func (m *Mac) transmit(slot SlotKind) {
	o := m.slots[slot]
	if m.inTransmission {
		o.phase = phaseQueued
		return
	}
	if st := m.radio.SetTrxState(phy.TxOn); !phy.IsTrxReady(st) {
		m.log.Debugf("tx %s: TX_ON failed: %s", slot, st)
		if slot == SlotAck {
			m.slots[SlotAck] = nil
			m.ackPending = false
			return
		}
		m.transferDone(slot, ChannelAccessFailure, false)
		return
	}
	o.phase = phaseTransmitting
	m.inTransmission = true
	m.txSlot = slot
	m.txPkt = o.psdu
	m.log.Tracef("tx %s %s", slot, o.frame)
	m.radio.Transmit(o.psdu)
}

// PdDataConfirm implements phy.Listener.
func (m *Mac) PdDataConfirm(st phy.Status) {
	slot := m.txSlot
	m.txSlot, m.txPkt, m.inTransmission = SlotNone, nil, false

	o := m.slots[slot]
	switch {
	case slot == SlotNone:
		// the transmission was dropped by a reset
		m.log.Debugf("PD-DATA.confirm without frame: %s", st)
	case !logger.AssertTrue(o != nil, "PD-DATA.confirm for empty slot %s", slot):
	case slot == SlotAck:
		m.slots[SlotAck] = nil
		m.ackPending = false
		if st == phy.Success {
			m.Stats.AcksSent++
		}
	case st != phy.Success:
		m.transferDone(slot, ChannelAccessFailure, false)
	case o.frame.FrameControl.AckRequest():
		o.phase = phaseAwaitingAck
		m.ackSlot = slot
		m.startTimerFunc(TimerAckWait, m.symbols(uint64(m.pib.AckWaitDuration)), m.ackTimeout)
	default:
		m.transferDone(slot, Success, false)
	}

	if m.beaconWaiting {
		m.beaconWaiting = false
		m.sendBeaconNow()
	}
	m.pump()
	m.rxIdle()
}

func (m *Mac) ackTimeout() {
	slot := m.ackSlot
	m.ackSlot = SlotNone
	o := m.slots[slot]
	if o == nil {
		return
	}
	o.retries++
	if o.retries > aMaxFrameRetries {
		m.Stats.DropsNoAck++
		m.transferDone(slot, NoAck, false)
		return
	}
	m.Stats.RetriesNoAck++
	if isCommand(o.frame, wpan.CmdGtsRequest) {
		m.Stats.GtsRequestsRetried++
	}
	if o.deadline != 0 && m.now()+m.transactionUs(o) > o.deadline {
		m.transferDone(slot, OutOfCap, false)
		return
	}
	o.phase = phaseQueued
	m.pump()
	m.rxIdle()
}

// transactionUs is the air time of o including the acknowledgement and the IFS.
func (m *Mac) transactionUs(o *outstanding) uint64 {
	d := phy.FrameDurationUs(len(o.psdu)) + m.ifsUs(len(o.psdu))
	if o.frame.FrameControl.AckRequest() {
		d += m.symbols(aTurnaroundTime) + phy.FrameDurationUs(wpan.AckLen)
	}
	return d
}

func (m *Mac) handleAck(f *wpan.Frame) {
	slot := m.ackSlot
	if slot == SlotNone || m.slots[slot].frame.Seq != f.Seq {
		return
	}
	m.cancelTimer(TimerAckWait)
	m.ackSlot = SlotNone
	m.Stats.AcksReceived++
	m.transferDone(slot, Success, f.FrameControl.FramePending())
}

// transferDone frees slot, installs its next waiter and reports st to the owner of the frame.
func (m *Mac) transferDone(slot SlotKind, st Status, framePending bool) {
	o := m.slots[slot]
	if !logger.AssertTrue(o != nil, "transfer done for empty slot %s", slot) {
		return
	}
	if m.csma.slot == slot {
		m.csma.cancel()
	}
	if m.ackSlot == slot {
		m.cancelTimer(TimerAckWait)
		m.ackSlot = SlotNone
	}
	m.slots[slot] = nil
	if w := m.waiters[slot]; len(w) > 0 {
		m.slots[slot] = w[0]
		w[0] = nil
		m.waiters[slot] = w[1:]
	}

	if o.cont.Proc == ProcNone {
		m.slotDone(o, st)
	} else {
		m.dispatch(o.cont, procEvent{kind: evSendDone, status: st, framePending: framePending, frame: o.frame})
	}
	m.pump()
}

// slotDone handles frames not owned by a procedure.
func (m *Mac) slotDone(o *outstanding, st Status) {
	if o.slot == SlotBeacon {
		m.beaconSent(o, st)
	}
}

// sendAck answers f after the turnaround time. A CSMA attempt in progress is suspended and restarts after
// the acknowledgement.
func (m *Mac) sendAck(f *wpan.Frame) {
	if m.slots[SlotAck] != nil {
		return
	}
	pending := false
	if isCommand(f, wpan.CmdDataRequest) {
		pending = m.pendingFor(f.Src) != nil
	}
	ack := wpan.NewAck(f.Seq, pending)
	m.slots[SlotAck] = &outstanding{slot: SlotAck, frame: ack, psdu: ack.Encode(), noCsma: true}
	m.ackPending = true
	if s := m.csma.slot; s != SlotNone {
		m.csma.cancel()
		m.slots[s].phase = phaseQueued
	}
	m.startTimerFunc(TimerAckTurnaround, m.symbols(aTurnaroundTime), func() {
		if m.slots[SlotAck] != nil {
			m.transmit(SlotAck)
		}
	})
}

func isCommand(f *wpan.Frame, id wpan.CommandId) bool {
	return f.Type() == wpan.FrameTypeCommand && len(f.Payload) > 0 && wpan.CommandId(f.Payload[0]) == id
}
