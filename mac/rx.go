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

type rxKey struct {
	mode  wpan.AddrMode
	short uint16
	ext   uint64
}

// PdDataIndication implements phy.Listener.
func (m *Mac) PdDataIndication(psdu []byte, lqi uint8) {
	f, err := wpan.Decode(psdu)
	if err != nil {
		m.Stats.RxDropped++
		m.log.Debugf("rx dropped: %v", err)
		return
	}
	if m.pib.PromiscuousMode {
		m.upper.McpsDataIndication(&DataIndication{Src: f.Src, Dst: f.Dst, Msdu: psdu, LinkQuality: lqi, Seq: f.Seq})
		return
	}
	if f.Type() == wpan.FrameTypeAck {
		m.handleAck(f)
		return
	}
	if !m.acceptFrame(f) {
		return
	}
	m.log.Tracef("rx %s", f)
	if f.FrameControl.AckRequest() && !f.Dst.IsBroadcast() {
		m.sendAck(f)
	}
	switch f.Type() {
	case wpan.FrameTypeBeacon:
		m.handleBeacon(f, len(psdu), lqi)
	case wpan.FrameTypeData:
		m.handleData(f, lqi)
	case wpan.FrameTypeCommand:
		m.handleCommand(f)
	}
}

// PlmeCcaConfirm implements phy.Listener.
func (m *Mac) PlmeCcaConfirm(st phy.Status) {
	m.csma.ccaConfirm(st)
}

// PlmeEdConfirm implements phy.Listener.
func (m *Mac) PlmeEdConfirm(st phy.Status, level uint8) {
	m.dispatch(Continuation{Proc: ProcScan, Step: scanStepEdConfirm}, procEvent{kind: evEd, phyStatus: st, level: level})
}

// acceptFrame applies the third level of filtering.
func (m *Mac) acceptFrame(f *wpan.Frame) bool {
	scanning := m.scanning()
	switch f.Type() {
	case wpan.FrameTypeBeacon:
		return scanning || m.pib.PANId == BroadcastPanId || f.Src.PanId == m.pib.PANId
	case wpan.FrameTypeCommand:
	default:
		if scanning {
			return false
		}
	}

	if f.Dst.PanId != m.pib.PANId && f.Dst.PanId != BroadcastPanId && f.Dst.Mode != wpan.AddrModeNone {
		return false
	}
	switch f.Dst.Mode {
	case wpan.AddrModeNone:
		return m.coordinator && f.Src.PanId == m.pib.PANId
	case wpan.AddrModeShort:
		return f.Dst.Short == m.pib.ShortAddress || f.Dst.Short == BroadcastShortAddr
	case wpan.AddrModeExtended:
		return f.Dst.Ext == m.ExtAddr
	default:
		return false
	}
}

func (m *Mac) handleData(f *wpan.Frame, lqi uint8) {
	key := rxKey{mode: f.Src.Mode, short: f.Src.Short, ext: f.Src.Ext}
	if seq, ok := m.lastRx[key]; ok && seq == f.Seq {
		m.Stats.DataDuplicates++
		return
	}
	m.lastRx[key] = f.Seq
	m.Stats.DataReceived++
	m.gtsDataReceived(f.Src)
	if m.isCoordAddr(f.Src) {
		m.dispatch(Continuation{Proc: ProcPoll, Step: pollStepWaitData}, procEvent{kind: evFrame, frame: f})
	}
	m.upper.McpsDataIndication(&DataIndication{Src: f.Src, Dst: f.Dst, Msdu: f.Payload, LinkQuality: lqi, Seq: f.Seq})
}

func (m *Mac) handleCommand(f *wpan.Frame) {
	cmd, err := wpan.UnmarshalCommand(f.Payload)
	if err != nil {
		m.Stats.RxDropped++
		m.log.Debugf("bad command: %v", err)
		return
	}
	switch cmd.Id {
	case wpan.CmdAssociationRequest:
		if !m.coordinator || f.Src.Mode != wpan.AddrModeExtended {
			return
		}
		m.Stats.AssocRequests++
		if !m.pib.AssociationPermit {
			m.log.Debugf("association of %016x not permitted", f.Src.Ext)
			return
		}
		m.assocCaps[f.Src.Ext] = cmd.Capability
		m.upper.MlmeAssociateIndication(f.Src.Ext, cmd.Capability)

	case wpan.CmdAssociationResponse:
		m.dispatch(Continuation{Proc: ProcAssociate, Step: StepAny}, procEvent{kind: evFrame, frame: f, cmd: cmd})

	case wpan.CmdDisassociation:
		m.disassociationReceived(f, cmd)

	case wpan.CmdDataRequest:
		if m.coordinator {
			m.dataRequestReceived(f)
		}

	case wpan.CmdPanIdConflict:
		if m.panCoordinator {
			m.upper.MlmeSyncLossIndication(PanIdConflict)
		}

	case wpan.CmdOrphanNotification:
		if m.coordinator && f.Src.Mode == wpan.AddrModeExtended {
			m.Stats.Orphans++
			m.upper.MlmeOrphanIndication(f.Src.Ext)
		}

	case wpan.CmdBeaconRequest:
		if m.coordinator && m.sfOwn.BeaconOrder == 15 {
			m.Stats.BeaconsRequested++
			m.startProc(ProcBeaconReply, nil)
		}

	case wpan.CmdCoordRealignment:
		if m.scanning() {
			m.dispatch(Continuation{Proc: ProcScan, Step: StepAny}, procEvent{kind: evFrame, frame: f, cmd: cmd})
		} else if m.isCoordAddr(f.Src) {
			m.applyRealignment(cmd)
			m.upper.MlmeSyncLossIndication(Realignment)
		}

	case wpan.CmdGtsRequest:
		if m.coordinator {
			m.gtsRequestReceived(f.Src, cmd.Gts)
		}
	}
}

func (m *Mac) disassociationReceived(f *wpan.Frame, cmd *wpan.Command) {
	if m.isCoordAddr(f.Src) {
		m.Stats.Disassociations++
		ext := m.pib.CoordExtendedAddress
		m.leavePan()
		m.upper.MlmeDisassociateIndication(ext, cmd.Reason)
		return
	}
	if d := m.devices.Find(f.Src); d != nil {
		m.devices.Remove(d)
		m.Stats.Disassociations++
		m.upper.MlmeDisassociateIndication(d.ExtAddr, cmd.Reason)
	}
}

// applyRealignment adopts the PAN parameters of a coordinator realignment command.
func (m *Mac) applyRealignment(cmd *wpan.Command) {
	m.pib.PANId = cmd.PanId
	m.pib.CoordShortAddress = cmd.CoordShortAddr
	if cmd.ShortAddr != BroadcastShortAddr {
		m.pib.ShortAddress = cmd.ShortAddr
	}
	m.setChannel(cmd.Channel)
	m.log.Infof("realigned: PAN %04x channel %d coordinator %04x", cmd.PanId, cmd.Channel, cmd.CoordShortAddr)
}
