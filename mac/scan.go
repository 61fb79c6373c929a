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

type scanParams struct {
	typ      ScanType
	duration uint8
	channels []ChannelId
	next     int

	origChannel ChannelId
	origPanId   uint16
	deadline    uint64
	level       uint8
	edFailed    bool
	realigned   bool
	result      ScanResult
}

const (
	scanStepNextChannel Step = iota
	scanStepEdTrxState
	scanStepEdConfirm
	scanStepBcnReqSent
	scanStepListen
	scanStepOrphanSent
	scanStepOrphanWait
	scanStepDone
)

// maxPanDescriptors bounds the result list of an active or passive scan.
const maxPanDescriptors = 16

// MlmeScanRequest is MLME-SCAN.request. Duration n gives a dwell time of aBaseSuperframeDuration*(2^n+1)
// symbols per channel.
func (m *Mac) MlmeScanRequest(typ ScanType, channels uint32, duration uint8) {
	if m.scanning() {
		m.upper.MlmeScanConfirm(&ScanResult{Status: ScanInProgress, Type: typ, UnscannedChannels: channels})
		return
	}
	if typ > ScanOrphan || duration > MaxScanDuration || channels&ChannelsSupported == 0 {
		m.upper.MlmeScanConfirm(&ScanResult{Status: InvalidParameter, Type: typ, UnscannedChannels: channels})
		return
	}
	sp := &scanParams{
		typ:         typ,
		duration:    duration,
		origChannel: m.channel(),
		origPanId:   m.pib.PANId,
		result:      ScanResult{Type: typ},
	}
	for ch := MinChannelNumber; ch <= MaxChannelNumber; ch++ {
		if ChannelInMask(channels, ch) {
			sp.channels = append(sp.channels, ch)
		}
	}
	if typ == ScanActive || typ == ScanPassive {
		m.pib.PANId = BroadcastPanId
	}
	m.log.Debugf("%s scan of %d channels", typ, len(sp.channels))
	m.startProc(ProcScan, sp)
}

func (m *Mac) procScan(p *procState, ev procEvent) {
	sp := p.params.(*scanParams)
	if ev.kind == evFrame && p.step != scanStepListen && p.step != scanStepOrphanWait {
		return
	}
	for {
		switch p.step {
		case scanStepNextChannel:
			if sp.next >= len(sp.channels) {
				p.step = scanStepDone
				continue
			}
			m.setChannel(sp.channels[sp.next])
			sp.next++
			switch sp.typ {
			case ScanEd:
				sp.level, sp.edFailed = 0, false
				sp.deadline = m.now() + m.scanDurationUs(sp.duration)
				p.step = scanStepEdTrxState
				continue
			case ScanActive:
				f := m.newCommand(wpan.ShortAddress(BroadcastPanId, BroadcastShortAddr), wpan.Address{},
					&wpan.Command{Id: wpan.CmdBeaconRequest}, false)
				p.step = scanStepBcnReqSent
				m.send(SlotBcnCmd, f, m.cont(p), sendOpts{})
				return
			case ScanPassive:
				p.step = scanStepListen
				m.rxIdle()
				m.startTimer(TimerScan, m.scanDurationUs(sp.duration), m.cont(p))
				return
			default:
				f := m.newCommand(wpan.ShortAddress(BroadcastPanId, BroadcastShortAddr),
					wpan.ExtAddress(BroadcastPanId, m.ExtAddr), &wpan.Command{Id: wpan.CmdOrphanNotification}, false)
				p.step = scanStepOrphanSent
				m.send(SlotBcnCmd, f, m.cont(p), sendOpts{})
				return
			}

		case scanStepEdTrxState:
			p.step = scanStepEdConfirm
			if st := m.radio.SetTrxState(phy.RxOn); !phy.IsTrxReady(st) {
				// the channel is recorded with the level measured so far
				sp.edFailed = true
				ev = procEvent{kind: evEd, phyStatus: st}
				continue
			}
			m.radio.ED()
			return

		case scanStepEdConfirm:
			if ev.kind != evEd {
				return
			}
			if ev.phyStatus == phy.Success && ev.level > sp.level {
				sp.level = ev.level
			}
			if !sp.edFailed && ev.phyStatus == phy.Success && m.now() < sp.deadline {
				m.radio.ED()
				return
			}
			sp.result.EnergyList = append(sp.result.EnergyList, sp.level)
			p.step = scanStepNextChannel

		case scanStepBcnReqSent:
			p.step = scanStepListen
			m.startTimer(TimerScan, m.scanDurationUs(sp.duration), m.cont(p))
			return

		case scanStepListen:
			switch ev.kind {
			case evFrame:
				if ev.pan != nil {
					sp.addPan(*ev.pan)
				}
				return
			case evTimer:
				p.step = scanStepNextChannel
				continue
			}
			return

		case scanStepOrphanSent:
			if ev.status != Success {
				p.step = scanStepNextChannel
				continue
			}
			p.step = scanStepOrphanWait
			m.startTimer(TimerScan, m.symbols(aResponseWaitTime), m.cont(p))
			return

		case scanStepOrphanWait:
			switch {
			case ev.kind == evFrame && ev.cmd != nil && ev.cmd.Id == wpan.CmdCoordRealignment:
				m.cancelTimer(TimerScan)
				m.applyRealignment(ev.cmd)
				sp.realigned = true
				p.step = scanStepDone
				continue
			case ev.kind == evTimer:
				p.step = scanStepNextChannel
				continue
			}
			return

		case scanStepDone:
			m.scanDone(p, sp)
			return
		}
	}
}

func (sp *scanParams) addPan(pd PanDescriptor) {
	for _, o := range sp.result.PanDescriptors {
		if o.Channel == pd.Channel && o.CoordAddr.PanId == pd.CoordAddr.PanId && o.CoordAddr.SameNode(pd.CoordAddr) {
			return
		}
	}
	if len(sp.result.PanDescriptors) < maxPanDescriptors {
		sp.result.PanDescriptors = append(sp.result.PanDescriptors, pd)
	}
}

func (m *Mac) scanDone(p *procState, sp *scanParams) {
	res := sp.result
	if !sp.realigned {
		m.setChannel(sp.origChannel)
	}
	if sp.typ == ScanActive || sp.typ == ScanPassive {
		m.pib.PANId = sp.origPanId
	}
	for _, ch := range sp.channels[sp.next:] {
		res.UnscannedChannels |= 1 << ch
	}
	switch sp.typ {
	case ScanActive, ScanPassive:
		if len(res.PanDescriptors) == 0 {
			res.Status = NoBeacon
		}
	case ScanOrphan:
		if !sp.realigned {
			res.Status = NoBeacon
		}
	}
	m.log.Debugf("%s scan done: %s", sp.typ, res.Status)
	m.endProc(p)
	m.upper.MlmeScanConfirm(&res)
}
