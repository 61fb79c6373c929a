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
)

// csma runs the CSMA-CA algorithm for one slot at a time. It is slotted when the superframe the frame
// contends in has a beacon order below 15.
type csma struct {
	m *Mac

	slot    SlotKind
	ref     capRef
	slotted bool
	nb      uint8
	cw      uint8
	be      uint8

	inCca      bool
	discardCca bool
	waitBeacon bool
}

// begin starts channel access for slot. A CCA still in progress for a cancelled attempt is discarded and the
// new attempt backs off when it completes.
func (c *csma) begin(slot SlotKind, ref capRef) {
	m := c.m
	sf := m.superframe(ref)
	c.slot, c.ref = slot, ref
	c.slotted = sf.BeaconOrder < 15 && !m.scanning()
	c.nb, c.cw = 0, 2
	c.be = m.pib.MinBE
	if c.slotted && sf.BattLifeExt && c.be > 2 {
		c.be = 2
	}
	c.waitBeacon = false
	if c.inCca {
		c.discardCca = true
		return
	}
	c.backoff()
}

func (c *csma) backoff() {
	m := c.m
	c.cw = 2
	bp := m.backoffUs()
	delay := uint64(m.rand.Intn(1<<c.be)) * bp
	if c.slotted {
		ref, now := m.beaconRef(c.ref), m.now()
		if now > ref {
			if r := (now - ref) % bp; r != 0 {
				delay += bp - r
			}
		}
	}
	m.Stats.CsmaBackoffs++
	m.startTimerFunc(TimerBackoff, delay, c.backoffDone)
}

func (c *csma) backoffDone() {
	if c.slotted && !c.fits() {
		c.waitForBeacon()
		return
	}
	c.cca()
}

func (c *csma) waitForBeacon() {
	c.waitBeacon = true
	c.m.Stats.CsmaWaitedBeacon++
	c.m.log.Tracef("csma %s waits for the next beacon", c.slot)
}

func (c *csma) cca() {
	c.inCca = true
	c.m.radio.SetTrxState(phy.RxOn)
	c.m.radio.CCA()
}

func (c *csma) ccaConfirm(st phy.Status) {
	m := c.m
	c.inCca = false
	if c.discardCca {
		c.discardCca = false
		if c.slot != SlotNone {
			c.backoff()
		} else {
			m.rxIdle()
		}
		return
	}
	if c.slot == SlotNone {
		return
	}

	if st == phy.Idle {
		if c.slotted {
			c.cw--
			if c.cw > 0 {
				m.startTimerFunc(TimerBackoff, m.backoffUs()-m.symbols(aCcaTime), c.cca)
				return
			}
			if !c.fits() {
				c.waitForBeacon()
				return
			}
		}
		c.done(Success)
		return
	}

	m.Stats.CsmaBusy++
	c.cw = 2
	c.nb++
	if c.nb > m.pib.MaxCSMABackoffs {
		c.done(ChannelAccessFailure)
		return
	}
	if c.be++; c.be > aMaxBE {
		c.be = aMaxBE
	}
	c.backoff()
}

// fits returns true if the remaining CCAs, the frame, its acknowledgement and the IFS end before the CAP does.
func (c *csma) fits() bool {
	m := c.m
	o := m.slots[c.slot]
	need := uint64(c.cw)*m.backoffUs() + phy.FrameDurationUs(len(o.psdu)) + m.ifsUs(len(o.psdu))
	if o.frame.FrameControl.AckRequest() {
		need += m.symbols(aTurnaroundTime) + m.backoffUs() + phy.FrameDurationUs(wpan.AckLen)
	}
	return m.now()+need <= m.capEnd(c.ref)
}

// newBeacon restarts an attempt that waits for the superframe of ref.
func (c *csma) newBeacon(ref capRef) {
	if c.slot == SlotNone || !c.waitBeacon || c.ref != ref {
		return
	}
	c.begin(c.slot, ref)
}

// preemptible is true while the attempt has not reached its first CCA.
func (c *csma) preemptible() bool {
	return c.slot != SlotNone && !c.inCca && c.cw == 2
}

func (c *csma) cancel() {
	c.m.cancelTimer(TimerBackoff)
	if c.inCca {
		c.discardCca = true
	}
	c.slot = SlotNone
	c.waitBeacon = false
}

func (c *csma) done(st Status) {
	slot := c.slot
	c.slot = SlotNone
	c.m.csmaDone(slot, st)
}
