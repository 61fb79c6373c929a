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

package phy

import (
	"math"

	"github.com/openthread/ot-mac/event"
	"github.com/openthread/ot-mac/logger"
	. "github.com/openthread/ot-mac/types"
)

// RadioConfig is the placement and range of a simulated radio.
type RadioConfig struct {
	X, Y, Z    int
	RadioRange int
}

// RadioStats counts the activity of one radio.
type RadioStats struct {
	NumFramesTx   uint64
	NumBytesTx    uint64
	NumFramesRx   uint64
	NumCollisions uint64
	NumCcaBusy    uint64
	NumAborted    uint64
}

type reception struct {
	src       *Radio
	corrupted bool
}

// Radio is a simulated 2.4 GHz O-QPSK transceiver attached to a Medium.
type Radio struct {
	Id NodeId

	// Node position in units/pixels.
	X, Y, Z float64

	// RadioRange is the unit-disc range of the transmitter.
	RadioRange float64

	Stats RadioStats

	medium   *Medium
	listener Listener
	state    TrxState
	channel  ChannelId
	txPower  int8
	ccaMode  uint8
	lqi      uint8

	txPsdu     []byte
	txDone     *event.Timer
	lastTxFrom uint64
	lastTxTo   uint64
	rx         *reception
}

func (r *Radio) SetListener(l Listener) {
	r.listener = l
}

// SymbolRate returns the symbol rate in symbols/s.
func (r *Radio) SymbolRate() uint32 {
	return SymbolRate
}

// LinkQuality returns the LQI of the last received frame.
func (r *Radio) LinkQuality() uint8 {
	return r.lqi
}

func (r *Radio) State() TrxState {
	return r.state
}

func (r *Radio) Channel() ChannelId {
	return r.channel
}

func (r *Radio) IsTransmitting() bool {
	return r.txDone.Pending()
}

// GetDistanceTo gets the distance to another Radio (in grid/pixel units).
func (r *Radio) GetDistanceTo(other *Radio) float64 {
	dx := other.X - r.X
	dy := other.Y - r.Y
	dz := other.Z - r.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// SetTrxState is PLME-SET-TRX-STATE. The state change is immediate in the simulation, so the confirm
// status is returned directly.
func (r *Radio) SetTrxState(state TrxState) Status {
	if r.IsTransmitting() {
		if state != ForceTrxOff {
			if state == TxOn {
				return TxOnStatus
			}
			return BusyTx
		}
		r.abortTx()
	}
	if state == ForceTrxOff {
		state = TrxOff
	} else if state == r.state {
		return stateStatus(state)
	}
	if state != RxOn && r.rx != nil {
		r.rx.corrupted = true
	}
	r.state = state
	return Success
}

// Transmit is PD-DATA.request. PdDataConfirm follows when the last symbol was sent.
func (r *Radio) Transmit(psdu []byte) {
	if r.state != TxOn || r.IsTransmitting() {
		status := stateStatus(r.state)
		if r.IsTransmitting() {
			status = BusyTx
		}
		r.medium.sched.After(0, func() {
			r.listener.PdDataConfirm(status)
		})
		return
	}
	logger.AssertTrue(len(psdu) <= MaxPhyPacketSize)

	now := r.medium.sched.Now()
	r.txPsdu = psdu
	r.lastTxFrom = now
	r.lastTxTo = now + FrameDurationUs(len(psdu))
	r.Stats.NumFramesTx++
	r.Stats.NumBytesTx += uint64(len(psdu))
	r.medium.txStart(r)
	r.txDone = r.medium.sched.After(FrameDurationUs(len(psdu)), r.txEnd)
}

func (r *Radio) txEnd() {
	r.medium.txEnd(r, r.txPsdu)
	r.txPsdu = nil
	r.listener.PdDataConfirm(Success)
}

func (r *Radio) abortTx() {
	r.txDone.Cancel()
	r.lastTxTo = r.medium.sched.Now()
	r.medium.txAbort(r)
	r.txPsdu = nil
	r.Stats.NumAborted++
}

// CCA is PLME-CCA.request; the result follows after the 8-symbol detection period.
func (r *Radio) CCA() {
	if r.state != RxOn {
		status := stateStatus(r.state)
		r.medium.sched.After(0, func() {
			r.listener.PlmeCcaConfirm(status)
		})
		return
	}
	from := r.medium.sched.Now()
	r.medium.sched.After(CcaDurationSymbols*TimeUsPerSymbol, func() {
		status := Idle
		if r.medium.channelBusy(r, from) {
			status = Busy
			r.Stats.NumCcaBusy++
		}
		r.listener.PlmeCcaConfirm(status)
	})
}

// ED is PLME-ED.request; the ideal medium reports full energy when any transmission overlapped the
// detection period.
func (r *Radio) ED() {
	if r.state != RxOn {
		status := stateStatus(r.state)
		r.medium.sched.After(0, func() {
			r.listener.PlmeEdConfirm(status, 0)
		})
		return
	}
	from := r.medium.sched.Now()
	r.medium.sched.After(CcaDurationSymbols*TimeUsPerSymbol, func() {
		level := EnergyLevelIdle
		if r.medium.channelBusy(r, from) {
			level = EnergyLevelBusy
		}
		r.listener.PlmeEdConfirm(Success, level)
	})
}

// PlmeGet is PLME-GET.request.
func (r *Radio) PlmeGet(attr PibAttribute) (Status, uint32) {
	switch attr {
	case AttrCurrentChannel:
		return Success, uint32(r.channel)
	case AttrChannelsSupported:
		return Success, ChannelsSupported
	case AttrTransmitPower:
		return Success, uint32(uint8(r.txPower)) & 0x3f
	case AttrCcaMode:
		return Success, uint32(r.ccaMode)
	default:
		return UnsupportedAttribute, 0
	}
}

// PlmeSet is PLME-SET.request.
func (r *Radio) PlmeSet(attr PibAttribute, value uint32) Status {
	switch attr {
	case AttrCurrentChannel:
		if value > uint32(MaxChannelNumber) || !IsValidChannel(ChannelId(value)) {
			return InvalidParameter
		}
		if ChannelId(value) != r.channel && r.rx != nil {
			r.rx.corrupted = true
		}
		r.channel = ChannelId(value)
	case AttrChannelsSupported:
		return InvalidParameter
	case AttrTransmitPower:
		r.txPower = int8(value & 0x3f)
	case AttrCcaMode:
		if value < 1 || value > 3 {
			return InvalidParameter
		}
		r.ccaMode = uint8(value)
	default:
		return UnsupportedAttribute
	}
	return Success
}

// FrameDurationUs returns the air time of a PSDU of n bytes including the PHY header.
func FrameDurationUs(n int) uint64 {
	return uint64(PhyHeaderLenBytes+n) * 8 * TimeUsPerBit
}
