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

// Package phy defines the PHY service the MAC relies on and implements it on top of a simulated,
// ideal shared medium.
package phy

import "fmt"

// TrxState is a transceiver state requested through PLME-SET-TRX-STATE.
type TrxState uint8

const (
	RxOn TrxState = iota
	TxOn
	TrxOff
	ForceTrxOff
)

func (s TrxState) String() string {
	switch s {
	case RxOn:
		return "RX_ON"
	case TxOn:
		return "TX_ON"
	case TrxOff:
		return "TRX_OFF"
	case ForceTrxOff:
		return "FORCE_TRX_OFF"
	default:
		return fmt.Sprintf("TrxState(%d)", uint8(s))
	}
}

// Status is the PHY enumeration of 802.15.4-2003, Table 18.
type Status uint8

const (
	Busy                 Status = 0x00
	BusyRx               Status = 0x01
	BusyTx               Status = 0x02
	ForceTrxOffStatus    Status = 0x03
	Idle                 Status = 0x04
	InvalidParameter     Status = 0x05
	RxOnStatus           Status = 0x06
	Success              Status = 0x07
	TrxOffStatus         Status = 0x08
	TxOnStatus           Status = 0x09
	UnsupportedAttribute Status = 0x0a
)

var statusNames = [...]string{"BUSY", "BUSY_RX", "BUSY_TX", "FORCE_TRX_OFF", "IDLE", "INVALID_PARAMETER",
	"RX_ON", "SUCCESS", "TRX_OFF", "TX_ON", "UNSUPPORTED_ATTRIBUTE"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("PhyStatus(0x%02x)", uint8(s))
}

// stateStatus is the status returned when the transceiver already is in state s.
func stateStatus(s TrxState) Status {
	switch s {
	case RxOn:
		return RxOnStatus
	case TxOn:
		return TxOnStatus
	default:
		return TrxOffStatus
	}
}

// IsTrxReady returns true if a PLME-SET-TRX-STATE status means the requested state is in effect.
func IsTrxReady(st Status) bool {
	return st == Success || st == RxOnStatus || st == TxOnStatus || st == TrxOffStatus
}

// PibAttribute identifies a PHY PIB attribute.
type PibAttribute uint8

const (
	AttrCurrentChannel    PibAttribute = 0x00
	AttrChannelsSupported PibAttribute = 0x01
	AttrTransmitPower     PibAttribute = 0x02
	AttrCcaMode           PibAttribute = 0x03
)

// Listener receives the asynchronous PHY confirms and indications.
type Listener interface {
	PdDataConfirm(status Status)
	PlmeCcaConfirm(status Status)
	PlmeEdConfirm(status Status, level uint8)
	PdDataIndication(psdu []byte, lqi uint8)
}
