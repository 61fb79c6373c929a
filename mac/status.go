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

import "fmt"

// Status is the MAC enumeration of 802.15.4-2003, Table 64.
type Status uint8

const (
	Success              Status = 0x00
	PanAtCapacity        Status = 0x01
	PanAccessDenied      Status = 0x02
	BeaconLoss           Status = 0xe0
	ChannelAccessFailure Status = 0xe1
	Denied               Status = 0xe2
	DisableTrxFailure    Status = 0xe3
	FailedSecurityCheck  Status = 0xe4
	FrameTooLong         Status = 0xe5
	InvalidGts           Status = 0xe6
	InvalidHandle        Status = 0xe7
	InvalidParameter     Status = 0xe8
	NoAck                Status = 0xe9
	NoBeacon             Status = 0xea
	NoData               Status = 0xeb
	NoShortAddress       Status = 0xec
	OutOfCap             Status = 0xed
	PanIdConflict        Status = 0xee
	Realignment          Status = 0xef
	TransactionExpired   Status = 0xf0
	TransactionOverflow  Status = 0xf1
	TxActive             Status = 0xf2
	UnavailableKey       Status = 0xf3
	UnsupportedAttribute Status = 0xf4

	// ScanInProgress rejects a scan request while another scan runs.
	ScanInProgress Status = 0xfc
)

var statusNames = map[Status]string{
	Success:              "SUCCESS",
	PanAtCapacity:        "PAN_AT_CAPACITY",
	PanAccessDenied:      "PAN_ACCESS_DENIED",
	BeaconLoss:           "BEACON_LOSS",
	ChannelAccessFailure: "CHANNEL_ACCESS_FAILURE",
	Denied:               "DENIED",
	DisableTrxFailure:    "DISABLE_TRX_FAILURE",
	FailedSecurityCheck:  "FAILED_SECURITY_CHECK",
	FrameTooLong:         "FRAME_TOO_LONG",
	InvalidGts:           "INVALID_GTS",
	InvalidHandle:        "INVALID_HANDLE",
	InvalidParameter:     "INVALID_PARAMETER",
	NoAck:                "NO_ACK",
	NoBeacon:             "NO_BEACON",
	NoData:               "NO_DATA",
	NoShortAddress:       "NO_SHORT_ADDRESS",
	OutOfCap:             "OUT_OF_CAP",
	PanIdConflict:        "PAN_ID_CONFLICT",
	Realignment:          "REALIGNMENT",
	TransactionExpired:   "TRANSACTION_EXPIRED",
	TransactionOverflow:  "TRANSACTION_OVERFLOW",
	TxActive:             "TX_ACTIVE",
	UnavailableKey:       "UNAVAILABLE_KEY",
	UnsupportedAttribute: "UNSUPPORTED_ATTRIBUTE",
	ScanInProgress:       "SCAN_IN_PROGRESS",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("MacStatus(0x%02x)", uint8(s))
}

// assocStatus maps the association status field of an association response to a Status.
func assocStatus(v uint8) Status {
	switch v {
	case 0:
		return Success
	case 1:
		return PanAtCapacity
	default:
		return PanAccessDenied
	}
}
