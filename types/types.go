// Copyright (c) 2022, The OTNS Authors.
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

package types

import (
	"fmt"
	"math"
)

type NodeId = int
type ChannelId = uint8

const (
	MaxNodeId     NodeId = 0xffff
	InvalidNodeId NodeId = 0
)

const (
	// Ever is the timestamp of something that never happens.
	Ever uint64 = math.MaxUint64 / 2
)

// IEEE 802.15.4-2003 2.4 GHz O-QPSK PHY parameters.
const (
	MinChannelNumber    ChannelId = 11
	MaxChannelNumber    ChannelId = 26
	ChannelsSupported   uint32    = 0x07fff800
	SymbolRate                    = 62500 // symbols/s
	TimeUsPerSymbol               = 16
	TimeUsPerBit                  = 4
	PhyHeaderLenBytes             = 6 // preamble, SFD and PHR
	MaxPhyPacketSize              = 127
	TurnaroundSymbols             = 12
	CcaDurationSymbols            = 8
	DefaultRadioRange             = 220
	DefaultLinkQuality  uint8     = 255
	EnergyLevelBusy     uint8     = 0xff
	EnergyLevelIdle     uint8     = 0x00
	InvalidChannel      ChannelId = 0
	BroadcastShortAddr  uint16    = 0xffff
	NoShortAddr         uint16    = 0xfffe
	BroadcastPanId      uint16    = 0xffff
	InvalidExtAddr      uint64    = math.MaxUint64
	DefaultExtAddrBase  uint64    = 0x0a0b0c0d00000000
)

// IsValidChannel returns true for the channels of the 2.4 GHz band.
func IsValidChannel(ch ChannelId) bool {
	return ch >= MinChannelNumber && ch <= MaxChannelNumber
}

// ChannelInMask returns true if channel ch is set in a 27-bit channel mask.
func ChannelInMask(mask uint32, ch ChannelId) bool {
	return ch < 32 && mask&(1<<ch) != 0
}

// GetNodeName returns the display name of a node, used as log prefix.
func GetNodeName(id NodeId) string {
	return fmt.Sprintf("Node<%d> ", id)
}

// NodeExtAddr returns the extended address a simulated node uses.
func NodeExtAddr(id NodeId) uint64 {
	return DefaultExtAddrBase | uint64(id)
}
