// Copyright (c) 2020, The OTNS Authors.
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

package simulation

import (
	"github.com/openthread/ot-mac/logger"
	"github.com/openthread/ot-mac/pcap"
	. "github.com/openthread/ot-mac/types"
)

const (
	DefaultPanId             uint16    = 0xface
	DefaultChannel           ChannelId = 11
	DefaultBeaconOrder       uint8     = 3
	DefaultSuperframeOrder   uint8     = 3
	DefaultScanChannels      uint32    = 0x3800
	DefaultScanDuration      uint8     = 3
	DefaultAssocRetryUs      uint64    = 1000000
	DefaultTrafficIntervalUs uint64    = 1000000
	DefaultPollIntervalUs    uint64    = 250000
	DefaultPayloadLen                  = 20

	MaxSimulateSpeed = 1000000
)

// Config holds the parameters of a simulation. The MAC parameters apply to every node the SSCS driver starts.
type Config struct {
	Id              int
	OutputDir       string
	RandomSeed      int64
	Speed           float64
	PacketLossRatio float64
	LogLevel        logger.Level
	PcapType        pcap.FrameType
	AutoGo          bool

	PanId           uint16
	Channel         ChannelId
	BeaconOrder     uint8
	SuperframeOrder uint8
	ScanChannels    uint32
	ScanDuration    uint8
	AssocRetryUs    uint64

	NewNodeConfig NodeConfig
}

func DefaultConfig() *Config {
	return &Config{
		Id:              0,
		OutputDir:       "tmp",
		RandomSeed:      0,
		Speed:           1,
		LogLevel:        logger.DefaultLevel,
		PcapType:        pcap.FrameTypeWpan,
		AutoGo:          true,
		PanId:           DefaultPanId,
		Channel:         DefaultChannel,
		BeaconOrder:     DefaultBeaconOrder,
		SuperframeOrder: DefaultSuperframeOrder,
		ScanChannels:    DefaultScanChannels,
		ScanDuration:    DefaultScanDuration,
		AssocRetryUs:    DefaultAssocRetryUs,
		NewNodeConfig:   DefaultNodeConfig(),
	}
}
