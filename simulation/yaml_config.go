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

package simulation

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openthread/ot-mac/logger"
	"github.com/openthread/ot-mac/mac"
	. "github.com/openthread/ot-mac/types"
)

// YamlConfigFile is the layout of a simulation file: the MAC parameters of the PAN, a network offset and
// the list of nodes.
type YamlConfigFile struct {
	MacConfig     YamlMacConfig     `yaml:"mac"`
	NetworkConfig YamlNetworkConfig `yaml:"network"`
	NodesList     []YamlNodeConfig  `yaml:"nodes"`
}

type YamlMacConfig struct {
	PanId           *uint16 `yaml:"panid,omitempty"`
	Channel         *int    `yaml:"channel,omitempty"`
	BeaconOrder     *int    `yaml:"bo,omitempty"`
	SuperframeOrder *int    `yaml:"so,omitempty"`
	ScanChannels    *uint32 `yaml:"scan-channels,omitempty"`
	ScanDuration    *int    `yaml:"scan-duration,omitempty"`
	AssocRetryMs    *int    `yaml:"assoc-retry-ms,omitempty"`
}

type YamlNetworkConfig struct {
	Position   [3]int `yaml:"pos-shift,flow"`
	RadioRange *int   `yaml:"radio-range,omitempty"`
	BaseId     *int   `yaml:"base-id,omitempty"`
}

type YamlNodeConfig struct {
	ID                int     `yaml:"id"`
	Role              string  `yaml:"role"`
	Position          [3]int  `yaml:"pos,flow"`
	RadioRange        *int    `yaml:"radio-range,omitempty"`
	Sleepy            bool    `yaml:"sleepy,omitempty"`
	TrafficIntervalMs *int    `yaml:"traffic-ms,omitempty"`
	PayloadLen        *int    `yaml:"payload,omitempty"`
	Priority          *int    `yaml:"priority,omitempty"`
	GtsSlots          *int    `yaml:"gts,omitempty"`
	PollIntervalMs    *int    `yaml:"poll-ms,omitempty"`
	Seed              *int64  `yaml:"seed,omitempty"`
	Comment           *string `yaml:"comment,omitempty"`
}

// ParseYamlConfig decodes a simulation file.
func ParseYamlConfig(data []byte) (*YamlConfigFile, error) {
	cfgFile := &YamlConfigFile{}
	if err := yaml.Unmarshal(data, cfgFile); err != nil {
		return nil, errors.Wrapf(err, "invalid simulation file")
	}
	for i, node := range cfgFile.NodesList {
		if _, err := ParseNodeRole(node.Role); err != nil {
			return nil, errors.Wrapf(err, "node #%d", i)
		}
	}
	return cfgFile, nil
}

// LoadYamlConfigFile reads and decodes the simulation file filename.
func LoadYamlConfigFile(filename string) (*YamlConfigFile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", filename)
	}
	return ParseYamlConfig(data)
}

// SaveYamlConfigFile writes cfgFile to filename.
func SaveYamlConfigFile(filename string, cfgFile *YamlConfigFile) error {
	data, err := yaml.Marshal(cfgFile)
	logger.PanicIfError(err)
	return errors.Wrapf(os.WriteFile(filename, data, 0644), "could not write %s", filename)
}

// Apply copies the MAC parameters present in the file into cfg.
func (mc *YamlMacConfig) Apply(cfg *Config) error {
	if mc.PanId != nil {
		if *mc.PanId == BroadcastPanId {
			return errors.Errorf("invalid PAN id 0x%04x", *mc.PanId)
		}
		cfg.PanId = *mc.PanId
	}
	if mc.Channel != nil {
		if !IsValidChannel(ChannelId(*mc.Channel)) || *mc.Channel > 0xff {
			return errors.Errorf("invalid channel %d", *mc.Channel)
		}
		cfg.Channel = ChannelId(*mc.Channel)
	}
	if mc.BeaconOrder != nil {
		cfg.BeaconOrder = uint8(*mc.BeaconOrder)
	}
	if mc.SuperframeOrder != nil {
		cfg.SuperframeOrder = uint8(*mc.SuperframeOrder)
	}
	if cfg.BeaconOrder > 15 || cfg.SuperframeOrder > cfg.BeaconOrder {
		return errors.Errorf("invalid beacon order %d / superframe order %d", cfg.BeaconOrder, cfg.SuperframeOrder)
	}
	if mc.ScanChannels != nil {
		if *mc.ScanChannels&^ChannelsSupported != 0 {
			return errors.Errorf("invalid scan channels 0x%x", *mc.ScanChannels)
		}
		cfg.ScanChannels = *mc.ScanChannels
	}
	if mc.ScanDuration != nil {
		if *mc.ScanDuration < 0 || *mc.ScanDuration > mac.MaxScanDuration {
			return errors.Errorf("invalid scan duration %d", *mc.ScanDuration)
		}
		cfg.ScanDuration = uint8(*mc.ScanDuration)
	}
	if mc.AssocRetryMs != nil {
		cfg.AssocRetryUs = uint64(*mc.AssocRetryMs) * 1000
	}
	return nil
}
