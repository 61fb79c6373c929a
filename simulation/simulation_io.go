// Copyright (c) 2020-2024, The OTNS Authors.
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
	"github.com/pkg/errors"

	"github.com/openthread/ot-mac/logger"
	. "github.com/openthread/ot-mac/types"
)

// Export returns the MAC parameters and the nodes of the simulation as a simulation file.
func (s *Simulation) Export() *YamlConfigFile {
	panId := s.cfg.PanId
	ch := int(s.cfg.Channel)
	bo, so := int(s.cfg.BeaconOrder), int(s.cfg.SuperframeOrder)
	scanChannels := s.cfg.ScanChannels
	scanDuration := int(s.cfg.ScanDuration)
	return &YamlConfigFile{
		MacConfig: YamlMacConfig{
			PanId:           &panId,
			Channel:         &ch,
			BeaconOrder:     &bo,
			SuperframeOrder: &so,
			ScanChannels:    &scanChannels,
			ScanDuration:    &scanDuration,
		},
		NetworkConfig: YamlNetworkConfig{}, // when exporting, always a 0-offset is used.
		NodesList:     s.ExportNodes(),
	}
}

// ExportNodes exports config/position info of all nodes to a YAML-friendly object.
func (s *Simulation) ExportNodes() []YamlNodeConfig {
	res := make([]YamlNodeConfig, 0, len(s.nodes))
	for _, nodeId := range s.GetNodes() {
		node := s.nodes[nodeId]
		cfg := node.cfg
		yn := YamlNodeConfig{
			ID:       nodeId,
			Role:     cfg.Role.String(),
			Position: [3]int{cfg.X, cfg.Y, cfg.Z},
			Sleepy:   cfg.RxOffWhenIdle,
		}
		if cfg.RadioRange != DefaultRadioRange {
			rr := cfg.RadioRange
			yn.RadioRange = &rr
		}
		if cfg.TrafficIntervalUs > 0 {
			ms := int(cfg.TrafficIntervalUs / 1000)
			yn.TrafficIntervalMs = &ms
		}
		if cfg.PayloadLen != DefaultPayloadLen {
			pl := cfg.PayloadLen
			yn.PayloadLen = &pl
		}
		if cfg.Priority > 0 {
			p := int(cfg.Priority)
			yn.Priority = &p
		}
		if cfg.GtsSlots > 0 {
			g := int(cfg.GtsSlots)
			yn.GtsSlots = &g
		}
		if cfg.RxOffWhenIdle && cfg.PollIntervalUs != DefaultPollIntervalUs {
			ms := int(cfg.PollIntervalUs / 1000)
			yn.PollIntervalMs = &ms
		}
		res = append(res, yn)
	}
	return res
}

// ImportNodes adds the nodes of a simulation file. Nodes that fail are logged and skipped.
func (s *Simulation) ImportNodes(nwConfig YamlNetworkConfig, nodes []YamlNodeConfig) error {
	allOk := true
	rr := DefaultRadioRange
	if nwConfig.RadioRange != nil {
		rr = *nwConfig.RadioRange
	}
	posOffset := nwConfig.Position
	nodeIdOffset := 0
	if nwConfig.BaseId != nil {
		nodeIdOffset = *nwConfig.BaseId
	}

	for _, node := range nodes {
		cfg, err := node.toNodeConfig(s.cfg.NewNodeConfig)
		if err != nil {
			logger.Warnf("Warn: %s", err)
			allOk = false
			continue
		}
		cfg.ID += nodeIdOffset
		if node.RadioRange == nil {
			cfg.RadioRange = rr
		}
		cfg.X += posOffset[0]
		cfg.Y += posOffset[1]
		cfg.Z += posOffset[2]

		if _, err = s.AddNode(&cfg); err != nil {
			logger.Warnf("Warn: %s", err)
			allOk = false // continue trying to import remaining nodes
		}
	}

	if !allOk {
		return errors.Errorf("not all nodes could be imported - see error log above")
	}
	return nil
}

func (node *YamlNodeConfig) toNodeConfig(base NodeConfig) (NodeConfig, error) {
	cfg := base
	role, err := ParseNodeRole(node.Role)
	if err != nil {
		return cfg, err
	}
	cfg.ID = node.ID
	cfg.Role = role
	cfg.IsAutoPlaced = false
	cfg.X, cfg.Y, cfg.Z = node.Position[0], node.Position[1], node.Position[2]
	cfg.RxOffWhenIdle = node.Sleepy
	if node.RadioRange != nil {
		cfg.RadioRange = *node.RadioRange
	}
	if node.TrafficIntervalMs != nil {
		cfg.TrafficIntervalUs = uint64(*node.TrafficIntervalMs) * 1000
	}
	if node.PayloadLen != nil {
		cfg.PayloadLen = *node.PayloadLen
	}
	if node.Priority != nil {
		cfg.Priority = uint8(*node.Priority)
	}
	if node.GtsSlots != nil {
		cfg.GtsSlots = uint8(*node.GtsSlots)
	}
	if node.PollIntervalMs != nil {
		cfg.PollIntervalUs = uint64(*node.PollIntervalMs) * 1000
	}
	if node.Seed != nil {
		cfg.RandomSeed = *node.Seed
	}
	return cfg, nil
}
