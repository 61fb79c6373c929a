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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testYamlFile = `
mac:
    panid: 4660
    channel: 15
    bo: 6
    so: 4
    scan-channels: 0x8000
network:
    pos-shift: [10, 20, 0]
    radio-range: 300
nodes:
    - id: 1
      role: pan
      pos: [100, 100, 0]
    - id: 2
      role: coord
      pos: [200, 100, 0]
      radio-range: 150
    - id: 3
      role: dev
      pos: [200, 150, 0]
      sleepy: true
      traffic-ms: 500
      gts: 2
`

func TestParseYamlConfig(t *testing.T) {
	cfgFile, err := ParseYamlConfig([]byte(testYamlFile))
	require.Nil(t, err)
	assert.Equal(t, [3]int{10, 20, 0}, cfgFile.NetworkConfig.Position)
	assert.Equal(t, 300, *cfgFile.NetworkConfig.RadioRange)
	assert.Equal(t, 3, len(cfgFile.NodesList))
	assert.True(t, cfgFile.NodesList[2].Sleepy)
	assert.Equal(t, 2, *cfgFile.NodesList[2].GtsSlots)

	cfg := DefaultConfig()
	assert.Nil(t, cfgFile.MacConfig.Apply(cfg))
	assert.Equal(t, uint16(0x1234), cfg.PanId)
	assert.Equal(t, uint8(15), cfg.Channel)
	assert.Equal(t, uint8(6), cfg.BeaconOrder)
	assert.Equal(t, uint8(4), cfg.SuperframeOrder)
	assert.Equal(t, uint32(0x8000), cfg.ScanChannels)
	assert.Equal(t, DefaultScanDuration, cfg.ScanDuration)

	_, err = ParseYamlConfig([]byte("nodes:\n    - id: 1\n      role: router\n"))
	assert.NotNil(t, err)
	_, err = ParseYamlConfig([]byte("nodes: 5"))
	assert.NotNil(t, err)
}

func TestYamlMacConfigInvalid(t *testing.T) {
	bo, so := 3, 5
	mc := YamlMacConfig{BeaconOrder: &bo, SuperframeOrder: &so}
	assert.NotNil(t, mc.Apply(DefaultConfig()))

	ch := 30
	mc = YamlMacConfig{Channel: &ch}
	assert.NotNil(t, mc.Apply(DefaultConfig()))

	mask := uint32(0x7ff)
	mc = YamlMacConfig{ScanChannels: &mask}
	assert.NotNil(t, mc.Apply(DefaultConfig()))

	dur := 15
	mc = YamlMacConfig{ScanDuration: &dur}
	assert.NotNil(t, mc.Apply(DefaultConfig()))
}

func TestLoadYamlConfigFile(t *testing.T) {
	sim := newTestSimulation(t, testConfig(15))
	addTestNode(t, sim, 1, RolePanCoordinator, 100, nil)
	addTestNode(t, sim, 2, RoleDevice, 150, func(cfg *NodeConfig) {
		cfg.TrafficIntervalUs = 250000
	})

	fn := filepath.Join(t.TempDir(), "net.yaml")
	require.Nil(t, SaveYamlConfigFile(fn, sim.Export()))
	cfgFile, err := LoadYamlConfigFile(fn)
	require.Nil(t, err)
	assert.Equal(t, sim.ExportNodes(), cfgFile.NodesList)
	assert.Equal(t, 15, *cfgFile.MacConfig.BeaconOrder)

	_, err = LoadYamlConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NotNil(t, err)
}
