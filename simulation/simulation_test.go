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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/ot-mac/mac"
	"github.com/openthread/ot-mac/pcap"
	"github.com/openthread/ot-mac/progctx"
	. "github.com/openthread/ot-mac/types"
)

func testConfig(bo uint8) *Config {
	cfg := DefaultConfig()
	cfg.RandomSeed = 1
	cfg.PcapType = pcap.FrameTypeOff
	cfg.BeaconOrder, cfg.SuperframeOrder = bo, bo
	cfg.Speed = MaxSimulateSpeed
	return cfg
}

func newTestSimulation(t *testing.T, cfg *Config) *Simulation {
	sim, err := NewSimulation(nil, cfg)
	require.Nil(t, err)
	return sim
}

func addTestNode(t *testing.T, sim *Simulation, id NodeId, role NodeRole, x int, modify func(cfg *NodeConfig)) *Node {
	cfg := DefaultNodeConfig()
	cfg.ID = id
	cfg.Role = role
	cfg.IsAutoPlaced = false
	cfg.X, cfg.Y = x, 100
	if modify != nil {
		modify(&cfg)
	}
	n, err := sim.AddNode(&cfg)
	require.Nil(t, err)
	return n
}

func TestNewSimulationInvalid(t *testing.T) {
	cfg := testConfig(3)
	cfg.SuperframeOrder = 4
	_, err := NewSimulation(nil, cfg)
	assert.NotNil(t, err)

	cfg = testConfig(15)
	cfg.Channel = 27
	_, err = NewSimulation(nil, cfg)
	assert.NotNil(t, err)
}

func TestAddDeleteNodes(t *testing.T) {
	sim := newTestSimulation(t, testConfig(15))
	n1 := addTestNode(t, sim, 1, RolePanCoordinator, 100, nil)
	assert.Equal(t, StateCoordinating, n1.State())
	assert.True(t, n1.Mac.IsCoordinator())

	cfg := DefaultNodeConfig()
	cfg.ID = 1
	_, err := sim.AddNode(&cfg)
	assert.NotNil(t, err)

	// auto-assigned ids and positions
	cfg = DefaultNodeConfig()
	n2, err := sim.AddNode(&cfg)
	require.Nil(t, err)
	assert.Equal(t, 2, n2.Id)
	assert.Equal(t, StateScanning, n2.State())

	assert.Equal(t, []NodeId{1, 2}, sim.GetNodes())
	assert.Nil(t, sim.DeleteNode(1))
	assert.NotNil(t, sim.DeleteNode(1))
	assert.Equal(t, []NodeId{2}, sim.GetNodes())
	assert.Nil(t, sim.Medium().GetRadio(1))
	assert.Equal(t, StateStopped, n1.State())

	sim.RunFor(100000)
	assert.Equal(t, uint64(100000), sim.Now())
}

func TestJoinAndTraffic(t *testing.T) {
	sim := newTestSimulation(t, testConfig(15))
	sim.KpiManager().Start()
	coord := addTestNode(t, sim, 1, RolePanCoordinator, 100, nil)
	dev := addTestNode(t, sim, 2, RoleDevice, 150, func(cfg *NodeConfig) {
		cfg.TrafficIntervalUs = 200000
	})

	sim.RunFor(5000000)
	assert.Equal(t, StateJoined, dev.State())
	assert.Equal(t, uint16(PanCoordinatorShortAddr+1), dev.Mac.Pib().ShortAddress)
	assert.Equal(t, DefaultPanId, dev.Mac.Pib().PANId)
	assert.Equal(t, uint64(1), dev.AppStats.Joins)
	assert.Equal(t, map[uint64]uint16{NodeExtAddr(2): 1}, coord.Children())

	assert.True(t, dev.AppStats.TxSuccess > 5)
	assert.Equal(t, uint64(0), dev.AppStats.TxFailed)
	assert.True(t, coord.AppStats.RxData >= dev.AppStats.TxSuccess)
	assert.Equal(t, uint64(DefaultPayloadLen)*coord.AppStats.RxData, coord.AppStats.RxBytes)

	kpi := sim.KpiManager().Data()
	assert.Equal(t, dev.AppStats.TxSuccess, kpi.Counters[2]["app.TxSuccess"])
	assert.Equal(t, dev.Mac.Stats.DataSent, kpi.Counters[2]["mac.DataSent"])
	assert.True(t, kpi.Channels[DefaultChannel].NumFrames > 0)
}

func TestSleepyDeviceReceivesIndirect(t *testing.T) {
	sim := newTestSimulation(t, testConfig(15))
	coord := addTestNode(t, sim, 1, RolePanCoordinator, 100, nil)
	dev := addTestNode(t, sim, 2, RoleDevice, 150, func(cfg *NodeConfig) {
		cfg.RxOffWhenIdle = true
		cfg.PollIntervalUs = 100000
	})

	sim.RunFor(3000000)
	require.Equal(t, StateJoined, dev.State())
	assert.False(t, dev.Mac.Pib().RxOnWhenIdle)

	assert.Nil(t, sim.Send(1, 2, 10))
	assert.Equal(t, 1, coord.Mac.Transactions().Len())
	sim.RunFor(1000000)
	assert.Equal(t, uint64(1), dev.AppStats.RxData)
	assert.Equal(t, uint64(10), dev.AppStats.RxBytes)
	assert.Equal(t, uint64(1), dev.AppStats.PollsWithData)
	assert.True(t, dev.AppStats.PollsSent >= 10)
	assert.Equal(t, uint64(1), coord.AppStats.TxSuccess)

	assert.NotNil(t, sim.Send(1, 3, 10))
}

func TestNoPanRetries(t *testing.T) {
	cfg := testConfig(15)
	cfg.AssocRetryUs = 500000
	sim := newTestSimulation(t, cfg)
	dev := addTestNode(t, sim, 1, RoleDevice, 100, nil)

	sim.RunFor(2000000)
	assert.True(t, dev.AppStats.JoinAttempts >= 2)
	assert.Equal(t, dev.AppStats.JoinAttempts-1, dev.AppStats.JoinFailures)
	assert.Equal(t, uint64(0), dev.AppStats.Joins)
}

func TestBeaconEnabledSync(t *testing.T) {
	cfg := testConfig(6)
	cfg.ScanChannels = 1 << DefaultChannel
	cfg.ScanDuration = 7
	sim := newTestSimulation(t, cfg)
	coord := addTestNode(t, sim, 1, RolePanCoordinator, 100, nil)
	dev := addTestNode(t, sim, 2, RoleDevice, 150, nil)

	sim.RunFor(4000000)
	assert.True(t, coord.Mac.Stats.BeaconsSent >= 3)
	assert.Equal(t, uint8(6), coord.Mac.Superframe().BeaconOrder)
	assert.NotEqual(t, StateScanning, dev.State())
	assert.True(t, dev.Mac.Stats.BeaconsReceived > 0)
}

func TestPacketLossRatio(t *testing.T) {
	sim := newTestSimulation(t, testConfig(15))
	sim.SetPacketLossRatio(2)
	assert.Equal(t, 1.0, sim.GetPacketLossRatio())
	coord := addTestNode(t, sim, 1, RolePanCoordinator, 100, nil)
	dev := addTestNode(t, sim, 2, RoleDevice, 150, nil)

	sim.RunFor(1000000)
	// nothing gets through
	assert.Equal(t, uint64(0), coord.Mac.Stats.BeaconsRequested)
	assert.NotEqual(t, StateJoined, dev.State())
	sim.SetPacketLossRatio(-1)
	assert.Equal(t, 0.0, sim.GetPacketLossRatio())
}

func TestRunLoop(t *testing.T) {
	ctx := progctx.New(nil)
	sim, err := NewSimulation(ctx, testConfig(15))
	require.Nil(t, err)
	go sim.Run()

	<-sim.Go(100 * time.Millisecond)
	done := make(chan NodeId)
	sim.PostAsync(false, func() {
		n, err := sim.AddNode(&NodeConfig{ID: 5, Role: RolePanCoordinator, RadioRange: 100, PollIntervalUs: 1})
		assert.Nil(t, err)
		done <- n.Id
	})
	assert.Equal(t, 5, <-done)
	<-sim.Go(50 * time.Millisecond)

	stopped := make(chan uint64)
	sim.PostAsync(false, func() {
		stopped <- sim.Now()
	})
	assert.Equal(t, uint64(150000), <-stopped)

	ctx.Cancel("test done")
	ctx.Wait()
	assert.True(t, sim.IsStopping())
}

func TestSpeed(t *testing.T) {
	sim := newTestSimulation(t, testConfig(15))
	assert.Equal(t, float64(MaxSimulateSpeed), sim.GetSpeed())
	sim.SetSpeed(-3)
	assert.Equal(t, 0.0, sim.GetSpeed())
	sim.SetSpeed(2e9)
	assert.Equal(t, float64(MaxSimulateSpeed), sim.GetSpeed())
}

func TestExportImport(t *testing.T) {
	sim := newTestSimulation(t, testConfig(15))
	addTestNode(t, sim, 1, RolePanCoordinator, 100, nil)
	addTestNode(t, sim, 4, RoleDevice, 200, func(cfg *NodeConfig) {
		cfg.RxOffWhenIdle = true
		cfg.TrafficIntervalUs = 3000000
		cfg.Priority = 2
	})

	exported := sim.Export()
	assert.Equal(t, 2, len(exported.NodesList))
	assert.Equal(t, DefaultPanId, *exported.MacConfig.PanId)

	other := newTestSimulation(t, testConfig(15))
	exported.NetworkConfig.BaseId = new(int)
	*exported.NetworkConfig.BaseId = 10
	assert.Nil(t, other.ImportNodes(exported.NetworkConfig, exported.NodesList))
	assert.Equal(t, []NodeId{11, 14}, other.GetNodes())
	n := other.GetNode(14)
	assert.Equal(t, RoleDevice, n.Config().Role)
	assert.True(t, n.Config().RxOffWhenIdle)
	assert.Equal(t, uint64(3000000), n.Config().TrafficIntervalUs)
	assert.Equal(t, uint8(2), n.Config().Priority)
	assert.Equal(t, 200, n.Config().X)

	// existing ids are reported
	assert.NotNil(t, other.ImportNodes(exported.NetworkConfig, exported.NodesList[:1]))
}

func TestMoveNode(t *testing.T) {
	sim := newTestSimulation(t, testConfig(15))
	n := addTestNode(t, sim, 1, RoleDevice, 100, nil)
	assert.Nil(t, sim.MoveNode(1, 300, 400))
	assert.Equal(t, 300.0, n.Radio.X)
	assert.Equal(t, 400, n.Config().Y)
	assert.NotNil(t, sim.MoveNode(2, 0, 0))
}

func TestBestPan(t *testing.T) {
	pds := []mac.PanDescriptor{
		{Channel: 11, LinkQuality: 250},
		{Channel: 12, LinkQuality: 100},
		{Channel: 13, LinkQuality: 200},
	}
	pds[1].Superframe.AssociationPermit = true
	pds[2].Superframe.AssociationPermit = true
	assert.Equal(t, uint8(13), bestPan(pds).Channel)
	assert.Nil(t, bestPan(pds[:1]))
}
