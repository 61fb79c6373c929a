// Copyright (c) 2020-2023, The OTNS Authors.
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

// Package simulation builds a PAN of simulated nodes on one medium and runs it, either synchronously with
// RunFor or from a goroutine driven by the CLI.
package simulation

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/ot-mac/event"
	"github.com/openthread/ot-mac/logger"
	"github.com/openthread/ot-mac/pcap"
	"github.com/openthread/ot-mac/phy"
	"github.com/openthread/ot-mac/prng"
	"github.com/openthread/ot-mac/progctx"
	. "github.com/openthread/ot-mac/types"
	"github.com/openthread/ot-mac/wpan"
)

// PanCoordinatorShortAddr is the short address the PAN coordinator gives itself.
const PanCoordinatorShortAddr uint16 = 0x0000

// CommandInterruptedError is returned for work posted after the run loop has exited.
var CommandInterruptedError = errors.New("command interrupted due to simulation exit")

type goDuration struct {
	duration time.Duration
	speed    float64 // < 0 for the current speed
	done     chan struct{}
}

type Simulation struct {
	ctx        *progctx.ProgCtx
	cfg        *Config
	sched      *event.Scheduler
	medium     *phy.Medium
	nodes      map[NodeId]*Node
	nodePlacer *NodeAutoPlacer
	pcap       *pcap.File
	kpiMgr     *KpiManager
	chanStats  map[ChannelId]*channelStats
	shortAddrs map[uint64]uint16
	nextShort  uint16

	taskChan           chan func()
	goDurationChan     chan goDuration
	speed              float64
	speedStartRealTime time.Time
	speedStartTime     uint64
	stopped            bool
}

// NewSimulation creates an empty simulation. ctx may be nil when the simulation is only run with RunFor.
func NewSimulation(ctx *progctx.ProgCtx, cfg *Config) (*Simulation, error) {
	if ctx == nil {
		ctx = progctx.New(nil)
	}
	if cfg.BeaconOrder > 15 || cfg.SuperframeOrder > cfg.BeaconOrder {
		return nil, errors.Errorf("invalid beacon order %d / superframe order %d", cfg.BeaconOrder, cfg.SuperframeOrder)
	}
	if !IsValidChannel(cfg.Channel) {
		return nil, errors.Errorf("invalid channel %d", cfg.Channel)
	}
	prng.Init(cfg.RandomSeed)

	s := &Simulation{
		ctx:            ctx,
		cfg:            cfg,
		sched:          event.NewScheduler(),
		nodes:          map[NodeId]*Node{},
		nodePlacer:     NewNodeAutoPlacer(),
		chanStats:      map[ChannelId]*channelStats{},
		shortAddrs:     map[uint64]uint16{},
		nextShort:      PanCoordinatorShortAddr + 1,
		taskChan:       make(chan func(), 100),
		goDurationChan: make(chan goDuration, 10),
		speed:          normalizeSpeed(cfg.Speed),
	}
	s.medium = phy.NewMedium(s.sched)
	s.medium.Capture = s.capture
	s.medium.Drop = s.dropFrame

	if cfg.PcapType != pcap.FrameTypeOff {
		fn := filepath.Join(cfg.OutputDir, fmt.Sprintf("%d.pcap", cfg.Id))
		pf, err := pcap.NewFile(fn, cfg.PcapType)
		if err != nil {
			return nil, err
		}
		s.pcap = pf
	}
	s.kpiMgr = NewKpiManager()
	s.kpiMgr.Init(s)
	return s, nil
}

func (s *Simulation) Config() *Config {
	return s.cfg
}

// Now returns the simulated time in us.
func (s *Simulation) Now() uint64 {
	return s.sched.Now()
}

func (s *Simulation) Scheduler() *event.Scheduler {
	return s.sched
}

func (s *Simulation) Medium() *phy.Medium {
	return s.medium
}

func (s *Simulation) KpiManager() *KpiManager {
	return s.kpiMgr
}

func (s *Simulation) Pcap() *pcap.File {
	return s.pcap
}

func (s *Simulation) IsStopping() bool {
	return s.ctx.Err() != nil || s.stopped
}

func (s *Simulation) genNodeId() NodeId {
	nodeid := 1
	for s.nodes[nodeid] != nil {
		nodeid++
	}
	return nodeid
}

// NodeConfigFinalize assigns the id, position and random seed a new node did not get from its creator.
func (s *Simulation) NodeConfigFinalize(nodeCfg *NodeConfig) {
	if nodeCfg.ID <= 0 {
		nodeCfg.ID = s.genNodeId()
	}
	if nodeCfg.IsAutoPlaced {
		nodeCfg.X, nodeCfg.Y, nodeCfg.Z = s.nodePlacer.NextNodePosition(nodeCfg.Role == RoleDevice)
		nodeCfg.IsAutoPlaced = false
	}
	if nodeCfg.RandomSeed == 0 {
		nodeCfg.RandomSeed = prng.NewNodeRandomSeed()
	}
}

// AddNode creates a node and starts its role.
func (s *Simulation) AddNode(cfg *NodeConfig) (*Node, error) {
	s.NodeConfigFinalize(cfg)
	if s.nodes[cfg.ID] != nil {
		return nil, errors.Errorf("node %d already exists", cfg.ID)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := newNode(s, cfg)
	s.nodes[cfg.ID] = n
	logger.Debugf("simulation:AddNode: %d, %s at (%d,%d)", cfg.ID, cfg.Role, cfg.X, cfg.Y)
	n.start()
	return n, nil
}

func (s *Simulation) DeleteNode(nodeid NodeId) error {
	n := s.nodes[nodeid]
	if n == nil {
		return errors.Errorf("node %d not found", nodeid)
	}
	n.stop()
	s.medium.RemoveRadio(nodeid)
	delete(s.nodes, nodeid)
	s.kpiMgr.stopNode(nodeid)
	return nil
}

// GetNodes returns the ids of all nodes in ascending order.
func (s *Simulation) GetNodes() []NodeId {
	keys := make([]NodeId, 0, len(s.nodes))
	for id := range s.nodes {
		keys = append(keys, id)
	}
	sort.Ints(keys)
	return keys
}

func (s *Simulation) Nodes() map[NodeId]*Node {
	return s.nodes
}

func (s *Simulation) GetNode(id NodeId) *Node {
	return s.nodes[id]
}

// MoveNode places the radio of node id at x, y.
func (s *Simulation) MoveNode(id NodeId, x, y int) error {
	n := s.nodes[id]
	if n == nil {
		return errors.Errorf("node %d not found", id)
	}
	n.Radio.X, n.Radio.Y = float64(x), float64(y)
	n.cfg.X, n.cfg.Y = x, y
	return nil
}

// allocShortAddr returns the short address of the device devAddr, allocating a new one on its first
// association. Addresses are unique in the whole simulation.
func (s *Simulation) allocShortAddr(devAddr uint64) uint16 {
	if short, ok := s.shortAddrs[devAddr]; ok {
		return short
	}
	short := s.nextShort
	s.nextShort++
	if s.nextShort >= NoShortAddr {
		s.nextShort = PanCoordinatorShortAddr + 1
	}
	s.shortAddrs[devAddr] = short
	return short
}

// nodeByAddress finds the node using address a.
func (s *Simulation) nodeByAddress(a wpan.Address) *Node {
	for _, n := range s.nodes {
		switch a.Mode {
		case wpan.AddrModeShort:
			if n.Mac.Pib().ShortAddress == a.Short {
				return n
			}
		case wpan.AddrModeExtended:
			if n.Mac.ExtAddr == a.Ext {
				return n
			}
		}
	}
	return nil
}

func (s *Simulation) trafficJitter(max uint64) uint64 {
	return prng.NewTrafficJitter(max)
}

// Send makes node src send size bytes to node dst.
func (s *Simulation) Send(src, dst NodeId, size int) error {
	srcNode, dstNode := s.nodes[src], s.nodes[dst]
	if srcNode == nil || dstNode == nil {
		return errors.Errorf("node %d or %d not found", src, dst)
	}
	if size < 0 || size > MaxPhyPacketSize {
		return errors.Errorf("invalid payload size %d", size)
	}
	srcNode.SendTo(dstNode, size)
	return nil
}

func (s *Simulation) capture(ts uint64, channel ChannelId, psdu []byte) {
	cs := s.chanStats[channel]
	if cs == nil {
		cs = &channelStats{}
		s.chanStats[channel] = cs
	}
	cs.txTimeUs += phy.FrameDurationUs(len(psdu))
	cs.numFrames++
	if s.pcap != nil {
		s.pcap.Capture(ts, channel, psdu)
	}
}

func (s *Simulation) dropFrame(src, dst *phy.Radio, psdu []byte) bool {
	return s.cfg.PacketLossRatio > 0 && prng.NewUnitRandom() < s.cfg.PacketLossRatio
}

func (s *Simulation) SetPacketLossRatio(plr float64) {
	if plr < 0 {
		plr = 0
	} else if plr > 1 {
		plr = 1
	}
	s.cfg.PacketLossRatio = plr
}

func (s *Simulation) GetPacketLossRatio() float64 {
	return s.cfg.PacketLossRatio
}

// RunFor runs the simulation for d us on the calling goroutine.
func (s *Simulation) RunFor(d uint64) {
	s.sched.Run(d)
	s.syncOutput()
}

func (s *Simulation) syncOutput() {
	if s.pcap != nil {
		_ = s.pcap.Sync()
	}
}

// Stop closes the outputs. The simulation cannot run afterwards.
func (s *Simulation) Stop() {
	if s.stopped {
		return
	}
	s.kpiMgr.Stop()
	s.stopped = true
	if s.pcap != nil {
		logger.PanicIfError(s.pcap.Close())
		s.pcap = nil
	}
	logger.Debugf("simulation stopped at %d us", s.Now())
}

// Go requests the run loop to advance the simulated time by duration. The channel is closed when done.
func (s *Simulation) Go(duration time.Duration) <-chan struct{} {
	return s.GoAtSpeed(duration, -1)
}

// GoAtSpeed is Go with a speed that only applies to this period.
func (s *Simulation) GoAtSpeed(duration time.Duration, speed float64) <-chan struct{} {
	done := make(chan struct{})
	s.goDurationChan <- goDuration{
		duration: duration,
		speed:    speed,
		done:     done,
	}
	return done
}

// PostAsync runs task on the run loop goroutine. A trivial task is dropped if the task queue is full.
// It returns false if the task was not accepted.
func (s *Simulation) PostAsync(trivial bool, task func()) bool {
	if trivial {
		select {
		case s.taskChan <- task:
			return true
		default:
			return false
		}
	}
	select {
	case s.taskChan <- task:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// Run is the run loop: it executes posted tasks and advances time on request, until ctx is done.
func (s *Simulation) Run() {
	s.ctx.WaitAdd("simulation", 1)
	defer s.ctx.WaitDone("simulation")
	defer logger.Debugf("simulation exit.")
	defer s.Stop()

	done := s.ctx.Done()
loop:
	for {
		select {
		case f := <-s.taskChan:
			f()
		case gd := <-s.goDurationChan:
			s.speedStartRealTime = time.Now()
			s.speedStartTime = s.Now()
			pauseTime := s.Now() + uint64(gd.duration/time.Microsecond)
			if pauseTime > Ever || pauseTime < s.Now() {
				pauseTime = Ever
			}
			speed := s.speed
			if gd.speed >= 0 {
				s.speed = normalizeSpeed(gd.speed)
			}
			s.goUntil(pauseTime)
			if gd.speed >= 0 {
				s.speed = speed
			}
			s.syncOutput()
			close(gd.done)
			if s.ctx.Err() != nil {
				break loop
			}
		case <-done:
			break loop
		}
	}
}

func (s *Simulation) goUntil(pauseTime uint64) {
	for s.Now() < pauseTime {
		s.handleTasks()
		if s.ctx.Err() != nil {
			return
		}

		next := s.sched.NextTimestamp()
		if next > pauseTime {
			next = pauseTime
		}
		if s.speed < MaxSimulateSpeed {
			if target := s.paceTarget(); target < next {
				// too early for the next event in real time: advance the clock only
				s.sched.RunUntil(target)
				continue
			}
		}
		s.sched.RunUntil(next)
	}
}

// paceTarget sleeps a little and returns how far the simulated time may go at the current speed.
func (s *Simulation) paceTarget() uint64 {
	if s.speed <= 0 {
		time.Sleep(time.Millisecond * 10)
		return s.Now()
	}
	elapsed := time.Since(s.speedStartRealTime)
	target := s.speedStartTime + uint64(float64(elapsed/time.Microsecond)*s.speed)
	if target <= s.Now() {
		time.Sleep(time.Millisecond)
		return s.Now()
	}
	return target
}

func (s *Simulation) handleTasks() {
	defer func() {
		err := recover()
		if err != nil {
			logger.Errorf("simulation handle task failed: %+v", err)
		}
	}()

	for {
		select {
		case t := <-s.taskChan:
			t()
		default:
			return
		}
	}
}

func (s *Simulation) SetSpeed(f float64) {
	ns := normalizeSpeed(f)
	if ns == s.speed {
		return
	}
	s.speedStartRealTime = time.Now()
	s.speedStartTime = s.Now()
	s.speed = ns
}

func (s *Simulation) GetSpeed() float64 {
	return s.speed
}

func normalizeSpeed(f float64) float64 {
	if f <= 0 {
		f = 0
	} else if f >= MaxSimulateSpeed {
		f = MaxSimulateSpeed
	}
	return f
}

// SetLogLevel sets the global log level and the level of every node.
func (s *Simulation) SetLogLevel(level logger.Level) {
	s.cfg.LogLevel = level
	logger.SetLevel(level)
	for _, node := range s.nodes {
		node.SetLogLevel(level)
	}
}

func (s *Simulation) GetLogLevel() logger.Level {
	return s.cfg.LogLevel
}
