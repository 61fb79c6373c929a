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

package simulation

import (
	"github.com/pkg/errors"

	"github.com/openthread/ot-mac/event"
	"github.com/openthread/ot-mac/logger"
	"github.com/openthread/ot-mac/mac"
	"github.com/openthread/ot-mac/phy"
	. "github.com/openthread/ot-mac/types"
	"github.com/openthread/ot-mac/wpan"
)

type NodeState int

const (
	StateIdle NodeState = iota
	StateStarting
	StateScanning
	StateSyncing
	StateAssociating
	StateJoined
	StateCoordinating
	StateStopped
)

func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateScanning:
		return "scanning"
	case StateSyncing:
		return "syncing"
	case StateAssociating:
		return "associating"
	case StateJoined:
		return "joined"
	case StateCoordinating:
		return "coordinating"
	case StateStopped:
		return "stopped"
	default:
		return "invalid"
	}
}

// AppStats counts what the SSCS driver of a node did.
type AppStats struct {
	JoinAttempts  uint64
	Joins         uint64
	JoinFailures  uint64
	SyncLosses    uint64
	TxRequested   uint64
	TxSuccess     uint64
	TxFailed      uint64
	TxDropped     uint64
	RxData        uint64
	RxBytes       uint64
	PollsSent     uint64
	PollsWithData uint64
	ChildrenAdded uint64
	GtsGranted    uint64
}

type child struct {
	shortAddr uint16
	sleepy    bool
}

// Node is a simulated node: a MAC interface on a radio plus a small next higher layer that forms or joins
// the PAN, generates traffic and polls for pending data.
type Node struct {
	mac.NopUpper

	Id       NodeId
	S        *Simulation
	Mac      *mac.Mac
	Radio    *phy.Radio
	AppStats AppStats

	cfg      NodeConfig
	log      *logger.NodeLogger
	state    NodeState
	parent   wpan.Address
	channel  ChannelId
	children map[uint64]*child
	handle   uint8
	gtsUp    bool
	bo, so   uint8
	lastScan *mac.ScanResult

	retryTimer   *event.Timer
	syncTimer    *event.Timer
	trafficTimer *event.Timer
	pollTimer    *event.Timer
}

func newNode(s *Simulation, cfg *NodeConfig) *Node {
	n := &Node{
		Id:       cfg.ID,
		S:        s,
		cfg:      *cfg,
		log:      logger.NewNodeLogger(cfg.ID, s.sched.Now),
		children: map[uint64]*child{},
		bo:       s.cfg.BeaconOrder,
		so:       s.cfg.SuperframeOrder,
	}
	n.Radio = s.medium.AddRadio(cfg.ID, phy.RadioConfig{X: cfg.X, Y: cfg.Y, Z: cfg.Z, RadioRange: cfg.RadioRange})
	n.Mac = mac.New(s.sched, n.Radio, n, mac.Config{Id: cfg.ID, ExtAddr: NodeExtAddr(cfg.ID), Seed: cfg.RandomSeed})
	return n
}

// SetLogLevel sets the level of the node's own log and of its MAC.
func (n *Node) SetLogLevel(level logger.Level) {
	n.log.SetLevel(level)
	n.Mac.Logger().SetLevel(level)
}

func (n *Node) LogLevel() logger.Level {
	return n.Mac.Logger().Level()
}

// Counters returns the MAC, radio and application counters of the node.
func (n *Node) Counters() NodeCounters {
	nc := NodeCounters{}
	nc.addStruct("mac.", &n.Mac.Stats)
	nc.addStruct("phy.", &n.Radio.Stats)
	nc.addStruct("app.", &n.AppStats)
	return nc
}

func (n *Node) Config() NodeConfig {
	return n.cfg
}

func (n *Node) State() NodeState {
	return n.state
}

// Parent returns the address of the coordinator the node is associated with.
func (n *Node) Parent() wpan.Address {
	return n.parent
}

// Children returns the short addresses given to associated devices, by extended address.
func (n *Node) Children() map[uint64]uint16 {
	res := make(map[uint64]uint16, len(n.children))
	for ext, c := range n.children {
		res[ext] = c.shortAddr
	}
	return res
}

func (n *Node) start() {
	n.Mac.MlmeResetRequest(true)
	if n.cfg.Role == RolePanCoordinator {
		n.startPan()
	} else {
		n.join()
	}
}

func (n *Node) stop() {
	n.state = StateStopped
	n.cancelTimers()
	n.Mac.SetUpper(mac.NopUpper{})
	n.Mac.MlmeResetRequest(false)
}

func (n *Node) cancelTimers() {
	for _, t := range []*event.Timer{n.retryTimer, n.syncTimer, n.trafficTimer, n.pollTimer} {
		if t != nil {
			t.Cancel()
		}
	}
	n.retryTimer, n.syncTimer, n.trafficTimer, n.pollTimer = nil, nil, nil, nil
}

// Restart resets the MAC and runs the node's role from the beginning.
func (n *Node) Restart() {
	n.cancelTimers()
	n.parent = wpan.Address{}
	n.children = map[uint64]*child{}
	n.gtsUp = false
	n.state = StateIdle
	n.start()
}

func (n *Node) startPan() {
	n.state = StateStarting
	n.setPib(mac.AttrShortAddress, PanCoordinatorShortAddr)
	n.setPib(mac.AttrAssociationPermit, true)
	n.Mac.MlmeStartRequest(mac.StartRequest{
		PanId:           n.S.cfg.PanId,
		Channel:         n.S.cfg.Channel,
		BeaconOrder:     n.bo,
		SuperframeOrder: n.so,
		PanCoordinator:  true,
	})
}

func (n *Node) join() {
	n.state = StateScanning
	n.AppStats.JoinAttempts++
	n.Mac.MlmeScanRequest(mac.ScanActive, n.S.cfg.ScanChannels, n.S.cfg.ScanDuration)
}

func (n *Node) retryLater(what func()) {
	n.state = StateIdle
	if n.retryTimer != nil {
		n.retryTimer.Cancel()
	}
	n.retryTimer = n.S.sched.After(n.S.cfg.AssocRetryUs, func() {
		n.retryTimer = nil
		what()
	})
}

func (n *Node) setPib(attr mac.PibAttribute, value interface{}) {
	st := n.Mac.MlmeSetRequest(attr, value)
	logger.AssertTrue(st == mac.Success, "set %s: %s", attr, st)
}

func (n *Node) capability() wpan.Capability {
	c := wpan.CapAllocateAddr
	if n.cfg.Role == RoleCoordinator {
		c |= wpan.CapFFD | wpan.CapMainsPower | wpan.CapAltPanCoord
	}
	if !n.cfg.RxOffWhenIdle {
		c |= wpan.CapRxOnWhenIdle
	}
	return c
}

// bestPan picks the permitting coordinator with the best link quality.
func bestPan(pds []mac.PanDescriptor) *mac.PanDescriptor {
	var best *mac.PanDescriptor
	for i := range pds {
		pd := &pds[i]
		if !pd.Superframe.AssociationPermit {
			continue
		}
		if best == nil || pd.LinkQuality > best.LinkQuality {
			best = pd
		}
	}
	return best
}

func (n *Node) MlmeScanConfirm(res *mac.ScanResult) {
	n.lastScan = res
	if n.state != StateScanning || res.Type != mac.ScanActive {
		return
	}
	pd := bestPan(res.PanDescriptors)
	if res.Status != mac.Success || pd == nil {
		n.log.Infof("no PAN to join (%s), retrying", res.Status)
		n.AppStats.JoinFailures++
		n.retryLater(n.join)
		return
	}
	n.log.Infof("joining %s on channel %d", pd.CoordAddr, pd.Channel)
	n.parent = pd.CoordAddr
	n.channel = pd.Channel
	n.bo, n.so = pd.Superframe.BeaconOrder, pd.Superframe.SuperframeOrder
	if n.bo == 15 {
		n.associate()
		return
	}

	// beacon-enabled: track the coordinator for one beacon interval before contending in its CAP
	n.state = StateSyncing
	n.setPib(mac.AttrPANId, pd.CoordAddr.PanId)
	if pd.CoordAddr.Mode == wpan.AddrModeShort {
		n.setPib(mac.AttrCoordShortAddress, pd.CoordAddr.Short)
	} else {
		n.setPib(mac.AttrCoordExtendedAddress, pd.CoordAddr.Ext)
	}
	n.Mac.MlmeSyncRequest(pd.Channel, true)
	n.syncTimer = n.S.sched.After(beaconIntervalUs(n.bo)+beaconIntervalUs(0), func() {
		n.syncTimer = nil
		if n.state == StateSyncing {
			n.associate()
		}
	})
}

func beaconIntervalUs(bo uint8) uint64 {
	return uint64(960<<bo) * TimeUsPerSymbol
}

func (n *Node) associate() {
	n.state = StateAssociating
	n.Mac.MlmeAssociateRequest(n.channel, n.parent, n.capability())
}

func (n *Node) MlmeAssociateConfirm(shortAddr uint16, status mac.Status) {
	if n.state != StateAssociating {
		return
	}
	if status != mac.Success {
		n.log.Infof("association failed: %s", status)
		n.AppStats.JoinFailures++
		n.leave()
		n.retryLater(n.join)
		return
	}
	n.AppStats.Joins++
	n.state = StateJoined
	n.log.Infof("joined %s as %04x", n.parent, shortAddr)
	if n.cfg.RxOffWhenIdle {
		n.setPib(mac.AttrRxOnWhenIdle, false)
		n.schedulePoll()
	}
	if n.cfg.Role == RoleCoordinator {
		n.startCoordinator()
	}
	if n.cfg.GtsSlots > 0 && n.bo < 15 {
		n.Mac.MlmeGtsRequest(wpan.GtsCharacteristics{Length: n.cfg.GtsSlots, Allocate: true})
	}
	n.scheduleTraffic(true)
}

func (n *Node) startCoordinator() {
	n.setPib(mac.AttrAssociationPermit, true)
	n.Mac.MlmeStartRequest(mac.StartRequest{
		PanId:           n.parent.PanId,
		Channel:         n.Mac.Channel(),
		BeaconOrder:     n.bo,
		SuperframeOrder: n.so,
	})
}

// leave forgets the parent; the next join starts from a clean MAC.
func (n *Node) leave() {
	if n.syncTimer != nil {
		n.syncTimer.Cancel()
		n.syncTimer = nil
	}
	if n.trafficTimer != nil {
		n.trafficTimer.Cancel()
		n.trafficTimer = nil
	}
	if n.pollTimer != nil {
		n.pollTimer.Cancel()
		n.pollTimer = nil
	}
	n.parent = wpan.Address{}
	n.gtsUp = false
	n.bo, n.so = n.S.cfg.BeaconOrder, n.S.cfg.SuperframeOrder
	n.Mac.MlmeResetRequest(true)
}

func (n *Node) MlmeStartConfirm(status mac.Status) {
	if status != mac.Success {
		n.log.Warnf("start failed: %s", status)
		if n.cfg.Role == RolePanCoordinator {
			n.retryLater(n.startPan)
		}
		return
	}
	if n.cfg.Role == RolePanCoordinator {
		n.state = StateCoordinating
	}
	n.log.Infof("coordinator of PAN %04x, BO %d SO %d", n.Mac.Pib().PANId, n.bo, n.so)
}

func (n *Node) MlmeAssociateIndication(devAddr uint64, capability wpan.Capability) {
	short := n.S.allocShortAddr(devAddr)
	if c := n.children[devAddr]; c == nil {
		n.AppStats.ChildrenAdded++
	}
	n.children[devAddr] = &child{shortAddr: short, sleepy: !capability.Has(wpan.CapRxOnWhenIdle)}
	n.Mac.MlmeAssociateResponse(devAddr, short, mac.Success)
}

func (n *Node) MlmeOrphanIndication(orphanAddr uint64) {
	c := n.children[orphanAddr]
	if c == nil {
		n.Mac.MlmeOrphanResponse(orphanAddr, NoShortAddr, false)
		return
	}
	n.Mac.MlmeOrphanResponse(orphanAddr, c.shortAddr, true)
}

func (n *Node) MlmeDisassociateIndication(devAddr uint64, reason uint8) {
	if _, ok := n.children[devAddr]; ok {
		delete(n.children, devAddr)
		return
	}
	if n.state == StateJoined {
		n.log.Infof("disassociated by coordinator (reason %d)", reason)
		n.leave()
		n.retryLater(n.join)
	}
}

func (n *Node) MlmeSyncLossIndication(reason mac.Status) {
	if n.state != StateSyncing && n.state != StateJoined && n.state != StateAssociating {
		return
	}
	n.AppStats.SyncLosses++
	n.log.Infof("lost coordinator: %s", reason)
	n.leave()
	n.retryLater(n.join)
}

func (n *Node) MlmeGtsConfirm(gts wpan.GtsCharacteristics, status mac.Status) {
	if status == mac.Success && gts.Allocate && !gts.RecvOnly {
		n.gtsUp = true
		n.AppStats.GtsGranted++
	}
}

func (n *Node) MlmeGtsIndication(devAddr uint16, gts wpan.GtsCharacteristics) {
	if devAddr == n.Mac.Pib().ShortAddress && !gts.Allocate && !gts.RecvOnly {
		n.gtsUp = false
	}
}

func (n *Node) McpsDataIndication(ind *mac.DataIndication) {
	n.AppStats.RxData++
	n.AppStats.RxBytes += uint64(len(ind.Msdu))
	n.log.Debugf("data from %s: %d bytes, lqi %d", ind.Src, len(ind.Msdu), ind.LinkQuality)
}

func (n *Node) McpsDataConfirm(handle uint8, status mac.Status) {
	if status == mac.Success {
		n.AppStats.TxSuccess++
	} else {
		n.AppStats.TxFailed++
		n.log.Debugf("data %d: %s", handle, status)
	}
}

func (n *Node) PacketDropped(handle uint8, dst wpan.Address, status mac.Status) {
	n.AppStats.TxDropped++
}

func (n *Node) MlmePollConfirm(status mac.Status) {
	if status == mac.Success {
		n.AppStats.PollsWithData++
	}
}

func (n *Node) scheduleTraffic(first bool) {
	itv := n.cfg.TrafficIntervalUs
	if itv == 0 {
		return
	}
	delay := itv
	if first {
		delay = itv/2 + n.S.trafficJitter(itv)
	}
	n.trafficTimer = n.S.sched.After(delay, func() {
		n.trafficTimer = nil
		if n.state != StateJoined {
			return
		}
		n.sendToParent()
		n.scheduleTraffic(false)
	})
}

func (n *Node) schedulePoll() {
	n.pollTimer = n.S.sched.After(n.cfg.PollIntervalUs, func() {
		n.pollTimer = nil
		if n.state != StateJoined {
			return
		}
		n.AppStats.PollsSent++
		n.Mac.MlmePollRequest(n.parent)
		n.schedulePoll()
	})
}

// Scan starts a scan outside of joining. The result is available from LastScan when it completes.
func (n *Node) Scan(typ mac.ScanType, channels uint32, duration uint8) {
	n.lastScan = nil
	n.Mac.MlmeScanRequest(typ, channels, duration)
}

func (n *Node) LastScan() *mac.ScanResult {
	return n.lastScan
}

// Poll requests pending data from the coordinator once.
func (n *Node) Poll() error {
	if n.state != StateJoined {
		return errors.Errorf("node %d is not associated", n.Id)
	}
	n.AppStats.PollsSent++
	n.Mac.MlmePollRequest(n.parent)
	return nil
}

// RequestGts asks the PAN coordinator to allocate or deallocate a GTS.
func (n *Node) RequestGts(gc wpan.GtsCharacteristics) error {
	if n.state != StateJoined {
		return errors.Errorf("node %d is not associated", n.Id)
	}
	if n.bo == 15 {
		return errors.Errorf("node %d is in a nonbeacon-enabled PAN", n.Id)
	}
	n.Mac.MlmeGtsRequest(gc)
	return nil
}

func (n *Node) nextHandle() uint8 {
	n.handle++
	return n.handle
}

func (n *Node) payload(size int) []byte {
	p := make([]byte, size)
	for i := range p {
		p[i] = byte(n.AppStats.TxRequested + uint64(i))
	}
	return p
}

func (n *Node) sendToParent() {
	opts := mac.TxOptAck
	if n.gtsUp {
		opts |= mac.TxOptGts
	}
	n.send(n.parent, n.payload(n.cfg.PayloadLen), opts)
}

// SendTo sends size bytes to the node dst. A coordinator sends to a sleepy child indirectly.
func (n *Node) SendTo(dst *Node, size int) {
	opts := mac.TxOptAck
	if c := n.children[dst.Mac.ExtAddr]; c != nil && c.sleepy {
		opts |= mac.TxOptIndirect
	}
	n.send(dst.address(n.Mac.Pib().PANId), n.payload(size), opts)
}

// Broadcast sends size bytes to every node in range.
func (n *Node) Broadcast(size int) {
	n.send(wpan.ShortAddress(n.Mac.Pib().PANId, BroadcastShortAddr), n.payload(size), 0)
}

func (n *Node) send(dst wpan.Address, msdu []byte, opts mac.TxOptions) {
	srcMode := wpan.AddrModeShort
	if n.Mac.Pib().ShortAddress >= NoShortAddr {
		srcMode = wpan.AddrModeExtended
	}
	n.AppStats.TxRequested++
	n.Mac.McpsDataRequest(&mac.DataRequest{
		SrcAddrMode: srcMode,
		Dst:         dst,
		Msdu:        msdu,
		Handle:      n.nextHandle(),
		TxOptions:   opts,
		Priority:    n.cfg.Priority,
	})
}

// address returns the address other nodes use to reach n.
func (n *Node) address(panId uint16) wpan.Address {
	if short := n.Mac.Pib().ShortAddress; short < NoShortAddr {
		return wpan.ShortAddress(panId, short)
	}
	return wpan.ExtAddress(panId, n.Mac.ExtAddr)
}
