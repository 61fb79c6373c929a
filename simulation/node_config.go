// Copyright (c) 2020-2026, The OTNS Authors.
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

	. "github.com/openthread/ot-mac/types"
)

// NodeRole selects what the SSCS driver of a node does after it starts.
type NodeRole int

const (
	// RolePanCoordinator starts the PAN.
	RolePanCoordinator NodeRole = iota
	// RoleCoordinator joins the PAN, then sends beacons of its own and accepts children.
	RoleCoordinator
	// RoleDevice joins the PAN.
	RoleDevice
)

const (
	RolePanCoordinatorStr = "pan"
	RoleCoordinatorStr    = "coord"
	RoleDeviceStr         = "dev"
)

func ParseNodeRole(s string) (NodeRole, error) {
	switch s {
	case RolePanCoordinatorStr, "pancoord":
		return RolePanCoordinator, nil
	case RoleCoordinatorStr, "coordinator":
		return RoleCoordinator, nil
	case RoleDeviceStr, "device":
		return RoleDevice, nil
	default:
		return RoleDevice, errors.Errorf("unknown node role: %s", s)
	}
}

func (r NodeRole) String() string {
	switch r {
	case RolePanCoordinator:
		return RolePanCoordinatorStr
	case RoleCoordinator:
		return RoleCoordinatorStr
	case RoleDevice:
		return RoleDeviceStr
	default:
		return "invalid"
	}
}

// NodeConfig is the configuration of one simulated node.
type NodeConfig struct {
	ID           NodeId
	Role         NodeRole
	X, Y, Z      int
	IsAutoPlaced bool
	RadioRange   int

	// RxOffWhenIdle makes a sleepy device: its receiver is off when idle and it polls its coordinator
	// every PollIntervalUs.
	RxOffWhenIdle  bool
	PollIntervalUs uint64

	// Periodic traffic to the coordinator. A zero interval disables it.
	TrafficIntervalUs uint64
	PayloadLen        int
	Priority          uint8

	// GtsSlots is the length of the transmit GTS requested after joining a beacon-enabled PAN.
	GtsSlots uint8

	RandomSeed int64
}

func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		ID:                -1, // < 0 for the next available nodeid
		Role:              RoleDevice,
		IsAutoPlaced:      true,
		RadioRange:        DefaultRadioRange,
		PollIntervalUs:    DefaultPollIntervalUs,
		TrafficIntervalUs: 0,
		PayloadLen:        DefaultPayloadLen,
		RandomSeed:        0, // 0 means a seed from the simulation's generator.
	}
}

// Validate checks the values a user can set.
func (cfg *NodeConfig) Validate() error {
	if cfg.ID > MaxNodeId {
		return errors.Errorf("node id %d out of range", cfg.ID)
	}
	if cfg.RadioRange < 0 {
		return errors.Errorf("invalid radio range %d", cfg.RadioRange)
	}
	if cfg.PayloadLen < 0 || cfg.PayloadLen > MaxPhyPacketSize {
		return errors.Errorf("invalid payload length %d", cfg.PayloadLen)
	}
	if cfg.RxOffWhenIdle && cfg.Role != RoleDevice {
		return errors.Errorf("a %s node cannot be sleepy", cfg.Role)
	}
	if cfg.RxOffWhenIdle && cfg.PollIntervalUs == 0 {
		return errors.Errorf("a sleepy node needs a poll interval")
	}
	if cfg.GtsSlots > 15 {
		return errors.Errorf("invalid GTS length %d", cfg.GtsSlots)
	}
	return nil
}

type NodeAutoPlacer struct {
	X, Y, Z         int
	Xref, Yref      int
	Xmax            int
	NodeDeltaCoarse int
	NodeDeltaFine   int
	fineCount       int
	isReset         bool
}

func NewNodeAutoPlacer() *NodeAutoPlacer {
	return &NodeAutoPlacer{
		Xref:            100,
		Yref:            100,
		Xmax:            1450,
		X:               100,
		Y:               100,
		NodeDeltaCoarse: 100,
		NodeDeltaFine:   40,
		isReset:         true,
	}
}

// UpdateReference updates the reference position of the NodeAutoPlacer to 'x', 'y'. It starts placing from there.
func (nap *NodeAutoPlacer) UpdateReference(x, y, z int) {
	nap.Xref = x
	nap.X = x
	nap.Yref = y
	nap.Y = y
	nap.Z = z
	nap.isReset = false
}

// NextNodePosition picks the position of a new node. Coordinators are placed on a coarse grid; devices
// are placed in rows below the last coordinator.
func (nap *NodeAutoPlacer) NextNodePosition(isBelowParent bool) (int, int, int) {
	var x, y int
	if isBelowParent {
		fineCountCol := nap.fineCount % 16
		fineCountRow := nap.fineCount / 16
		y = nap.Y + (nap.NodeDeltaCoarse/2)*(fineCountRow+1)
		x = nap.X + (fineCountCol*nap.NodeDeltaFine - nap.NodeDeltaFine)
		nap.fineCount++
	} else {
		if !nap.isReset {
			nap.X += nap.NodeDeltaCoarse
			if nap.X > nap.Xmax {
				nap.X = nap.Xref
				nap.Y += nap.NodeDeltaCoarse
			}
		}
		nap.isReset = false
		nap.fineCount = 0
		x = nap.X
		y = nap.Y
	}
	return x, y, nap.Z
}

// ReuseNextNodePosition makes the next call for a coordinator return the last coordinator position again.
func (nap *NodeAutoPlacer) ReuseNextNodePosition() {
	nap.isReset = true
}
