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

// Package mac implements the IEEE 802.15.4-2003 MAC sublayer: beacon-enabled and non-beacon PANs, slotted
// and unslotted CSMA-CA, guaranteed time slots, direct, indirect and broadcast data transfer, and the MLME
// procedures. A Mac runs on an event.Scheduler and is driven by a PHY through the Radio interface.
package mac

import (
	"math/rand"

	"github.com/openthread/ot-mac/event"
	"github.com/openthread/ot-mac/logger"
	"github.com/openthread/ot-mac/phy"
	"github.com/openthread/ot-mac/wpan"
	. "github.com/openthread/ot-mac/types"
)

// Radio is the PHY service the MAC uses. phy.Radio implements it.
type Radio interface {
	SetListener(l phy.Listener)
	SetTrxState(state phy.TrxState) phy.Status
	Transmit(psdu []byte)
	CCA()
	ED()
	PlmeGet(attr phy.PibAttribute) (phy.Status, uint32)
	PlmeSet(attr phy.PibAttribute, value uint32) phy.Status
	SymbolRate() uint32
	LinkQuality() uint8
}

// Config identifies a MAC interface. Seed feeds the CSMA-CA backoff generator.
type Config struct {
	Id      NodeId
	ExtAddr uint64
	Seed    int64
}

// Mac is one MAC interface. All methods must be called from the scheduler goroutine.
type Mac struct {
	Id      NodeId
	ExtAddr uint64
	Stats   Stats

	log   *logger.NodeLogger
	sched *event.Scheduler
	radio Radio
	upper Upper
	rand  *rand.Rand
	pib   PIB

	// superframes: own beacons, parent beacons, beacons of other coordinators
	sfOwn, sfParent, sfOther   wpan.SuperframeSpec
	coordinator                bool
	panCoordinator             bool
	bcnTxTime                  uint64
	bcnRxTime                  uint64
	bcnOtherRxTime             uint64
	bcnPeriods                 [numCapRefs]uint64
	trackBeacon                bool
	lostBeacons                int
	syncLost                   bool
	beaconWaiting              bool
	bcastSnapshot              int

	procs  map[ProcKind]*procState
	timers [numTimerKinds]*event.Timer

	slots          [numSlots]*outstanding
	waiters        [numSlots][]*outstanding
	ackSlot        SlotKind
	ackPending     bool
	inTransmission bool
	txSlot         SlotKind
	txPkt          []byte
	csma           csma

	devices      DeviceLink
	transactions TransactionLink
	capQueue     []*pendingFrame
	bcastQueue   []*pendingFrame

	gtsOwn, gtsParent, gtsStaging *GtsTable
	gtsRequestPending             *gtsRequestParams
	gtsRequestExhausted           bool
	gtsAnnounced                  map[gtsKey]bool
	pollPending                   *pollParams

	assocCaps map[uint64]wpan.Capability
	lastRx    map[rxKey]uint8
	rxEnabled bool
}

// New creates a MAC interface on radio. upper may be nil and set later with SetUpper.
func New(sched *event.Scheduler, radio Radio, upper Upper, cfg Config) *Mac {
	if upper == nil {
		upper = NopUpper{}
	}
	m := &Mac{
		Id:           cfg.Id,
		ExtAddr:      cfg.ExtAddr,
		log:          logger.NewNodeLogger(cfg.Id, sched.Now),
		sched:        sched,
		radio:        radio,
		upper:        upper,
		rand:         rand.New(rand.NewSource(cfg.Seed)),
		pib:          DefaultPIB(),
		sfOwn:        nonBeaconSuperframe(),
		sfParent:     nonBeaconSuperframe(),
		sfOther:      nonBeaconSuperframe(),
		procs:        map[ProcKind]*procState{},
		gtsOwn:       NewGtsTable(GtsOwn),
		gtsParent:    NewGtsTable(GtsParent),
		gtsStaging:   NewGtsTable(GtsStaging),
		gtsAnnounced: map[gtsKey]bool{},
		assocCaps:    map[uint64]wpan.Capability{},
		lastRx:       map[rxKey]uint8{},
	}
	m.csma.m = m
	radio.SetListener(m)
	m.rxIdle()
	return m
}

func (m *Mac) SetUpper(upper Upper) {
	m.upper = upper
}

func (m *Mac) Logger() *logger.NodeLogger {
	return m.log
}

// Pib returns a copy of the PIB.
func (m *Mac) Pib() PIB {
	return m.pib
}

func (m *Mac) GtsTable(role GtsRole) *GtsTable {
	switch role {
	case GtsOwn:
		return m.gtsOwn
	case GtsParent:
		return m.gtsParent
	default:
		return m.gtsStaging
	}
}

func (m *Mac) Devices() *DeviceLink {
	return &m.devices
}

func (m *Mac) Transactions() *TransactionLink {
	return &m.transactions
}

// Superframe returns the superframe of this coordinator's own beacons.
func (m *Mac) Superframe() wpan.SuperframeSpec {
	return m.sfOwn
}

func (m *Mac) IsCoordinator() bool {
	return m.coordinator
}

func (m *Mac) IsAssociated() bool {
	return m.associated()
}

// MlmeSetRequest is MLME-SET.request.
func (m *Mac) MlmeSetRequest(attr PibAttribute, value interface{}) Status {
	st := m.pib.set(attr, value)
	if st != Success {
		m.log.Debugf("set %s=%v: %s", attr, value, st)
		return st
	}
	switch attr {
	case AttrAssociationPermit:
		m.sfOwn.AssociationPermit = m.pib.AssociationPermit
	case AttrRxOnWhenIdle:
		m.rxIdle()
	}
	return Success
}

// MlmeGetRequest is MLME-GET.request.
func (m *Mac) MlmeGetRequest(attr PibAttribute) (Status, interface{}) {
	return m.pib.get(attr)
}

func (m *Mac) channel() ChannelId {
	_, ch := m.radio.PlmeGet(phy.AttrCurrentChannel)
	return ChannelId(ch)
}

func (m *Mac) setChannel(ch ChannelId) {
	if st := m.radio.PlmeSet(phy.AttrCurrentChannel, uint32(ch)); st != phy.Success {
		m.log.Warnf("set channel %d: %s", ch, st)
	}
}

// Channel returns the current channel of the radio.
func (m *Mac) Channel() ChannelId {
	return m.channel()
}

// ownAddress is the source address of frames sent by this node: the short address when one is assigned.
func (m *Mac) ownAddress() wpan.Address {
	if m.pib.ShortAddress < NoShortAddr {
		return wpan.ShortAddress(m.pib.PANId, m.pib.ShortAddress)
	}
	return wpan.ExtAddress(m.pib.PANId, m.ExtAddr)
}

func (m *Mac) coordAddress() wpan.Address {
	if m.pib.CoordShortAddress < NoShortAddr {
		return wpan.ShortAddress(m.pib.PANId, m.pib.CoordShortAddress)
	}
	return wpan.ExtAddress(m.pib.PANId, m.pib.CoordExtendedAddress)
}

func (m *Mac) isCoordAddr(a wpan.Address) bool {
	switch a.Mode {
	case wpan.AddrModeShort:
		return m.pib.CoordShortAddress < NoShortAddr && a.Short == m.pib.CoordShortAddress
	case wpan.AddrModeExtended:
		return m.pib.CoordExtendedAddress != 0 && a.Ext == m.pib.CoordExtendedAddress
	default:
		return false
	}
}

// associated returns true for a device member of a PAN.
func (m *Mac) associated() bool {
	return !m.coordinator && m.pib.PANId != BroadcastPanId && m.pib.ShortAddress != BroadcastShortAddr
}

// leavePan forgets the PAN and the parent coordinator after a disassociation.
func (m *Mac) leavePan() {
	m.log.Infof("left PAN %04x", m.pib.PANId)
	m.pib.PANId = BroadcastPanId
	m.pib.ShortAddress = BroadcastShortAddr
	m.pib.CoordShortAddress = BroadcastShortAddr
	m.pib.CoordExtendedAddress = 0
	m.sfParent = nonBeaconSuperframe()
	m.trackBeacon, m.lostBeacons, m.syncLost = false, 0, false
	m.cancelTimer(TimerBeaconLoss)
	m.cancelTimer(TimerGtsSlotParent)
	m.gtsParent.Reset()
	m.gtsRequestPending, m.gtsRequestExhausted = nil, false
	m.gtsAnnounced = map[gtsKey]bool{}
	m.pollPending = nil
}

func (m *Mac) newCommand(dst, src wpan.Address, cmd *wpan.Command, ackRequest bool) *wpan.Frame {
	f := wpan.NewFrame(wpan.FrameTypeCommand, m.pib.DSN, dst, src, ackRequest, cmd.Marshal())
	m.pib.DSN++
	return f
}

// rxIdle sets the receiver state between transmissions. The receiver stays on while the node is a
// coordinator, tracks a beacon, has macRxOnWhenIdle or an RX-ENABLE window, or has any transfer or
// procedure in progress.
func (m *Mac) rxIdle() {
	if m.inTransmission || m.csma.inCca {
		return
	}
	state := phy.TrxOff
	if m.wantRx() {
		state = phy.RxOn
	}
	m.radio.SetTrxState(state)
}

func (m *Mac) wantRx() bool {
	if m.pib.RxOnWhenIdle || m.rxEnabled || m.coordinator || m.trackBeacon || m.ackPending ||
		m.ackSlot != SlotNone || len(m.procs) > 0 {
		return true
	}
	for _, o := range m.slots {
		if o != nil {
			return true
		}
	}
	return false
}
