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

package mac

import (
	"github.com/openthread/ot-mac/wpan"
)

type ScanType uint8

const (
	ScanEd ScanType = iota
	ScanActive
	ScanPassive
	ScanOrphan
)

func (t ScanType) String() string {
	switch t {
	case ScanEd:
		return "ed"
	case ScanActive:
		return "active"
	case ScanPassive:
		return "passive"
	case ScanOrphan:
		return "orphan"
	default:
		return "invalid"
	}
}

// TxOptions of MCPS-DATA.request.
type TxOptions uint8

const (
	TxOptAck      TxOptions = 0x01
	TxOptGts      TxOptions = 0x02
	TxOptIndirect TxOptions = 0x04
	TxOptSecurity TxOptions = 0x08
)

// DataRequest holds the parameters of MCPS-DATA.request. Priority is the application priority compared
// against macGtsTriggerPrecedence to select GTS transmission.
type DataRequest struct {
	SrcAddrMode wpan.AddrMode
	Dst         wpan.Address
	Msdu        []byte
	Handle      uint8
	TxOptions   TxOptions
	Priority    uint8
}

type DataIndication struct {
	Src         wpan.Address
	Dst         wpan.Address
	Msdu        []byte
	LinkQuality uint8
	Seq         uint8
}

// PanDescriptor describes a coordinator found by a scan or tracked beacon.
type PanDescriptor struct {
	CoordAddr   wpan.Address
	Channel     uint8
	Superframe  wpan.SuperframeSpec
	GtsPermit   bool
	LinkQuality uint8
	Timestamp   uint64
}

type BeaconNotify struct {
	Bsn     uint8
	Pan     PanDescriptor
	Pending wpan.PendingAddrs
	Payload []byte
}

type ScanResult struct {
	Status            Status
	Type              ScanType
	UnscannedChannels uint32
	EnergyList        []uint8
	PanDescriptors    []PanDescriptor
}

// StartRequest holds the parameters of MLME-START.request.
type StartRequest struct {
	PanId            uint16
	Channel          uint8
	BeaconOrder      uint8
	SuperframeOrder  uint8
	PanCoordinator   bool
	BattLifeExt      bool
	CoordRealignment bool
}

// Upper is the next higher layer: it receives every confirm and indication of the MAC.
type Upper interface {
	McpsDataConfirm(handle uint8, status Status)
	McpsDataIndication(ind *DataIndication)
	McpsPurgeConfirm(handle uint8, status Status)
	MlmeAssociateConfirm(shortAddr uint16, status Status)
	MlmeAssociateIndication(devAddr uint64, capability wpan.Capability)
	MlmeBeaconNotifyIndication(ind *BeaconNotify)
	MlmeCommStatusIndication(panId uint16, src, dst wpan.Address, status Status)
	MlmeDisassociateConfirm(status Status)
	MlmeDisassociateIndication(devAddr uint64, reason uint8)
	MlmeGtsConfirm(gts wpan.GtsCharacteristics, status Status)
	MlmeGtsIndication(devAddr uint16, gts wpan.GtsCharacteristics)
	MlmeOrphanIndication(orphanAddr uint64)
	MlmePollConfirm(status Status)
	MlmeResetConfirm(status Status)
	MlmeRxEnableConfirm(status Status)
	MlmeScanConfirm(res *ScanResult)
	MlmeStartConfirm(status Status)
	MlmeSyncLossIndication(reason Status)

	// PacketDropped is called when a frame is given up after the retries or on queue overflow.
	PacketDropped(handle uint8, dst wpan.Address, status Status)
}

// NopUpper ignores everything. Embed it to implement only part of Upper.
type NopUpper struct{}

func (NopUpper) McpsDataConfirm(handle uint8, status Status) {
}

func (NopUpper) McpsDataIndication(ind *DataIndication) {
}

func (NopUpper) McpsPurgeConfirm(handle uint8, status Status) {
}

func (NopUpper) MlmeAssociateConfirm(shortAddr uint16, status Status) {
}

func (NopUpper) MlmeAssociateIndication(devAddr uint64, capability wpan.Capability) {
}

func (NopUpper) MlmeBeaconNotifyIndication(ind *BeaconNotify) {
}

func (NopUpper) MlmeCommStatusIndication(panId uint16, src, dst wpan.Address, status Status) {
}

func (NopUpper) MlmeDisassociateConfirm(status Status) {
}

func (NopUpper) MlmeDisassociateIndication(devAddr uint64, reason uint8) {
}

func (NopUpper) MlmeGtsConfirm(gts wpan.GtsCharacteristics, status Status) {
}

func (NopUpper) MlmeGtsIndication(devAddr uint16, gts wpan.GtsCharacteristics) {
}

func (NopUpper) MlmeOrphanIndication(orphanAddr uint64) {
}

func (NopUpper) MlmePollConfirm(status Status) {
}

func (NopUpper) MlmeResetConfirm(status Status) {
}

func (NopUpper) MlmeRxEnableConfirm(status Status) {
}

func (NopUpper) MlmeScanConfirm(res *ScanResult) {
}

func (NopUpper) MlmeStartConfirm(status Status) {
}

func (NopUpper) MlmeSyncLossIndication(reason Status) {
}

func (NopUpper) PacketDropped(handle uint8, dst wpan.Address, status Status) {
}
