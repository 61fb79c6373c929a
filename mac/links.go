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
	. "github.com/openthread/ot-mac/types"
)

type frameKind uint8

const (
	kindData frameKind = iota
	kindAssocResponse
	kindDisassociation
)

// pendingFrame is an outbound frame waiting in a queue or in the transaction link.
type pendingFrame struct {
	kind   frameKind
	frame  *wpan.Frame
	handle uint8
	expiry uint64

	// association response only
	status    Status
	shortAddr uint16
}

// Device is a child registered in the Device Link.
type Device struct {
	ExtAddr    uint64
	ShortAddr  uint16
	Capability wpan.Capability
	Missed     int
}

// Sleepy returns true for a child that turns its receiver off when idle.
func (d *Device) Sleepy() bool {
	return !d.Capability.Has(wpan.CapRxOnWhenIdle)
}

func (d *Device) matches(a wpan.Address) bool {
	switch a.Mode {
	case wpan.AddrModeShort:
		return a.Short == d.ShortAddr && d.ShortAddr < NoShortAddr
	case wpan.AddrModeExtended:
		return a.Ext == d.ExtAddr
	default:
		return false
	}
}

// DeviceLink is the list of children of a coordinator, in registration order.
type DeviceLink struct {
	devices []*Device
}

func (dl *DeviceLink) Len() int {
	return len(dl.devices)
}

func (dl *DeviceLink) Devices() []*Device {
	return dl.devices
}

// Add registers a child, updating an existing entry with the same extended address.
func (dl *DeviceLink) Add(ext uint64, short uint16, capability wpan.Capability) *Device {
	if d := dl.Find(wpan.ExtAddress(0, ext)); d != nil {
		d.ShortAddr, d.Capability, d.Missed = short, capability, 0
		return d
	}
	d := &Device{ExtAddr: ext, ShortAddr: short, Capability: capability}
	dl.devices = append(dl.devices, d)
	return d
}

func (dl *DeviceLink) Find(a wpan.Address) *Device {
	for _, d := range dl.devices {
		if d.matches(a) {
			return d
		}
	}
	return nil
}

func (dl *DeviceLink) Remove(d *Device) bool {
	for i, o := range dl.devices {
		if o == d {
			dl.devices = append(dl.devices[:i], dl.devices[i+1:]...)
			return true
		}
	}
	return false
}

func (dl *DeviceLink) Clear() {
	dl.devices = nil
}

// TransactionLink holds the frames waiting for indirect transmission, in FIFO order.
type TransactionLink struct {
	items []*pendingFrame
}

func (tl *TransactionLink) Len() int {
	return len(tl.items)
}

// Add appends pf; false when the link is at capacity.
func (tl *TransactionLink) Add(pf *pendingFrame) bool {
	if len(tl.items) >= transactionCapacity {
		return false
	}
	tl.items = append(tl.items, pf)
	return true
}

// First returns the oldest transaction for destination a.
func (tl *TransactionLink) First(a wpan.Address) *pendingFrame {
	for _, pf := range tl.items {
		if pf.frame.Dst.SameNode(a) {
			return pf
		}
	}
	return nil
}

// CountFor returns the number of transactions for destination a.
func (tl *TransactionLink) CountFor(a wpan.Address) int {
	n := 0
	for _, pf := range tl.items {
		if pf.frame.Dst.SameNode(a) {
			n++
		}
	}
	return n
}

func (tl *TransactionLink) Remove(pf *pendingFrame) bool {
	for i, o := range tl.items {
		if o == pf {
			tl.items = append(tl.items[:i], tl.items[i+1:]...)
			return true
		}
	}
	return false
}

// FindHandle returns the data transaction with the given MSDU handle.
func (tl *TransactionLink) FindHandle(handle uint8) *pendingFrame {
	for _, pf := range tl.items {
		if pf.kind == kindData && pf.handle == handle {
			return pf
		}
	}
	return nil
}

// Expire removes and returns the transactions whose deadline passed at now.
func (tl *TransactionLink) Expire(now uint64) []*pendingFrame {
	var expired []*pendingFrame
	kept := tl.items[:0]
	for _, pf := range tl.items {
		if pf.expiry <= now {
			expired = append(expired, pf)
		} else {
			kept = append(kept, pf)
		}
	}
	for i := len(kept); i < len(tl.items); i++ {
		tl.items[i] = nil
	}
	tl.items = kept
	return expired
}

// NextExpiry returns the earliest deadline, or Ever.
func (tl *TransactionLink) NextExpiry() uint64 {
	next := Ever
	for _, pf := range tl.items {
		if pf.expiry < next {
			next = pf.expiry
		}
	}
	return next
}

// PendingAddrs lists the destinations with transactions, short addresses first, at most 7 in total.
func (tl *TransactionLink) PendingAddrs() wpan.PendingAddrs {
	var p wpan.PendingAddrs
	for _, pf := range tl.items {
		if p.Count() >= wpan.MaxPendingAddresses {
			break
		}
		dst := pf.frame.Dst
		switch {
		case dst.Mode == wpan.AddrModeShort && !p.ContainsShort(dst.Short):
			p.Short = append(p.Short, dst.Short)
		case dst.Mode == wpan.AddrModeExtended && !p.ContainsExt(dst.Ext):
			p.Ext = append(p.Ext, dst.Ext)
		}
	}
	return p
}

func (tl *TransactionLink) Clear() {
	tl.items = nil
}
