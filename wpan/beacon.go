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

package wpan

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

const (
	MaxGtsDescriptors   = 7
	MaxPendingAddresses = 7
	MaxBeaconPayloadLen = 52
)

// SuperframeSpec is the 16-bit superframe specification field of a beacon.
type SuperframeSpec struct {
	BeaconOrder       uint8
	SuperframeOrder   uint8
	FinalCapSlot      uint8
	BattLifeExt       bool
	PanCoordinator    bool
	AssociationPermit bool
}

func (s SuperframeSpec) Pack() uint16 {
	v := uint16(s.BeaconOrder&0x0f) | uint16(s.SuperframeOrder&0x0f)<<4 | uint16(s.FinalCapSlot&0x0f)<<8
	if s.BattLifeExt {
		v |= 1 << 12
	}
	if s.PanCoordinator {
		v |= 1 << 14
	}
	if s.AssociationPermit {
		v |= 1 << 15
	}
	return v
}

func UnpackSuperframeSpec(v uint16) SuperframeSpec {
	return SuperframeSpec{
		BeaconOrder:       uint8(v & 0x0f),
		SuperframeOrder:   uint8((v >> 4) & 0x0f),
		FinalCapSlot:      uint8((v >> 8) & 0x0f),
		BattLifeExt:       v&(1<<12) != 0,
		PanCoordinator:    v&(1<<14) != 0,
		AssociationPermit: v&(1<<15) != 0,
	}
}

func (s SuperframeSpec) String() string {
	return fmt.Sprintf("BO=%d,SO=%d,FinCAP=%d,BLE=%t,PC=%t,AP=%t", s.BeaconOrder, s.SuperframeOrder,
		s.FinalCapSlot, s.BattLifeExt, s.PanCoordinator, s.AssociationPermit)
}

// GtsDescriptor is one entry of the GTS list of a beacon. A zero StartSlot announces a rejected or
// deallocated GTS.
type GtsDescriptor struct {
	ShortAddr uint16
	StartSlot uint8
	Length    uint8
	RecvOnly  bool
}

type GtsFields struct {
	Permit bool
	List   []GtsDescriptor
}

type PendingAddrs struct {
	Short []uint16
	Ext   []uint64
}

func (p PendingAddrs) Count() int {
	return len(p.Short) + len(p.Ext)
}

func (p PendingAddrs) ContainsShort(a uint16) bool {
	for _, s := range p.Short {
		if s == a {
			return true
		}
	}
	return false
}

func (p PendingAddrs) ContainsExt(a uint64) bool {
	for _, e := range p.Ext {
		if e == a {
			return true
		}
	}
	return false
}

// Beacon is the MAC payload of a beacon frame.
type Beacon struct {
	Superframe SuperframeSpec
	Gts        GtsFields
	Pending    PendingAddrs
	Payload    []byte
}

func (b *Beacon) Marshal() []byte {
	buf := binary.LittleEndian.AppendUint16(nil, b.Superframe.Pack())

	n := len(b.Gts.List)
	if n > MaxGtsDescriptors {
		n = MaxGtsDescriptors
	}
	gtsSpec := uint8(n)
	if b.Gts.Permit {
		gtsSpec |= 0x80
	}
	buf = append(buf, gtsSpec)
	if n > 0 {
		var dirs uint8
		for i := 0; i < n; i++ {
			if b.Gts.List[i].RecvOnly {
				dirs |= 1 << i
			}
		}
		buf = append(buf, dirs)
		for _, d := range b.Gts.List[:n] {
			buf = binary.LittleEndian.AppendUint16(buf, d.ShortAddr)
			buf = append(buf, (d.StartSlot&0x0f)|(d.Length&0x0f)<<4)
		}
	}

	numShort, numExt := len(b.Pending.Short), len(b.Pending.Ext)
	if numShort > MaxPendingAddresses {
		numShort = MaxPendingAddresses
	}
	if numShort+numExt > MaxPendingAddresses {
		numExt = MaxPendingAddresses - numShort
	}
	buf = append(buf, uint8(numShort)|uint8(numExt)<<4)
	for _, s := range b.Pending.Short[:numShort] {
		buf = binary.LittleEndian.AppendUint16(buf, s)
	}
	for _, e := range b.Pending.Ext[:numExt] {
		buf = binary.LittleEndian.AppendUint64(buf, e)
	}
	return append(buf, b.Payload...)
}

func UnmarshalBeacon(data []byte) (*Beacon, error) {
	if len(data) < 4 {
		return nil, errors.Wrapf(ErrFrameTooShort, "beacon payload of %d bytes", len(data))
	}
	b := &Beacon{Superframe: UnpackSuperframeSpec(binary.LittleEndian.Uint16(data))}
	n := 2
	gtsSpec := data[n]
	n++
	b.Gts.Permit = gtsSpec&0x80 != 0
	count := int(gtsSpec & 0x07)
	if count > 0 {
		if len(data) < n+1+3*count {
			return nil, errors.Wrapf(ErrFrameTooShort, "GTS list of %d descriptors", count)
		}
		dirs := data[n]
		n++
		for i := 0; i < count; i++ {
			b.Gts.List = append(b.Gts.List, GtsDescriptor{
				ShortAddr: binary.LittleEndian.Uint16(data[n:]),
				StartSlot: data[n+2] & 0x0f,
				Length:    data[n+2] >> 4,
				RecvOnly:  dirs&(1<<i) != 0,
			})
			n += 3
		}
	}

	if len(data) < n+1 {
		return nil, errors.Wrap(ErrFrameTooShort, "pending address spec")
	}
	pend := data[n]
	n++
	numShort, numExt := int(pend&0x07), int((pend>>4)&0x07)
	if len(data) < n+2*numShort+8*numExt {
		return nil, errors.Wrap(ErrFrameTooShort, "pending address list")
	}
	for i := 0; i < numShort; i++ {
		b.Pending.Short = append(b.Pending.Short, binary.LittleEndian.Uint16(data[n:]))
		n += 2
	}
	for i := 0; i < numExt; i++ {
		b.Pending.Ext = append(b.Pending.Ext, binary.LittleEndian.Uint64(data[n:]))
		n += 8
	}
	if n < len(data) {
		b.Payload = append([]byte(nil), data[n:]...)
	}
	return b, nil
}
