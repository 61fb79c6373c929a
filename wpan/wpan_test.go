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
	"encoding/hex"
	"testing"

	"github.com/pkg/errors"
	"github.com/sigurn/crc16"
	"github.com/stretchr/testify/assert"
)

func TestFcsIsKermit(t *testing.T) {
	assert.Equal(t, uint16(0x2189), crc16.Checksum([]byte("123456789"), fcsTable))
}

func TestEncodeDataFrame(t *testing.T) {
	f := NewFrame(FrameTypeData, 5, ShortAddress(0xface, 0x0001), ShortAddress(0xface, 0x0002), true,
		[]byte("ab"))
	psdu := f.Encode()
	assert.Equal(t, "618805cefa010002006162", hex.EncodeToString(psdu[:len(psdu)-FcsLen]))
	assert.Equal(t, f.Len(), len(psdu))
	assert.True(t, f.FrameControl.PanidCompression())

	dec, err := Decode(psdu)
	assert.Nil(t, err)
	assert.Equal(t, FrameTypeData, dec.Type())
	assert.True(t, dec.FrameControl.AckRequest())
	assert.Equal(t, uint8(5), dec.Seq)
	assert.Equal(t, f.Dst, dec.Dst)
	assert.Equal(t, f.Src, dec.Src)
	assert.Equal(t, []byte("ab"), dec.Payload)
}

func TestDecodeInterPanExtended(t *testing.T) {
	f := NewFrame(FrameTypeCommand, 200, ExtAddress(0x1234, 0x0102030405060708),
		ExtAddress(0xffff, 0x1112131415161718), false, []byte{byte(CmdAssociationRequest), 0x8e})
	psdu := f.Encode()
	assert.False(t, f.FrameControl.PanidCompression())
	assert.Equal(t, 3+2+8+2+8+2+FcsLen, len(psdu))

	dec, err := Decode(psdu)
	assert.Nil(t, err)
	assert.Equal(t, uint16(0xffff), dec.Src.PanId)
	assert.Equal(t, uint64(0x1112131415161718), dec.Src.Ext)
	assert.Equal(t, uint64(0x0102030405060708), dec.Dst.Ext)
}

func TestDecodeErrors(t *testing.T) {
	psdu := NewFrame(FrameTypeData, 1, ShortAddress(1, 2), ShortAddress(1, 3), false, nil).Encode()
	psdu[3] ^= 0xff
	_, err := Decode(psdu)
	assert.Equal(t, ErrBadFcs, errors.Cause(err))

	_, err = Decode([]byte{0x02, 0x00})
	assert.Equal(t, ErrFrameTooShort, errors.Cause(err))

	_, err = Decode(make([]byte, 128))
	assert.Equal(t, ErrFrameTooLong, errors.Cause(err))
}

func TestAck(t *testing.T) {
	psdu := NewAck(0x42, true).Encode()
	assert.Equal(t, AckLen, len(psdu))
	assert.Equal(t, "120042", hex.EncodeToString(psdu[:3]))
	dec, err := Decode(psdu)
	assert.Nil(t, err)
	assert.Equal(t, FrameTypeAck, dec.Type())
	assert.True(t, dec.FrameControl.FramePending())
	assert.Equal(t, uint8(0x42), dec.Seq)
}

func TestSuperframeSpecRoundTrip(t *testing.T) {
	for bo := uint8(0); bo <= 15; bo++ {
		for so := uint8(0); so <= 15; so++ {
			for flags := 0; flags < 8; flags++ {
				s := SuperframeSpec{
					BeaconOrder:       bo,
					SuperframeOrder:   so,
					FinalCapSlot:      (bo + so) & 0x0f,
					BattLifeExt:       flags&1 != 0,
					PanCoordinator:    flags&2 != 0,
					AssociationPermit: flags&4 != 0,
				}
				assert.Equal(t, s, UnpackSuperframeSpec(s.Pack()))
			}
		}
	}
	assert.Equal(t, uint16(0xcf66), SuperframeSpec{6, 6, 15, false, true, true}.Pack())
}

func TestBeaconMarshal(t *testing.T) {
	b := &Beacon{
		Superframe: SuperframeSpec{BeaconOrder: 6, SuperframeOrder: 6, FinalCapSlot: 13, PanCoordinator: true},
		Gts: GtsFields{Permit: true, List: []GtsDescriptor{
			{ShortAddr: 0x0001, StartSlot: 14, Length: 2, RecvOnly: true},
			{ShortAddr: 0x0002, StartSlot: 0, Length: 1},
		}},
		Pending: PendingAddrs{Short: []uint16{0x0003}, Ext: []uint64{0x0a0b0c0d00000004}},
		Payload: []byte{0xaa},
	}
	data := b.Marshal()
	assert.Equal(t, "66 4d 82 01 0100 2e 0200 10 11 0300 040000000d0c0b0a aa",
		spaced(data, 1, 1, 1, 1, 2, 1, 2, 1, 1, 2, 8, 1))

	dec, err := UnmarshalBeacon(data)
	assert.Nil(t, err)
	assert.Equal(t, b, dec)
	assert.True(t, dec.Pending.ContainsShort(3))
	assert.True(t, dec.Pending.ContainsExt(0x0a0b0c0d00000004))
	assert.False(t, dec.Pending.ContainsShort(4))

	_, err = UnmarshalBeacon(data[:6])
	assert.NotNil(t, err)
}

func TestBeaconEmpty(t *testing.T) {
	b := &Beacon{Superframe: SuperframeSpec{BeaconOrder: 15, SuperframeOrder: 15, FinalCapSlot: 15}}
	data := b.Marshal()
	assert.Equal(t, "ff0f0000", hex.EncodeToString(data))
	dec, err := UnmarshalBeacon(data)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(dec.Gts.List))
	assert.Equal(t, 0, dec.Pending.Count())
	assert.Nil(t, dec.Payload)
}

func TestCommands(t *testing.T) {
	cmds := []*Command{
		{Id: CmdAssociationRequest, Capability: DefaultCapability},
		{Id: CmdAssociationResponse, ShortAddr: 0x0010, Status: 0},
		{Id: CmdDisassociation, Reason: 2},
		{Id: CmdDataRequest},
		{Id: CmdPanIdConflict},
		{Id: CmdOrphanNotification},
		{Id: CmdBeaconRequest},
		{Id: CmdCoordRealignment, PanId: 0xface, CoordShortAddr: 0, Channel: 11, ShortAddr: 7},
		{Id: CmdGtsRequest, Gts: GtsCharacteristics{Length: 2, RecvOnly: true, Allocate: true}},
	}
	for _, c := range cmds {
		dec, err := UnmarshalCommand(c.Marshal())
		assert.Nil(t, err, c.Id.String())
		assert.Equal(t, c, dec)
	}
	assert.Equal(t, uint8(0x32), GtsCharacteristics{Length: 2, RecvOnly: true, Allocate: true}.Pack())

	_, err := UnmarshalCommand([]byte{0x0a})
	assert.NotNil(t, err)
	_, err = UnmarshalCommand([]byte{byte(CmdAssociationResponse), 0x01})
	assert.Equal(t, ErrFrameTooShort, errors.Cause(err))
}

// spaced renders data as hex groups of the given byte counts.
func spaced(data []byte, groups ...int) string {
	s := ""
	n := 0
	for i, g := range groups {
		if i > 0 {
			s += " "
		}
		s += hex.EncodeToString(data[n : n+g])
		n += g
	}
	return s
}
