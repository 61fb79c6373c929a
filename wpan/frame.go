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
	"github.com/sigurn/crc16"

	"github.com/openthread/ot-mac/types"
)

type FrameType uint8

const (
	FrameTypeBeacon  FrameType = 0
	FrameTypeData    FrameType = 1
	FrameTypeAck     FrameType = 2
	FrameTypeCommand FrameType = 3
)

func (t FrameType) String() string {
	switch t {
	case FrameTypeBeacon:
		return "BCN"
	case FrameTypeData:
		return "DATA"
	case FrameTypeAck:
		return "ACK"
	case FrameTypeCommand:
		return "CMD"
	default:
		return fmt.Sprintf("TYPE%d", uint8(t))
	}
}

type AddrMode uint8

// Values for both Src and Dst addressing modes, Table 3, 802.15.4-2003.
const (
	AddrModeNone     AddrMode = 0
	AddrModeReserved AddrMode = 1
	AddrModeShort    AddrMode = 2
	AddrModeExtended AddrMode = 3
)

const (
	FcsLen     = 2
	AckLen     = 5
	MaxMhrLen  = 23
	MaxPayload = types.MaxPhyPacketSize - MaxMhrLen - FcsLen
)

var (
	ErrFrameTooShort = errors.New("frame too short")
	ErrFrameTooLong  = errors.New("frame too long")
	ErrBadFcs        = errors.New("bad FCS")
	ErrBadAddrMode   = errors.New("reserved addressing mode")

	fcsTable = crc16.MakeTable(crc16.CRC16_KERMIT)
)

type FrameControl uint16

const (
	fcTypeMask        FrameControl = 0x0007
	fcSecurity        FrameControl = 0x0008
	fcFramePending    FrameControl = 0x0010
	fcAckRequest      FrameControl = 0x0020
	fcPanidCompress   FrameControl = 0x0040
	fcDstAddrModeMask FrameControl = 0x0c00
	fcVersionMask     FrameControl = 0x3000
	fcSrcAddrModeMask FrameControl = 0xc000
)

func (fc FrameControl) String() string {
	return fmt.Sprintf("0x%04x", uint16(fc))
}

func (fc FrameControl) FrameType() FrameType {
	return FrameType(fc & fcTypeMask)
}

func (fc FrameControl) SecurityEnabled() bool {
	return (fc & fcSecurity) != 0
}

func (fc FrameControl) FramePending() bool {
	return (fc & fcFramePending) != 0
}

func (fc FrameControl) AckRequest() bool {
	return (fc & fcAckRequest) != 0
}

func (fc FrameControl) PanidCompression() bool {
	return (fc & fcPanidCompress) != 0
}

func (fc FrameControl) DestAddrMode() AddrMode {
	return AddrMode((fc & fcDstAddrModeMask) >> 10)
}

func (fc FrameControl) SourceAddrMode() AddrMode {
	return AddrMode((fc & fcSrcAddrModeMask) >> 14)
}

func (fc FrameControl) FrameVersion() uint16 {
	return uint16((fc & fcVersionMask) >> 12)
}

func (fc *FrameControl) set(mask FrameControl, on bool) {
	if on {
		*fc |= mask
	} else {
		*fc &^= mask
	}
}

func (fc *FrameControl) SetFrameType(t FrameType) {
	*fc = (*fc &^ fcTypeMask) | FrameControl(t)&fcTypeMask
}

func (fc *FrameControl) SetSecurityEnabled(on bool) {
	fc.set(fcSecurity, on)
}

func (fc *FrameControl) SetFramePending(on bool) {
	fc.set(fcFramePending, on)
}

func (fc *FrameControl) SetAckRequest(on bool) {
	fc.set(fcAckRequest, on)
}

func (fc *FrameControl) setAddrModes(dst, src AddrMode) {
	*fc = (*fc &^ (fcDstAddrModeMask | fcSrcAddrModeMask)) |
		FrameControl(dst&0x3)<<10 | FrameControl(src&0x3)<<14
}

// Address is a PAN-relative 16 or 64 bit address, or no address at all.
type Address struct {
	Mode  AddrMode
	PanId uint16
	Short uint16
	Ext   uint64
}

func ShortAddress(panId, short uint16) Address {
	return Address{Mode: AddrModeShort, PanId: panId, Short: short}
}

func ExtAddress(panId uint16, ext uint64) Address {
	return Address{Mode: AddrModeExtended, PanId: panId, Ext: ext}
}

// IsBroadcast returns true for the 16-bit broadcast address 0xffff.
func (a Address) IsBroadcast() bool {
	return a.Mode == AddrModeShort && a.Short == types.BroadcastShortAddr
}

// SameNode compares the mode and the address, ignoring the PAN id.
func (a Address) SameNode(b Address) bool {
	if a.Mode != b.Mode {
		return false
	}
	switch a.Mode {
	case AddrModeShort:
		return a.Short == b.Short
	case AddrModeExtended:
		return a.Ext == b.Ext
	default:
		return true
	}
}

func (a Address) String() string {
	switch a.Mode {
	case AddrModeShort:
		return fmt.Sprintf("%04x/%04x", a.PanId, a.Short)
	case AddrModeExtended:
		return fmt.Sprintf("%04x/%016x", a.PanId, a.Ext)
	default:
		return "-"
	}
}

func (a Address) len() int {
	switch a.Mode {
	case AddrModeShort:
		return 2
	case AddrModeExtended:
		return 8
	default:
		return 0
	}
}

// Frame is a decoded MAC frame: header fields plus the undecoded MAC payload.
type Frame struct {
	FrameControl FrameControl
	Seq          uint8
	Dst          Address
	Src          Address
	Payload      []byte
}

func (f *Frame) Type() FrameType {
	return f.FrameControl.FrameType()
}

// Len returns the encoded frame length in bytes, including the FCS.
func (f *Frame) Len() int {
	if f.Type() == FrameTypeAck {
		return AckLen
	}
	n := 3 + len(f.Payload) + FcsLen
	if f.Dst.Mode != AddrModeNone {
		n += 2 + f.Dst.len()
	}
	if f.Src.Mode != AddrModeNone {
		n += f.Src.len()
		if !f.intraPan() {
			n += 2
		}
	}
	return n
}

func (f *Frame) intraPan() bool {
	return f.Dst.Mode != AddrModeNone && f.Src.Mode != AddrModeNone && f.Dst.PanId == f.Src.PanId
}

func (f *Frame) String() string {
	if f.Type() == FrameTypeAck {
		return fmt.Sprintf("ACK,FC:%s,Seq:%d", f.FrameControl, f.Seq)
	}
	return fmt.Sprintf("%s,FC:%s,Seq:%d,Src:%s,Dst:%s,Len:%d", f.Type(), f.FrameControl, f.Seq, f.Src, f.Dst,
		f.Len())
}

// Encode serializes the frame including its FCS. The addressing-mode and intra-PAN bits of the frame control
// field are derived from the Dst and Src addresses.
func (f *Frame) Encode() []byte {
	if f.Type() == FrameTypeAck {
		f.Dst, f.Src = Address{}, Address{}
	}
	f.FrameControl.setAddrModes(f.Dst.Mode, f.Src.Mode)
	f.FrameControl.set(fcPanidCompress, f.intraPan())

	buf := make([]byte, 0, f.Len())
	buf = binary.LittleEndian.AppendUint16(buf, uint16(f.FrameControl))
	buf = append(buf, f.Seq)
	if f.Dst.Mode != AddrModeNone {
		buf = binary.LittleEndian.AppendUint16(buf, f.Dst.PanId)
		buf = appendAddr(buf, f.Dst)
	}
	if f.Src.Mode != AddrModeNone {
		if !f.intraPan() {
			buf = binary.LittleEndian.AppendUint16(buf, f.Src.PanId)
		}
		buf = appendAddr(buf, f.Src)
	}
	buf = append(buf, f.Payload...)
	return binary.LittleEndian.AppendUint16(buf, crc16.Checksum(buf, fcsTable))
}

func appendAddr(buf []byte, a Address) []byte {
	if a.Mode == AddrModeShort {
		return binary.LittleEndian.AppendUint16(buf, a.Short)
	}
	return binary.LittleEndian.AppendUint64(buf, a.Ext)
}

// Decode parses a PSDU, verifying the FCS.
func Decode(psdu []byte) (*Frame, error) {
	if len(psdu) < AckLen {
		return nil, errors.Wrapf(ErrFrameTooShort, "%d bytes", len(psdu))
	}
	if len(psdu) > types.MaxPhyPacketSize {
		return nil, errors.Wrapf(ErrFrameTooLong, "%d bytes", len(psdu))
	}
	body := psdu[:len(psdu)-FcsLen]
	if fcs := binary.LittleEndian.Uint16(psdu[len(body):]); fcs != crc16.Checksum(body, fcsTable) {
		return nil, errors.Wrapf(ErrBadFcs, "got 0x%04x", fcs)
	}

	f := &Frame{}
	f.FrameControl = FrameControl(binary.LittleEndian.Uint16(body))
	f.Seq = body[2]
	n := 3
	if f.Type() == FrameTypeAck {
		return f, nil
	}

	var err error
	dam, sam := f.FrameControl.DestAddrMode(), f.FrameControl.SourceAddrMode()
	if dam == AddrModeReserved || sam == AddrModeReserved {
		return nil, ErrBadAddrMode
	}
	if dam != AddrModeNone {
		f.Dst.Mode = dam
		if f.Dst.PanId, n, err = readUint16(body, n); err != nil {
			return nil, err
		}
		if n, err = readAddr(body, n, &f.Dst); err != nil {
			return nil, err
		}
	}
	if sam != AddrModeNone {
		f.Src.Mode = sam
		if f.FrameControl.PanidCompression() {
			f.Src.PanId = f.Dst.PanId
		} else if f.Src.PanId, n, err = readUint16(body, n); err != nil {
			return nil, err
		}
		if n, err = readAddr(body, n, &f.Src); err != nil {
			return nil, err
		}
	}
	f.Payload = append([]byte(nil), body[n:]...)
	return f, nil
}

func readUint16(b []byte, n int) (uint16, int, error) {
	if len(b) < n+2 {
		return 0, n, errors.Wrapf(ErrFrameTooShort, "at offset %d", n)
	}
	return binary.LittleEndian.Uint16(b[n:]), n + 2, nil
}

func readAddr(b []byte, n int, a *Address) (int, error) {
	var err error
	if a.Mode == AddrModeShort {
		a.Short, n, err = readUint16(b, n)
		return n, err
	}
	if len(b) < n+8 {
		return n, errors.Wrapf(ErrFrameTooShort, "at offset %d", n)
	}
	a.Ext = binary.LittleEndian.Uint64(b[n:])
	return n + 8, nil
}

// NewAck creates an acknowledgement frame for sequence number seq.
func NewAck(seq uint8, framePending bool) *Frame {
	f := &Frame{Seq: seq}
	f.FrameControl.SetFrameType(FrameTypeAck)
	f.FrameControl.SetFramePending(framePending)
	return f
}

// NewFrame creates a frame of type t between src and dst.
func NewFrame(t FrameType, seq uint8, dst, src Address, ackRequest bool, payload []byte) *Frame {
	f := &Frame{Seq: seq, Dst: dst, Src: src, Payload: payload}
	f.FrameControl.SetFrameType(t)
	f.FrameControl.SetAckRequest(ackRequest)
	return f
}
