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

package pcap

import "encoding/binary"

// wpan-tap (DLT 283) per https://gitlab.com/exegin/ieee802-15-4-tap
const (
	dltIeee802154Tap = 283
	tapHeaderSize    = 4 + 8 + 8 + 8
)

const (
	tlvFcsType           = 0
	tlvChannelAssignment = 3
	tlvLqi               = 10
)

const fcsType16 = 1

// tapHeader returns the wpan-tap header: the FCS type, the channel and the link quality.
func tapHeader(frame Frame) []byte {
	hdr := make([]byte, 4, tapHeaderSize)
	binary.LittleEndian.PutUint16(hdr[2:4], tapHeaderSize)
	hdr = appendTlv(hdr, tlvFcsType, []byte{fcsType16})
	// channel number, page 0
	hdr = appendTlv(hdr, tlvChannelAssignment, []byte{frame.Channel, 0, 0})
	hdr = appendTlv(hdr, tlvLqi, []byte{frame.Lqi})
	return hdr
}

// appendTlv appends a TLV whose value is padded to a multiple of 4 bytes.
func appendTlv(b []byte, typ uint16, value []byte) []byte {
	var th [4]byte
	binary.LittleEndian.PutUint16(th[0:2], typ)
	binary.LittleEndian.PutUint16(th[2:4], uint16(len(value)))
	b = append(b, th[:]...)
	b = append(b, value...)
	for i := len(value); i%4 != 0; i++ {
		b = append(b, 0)
	}
	return b
}
