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

// Package pcap writes the frames put on the simulated medium to a PCAP file, either as plain IEEE 802.15.4
// frames with FCS or wrapped in the wpan-tap pseudo-header that also carries the channel.
package pcap

import (
	"encoding/binary"
	"os"

	"github.com/pkg/errors"

	"github.com/openthread/ot-mac/logger"
	. "github.com/openthread/ot-mac/types"
)

type FrameType int

const (
	FrameTypeOff FrameType = iota
	FrameTypeWpan
	FrameTypeWpanTap
	FrameTypeUnknown
)

const (
	FrameTypeOffStr     string = "off"
	FrameTypeWpanStr    string = "wpan"
	FrameTypeWpanTapStr string = "wpan-tap"
)

const (
	dltIeee802154       = 195
	pcapMagicNumber     = 0xA1B2C3D4
	pcapVersionMajor    = 2
	pcapVersionMinor    = 4
	pcapSnapLen         = 256
	pcapFileHeaderSize  = 24
	pcapFrameHeaderSize = 16
)

// Frame is one PSDU put on the medium. Timestamp is the start of the frame in simulated us.
type Frame struct {
	Timestamp uint64
	Channel   ChannelId
	Lqi       uint8
	Data      []byte
}

// File is an open capture file.
type File struct {
	fd        *os.File
	frameType FrameType
	frames    int
	err       error
}

func ParseFrameTypeStr(tp string) FrameType {
	switch tp {
	case FrameTypeOffStr:
		return FrameTypeOff
	case FrameTypeWpanStr:
		return FrameTypeWpan
	case FrameTypeWpanTapStr:
		return FrameTypeWpanTap
	default:
		return FrameTypeUnknown
	}
}

func (ft FrameType) String() string {
	switch ft {
	case FrameTypeOff:
		return FrameTypeOffStr
	case FrameTypeWpan:
		return FrameTypeWpanStr
	case FrameTypeWpanTap:
		return FrameTypeWpanTapStr
	default:
		return "unknown"
	}
}

// NewFile creates filename and writes the PCAP file header for frameType.
func NewFile(filename string, frameType FrameType) (*File, error) {
	var dlt uint32
	switch frameType {
	case FrameTypeWpan:
		dlt = dltIeee802154
	case FrameTypeWpanTap:
		dlt = dltIeee802154Tap
	default:
		return nil, errors.Errorf("invalid PCAP frame type: %d", frameType)
	}

	fd, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", filename)
	}
	pf := &File{fd: fd, frameType: frameType}
	if err = pf.writeHeader(dlt); err != nil {
		_ = fd.Close()
		return nil, errors.Wrapf(err, "write header of %s", filename)
	}
	return pf, nil
}

func (pf *File) FrameType() FrameType {
	return pf.frameType
}

// Frames returns the number of frames written so far.
func (pf *File) Frames() int {
	return pf.frames
}

// AppendFrame writes one record.
func (pf *File) AppendFrame(frame Frame) error {
	var tap []byte
	if pf.frameType == FrameTypeWpanTap {
		tap = tapHeader(frame)
	}

	var header [pcapFrameHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:4], uint32(frame.Timestamp/1000000))
	binary.LittleEndian.PutUint32(header[4:8], uint32(frame.Timestamp%1000000))
	plen := uint32(len(tap) + len(frame.Data))
	binary.LittleEndian.PutUint32(header[8:12], plen)
	binary.LittleEndian.PutUint32(header[12:16], plen)

	if _, err := pf.fd.Write(header[:]); err != nil {
		return err
	}
	if _, err := pf.fd.Write(tap); err != nil {
		return err
	}
	if _, err := pf.fd.Write(frame.Data); err != nil {
		return err
	}
	pf.frames++
	return nil
}

// Capture appends a frame seen on the medium. It matches phy.CaptureFunc; the first write error is logged
// and kept, and later frames are dropped.
func (pf *File) Capture(ts uint64, channel ChannelId, psdu []byte) {
	if pf.err != nil {
		return
	}
	if err := pf.AppendFrame(Frame{Timestamp: ts, Channel: channel, Data: psdu}); err != nil {
		pf.err = err
		logger.Errorf("pcap: %v", err)
	}
}

// Err returns the error that stopped Capture, if any.
func (pf *File) Err() error {
	return pf.err
}

func (pf *File) Sync() error {
	return pf.fd.Sync()
}

func (pf *File) Close() error {
	return pf.fd.Close()
}

func (pf *File) writeHeader(dlt uint32) error {
	var header [pcapFileHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:4], pcapMagicNumber)
	binary.LittleEndian.PutUint16(header[4:6], pcapVersionMajor)
	binary.LittleEndian.PutUint16(header[6:8], pcapVersionMinor)
	binary.LittleEndian.PutUint32(header[16:20], pcapSnapLen)
	binary.LittleEndian.PutUint32(header[20:24], dlt)
	if _, err := pf.fd.Write(header[:]); err != nil {
		return err
	}
	return pf.fd.Sync()
}
