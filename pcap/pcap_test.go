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

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPcapFile(t *testing.T) {
	pcapFilename := filepath.Join(t.TempDir(), "test.pcap")
	pcap, err := NewFile(pcapFilename, FrameTypeWpan)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = pcap.Close()
	}()

	assert.Equal(t, pcapFileHeaderSize, getFileSize(t, pcapFilename))

	for i := 0; i < 10; i++ {
		pcap.Capture(uint64(i)*1000, 12, []byte{0x12, 0x10, 0xa6, 0x80, 0x65})
		if err = pcap.Sync(); err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, pcapFileHeaderSize+(pcapFrameHeaderSize+5)*(i+1), getFileSize(t, pcapFilename))
	}
	assert.Nil(t, pcap.Err())
	assert.Equal(t, 10, pcap.Frames())

	data, err := os.ReadFile(pcapFilename)
	assert.Nil(t, err)
	assert.Equal(t, uint32(pcapMagicNumber), binary.LittleEndian.Uint32(data[0:4]))
	assert.Equal(t, uint32(dltIeee802154), binary.LittleEndian.Uint32(data[20:24]))
	// second record: 1 ms
	rec := data[pcapFileHeaderSize+pcapFrameHeaderSize+5:]
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(rec[0:4]))
	assert.Equal(t, uint32(1000), binary.LittleEndian.Uint32(rec[4:8]))
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(rec[8:12]))
}

func TestPcapTapFile(t *testing.T) {
	pcapFilename := filepath.Join(t.TempDir(), "test_tap.pcap")
	pcap, err := NewFile(pcapFilename, FrameTypeWpanTap)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = pcap.Close()
	}()

	for i := 0; i < 10; i++ {
		err = pcap.AppendFrame(Frame{
			Timestamp: uint64(i) * 1000,
			Channel:   uint8(i + 11),
			Lqi:       255,
			Data:      []byte{0x12, 0x10, 0x30, 0x3f, 0x94},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if err = pcap.Sync(); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, pcapFileHeaderSize+(pcapFrameHeaderSize+tapHeaderSize+5)*10, getFileSize(t, pcapFilename))

	data, err := os.ReadFile(pcapFilename)
	assert.Nil(t, err)
	assert.Equal(t, uint32(dltIeee802154Tap), binary.LittleEndian.Uint32(data[20:24]))
	tap := data[pcapFileHeaderSize+pcapFrameHeaderSize:]
	assert.Equal(t, uint16(tapHeaderSize), binary.LittleEndian.Uint16(tap[2:4]))
	// channel assignment TLV follows the FCS type TLV
	assert.Equal(t, uint16(tlvChannelAssignment), binary.LittleEndian.Uint16(tap[12:14]))
	assert.Equal(t, uint8(11), tap[16])
}

func TestNewFileInvalid(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "x.pcap"), FrameTypeOff)
	assert.NotNil(t, err)
	_, err = NewFile(filepath.Join(t.TempDir(), "missing", "x.pcap"), FrameTypeWpan)
	assert.NotNil(t, err)

	assert.Equal(t, FrameTypeWpanTap, ParseFrameTypeStr("wpan-tap"))
	assert.Equal(t, FrameTypeUnknown, ParseFrameTypeStr("pcapng"))
	assert.Equal(t, "wpan", FrameTypeWpan.String())
}

func getFileSize(t *testing.T, fp string) int {
	info, err := os.Stat(fp)
	if err != nil {
		t.Fatal(err)
	}
	return int(info.Size())
}
