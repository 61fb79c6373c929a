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

type CommandId uint8

const (
	CmdAssociationRequest  CommandId = 0x01
	CmdAssociationResponse CommandId = 0x02
	CmdDisassociation      CommandId = 0x03
	CmdDataRequest         CommandId = 0x04
	CmdPanIdConflict       CommandId = 0x05
	CmdOrphanNotification  CommandId = 0x06
	CmdBeaconRequest       CommandId = 0x07
	CmdCoordRealignment    CommandId = 0x08
	CmdGtsRequest          CommandId = 0x09
)

var commandNames = map[CommandId]string{
	CmdAssociationRequest:  "AssocReq",
	CmdAssociationResponse: "AssocRsp",
	CmdDisassociation:      "Disassoc",
	CmdDataRequest:         "DataReq",
	CmdPanIdConflict:       "PanIdConflict",
	CmdOrphanNotification:  "Orphan",
	CmdBeaconRequest:       "BeaconReq",
	CmdCoordRealignment:    "CoordRealign",
	CmdGtsRequest:          "GtsReq",
}

func (c CommandId) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Cmd(0x%02x)", uint8(c))
}

// payloadLen is the length of the command payload following the command id byte.
func (c CommandId) payloadLen() int {
	switch c {
	case CmdAssociationRequest, CmdDisassociation, CmdGtsRequest:
		return 1
	case CmdAssociationResponse:
		return 3
	case CmdCoordRealignment:
		return 7
	default:
		return 0
	}
}

// Capability is the capability information field of an association request.
type Capability uint8

const (
	CapAltPanCoord    Capability = 0x01
	CapFFD            Capability = 0x02
	CapMainsPower     Capability = 0x04
	CapRxOnWhenIdle   Capability = 0x08
	CapSecurity       Capability = 0x40
	CapAllocateAddr   Capability = 0x80
	DefaultCapability            = CapAltPanCoord | CapAllocateAddr | CapFFD | CapMainsPower | CapRxOnWhenIdle
)

func (c Capability) Has(flag Capability) bool {
	return c&flag != 0
}

// GtsCharacteristics is the GTS characteristics field: length in slots, direction and request type.
type GtsCharacteristics struct {
	Length   uint8
	RecvOnly bool
	Allocate bool
}

func (g GtsCharacteristics) Pack() uint8 {
	v := g.Length & 0x0f
	if g.RecvOnly {
		v |= 0x10
	}
	if g.Allocate {
		v |= 0x20
	}
	return v
}

func UnpackGtsCharacteristics(v uint8) GtsCharacteristics {
	return GtsCharacteristics{
		Length:   v & 0x0f,
		RecvOnly: v&0x10 != 0,
		Allocate: v&0x20 != 0,
	}
}

func (g GtsCharacteristics) String() string {
	dir, tp := "tx", "dealloc"
	if g.RecvOnly {
		dir = "rx"
	}
	if g.Allocate {
		tp = "alloc"
	}
	return fmt.Sprintf("%s:%s:%d", tp, dir, g.Length)
}

// Command is a decoded MAC command payload. Only the fields of the given Id are meaningful.
type Command struct {
	Id             CommandId
	Capability     Capability
	ShortAddr      uint16
	Status         uint8
	Reason         uint8
	PanId          uint16
	CoordShortAddr uint16
	Channel        uint8
	Gts            GtsCharacteristics
}

func (c *Command) Marshal() []byte {
	buf := []byte{byte(c.Id)}
	switch c.Id {
	case CmdAssociationRequest:
		buf = append(buf, byte(c.Capability))
	case CmdAssociationResponse:
		buf = binary.LittleEndian.AppendUint16(buf, c.ShortAddr)
		buf = append(buf, c.Status)
	case CmdDisassociation:
		buf = append(buf, c.Reason)
	case CmdCoordRealignment:
		buf = binary.LittleEndian.AppendUint16(buf, c.PanId)
		buf = binary.LittleEndian.AppendUint16(buf, c.CoordShortAddr)
		buf = append(buf, c.Channel)
		buf = binary.LittleEndian.AppendUint16(buf, c.ShortAddr)
	case CmdGtsRequest:
		buf = append(buf, c.Gts.Pack())
	}
	return buf
}

func UnmarshalCommand(data []byte) (*Command, error) {
	if len(data) < 1 {
		return nil, errors.Wrap(ErrFrameTooShort, "empty command")
	}
	c := &Command{Id: CommandId(data[0])}
	if c.Id < CmdAssociationRequest || c.Id > CmdGtsRequest {
		return nil, errors.Errorf("unknown command id 0x%02x", data[0])
	}
	p := data[1:]
	if len(p) < c.Id.payloadLen() {
		return nil, errors.Wrapf(ErrFrameTooShort, "command %s", c.Id)
	}
	switch c.Id {
	case CmdAssociationRequest:
		c.Capability = Capability(p[0])
	case CmdAssociationResponse:
		c.ShortAddr = binary.LittleEndian.Uint16(p)
		c.Status = p[2]
	case CmdDisassociation:
		c.Reason = p[0]
	case CmdCoordRealignment:
		c.PanId = binary.LittleEndian.Uint16(p)
		c.CoordShortAddr = binary.LittleEndian.Uint16(p[2:])
		c.Channel = p[4]
		c.ShortAddr = binary.LittleEndian.Uint16(p[5:])
	case CmdGtsRequest:
		c.Gts = UnpackGtsCharacteristics(p[0])
	}
	return c, nil
}
