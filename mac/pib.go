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
	"fmt"

	"github.com/openthread/ot-mac/wpan"
	. "github.com/openthread/ot-mac/types"
)

// PibAttribute identifies a MAC PIB attribute, 802.15.4-2003 Table 71.
type PibAttribute uint8

const (
	AttrAckWaitDuration            PibAttribute = 0x40
	AttrAssociationPermit          PibAttribute = 0x41
	AttrAutoRequest                PibAttribute = 0x42
	AttrBattLifeExt                PibAttribute = 0x43
	AttrBattLifeExtPeriods         PibAttribute = 0x44
	AttrBeaconPayload              PibAttribute = 0x45
	AttrBeaconPayloadLength        PibAttribute = 0x46
	AttrBeaconOrder                PibAttribute = 0x47
	AttrBeaconTxTime               PibAttribute = 0x48
	AttrBSN                        PibAttribute = 0x49
	AttrCoordExtendedAddress       PibAttribute = 0x4a
	AttrCoordShortAddress          PibAttribute = 0x4b
	AttrDSN                        PibAttribute = 0x4c
	AttrGTSPermit                  PibAttribute = 0x4d
	AttrMaxCSMABackoffs            PibAttribute = 0x4e
	AttrMinBE                      PibAttribute = 0x4f
	AttrPANId                      PibAttribute = 0x50
	AttrPromiscuousMode            PibAttribute = 0x51
	AttrRxOnWhenIdle               PibAttribute = 0x52
	AttrShortAddress               PibAttribute = 0x53
	AttrSuperframeOrder            PibAttribute = 0x54
	AttrTransactionPersistenceTime PibAttribute = 0x55

	// Extensions of the simulator.
	AttrGtsTriggerPrecedence PibAttribute = 0x80
	AttrDataAcks             PibAttribute = 0x81
)

var pibAttributeNames = map[PibAttribute]string{
	AttrAckWaitDuration:            "macAckWaitDuration",
	AttrAssociationPermit:          "macAssociationPermit",
	AttrAutoRequest:                "macAutoRequest",
	AttrBattLifeExt:                "macBattLifeExt",
	AttrBattLifeExtPeriods:         "macBattLifeExtPeriods",
	AttrBeaconPayload:              "macBeaconPayload",
	AttrBeaconPayloadLength:        "macBeaconPayloadLength",
	AttrBeaconOrder:                "macBeaconOrder",
	AttrBeaconTxTime:               "macBeaconTxTime",
	AttrBSN:                        "macBSN",
	AttrCoordExtendedAddress:       "macCoordExtendedAddress",
	AttrCoordShortAddress:          "macCoordShortAddress",
	AttrDSN:                        "macDSN",
	AttrGTSPermit:                  "macGTSPermit",
	AttrMaxCSMABackoffs:            "macMaxCSMABackoffs",
	AttrMinBE:                      "macMinBE",
	AttrPANId:                      "macPANId",
	AttrPromiscuousMode:            "macPromiscuousMode",
	AttrRxOnWhenIdle:               "macRxOnWhenIdle",
	AttrShortAddress:               "macShortAddress",
	AttrSuperframeOrder:            "macSuperframeOrder",
	AttrTransactionPersistenceTime: "macTransactionPersistenceTime",
	AttrGtsTriggerPrecedence:       "macGtsTriggerPrecedence",
	AttrDataAcks:                   "macDataAcks",
}

func (a PibAttribute) String() string {
	if name, ok := pibAttributeNames[a]; ok {
		return name
	}
	return fmt.Sprintf("PibAttribute(0x%02x)", uint8(a))
}

// ParsePibAttribute looks up an attribute by its standard name.
func ParsePibAttribute(name string) (PibAttribute, bool) {
	for a, n := range pibAttributeNames {
		if n == name {
			return a, true
		}
	}
	return 0, false
}

// PibAttributes returns all supported attributes in id order.
func PibAttributes() []PibAttribute {
	var attrs []PibAttribute
	for a := AttrAckWaitDuration; a <= AttrTransactionPersistenceTime; a++ {
		attrs = append(attrs, a)
	}
	return append(attrs, AttrGtsTriggerPrecedence, AttrDataAcks)
}

// PIB is the MAC PAN information base.
type PIB struct {
	AckWaitDuration            uint16 // symbols
	AssociationPermit          bool
	AutoRequest                bool
	BattLifeExt                bool
	BattLifeExtPeriods         uint8
	BeaconPayload              []byte
	BeaconOrder                uint8
	BeaconTxTime               uint64 // us
	BSN                        uint8
	CoordExtendedAddress       uint64
	CoordShortAddress          uint16
	DSN                        uint8
	GTSPermit                  bool
	MaxCSMABackoffs            uint8
	MinBE                      uint8
	PANId                      uint16
	PromiscuousMode            bool
	RxOnWhenIdle               bool
	ShortAddress               uint16
	SuperframeOrder            uint8
	TransactionPersistenceTime uint16 // superframes

	GtsTriggerPrecedence uint8
	DataAcks             bool
}

// DefaultPIB returns the PIB after MLME-RESET.request(SetDefaultPIB=true).
func DefaultPIB() PIB {
	return PIB{
		AckWaitDuration:            650,
		AssociationPermit:          false,
		AutoRequest:                true,
		BattLifeExt:                false,
		BattLifeExtPeriods:         6,
		BeaconOrder:                15,
		CoordShortAddress:          0xffff,
		GTSPermit:                  true,
		MaxCSMABackoffs:            4,
		MinBE:                      3,
		PANId:                      BroadcastPanId,
		PromiscuousMode:            false,
		RxOnWhenIdle:               true,
		ShortAddress:               BroadcastShortAddr,
		SuperframeOrder:            15,
		TransactionPersistenceTime: 0x01f4,
		GtsTriggerPrecedence:       1,
		DataAcks:                   true,
	}
}

func toUint64(value interface{}) (uint64, bool) {
	switch v := value.(type) {
	case int:
		return uint64(v), v >= 0
	case int64:
		return uint64(v), v >= 0
	case uint:
		return uint64(v), true
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint64:
		return v, true
	default:
		return 0, false
	}
}

func inRange(value interface{}, min, max uint64) (uint64, bool) {
	v, ok := toUint64(value)
	return v, ok && v >= min && v <= max
}

// set assigns one attribute. Booleans take a bool, numbers any integer type, the beacon payload a []byte.
func (p *PIB) set(attr PibAttribute, value interface{}) Status {
	var ok bool
	var v uint64
	switch attr {
	case AttrAckWaitDuration:
		if v, ok = inRange(value, 54, 0xffff); ok {
			p.AckWaitDuration = uint16(v)
		}
	case AttrAssociationPermit:
		ok = setBool(&p.AssociationPermit, value)
	case AttrAutoRequest:
		ok = setBool(&p.AutoRequest, value)
	case AttrBattLifeExt:
		ok = setBool(&p.BattLifeExt, value)
	case AttrBattLifeExtPeriods:
		if v, ok = inRange(value, 6, 41); ok {
			p.BattLifeExtPeriods = uint8(v)
		}
	case AttrBeaconPayload:
		var payload []byte
		if payload, ok = value.([]byte); ok && len(payload) <= wpan.MaxBeaconPayloadLen {
			p.BeaconPayload = append([]byte(nil), payload...)
		} else {
			ok = false
		}
	case AttrBeaconPayloadLength:
		if v, ok = inRange(value, 0, wpan.MaxBeaconPayloadLen); ok {
			n := int(v)
			for len(p.BeaconPayload) < n {
				p.BeaconPayload = append(p.BeaconPayload, 0)
			}
			p.BeaconPayload = p.BeaconPayload[:n]
		}
	case AttrBeaconOrder:
		if v, ok = inRange(value, 0, 15); ok {
			p.BeaconOrder = uint8(v)
		}
	case AttrBeaconTxTime:
		if v, ok = toUint64(value); ok {
			p.BeaconTxTime = v
		}
	case AttrBSN:
		if v, ok = inRange(value, 0, 0xff); ok {
			p.BSN = uint8(v)
		}
	case AttrCoordExtendedAddress:
		if v, ok = toUint64(value); ok {
			p.CoordExtendedAddress = v
		}
	case AttrCoordShortAddress:
		if v, ok = inRange(value, 0, 0xffff); ok {
			p.CoordShortAddress = uint16(v)
		}
	case AttrDSN:
		if v, ok = inRange(value, 0, 0xff); ok {
			p.DSN = uint8(v)
		}
	case AttrGTSPermit:
		ok = setBool(&p.GTSPermit, value)
	case AttrMaxCSMABackoffs:
		if v, ok = inRange(value, 0, 5); ok {
			p.MaxCSMABackoffs = uint8(v)
		}
	case AttrMinBE:
		if v, ok = inRange(value, 0, 3); ok {
			p.MinBE = uint8(v)
		}
	case AttrPANId:
		if v, ok = inRange(value, 0, 0xffff); ok {
			p.PANId = uint16(v)
		}
	case AttrPromiscuousMode:
		ok = setBool(&p.PromiscuousMode, value)
	case AttrRxOnWhenIdle:
		ok = setBool(&p.RxOnWhenIdle, value)
	case AttrShortAddress:
		if v, ok = inRange(value, 0, 0xffff); ok {
			p.ShortAddress = uint16(v)
		}
	case AttrSuperframeOrder:
		if v, ok = inRange(value, 0, 15); ok {
			p.SuperframeOrder = uint8(v)
		}
	case AttrTransactionPersistenceTime:
		if v, ok = inRange(value, 0, 0xffff); ok {
			p.TransactionPersistenceTime = uint16(v)
		}
	case AttrGtsTriggerPrecedence:
		if v, ok = inRange(value, 0, 0xff); ok {
			p.GtsTriggerPrecedence = uint8(v)
		}
	case AttrDataAcks:
		ok = setBool(&p.DataAcks, value)
	default:
		return UnsupportedAttribute
	}
	if !ok {
		return InvalidParameter
	}
	return Success
}

func setBool(dst *bool, value interface{}) bool {
	b, ok := value.(bool)
	if ok {
		*dst = b
	}
	return ok
}

func (p *PIB) get(attr PibAttribute) (Status, interface{}) {
	switch attr {
	case AttrAckWaitDuration:
		return Success, p.AckWaitDuration
	case AttrAssociationPermit:
		return Success, p.AssociationPermit
	case AttrAutoRequest:
		return Success, p.AutoRequest
	case AttrBattLifeExt:
		return Success, p.BattLifeExt
	case AttrBattLifeExtPeriods:
		return Success, p.BattLifeExtPeriods
	case AttrBeaconPayload:
		return Success, append([]byte(nil), p.BeaconPayload...)
	case AttrBeaconPayloadLength:
		return Success, uint8(len(p.BeaconPayload))
	case AttrBeaconOrder:
		return Success, p.BeaconOrder
	case AttrBeaconTxTime:
		return Success, p.BeaconTxTime
	case AttrBSN:
		return Success, p.BSN
	case AttrCoordExtendedAddress:
		return Success, p.CoordExtendedAddress
	case AttrCoordShortAddress:
		return Success, p.CoordShortAddress
	case AttrDSN:
		return Success, p.DSN
	case AttrGTSPermit:
		return Success, p.GTSPermit
	case AttrMaxCSMABackoffs:
		return Success, p.MaxCSMABackoffs
	case AttrMinBE:
		return Success, p.MinBE
	case AttrPANId:
		return Success, p.PANId
	case AttrPromiscuousMode:
		return Success, p.PromiscuousMode
	case AttrRxOnWhenIdle:
		return Success, p.RxOnWhenIdle
	case AttrShortAddress:
		return Success, p.ShortAddress
	case AttrSuperframeOrder:
		return Success, p.SuperframeOrder
	case AttrTransactionPersistenceTime:
		return Success, p.TransactionPersistenceTime
	case AttrGtsTriggerPrecedence:
		return Success, p.GtsTriggerPrecedence
	case AttrDataAcks:
		return Success, p.DataAcks
	default:
		return UnsupportedAttribute, nil
	}
}
