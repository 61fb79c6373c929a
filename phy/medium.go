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

package phy

import (
	"github.com/openthread/ot-mac/event"
	"github.com/openthread/ot-mac/logger"
	. "github.com/openthread/ot-mac/types"
)

// CaptureFunc observes every frame completely put on the medium, with its start-of-frame time.
type CaptureFunc func(ts uint64, channel ChannelId, psdu []byte)

// DropFunc decides whether a frame from src is lost on the way to dst.
type DropFunc func(src, dst *Radio, psdu []byte) bool

// Medium is an ideal shared channel: a frame reaches every radio within the unit-disc range of the sender
// that listens on the same channel, unless another transmission overlapped its reception.
type Medium struct {
	Capture CaptureFunc
	Drop    DropFunc

	sched  *event.Scheduler
	radios []*Radio
	byId   map[NodeId]*Radio
}

func NewMedium(sched *event.Scheduler) *Medium {
	return &Medium{
		sched: sched,
		byId:  map[NodeId]*Radio{},
	}
}

// AddRadio creates the radio of node id. The radio starts in TRX_OFF on channel 11.
func (m *Medium) AddRadio(id NodeId, cfg RadioConfig) *Radio {
	logger.AssertNil(m.byId[id])
	r := &Radio{
		Id:         id,
		X:          float64(cfg.X),
		Y:          float64(cfg.Y),
		Z:          float64(cfg.Z),
		RadioRange: float64(cfg.RadioRange),
		medium:     m,
		state:      TrxOff,
		channel:    MinChannelNumber,
		ccaMode:    1,
		lqi:        DefaultLinkQuality,
	}
	if r.RadioRange <= 0 {
		r.RadioRange = DefaultRadioRange
	}
	m.radios = append(m.radios, r)
	m.byId[id] = r
	return r
}

// RemoveRadio detaches the radio of node id; an ongoing transmission is aborted.
func (m *Medium) RemoveRadio(id NodeId) {
	r := m.byId[id]
	if r == nil {
		return
	}
	if r.IsTransmitting() {
		r.abortTx()
	}
	delete(m.byId, id)
	for i, o := range m.radios {
		if o == r {
			m.radios = append(m.radios[:i], m.radios[i+1:]...)
			break
		}
	}
}

func (m *Medium) GetRadio(id NodeId) *Radio {
	return m.byId[id]
}

// Radios returns the attached radios in the order they were added.
func (m *Medium) Radios() []*Radio {
	return m.radios
}

func (m *Medium) inRange(src, dst *Radio) bool {
	return src != dst && src.GetDistanceTo(dst) <= src.RadioRange
}

func (m *Medium) txStart(src *Radio) {
	for _, dst := range m.radios {
		if !m.inRange(src, dst) || dst.channel != src.channel || dst.state != RxOn || dst.IsTransmitting() {
			continue
		}
		rx := &reception{src: src}
		if dst.rx != nil {
			dst.rx.corrupted = true
			rx.corrupted = true
			dst.Stats.NumCollisions++
			if dst.rx.src.lastTxTo > src.lastTxTo {
				continue
			}
		}
		dst.rx = rx
	}
}

func (m *Medium) txEnd(src *Radio, psdu []byte) {
	if m.Capture != nil {
		m.Capture(src.lastTxFrom, src.channel, psdu)
	}
	for _, dst := range m.radios {
		rx := dst.rx
		if rx == nil || rx.src != src {
			continue
		}
		dst.rx = nil
		if rx.corrupted || dst.state != RxOn || dst.channel != src.channel {
			continue
		}
		if m.Drop != nil && m.Drop(src, dst, psdu) {
			continue
		}
		dst.lqi = DefaultLinkQuality
		dst.Stats.NumFramesRx++
		if dst.listener != nil {
			dst.listener.PdDataIndication(append([]byte(nil), psdu...), dst.lqi)
		}
	}
}

func (m *Medium) txAbort(src *Radio) {
	for _, dst := range m.radios {
		if dst.rx != nil && dst.rx.src == src {
			dst.rx = nil
		}
	}
}

// channelBusy returns true if a transmission audible at r overlapped the interval [from, now].
func (m *Medium) channelBusy(r *Radio, from uint64) bool {
	now := m.sched.Now()
	for _, src := range m.radios {
		if !m.inRange(src, r) || src.channel != r.channel || src.lastTxTo == 0 {
			continue
		}
		if src.lastTxFrom <= now && src.lastTxTo > from {
			return true
		}
	}
	return false
}
