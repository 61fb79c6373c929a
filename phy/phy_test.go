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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openthread/ot-mac/event"
)

type recorder struct {
	dataConfirms []Status
	ccaConfirms  []Status
	edLevels     []uint8
	received     [][]byte
}

func (r *recorder) PdDataConfirm(status Status) {
	r.dataConfirms = append(r.dataConfirms, status)
}

func (r *recorder) PlmeCcaConfirm(status Status) {
	r.ccaConfirms = append(r.ccaConfirms, status)
}

func (r *recorder) PlmeEdConfirm(status Status, level uint8) {
	r.edLevels = append(r.edLevels, level)
}

func (r *recorder) PdDataIndication(psdu []byte, lqi uint8) {
	r.received = append(r.received, psdu)
}

func newTestMedium(n int) (*event.Scheduler, *Medium, []*Radio, []*recorder) {
	sched := event.NewScheduler()
	m := NewMedium(sched)
	radios := make([]*Radio, n)
	recs := make([]*recorder, n)
	for i := 0; i < n; i++ {
		radios[i] = m.AddRadio(i+1, RadioConfig{X: i * 10})
		recs[i] = &recorder{}
		radios[i].SetListener(recs[i])
	}
	return sched, m, radios, recs
}

func TestTransmitDelivers(t *testing.T) {
	sched, m, radios, recs := newTestMedium(3)
	var captured int
	m.Capture = func(ts uint64, channel uint8, psdu []byte) {
		captured++
		assert.Equal(t, uint64(0), ts)
	}
	assert.Equal(t, Success, radios[0].SetTrxState(TxOn))
	assert.Equal(t, Success, radios[1].SetTrxState(RxOn))

	psdu := []byte{1, 2, 3, 4, 5}
	radios[0].Transmit(psdu)
	assert.True(t, radios[0].IsTransmitting())
	assert.Equal(t, BusyTx, radios[0].SetTrxState(RxOn))
	sched.Run(FrameDurationUs(len(psdu)))

	assert.Equal(t, []Status{Success}, recs[0].dataConfirms)
	assert.Equal(t, [][]byte{psdu}, recs[1].received)
	assert.Empty(t, recs[2].received, "radio 3 is off")
	assert.Equal(t, 1, captured)
	assert.Equal(t, uint64(1), radios[1].Stats.NumFramesRx)
	assert.Equal(t, uint8(255), radios[1].LinkQuality())
}

func TestTransmitWhenNotTxOn(t *testing.T) {
	sched, _, radios, recs := newTestMedium(1)
	radios[0].Transmit([]byte{1, 2, 3, 4, 5})
	sched.Run(1)
	assert.Equal(t, []Status{TrxOffStatus}, recs[0].dataConfirms)
}

func TestSetTrxState(t *testing.T) {
	_, _, radios, _ := newTestMedium(1)
	r := radios[0]
	assert.Equal(t, TrxOffStatus, r.SetTrxState(TrxOff))
	assert.Equal(t, Success, r.SetTrxState(RxOn))
	assert.Equal(t, RxOnStatus, r.SetTrxState(RxOn))
	assert.Equal(t, Success, r.SetTrxState(ForceTrxOff))
	assert.Equal(t, TrxOff, r.State())

	assert.Equal(t, Success, r.SetTrxState(TxOn))
	r.Transmit(make([]byte, 20))
	assert.Equal(t, TxOnStatus, r.SetTrxState(TxOn))
	assert.Equal(t, Success, r.SetTrxState(ForceTrxOff))
	assert.False(t, r.IsTransmitting())
	assert.Equal(t, uint64(1), r.Stats.NumAborted)
}

func TestCollision(t *testing.T) {
	sched, _, radios, recs := newTestMedium(3)
	radios[0].SetTrxState(TxOn)
	radios[2].SetTrxState(TxOn)
	radios[1].SetTrxState(RxOn)

	radios[0].Transmit(make([]byte, 10))
	sched.Run(100)
	radios[2].Transmit(make([]byte, 10))
	sched.Run(2000)

	assert.Empty(t, recs[1].received)
	assert.Equal(t, uint64(1), radios[1].Stats.NumCollisions)
	assert.Len(t, recs[0].dataConfirms, 1)
	assert.Len(t, recs[2].dataConfirms, 1)
}

func TestOutOfRangeAndChannel(t *testing.T) {
	sched, m, radios, recs := newTestMedium(2)
	far := m.AddRadio(9, RadioConfig{X: 1000})
	farRec := &recorder{}
	far.SetListener(farRec)
	far.SetTrxState(RxOn)

	assert.Equal(t, Success, radios[1].PlmeSet(AttrCurrentChannel, 12))
	radios[1].SetTrxState(RxOn)
	radios[0].SetTrxState(TxOn)
	radios[0].Transmit(make([]byte, 10))
	sched.Run(1000)

	assert.Empty(t, recs[1].received)
	assert.Empty(t, farRec.received)
}

func TestDropFunc(t *testing.T) {
	sched, m, radios, recs := newTestMedium(2)
	m.Drop = func(src, dst *Radio, psdu []byte) bool {
		return dst.Id == 2
	}
	radios[1].SetTrxState(RxOn)
	radios[0].SetTrxState(TxOn)
	radios[0].Transmit(make([]byte, 10))
	sched.Run(1000)
	assert.Empty(t, recs[1].received)
}

func TestCcaAndEd(t *testing.T) {
	sched, _, radios, recs := newTestMedium(2)
	radios[1].SetTrxState(RxOn)
	radios[1].CCA()
	radios[1].ED()
	sched.Run(200)
	assert.Equal(t, []Status{Idle}, recs[1].ccaConfirms)
	assert.Equal(t, []uint8{0}, recs[1].edLevels)

	radios[0].SetTrxState(TxOn)
	radios[0].Transmit(make([]byte, 30))
	radios[1].CCA()
	radios[1].ED()
	sched.Run(200)
	assert.Equal(t, []Status{Idle, Busy}, recs[1].ccaConfirms)
	assert.Equal(t, []uint8{0, 255}, recs[1].edLevels)

	radios[1].SetTrxState(TrxOff)
	radios[1].CCA()
	sched.Run(1)
	assert.Equal(t, TrxOffStatus, recs[1].ccaConfirms[2])
}

func TestPlmeAttributes(t *testing.T) {
	_, _, radios, _ := newTestMedium(1)
	r := radios[0]
	assert.Equal(t, InvalidParameter, r.PlmeSet(AttrCurrentChannel, 27))
	assert.Equal(t, InvalidParameter, r.PlmeSet(AttrCurrentChannel, 10))
	assert.Equal(t, Success, r.PlmeSet(AttrCurrentChannel, 26))
	st, v := r.PlmeGet(AttrCurrentChannel)
	assert.Equal(t, Success, st)
	assert.Equal(t, uint32(26), v)
	assert.Equal(t, InvalidParameter, r.PlmeSet(AttrCcaMode, 0))
	st, _ = r.PlmeGet(PibAttribute(9))
	assert.Equal(t, UnsupportedAttribute, st)
	assert.Equal(t, uint64(352), FrameDurationUs(5))
}
