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

// Package event implements the simulated clock and its single-shot, cancellable timers.
package event

import (
	"container/heap"

	"github.com/openthread/ot-mac/logger"
	. "github.com/openthread/ot-mac/types"
)

// Timer is a single-shot delayed callback. A Timer fires at most once.
type Timer struct {
	Timestamp uint64

	fn    func()
	seq   uint64
	index int
	sched *Scheduler
}

// Cancel prevents the timer from firing. Cancelling a fired or cancelled timer is a no-op, as is
// cancelling a nil *Timer.
func (t *Timer) Cancel() {
	if t == nil || t.index < 0 {
		return
	}
	heap.Remove(&t.sched.q, t.index)
}

// Pending returns true while the timer is scheduled and has not fired.
func (t *Timer) Pending() bool {
	return t != nil && t.index >= 0
}

type timerQueue []*Timer

func (tq timerQueue) Len() int {
	return len(tq)
}

func (tq timerQueue) Less(i, j int) bool {
	if tq[i].Timestamp != tq[j].Timestamp {
		return tq[i].Timestamp < tq[j].Timestamp
	}
	return tq[i].seq < tq[j].seq
}

func (tq timerQueue) Swap(i, j int) {
	tq[i], tq[j] = tq[j], tq[i]
	tq[i].index, tq[j].index = i, j
}

func (tq *timerQueue) Push(x interface{}) {
	t := x.(*Timer)
	t.index = len(*tq)
	*tq = append(*tq, t)
}

func (tq *timerQueue) Pop() interface{} {
	n := len(*tq)
	t := (*tq)[n-1]
	(*tq)[n-1] = nil
	*tq = (*tq)[:n-1]
	t.index = -1
	return t
}

// Scheduler is the simulated clock. Time is in microseconds and only advances when timers fire.
// Timers with equal timestamps fire in the order they were scheduled.
type Scheduler struct {
	now uint64
	seq uint64
	q   timerQueue
}

func NewScheduler() *Scheduler {
	s := &Scheduler{
		q: timerQueue{},
	}
	heap.Init(&s.q)
	return s
}

// Now returns the current simulated time in us.
func (s *Scheduler) Now() uint64 {
	return s.now
}

// After schedules fn to run delay us from now.
func (s *Scheduler) After(delay uint64, fn func()) *Timer {
	logger.AssertNotNil(fn)
	logger.AssertTrue(delay < Ever-s.now, "timer delay overflow")
	s.seq++
	t := &Timer{
		Timestamp: s.now + delay,
		fn:        fn,
		seq:       s.seq,
		sched:     s,
	}
	heap.Push(&s.q, t)
	return t
}

// NextTimestamp returns the time of the next pending timer, or Ever.
func (s *Scheduler) NextTimestamp() uint64 {
	if len(s.q) == 0 {
		return Ever
	}
	return s.q[0].Timestamp
}

// Pending returns the number of scheduled timers.
func (s *Scheduler) Pending() int {
	return len(s.q)
}

// Step fires the earliest timer, advancing the clock to its timestamp. Returns false if none is pending.
func (s *Scheduler) Step() bool {
	if len(s.q) == 0 {
		return false
	}
	t := heap.Pop(&s.q).(*Timer)
	logger.AssertTrue(t.Timestamp >= s.now)
	s.now = t.Timestamp
	t.fn()
	return true
}

// RunUntil fires all timers due at or before ts, then sets the clock to ts.
func (s *Scheduler) RunUntil(ts uint64) {
	for len(s.q) > 0 && s.q[0].Timestamp <= ts {
		s.Step()
	}
	if ts > s.now {
		s.now = ts
	}
}

// Run advances the clock by d us.
func (s *Scheduler) Run(d uint64) {
	s.RunUntil(s.now + d)
}
