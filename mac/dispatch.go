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

	"github.com/openthread/ot-mac/event"
	"github.com/openthread/ot-mac/phy"
	"github.com/openthread/ot-mac/wpan"
)

// ProcKind identifies a MAC procedure. At most one procedure of each kind is in flight.
type ProcKind uint8

const (
	ProcNone ProcKind = iota
	ProcScan
	ProcStart
	ProcAssociate
	ProcDisassociate
	ProcSync
	ProcPoll
	ProcRxEnable
	ProcGtsRequest
	ProcData
	ProcIndirect
	ProcBroadcast
	ProcGtsData
	ProcBeaconReply
	ProcOrphanResponse
	numProcKinds
)

var procNames = [numProcKinds]string{"none", "scan", "start", "associate", "disassociate", "sync", "poll",
	"rx-enable", "gts-request", "data", "indirect", "broadcast", "gts-data", "beacon-reply", "orphan-response"}

func (k ProcKind) String() string {
	if k < numProcKinds {
		return procNames[k]
	}
	return fmt.Sprintf("ProcKind(%d)", uint8(k))
}

// Step is the resume point of a suspended procedure. Each procedure numbers its own steps from 0.
type Step uint8

// StepAny matches the procedure in whatever step it is.
const StepAny Step = 0xff

// Continuation tells the dispatcher where a completion event resumes.
type Continuation struct {
	Proc ProcKind
	Step Step
}

func (c Continuation) String() string {
	if c.Step == StepAny {
		return c.Proc.String() + "/*"
	}
	return fmt.Sprintf("%s/%d", c.Proc, c.Step)
}

type evKind uint8

const (
	evStart evKind = iota
	evTimer
	evSendDone
	evFrame
	evEd
	evBeaconSent
)

var evNames = [...]string{"start", "timer", "send-done", "frame", "ed", "beacon-sent"}

func (k evKind) String() string {
	return evNames[k]
}

// procEvent carries whatever resumed a procedure; only the fields of the kind are set.
type procEvent struct {
	kind         evKind
	status       Status
	phyStatus    phy.Status
	framePending bool
	frame        *wpan.Frame
	cmd          *wpan.Command
	beacon       *wpan.Beacon
	pan          *PanDescriptor
	level        uint8
	timer        TimerKind
}

type procState struct {
	kind   ProcKind
	step   Step
	params interface{}
}

type procHandler func(m *Mac, p *procState, ev procEvent)

var procHandlers [numProcKinds]procHandler

func init() {
	procHandlers = [numProcKinds]procHandler{
		ProcScan:           (*Mac).procScan,
		ProcStart:          (*Mac).procStart,
		ProcAssociate:      (*Mac).procAssociate,
		ProcDisassociate:   (*Mac).procDisassociate,
		ProcSync:           (*Mac).procSync,
		ProcPoll:           (*Mac).procPoll,
		ProcRxEnable:       (*Mac).procRxEnable,
		ProcGtsRequest:     (*Mac).procGtsRequest,
		ProcData:           (*Mac).procData,
		ProcIndirect:       (*Mac).procIndirect,
		ProcBroadcast:      (*Mac).procBroadcast,
		ProcGtsData:        (*Mac).procGtsData,
		ProcBeaconReply:    (*Mac).procBeaconReply,
		ProcOrphanResponse: (*Mac).procOrphanResponse,
	}
}

// startProc runs the first step of a new procedure. Returns false if one of the kind is in flight.
func (m *Mac) startProc(kind ProcKind, params interface{}) bool {
	if m.procs[kind] != nil {
		return false
	}
	p := &procState{kind: kind, params: params}
	m.procs[kind] = p
	m.log.Debugf("proc %s start", kind)
	procHandlers[kind](m, p, procEvent{kind: evStart})
	return true
}

// endProc removes p from the procedure table. A handler returns right after calling it.
func (m *Mac) endProc(p *procState) {
	if m.procs[p.kind] != p {
		return
	}
	delete(m.procs, p.kind)
	m.log.Debugf("proc %s end", p.kind)
	m.procEnded(p.kind)
}

func (m *Mac) procEnded(kind ProcKind) {
	switch kind {
	case ProcData:
		m.serviceCap()
	case ProcGtsRequest:
		if r := m.gtsRequestPending; r != nil {
			m.gtsRequestPending = nil
			m.requestGts(r.gc, r.internal)
		}
	}
	if pp := m.pollPending; pp != nil && m.procs[ProcPoll] == nil && m.slots[SlotBcnCmd2] == nil {
		m.pollPending = nil
		m.startPoll(pp.coord, pp.auto)
	}
	m.rxIdle()
}

// cont returns the continuation resuming p in its current step.
func (m *Mac) cont(p *procState) Continuation {
	return Continuation{Proc: p.kind, Step: p.step}
}

// dispatch resumes the procedure named by c. Events for procedures no longer in flight, or that moved on to
// another step, are dropped.
func (m *Mac) dispatch(c Continuation, ev procEvent) {
	p := m.procs[c.Proc]
	if p == nil || (c.Step != StepAny && p.step != c.Step) {
		m.log.Debugf("drop %s event for %s", ev.kind, c)
		return
	}
	m.log.Tracef("proc %s step %d <- %s", p.kind, p.step, ev.kind)
	procHandlers[c.Proc](m, p, ev)
}

func (m *Mac) procInFlight(kind ProcKind) bool {
	return m.procs[kind] != nil
}

func (m *Mac) scanning() bool {
	return m.procs[ProcScan] != nil
}

// TimerKind enumerates the timers of the MAC; each kind has at most one pending instance.
type TimerKind uint8

const (
	TimerAckWait TimerKind = iota
	TimerAckTurnaround
	TimerIfs
	TimerBeaconTx
	TimerBeaconLoss
	TimerBeaconSearch
	TimerScan
	TimerAssocResponseWait
	TimerDataWait
	TimerRxEnable
	TimerTransactionExpiry
	TimerGtsSlot
	TimerGtsSlotParent
	TimerBackoff
	numTimerKinds
)

// startTimerFunc arms timer kind to run fn after delay us, replacing a pending one.
func (m *Mac) startTimerFunc(kind TimerKind, delay uint64, fn func()) {
	m.timers[kind].Cancel()
	var t *event.Timer
	t = m.sched.After(delay, func() {
		if m.timers[kind] == t {
			m.timers[kind] = nil
		}
		fn()
	})
	m.timers[kind] = t
}

// startTimer arms timer kind to resume c.
func (m *Mac) startTimer(kind TimerKind, delay uint64, c Continuation) {
	m.startTimerFunc(kind, delay, func() {
		m.dispatch(c, procEvent{kind: evTimer, timer: kind})
	})
}

func (m *Mac) cancelTimer(kind TimerKind) {
	m.timers[kind].Cancel()
	m.timers[kind] = nil
}

func (m *Mac) cancelAllTimers() {
	for k := TimerKind(0); k < numTimerKinds; k++ {
		m.cancelTimer(k)
	}
}

func (m *Mac) timerPending(kind TimerKind) bool {
	return m.timers[kind].Pending()
}
