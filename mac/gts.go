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
	"github.com/openthread/ot-mac/logger"
	"github.com/openthread/ot-mac/wpan"
)

// GtsRole tells what a GtsTable holds.
type GtsRole uint8

const (
	// GtsOwn are the allocations this coordinator granted.
	GtsOwn GtsRole = iota
	// GtsParent are the allocations the parent coordinator granted to this device.
	GtsParent
	// GtsStaging are the descriptors announced in the next beacons.
	GtsStaging
)

func (r GtsRole) String() string {
	switch r {
	case GtsOwn:
		return "own"
	case GtsParent:
		return "parent"
	default:
		return "staging"
	}
}

// GtsDescriptor is one guaranteed time slot. RecvOnly is the direction seen from the device: a receive-only
// GTS carries frames from the coordinator to the device.
type GtsDescriptor struct {
	DevAddr      uint16
	SlotStart    uint8
	Length       uint8
	RecvOnly     bool
	ExpiryCount  int
	PersistCount int
	Retries      int

	queue        []*pendingFrame
	inFlight     *pendingFrame
	deallocTimer *event.Timer
}

func (d *GtsDescriptor) String() string {
	dir := "tx"
	if d.RecvOnly {
		dir = "rx"
	}
	return fmt.Sprintf("%04x@%d+%d/%s", d.DevAddr, d.SlotStart, d.Length, dir)
}

// QueueLen returns the number of frames waiting for the slot.
func (d *GtsDescriptor) QueueLen() int {
	return len(d.queue)
}

func (d *GtsDescriptor) enqueue(pf *pendingFrame) bool {
	if len(d.queue) >= gtsQueueCapacity {
		return false
	}
	d.queue = append(d.queue, pf)
	return true
}

func (d *GtsDescriptor) dequeue() *pendingFrame {
	if len(d.queue) == 0 {
		return nil
	}
	pf := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	return pf
}

func (d *GtsDescriptor) wireDescriptor() wpan.GtsDescriptor {
	return wpan.GtsDescriptor{ShortAddr: d.DevAddr, StartSlot: d.SlotStart, Length: d.Length, RecvOnly: d.RecvOnly}
}

// GtsTable is an ordered list of at most aMaxNumGts descriptors. The own table is kept compacted: slot starts
// strictly decrease with the index and the slots of entry i end where the slots of entry i-1 begin.
type GtsTable struct {
	role    GtsRole
	entries []*GtsDescriptor
}

func NewGtsTable(role GtsRole) *GtsTable {
	return &GtsTable{role: role}
}

func (t *GtsTable) Role() GtsRole {
	return t.role
}

func (t *GtsTable) Len() int {
	return len(t.entries)
}

func (t *GtsTable) Full() bool {
	return len(t.entries) >= aMaxNumGts
}

func (t *GtsTable) Entries() []*GtsDescriptor {
	return t.entries
}

func (t *GtsTable) Get(i int) *GtsDescriptor {
	return t.entries[i]
}

// UsedSlots returns the number of superframe slots held by the table.
func (t *GtsTable) UsedSlots() int {
	n := 0
	for _, d := range t.entries {
		n += int(d.Length)
	}
	return n
}

// FinalCapSlot returns the last slot of the CAP given the allocations of the table.
func (t *GtsTable) FinalCapSlot() uint8 {
	return uint8(aNumSuperframeSlots - 1 - t.UsedSlots())
}

// Find returns the index and the descriptor of device addr in direction recvOnly, or -1 and nil.
func (t *GtsTable) Find(addr uint16, recvOnly bool) (int, *GtsDescriptor) {
	for i, d := range t.entries {
		if d.DevAddr == addr && d.RecvOnly == recvOnly {
			return i, d
		}
	}
	return -1, nil
}

// Add appends d; false if the table is full.
func (t *GtsTable) Add(d *GtsDescriptor) bool {
	if t.Full() {
		return false
	}
	t.entries = append(t.entries, d)
	return true
}

// Put adds d, replacing an entry of the same device and direction.
func (t *GtsTable) Put(d *GtsDescriptor) bool {
	if i, _ := t.Find(d.DevAddr, d.RecvOnly); i >= 0 {
		t.entries[i] = d
		return true
	}
	return t.Add(d)
}

// Remove deletes entry i and returns it. In the own table the later entries keep their queues and move
// towards the end of the superframe to close the gap.
func (t *GtsTable) Remove(i int) *GtsDescriptor {
	logger.AssertTrue(i >= 0 && i < len(t.entries))
	removed := t.entries[i]
	if t.role == GtsOwn {
		for _, d := range t.entries[i+1:] {
			d.SlotStart += removed.Length
		}
	}
	copy(t.entries[i:], t.entries[i+1:])
	t.entries[len(t.entries)-1] = nil
	t.entries = t.entries[:len(t.entries)-1]
	return removed
}

// Reset removes all entries, cancelling their de-allocation timers.
func (t *GtsTable) Reset() {
	for _, d := range t.entries {
		d.deallocTimer.Cancel()
	}
	t.entries = nil
}

// Descriptors returns the wire form of the entries.
func (t *GtsTable) Descriptors() []wpan.GtsDescriptor {
	var list []wpan.GtsDescriptor
	for _, d := range t.entries {
		list = append(list, d.wireDescriptor())
	}
	return list
}

// Compacted verifies the table layout.
func (t *GtsTable) Compacted() bool {
	next := uint8(aNumSuperframeSlots)
	for _, d := range t.entries {
		if d.Length == 0 || d.SlotStart+d.Length != next {
			return false
		}
		next = d.SlotStart
	}
	return true
}

// EstimateGtsSlots returns the number of slots needed to carry one fragment of fragUnit bytes per application
// interval, given payloadLen bytes per interval. All times are in us.
func EstimateGtsSlots(payloadLen, fragUnit int, appIntervalUs, slotUs, biUs, symbolUs uint64) uint8 {
	if payloadLen <= 0 || slotUs == 0 {
		return 0
	}
	if fragUnit <= 0 || fragUnit > wpan.MaxPayload {
		fragUnit = wpan.MaxPayload
	}
	frames := (payloadLen + fragUnit - 1) / fragUnit
	if appIntervalUs > 0 && biUs > appIntervalUs {
		// several application packets fall into one beacon interval
		frames *= int((biUs + appIntervalUs - 1) / appIntervalUs)
	}
	frameUs := uint64(wpanFrameLen(fragUnit)) * 2 * symbolUs
	ackUs := (aTurnaroundTime+aUnitBackoffPeriod)*symbolUs + uint64(wpan.AckLen+6)*2*symbolUs
	ifsUs := uint64(aMinLIFSPeriod) * symbolUs
	need := uint64(frames) * (frameUs + ackUs + ifsUs)
	slots := (need + slotUs - 1) / slotUs
	if slots > aNumSuperframeSlots-aMinCap {
		slots = aNumSuperframeSlots - aMinCap
	}
	return uint8(slots)
}

// wpanFrameLen is the PPDU length of a short-addressed data frame with n payload bytes.
func wpanFrameLen(n int) int {
	return 6 + 9 + n + wpan.FcsLen
}
