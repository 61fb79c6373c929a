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

// Stats are the per-interface MAC counters.
type Stats struct {
	// Data path
	DataSent       uint64
	DataReceived   uint64
	DataDuplicates uint64
	DataRequests   uint64
	CapQueued      uint64
	CapDequeued    uint64
	BcastQueued    uint64
	AcksSent       uint64
	AcksReceived   uint64
	RetriesNoAck   uint64
	DropsNoAck     uint64
	DropsCsma      uint64
	DropsOverflow  uint64
	DropsExpired   uint64
	PktDropped     uint64
	RxDropped      uint64
	// Management
	AssocRequests     uint64
	AssocResponses    uint64
	Disassociations   uint64
	Orphans           uint64
	Polls             uint64
	BeaconsSent       uint64
	BeaconsReceived   uint64
	BeaconsRequested  uint64
	BeaconsLost       uint64
	ChildrenPruned    uint64
	CsmaBackoffs      uint64
	CsmaBusy          uint64
	CsmaWaitedBeacon  uint64
	// GTS
	GtsAllocRequestsSent   uint64
	GtsDeallocRequestsSent uint64
	GtsRequestsRetried     uint64
	GtsRequestsReceived    uint64
	GtsRequestsIgnored     uint64
	GtsAllocated           uint64
	GtsDeallocated         uint64
	GtsExpired             uint64
	GtsRejected            uint64
	GtsConfirmed           uint64
	GtsDataSent            uint64
	GtsDataReceived        uint64
	GtsQueued              uint64
	GtsDequeued            uint64
}
