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

package simulation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/ot-mac/logger"
	. "github.com/openthread/ot-mac/types"
)

type KpiManager struct {
	sim           *Simulation
	data          *Kpi
	startCounters NodeCountersStore
	curCounters   NodeCountersStore
	startChannels map[ChannelId]channelStats
	isRunning     bool
}

type NodeCountersStore map[NodeId]NodeCounters

// NewKpiManager creates a new KPI manager/bookkeeper for a particular simulation.
func NewKpiManager() *KpiManager {
	return &KpiManager{}
}

// Init inits the KPI manager for the given simulation.
func (km *KpiManager) Init(sim *Simulation) {
	logger.AssertNil(km.sim)
	logger.AssertFalse(km.isRunning)
	km.sim = sim
	km.data = &Kpi{Status: "ok"}
	km.startCounters = NodeCountersStore{}
	km.curCounters = NodeCountersStore{}
}

// Start begins a KPI period: counters are reported relative to their values now.
func (km *KpiManager) Start() {
	logger.AssertNotNil(km.sim)
	km.data = &Kpi{Status: "ok"}
	km.startCounters = km.retrieveNodeCounters()
	km.startChannels = km.copyChannelStats()
	km.data.TimeUs.StartTimeUs = km.sim.Now()
	km.isRunning = true
}

func (km *KpiManager) Stop() {
	if km.isRunning {
		km.curCounters = km.retrieveNodeCounters()
		km.isRunning = false
		km.calculateKpis()
	}
}

func (km *KpiManager) IsRunning() bool {
	return km.isRunning
}

// Data returns the KPIs of the current or last period.
func (km *KpiManager) Data() *Kpi {
	if km.isRunning {
		km.curCounters = km.retrieveNodeCounters()
		km.calculateKpis()
	}
	return km.data
}

func (km *KpiManager) SaveDefaultFile() error {
	return km.SaveFile(km.getDefaultSaveFileName())
}

func (km *KpiManager) SaveFile(fn string) error {
	data := km.Data()
	data.FileTime = time.Now().Format(time.RFC3339)
	js, err := json.MarshalIndent(data, "", "    ")
	logger.PanicIfError(err, "could not marshal KPI JSON data")

	if err = os.WriteFile(fn, js, 0644); err != nil {
		return errors.Wrapf(err, "could not write KPI JSON file %s", fn)
	}
	return nil
}

func (km *KpiManager) stopNode(nodeid NodeId) {
	// deleted nodes during a KPI period won't be used anymore in final node-specific KPI calculations.
	delete(km.startCounters, nodeid)
	delete(km.curCounters, nodeid)
}

func (km *KpiManager) retrieveNodeCounters() NodeCountersStore {
	nodes := km.sim.GetNodes()
	nodesMap := make(NodeCountersStore, len(nodes))
	for _, nid := range nodes {
		nodesMap[nid] = km.sim.nodes[nid].Counters()
	}
	return nodesMap
}

func (km *KpiManager) copyChannelStats() map[ChannelId]channelStats {
	res := make(map[ChannelId]channelStats, len(km.sim.chanStats))
	for ch, cs := range km.sim.chanStats {
		res[ch] = *cs
	}
	return res
}

func getCountersDiff(curCtr NodeCounters, startCtr NodeCounters) NodeCounters {
	ret := NodeCounters{}
	for k, v := range curCtr {
		// a node created during the period starts from 0
		ret[k] = v - startCtr[k]
	}
	return ret
}

func (km *KpiManager) calculateKpis() {
	// time
	km.data.TimeUs.EndTimeUs = km.sim.Now()
	km.data.TimeUs.PeriodUs = km.data.TimeUs.EndTimeUs - km.data.TimeUs.StartTimeUs
	km.data.TimeSec.StartTimeSec = float64(km.data.TimeUs.StartTimeUs) / 1e6
	km.data.TimeSec.EndTimeSec = float64(km.data.TimeUs.EndTimeUs) / 1e6
	km.data.TimeSec.PeriodSec = float64(km.data.TimeUs.PeriodUs) / 1e6
	passedTime := km.data.TimeUs.PeriodUs

	// channels
	km.data.Channels = map[ChannelId]KpiChannel{}
	if passedTime > 0 {
		for ch, cs := range km.sim.chanStats {
			start := km.startChannels[ch]
			txTime, frames := cs.txTimeUs-start.txTimeUs, cs.numFrames-start.numFrames
			km.data.Channels[ch] = KpiChannel{
				TxTimeUs:     txTime,
				TxPercentage: 100.0 * float64(txTime) / float64(passedTime),
				NumFrames:    frames,
				AvgFps:       1.0e6 * float64(frames) / float64(passedTime),
			}
		}
	}

	// counters
	km.data.Mac.NoAckPercentage = make(map[NodeId]float64)
	km.data.Mac.Throughput = make(map[NodeId]float64)
	km.data.Counters = make(map[NodeId]NodeCounters)
	for nid, ctr := range km.curCounters {
		counters := getCountersDiff(ctr, km.startCounters[nid])
		noAck := counters["mac.RetriesNoAck"] + counters["mac.DropsNoAck"]
		attempts := counters["mac.AcksReceived"] + noAck
		km.data.Mac.NoAckPercentage[nid] = 0
		if attempts > 0 {
			km.data.Mac.NoAckPercentage[nid] = 100.0 * float64(noAck) / float64(attempts)
		}
		if passedTime > 0 {
			km.data.Mac.Throughput[nid] = 1.0e6 * float64(counters["app.RxBytes"]) / float64(passedTime)
		}
		km.data.Counters[nid] = counters
	}
}

func (km *KpiManager) getDefaultSaveFileName() string {
	return filepath.Join(km.sim.cfg.OutputDir, fmt.Sprintf("%d_kpi.json", km.sim.cfg.Id))
}
