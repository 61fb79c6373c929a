// Copyright (c) 2020-2023, The OTNS Authors.
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

package cli

import (
	"context"
	"fmt"
	"io"
	"math/bits"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openthread/ot-mac/logger"
	"github.com/openthread/ot-mac/mac"
	"github.com/openthread/ot-mac/progctx"
	"github.com/openthread/ot-mac/simulation"
	. "github.com/openthread/ot-mac/types"
	"github.com/openthread/ot-mac/wpan"
)

const (
	Prompt = "> "

	// extra simulated time given to a scan started from the CLI, beyond its nominal duration
	scanMarginUs = 50000
)

type CommandContext struct {
	context.Context
	*Command
	rt     *CmdRunner
	err    error
	output io.Writer
}

func (cc *CommandContext) outputStr(msg string) {
	_, _ = fmt.Fprint(cc.output, msg)
}

func (cc *CommandContext) outputf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.output, format, args...)
}

func (cc *CommandContext) errorf(format string, args ...interface{}) {
	cc.error(errors.Errorf(format, args...))
}

func (cc *CommandContext) error(err error) {
	if err != nil {
		if cc.err != nil { // if previous error, print it now and keep the last.
			cc.outputf("Error: %s\n", cc.err)
		}
		cc.err = err
	}
}

// Err returns the last error that occurred during command execution.
func (cc *CommandContext) Err() error {
	return cc.err
}

func (cc *CommandContext) outputItemsAsYaml(items interface{}) {
	var itemsYaml yaml.Node

	err := itemsYaml.Encode(items)
	logger.PanicIfError(err)

	for _, content := range itemsYaml.Content {
		content.Style = yaml.FlowStyle
	}

	data, err := yaml.Marshal(&itemsYaml)
	logger.PanicIfError(err)

	_, err = cc.output.Write(data)
	logger.PanicIfError(err)
}

type CmdRunner struct {
	sim  *simulation.Simulation
	ctx  *progctx.ProgCtx
	help Help
}

func NewCmdRunner(ctx *progctx.ProgCtx, sim *simulation.Simulation) *CmdRunner {
	return &CmdRunner{
		ctx:  ctx,
		sim:  sim,
		help: newHelp(),
	}
}

// RunCommand parses and executes one command line, writing its output and status to output.
func (rt *CmdRunner) RunCommand(cmdline string, output io.Writer) error {
	if rt.ctx.Err() == nil {
		cmd := Command{}
		if err := parseBytes([]byte(cmdline), &cmd); err != nil {
			if _, err := fmt.Fprintf(output, "Error: %v\n", err); err != nil {
				return err
			}
		} else {
			rt.execute(&cmd, output)
		}
	}
	return rt.ctx.Err()
}

func (rt *CmdRunner) HandleCommand(cmdline string, output io.Writer) error {
	return rt.RunCommand(cmdline, output)
}

func (rt *CmdRunner) GetPrompt() string {
	return Prompt
}

func (rt *CmdRunner) execute(cmd *Command, output io.Writer) {
	cc := &CommandContext{
		Context: rt.ctx,
		Command: cmd,
		rt:      rt,
		output:  output,
	}

	defer func() {
		if cc.Err() != nil {
			cc.outputf("Error: %v\n", cc.Err())
		} else {
			cc.outputf("Done\n")
		}
	}()

	defer func() {
		rerr := recover()

		if rerr != nil {
			if err, ok := rerr.(error); ok {
				cc.err = errors.Wrapf(err, "panic: %v", err)
			} else {
				cc.err = errors.Errorf("panic: %v", rerr)
			}
		}
	}()

	if cmd.Add != nil {
		rt.executeAddNode(cc, cmd.Add)
	} else if cmd.Bcast != nil {
		rt.executeBcast(cc, cmd.Bcast)
	} else if cmd.Counters != nil {
		rt.executeCounters(cc, cmd.Counters)
	} else if cmd.Del != nil {
		rt.executeDelNode(cc, cmd.Del)
	} else if cmd.Exit != nil {
		rt.executeExit(cc, cmd.Exit)
	} else if cmd.Go != nil {
		rt.executeGo(cc, cmd.Go)
	} else if cmd.Gts != nil {
		rt.executeGts(cc, cmd.Gts)
	} else if cmd.Help != nil {
		rt.executeHelp(cc, cmd.Help)
	} else if cmd.Kpi != nil {
		rt.executeKpi(cc, cmd.Kpi)
	} else if cmd.Load != nil {
		rt.executeLoad(cc, cmd.Load)
	} else if cmd.LogLevel != nil {
		rt.executeLogLevel(cc, cmd.LogLevel)
	} else if cmd.Move != nil {
		rt.executeMoveNode(cc, cmd.Move)
	} else if cmd.Node != nil {
		rt.executeNode(cc, cmd.Node)
	} else if cmd.Nodes != nil {
		rt.executeLsNodes(cc, cmd.Nodes)
	} else if cmd.Pib != nil {
		rt.executePib(cc, cmd.Pib)
	} else if cmd.Plr != nil {
		rt.executePlr(cc, cmd.Plr)
	} else if cmd.Poll != nil {
		rt.executePoll(cc, cmd.Poll)
	} else if cmd.Reset != nil {
		rt.executeReset(cc, cmd.Reset)
	} else if cmd.Save != nil {
		rt.executeSave(cc, cmd.Save)
	} else if cmd.Scan != nil {
		rt.executeScan(cc, cmd.Scan)
	} else if cmd.Send != nil {
		rt.executeSend(cc, cmd.Send)
	} else if cmd.Speed != nil {
		rt.executeSpeed(cc, cmd.Speed)
	} else if cmd.Time != nil {
		rt.executeTime(cc, cmd.Time)
	} else if cmd.Watch != nil {
		rt.executeWatch(cc, cmd.Watch)
	} else {
		logger.Panicf("unimplemented command: %#v", cmd)
	}
}

func (rt *CmdRunner) postAsyncWait(cc *CommandContext, f func(sim *simulation.Simulation)) {
	done := make(chan struct{})
	if rt.sim.PostAsync(false, func() {
		defer close(done) // even if f() fails execution, 'done' should be closed.
		f(rt.sim)
	}) {
		select {
		case <-done:
		case <-rt.ctx.Done():
			cc.error(simulation.CommandInterruptedError)
		}
	} else {
		cc.error(simulation.CommandInterruptedError) // report cc error if not accepted.
	}
}

// waitGo blocks until a Go period ends or the program exits.
func (rt *CmdRunner) waitGo(cc *CommandContext, done <-chan struct{}) {
	select {
	case <-done:
	case <-rt.ctx.Done():
		cc.error(simulation.CommandInterruptedError)
	}
}

func (rt *CmdRunner) getNode(sim *simulation.Simulation, sel NodeSelector) *simulation.Node {
	if sel.All != nil {
		return nil
	}
	return sim.GetNode(sel.Id)
}

func (rt *CmdRunner) executeGo(cc *CommandContext, cmd *GoCmd) {
	// determine duration and desired speed of the Go simulation period.
	timeDurToGo, err := time.ParseDuration(cmd.Time)
	if cmd.Ever == nil && err != nil {
		timeDurToGo, err = time.ParseDuration(cmd.Time + "s") // try parsing as seconds
		if err != nil {
			cc.errorf("could not parse time duration: %s", cmd.Time)
			return
		}
	}

	var speed float64
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		speed = sim.GetSpeed()
		if cmd.Speed != nil {
			speed = *cmd.Speed
		} else if sim.Config().AutoGo {
			// when in AutoGo mode, 'go' command used to quickly jump time.
			speed = simulation.MaxSimulateSpeed
		}
	})
	if speed == 0 { // when paused, assume 'go' is used to quickly jump time.
		speed = simulation.MaxSimulateSpeed
	}

	if cmd.Ever == nil {
		rt.waitGo(cc, rt.sim.GoAtSpeed(timeDurToGo, speed))
		return
	}
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		sim.SetSpeed(speed) // permanent speed update
	})
	for cc.err == nil { // run forever but stop if rt.ctx.Err indicates "done"
		rt.waitGo(cc, rt.sim.Go(time.Hour))
	}
}

func (rt *CmdRunner) executeSpeed(cc *CommandContext, cmd *SpeedCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		if cmd.Speed == nil && cmd.Max == nil {
			cc.outputf("%v\n", sim.GetSpeed())
		} else if cmd.Max != nil {
			sim.SetSpeed(simulation.MaxSimulateSpeed)
		} else {
			sim.SetSpeed(*cmd.Speed)
		}
	})
}

func (rt *CmdRunner) executeTime(cc *CommandContext, cmd *TimeCmd) {
	var simTime uint64
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		simTime = sim.Now()
	})
	cc.outputf("%d\n", simTime)
}

func (rt *CmdRunner) executeAddNode(cc *CommandContext, cmd *AddCmd) {
	logger.Debugf("Add: %#v", *cmd)
	role, err := simulation.ParseNodeRole(cmd.Role.Val)
	if err != nil {
		cc.error(err)
		return
	}

	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cfg := sim.Config().NewNodeConfig // copy current new-node config for simulation, and modify it.
		cfg.Role = role
		if cmd.X != nil {
			cfg.X = *cmd.X
			cfg.IsAutoPlaced = false
		}
		if cmd.Y != nil {
			cfg.Y = *cmd.Y
			cfg.IsAutoPlaced = false
		}
		if cmd.Id != nil {
			cfg.ID = cmd.Id.Val
		}
		if cmd.RadioRange != nil {
			cfg.RadioRange = cmd.RadioRange.Val
		}
		if cmd.Sleepy != nil {
			cfg.RxOffWhenIdle = true
		}
		if cmd.Poll != nil {
			cfg.PollIntervalUs = uint64(cmd.Poll.Val) * 1000
		}
		if cmd.Traffic != nil {
			cfg.TrafficIntervalUs = uint64(cmd.Traffic.Val) * 1000
		}
		if cmd.DataSize != nil {
			cfg.PayloadLen = cmd.DataSize.Val
		}
		if cmd.Priority != nil {
			cfg.Priority = uint8(cmd.Priority.Val)
		}
		if cmd.Gts != nil {
			cfg.GtsSlots = uint8(cmd.Gts.Val)
		}
		if cmd.Seed != nil {
			cfg.RandomSeed = *cmd.Seed
		}

		node, err := sim.AddNode(&cfg)
		if err != nil {
			cc.error(err)
			return
		}
		cc.outputf("%d\n", node.Id)
	})
}

func (rt *CmdRunner) executeDelNode(cc *CommandContext, cmd *DelCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		nodes, missing := selectNodes(sim, cmd.Nodes)
		for _, id := range missing {
			cc.outputf("Warn: node %d not found, skipping\n", id)
		}
		for _, node := range nodes {
			cc.error(sim.DeleteNode(node.Id))
		}
	})
}

func (rt *CmdRunner) executeReset(cc *CommandContext, cmd *ResetCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		nodes, missing := selectNodes(sim, cmd.Nodes)
		for _, id := range missing {
			cc.outputf("Warn: node %d not found, skipping\n", id)
		}
		for _, node := range nodes {
			node.Restart()
		}
	})
}

func (rt *CmdRunner) executeMoveNode(cc *CommandContext, cmd *MoveCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cc.error(sim.MoveNode(cmd.Target.Id, cmd.X, cmd.Y))
	})
}

func (rt *CmdRunner) executeLsNodes(cc *CommandContext, cmd *NodesCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		for _, nodeid := range sim.GetNodes() {
			node := sim.GetNode(nodeid)
			pib := node.Mac.Pib()
			cfg := node.Config()
			cc.outputf("id=%d\trole=%s\tstate=%s\textaddr=%016x\tshort=%04x\tpanid=%04x\tch=%d\tx=%d\ty=%d\n",
				nodeid, cfg.Role, node.State(), node.Mac.ExtAddr, pib.ShortAddress, pib.PANId, node.Mac.Channel(),
				cfg.X, cfg.Y)
		}
	})
}

type nodeInfo struct {
	Id         NodeId      `yaml:"id"`
	Role       string      `yaml:"role"`
	State      string      `yaml:"state"`
	ExtAddr    string      `yaml:"extaddr"`
	Short      string      `yaml:"short"`
	PanId      string      `yaml:"panid"`
	Channel    ChannelId   `yaml:"channel"`
	Parent     string      `yaml:"parent,omitempty"`
	Superframe string      `yaml:"superframe"`
	Sleepy     bool        `yaml:"sleepy"`
	Children   []childInfo `yaml:"children,omitempty"`
	Pending    int         `yaml:"pending"`
	Gts        []gtsInfo   `yaml:"gts,omitempty"`
	Position   [3]int      `yaml:"pos,flow"`
}

type childInfo struct {
	ExtAddr string `yaml:"extaddr"`
	Short   string `yaml:"short"`
}

type gtsInfo struct {
	Short    string `yaml:"short"`
	Start    uint8  `yaml:"start"`
	Length   uint8  `yaml:"len"`
	RecvOnly bool   `yaml:"rx"`
}

func (rt *CmdRunner) executeNode(cc *CommandContext, cmd *NodeCmd) {
	var info *nodeInfo
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		node := rt.getNode(sim, cmd.Node)
		if node == nil {
			cc.errorf("node %v not found", &cmd.Node)
			return
		}
		info = getNodeInfo(node)
	})
	if info == nil {
		return
	}
	data, err := yaml.Marshal(info)
	logger.PanicIfError(err)
	cc.outputStr(string(data))
}

func getNodeInfo(node *simulation.Node) *nodeInfo {
	pib := node.Mac.Pib()
	cfg := node.Config()
	sf := node.Mac.Superframe()
	info := &nodeInfo{
		Id:         node.Id,
		Role:       cfg.Role.String(),
		State:      node.State().String(),
		ExtAddr:    fmt.Sprintf("%016x", node.Mac.ExtAddr),
		Short:      fmt.Sprintf("%04x", pib.ShortAddress),
		PanId:      fmt.Sprintf("%04x", pib.PANId),
		Channel:    node.Mac.Channel(),
		Superframe: fmt.Sprintf("bo=%d so=%d", sf.BeaconOrder, sf.SuperframeOrder),
		Sleepy:     !pib.RxOnWhenIdle,
		Pending:    node.Mac.Transactions().Len(),
		Position:   [3]int{cfg.X, cfg.Y, cfg.Z},
	}
	if parent := node.Parent(); parent.Mode != wpan.AddrModeNone {
		info.Parent = parent.String()
	}

	children := node.Children()
	exts := make([]uint64, 0, len(children))
	for ext := range children {
		exts = append(exts, ext)
	}
	sort.Slice(exts, func(i, j int) bool { return exts[i] < exts[j] })
	for _, ext := range exts {
		info.Children = append(info.Children, childInfo{
			ExtAddr: fmt.Sprintf("%016x", ext),
			Short:   fmt.Sprintf("%04x", children[ext]),
		})
	}

	role := mac.GtsParent
	if node.Mac.IsCoordinator() {
		role = mac.GtsOwn
	}
	for _, d := range node.Mac.GtsTable(role).Entries() {
		info.Gts = append(info.Gts, gtsInfo{
			Short:    fmt.Sprintf("%04x", d.DevAddr),
			Start:    d.SlotStart,
			Length:   d.Length,
			RecvOnly: d.RecvOnly,
		})
	}
	return info
}

func (rt *CmdRunner) executePib(cc *CommandContext, cmd *PibCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		node := rt.getNode(sim, cmd.Node)
		if node == nil {
			cc.errorf("node %v not found", &cmd.Node)
			return
		}

		if cmd.Attr == nil {
			for _, attr := range mac.PibAttributes() {
				_, value := node.Mac.MlmeGetRequest(attr)
				cc.outputf("%-32s %s\n", attr, formatPibValue(value))
			}
			return
		}

		attr, ok := mac.ParsePibAttribute(*cmd.Attr)
		if !ok {
			cc.errorf("unknown PIB attribute: %s", *cmd.Attr)
			return
		}
		if cmd.Value == nil {
			st, value := node.Mac.MlmeGetRequest(attr)
			if st != mac.Success {
				cc.errorf("%s: %s", attr, st)
				return
			}
			cc.outputf("%s\n", formatPibValue(value))
			return
		}

		value, err := parsePibValue(cmd.Value)
		if err != nil {
			cc.error(err)
			return
		}
		if st := node.Mac.MlmeSetRequest(attr, value); st != mac.Success {
			cc.errorf("%s: %s", attr, st)
		}
	})
}

func formatPibValue(value interface{}) string {
	switch v := value.(type) {
	case []byte:
		return fmt.Sprintf("%x", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func parsePibValue(pv *PibValue) (interface{}, error) {
	switch {
	case pv.Bool != nil:
		return *pv.Bool == "true", nil
	case pv.Int != nil:
		v, err := strconv.ParseUint(*pv.Int, 0, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid PIB value %s", *pv.Int)
		}
		return v, nil
	case pv.Str != nil:
		return []byte(unquote(*pv.Str)), nil
	default:
		return nil, errors.Errorf("missing PIB value")
	}
}

func (rt *CmdRunner) executeCounters(cc *CommandContext, cmd *CountersCmd) {
	var counters simulation.NodeCounters
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		if cmd.Node != nil && cmd.Node.All == nil {
			node := rt.getNode(sim, *cmd.Node)
			if node == nil {
				cc.errorf("node %v not found", cmd.Node)
				return
			}
			counters = node.Counters()
			return
		}
		counters = simulation.NodeCounters{}
		for _, id := range sim.GetNodes() {
			counters.Add(sim.GetNode(id).Counters())
		}
	})

	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cc.outputf("%-40s %v\n", name, counters[name])
	}
}

func (rt *CmdRunner) executeSend(cc *CommandContext, cmd *SendCmd) {
	size := simulation.DefaultPayloadLen
	if cmd.DataSize != nil {
		size = cmd.DataSize.Val
	}
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cc.error(sim.Send(cmd.Src.Id, cmd.Dst.Id, size))
	})
}

func (rt *CmdRunner) executeBcast(cc *CommandContext, cmd *BcastCmd) {
	size := simulation.DefaultPayloadLen
	if cmd.DataSize != nil {
		size = cmd.DataSize.Val
	}
	if size < 0 || size > MaxPhyPacketSize {
		cc.errorf("invalid data size %d", size)
		return
	}
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		node := rt.getNode(sim, cmd.Src)
		if node == nil {
			cc.errorf("node %v not found", &cmd.Src)
			return
		}
		node.Broadcast(size)
	})
}

func (rt *CmdRunner) executePoll(cc *CommandContext, cmd *PollCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		node := rt.getNode(sim, cmd.Node)
		if node == nil {
			cc.errorf("node %v not found", &cmd.Node)
			return
		}
		cc.error(node.Poll())
	})
}

func (rt *CmdRunner) executeGts(cc *CommandContext, cmd *GtsCmd) {
	if cmd.Length < 1 || cmd.Length > 15 {
		cc.errorf("invalid GTS length %d", cmd.Length)
		return
	}
	gc := wpan.GtsCharacteristics{
		Length:   uint8(cmd.Length),
		RecvOnly: cmd.Rx != nil,
		Allocate: cmd.Dealloc == nil,
	}
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		node := rt.getNode(sim, cmd.Node)
		if node == nil {
			cc.errorf("node %v not found", &cmd.Node)
			return
		}
		cc.error(node.RequestGts(gc))
	})
}

type panInfo struct {
	Coord      string `yaml:"coord"`
	Channel    uint8  `yaml:"ch"`
	Superframe string `yaml:"sf"`
	Permit     bool   `yaml:"permit"`
	GtsPermit  bool   `yaml:"gts"`
	Lqi        uint8  `yaml:"lqi"`
}

func parseScanType(s string) mac.ScanType {
	switch s {
	case "ed":
		return mac.ScanEd
	case "passive":
		return mac.ScanPassive
	case "orphan":
		return mac.ScanOrphan
	default:
		return mac.ScanActive
	}
}

// scanPeriodUs is the simulated time a scan over channels takes.
func scanPeriodUs(typ mac.ScanType, channels uint32, duration uint8) uint64 {
	perChannel := uint64(960*((1<<duration)+1)) * TimeUsPerSymbol
	if typ == mac.ScanOrphan {
		perChannel = uint64(32*960) * TimeUsPerSymbol
	}
	return uint64(bits.OnesCount32(channels&ChannelsSupported))*perChannel + scanMarginUs
}

func (rt *CmdRunner) executeScan(cc *CommandContext, cmd *ScanCmd) {
	typ := parseScanType(cmd.Type)
	var channels uint32
	var duration uint8

	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		channels, duration = sim.Config().ScanChannels, sim.Config().ScanDuration
		if cmd.Channels != nil {
			mask, err := strconv.ParseUint(*cmd.Channels, 0, 32)
			if err != nil {
				cc.errorf("invalid channel mask %s", *cmd.Channels)
				return
			}
			channels = uint32(mask)
		}
		if cmd.Duration != nil {
			if *cmd.Duration < 0 || *cmd.Duration > mac.MaxScanDuration {
				cc.errorf("invalid scan duration %d", *cmd.Duration)
				return
			}
			duration = uint8(*cmd.Duration)
		}
		node := rt.getNode(sim, cmd.Node)
		if node == nil {
			cc.errorf("node %v not found", &cmd.Node)
			return
		}
		node.Scan(typ, channels, duration)
	})
	if cc.err != nil {
		return
	}

	period := time.Duration(scanPeriodUs(typ, channels, duration)) * time.Microsecond
	rt.waitGo(cc, rt.sim.GoAtSpeed(period, simulation.MaxSimulateSpeed))
	if cc.err != nil {
		return
	}

	var res *mac.ScanResult
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		if node := rt.getNode(sim, cmd.Node); node != nil {
			res = node.LastScan()
		}
	})
	if res == nil {
		cc.errorf("scan did not complete")
		return
	}

	cc.outputf("status=%s\ttype=%s\tunscanned=%08x\n", res.Status, res.Type, res.UnscannedChannels)
	if typ == mac.ScanEd {
		levels := make([]int, len(res.EnergyList))
		for i, e := range res.EnergyList {
			levels[i] = int(e)
		}
		cc.outputItemsAsYaml(levels)
		return
	}
	pans := make([]panInfo, 0, len(res.PanDescriptors))
	for _, pd := range res.PanDescriptors {
		pans = append(pans, panInfo{
			Coord:      pd.CoordAddr.String(),
			Channel:    pd.Channel,
			Superframe: fmt.Sprintf("bo=%d so=%d", pd.Superframe.BeaconOrder, pd.Superframe.SuperframeOrder),
			Permit:     pd.Superframe.AssociationPermit,
			GtsPermit:  pd.GtsPermit,
			Lqi:        pd.LinkQuality,
		})
	}
	if len(pans) > 0 {
		cc.outputItemsAsYaml(pans)
	}
}

func (rt *CmdRunner) executePlr(cc *CommandContext, cmd *PlrCmd) {
	var plr float64
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		if cmd.Val != nil {
			sim.SetPacketLossRatio(*cmd.Val)
		}
		plr = sim.GetPacketLossRatio()
	})
	cc.outputf("%v\n", plr)
}

func (rt *CmdRunner) executeLogLevel(cc *CommandContext, cmd *LogLevelCmd) {
	if cmd.Level == "" {
		var level logger.Level
		rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
			level = sim.GetLogLevel()
		})
		cc.outputf("%v\n", logger.GetLevelString(level))
		return
	}
	level, err := logger.ParseLevelString(cmd.Level)
	if err != nil {
		cc.error(err)
		return
	}
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		sim.SetLogLevel(level)
	})
}

func (rt *CmdRunner) executeWatch(cc *CommandContext, cmd *WatchCmd) {
	var level logger.Level
	if cmd.Level != "" {
		var err error
		if level, err = logger.ParseLevelString(cmd.Level); err != nil {
			cc.error(err)
			return
		}
	}
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		nodes, missing := selectNodes(sim, cmd.Nodes)
		for _, id := range missing {
			cc.outputf("Warn: node %d not found, skipping\n", id)
		}
		for _, node := range nodes {
			if cmd.Level == "" {
				cc.outputf("%d\t%s\n", node.Id, logger.GetLevelString(node.LogLevel()))
			} else {
				node.SetLogLevel(level)
			}
		}
	})
}

func (rt *CmdRunner) executeKpi(cc *CommandContext, cmd *KpiCmd) {
	var kpi *simulation.Kpi
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		km := sim.KpiManager()
		switch cmd.Action {
		case "start":
			km.Start()
		case "stop":
			km.Stop()
		case "save":
			if cmd.Filename != nil {
				cc.error(km.SaveFile(unquote(*cmd.Filename)))
			} else {
				cc.error(km.SaveDefaultFile())
			}
		case "show":
			kpi = km.Data()
		default:
			if km.IsRunning() {
				cc.outputf("on\n")
			} else {
				cc.outputf("off\n")
			}
		}
	})
	if kpi != nil {
		data, err := yaml.Marshal(kpi)
		logger.PanicIfError(err)
		cc.outputStr(string(data))
	}
}

func (rt *CmdRunner) executeLoad(cc *CommandContext, cmd *LoadCmd) {
	cfgFile, err := simulation.LoadYamlConfigFile(unquote(cmd.Filename))
	if err != nil {
		cc.error(err)
		return
	}
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		if err := cfgFile.MacConfig.Apply(sim.Config()); err != nil {
			cc.error(err)
			return
		}
		cc.error(sim.ImportNodes(cfgFile.NetworkConfig, cfgFile.NodesList))
	})
}

func (rt *CmdRunner) executeSave(cc *CommandContext, cmd *SaveCmd) {
	var cfgFile *simulation.YamlConfigFile
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cfgFile = sim.Export()
	})
	if cfgFile != nil {
		cc.error(simulation.SaveYamlConfigFile(unquote(cmd.Filename), cfgFile))
	}
}

func (rt *CmdRunner) executeExit(cc *CommandContext, cmd *ExitCmd) {
	rt.ctx.Cancel("exit")
}

func (rt *CmdRunner) executeHelp(cc *CommandContext, cmd *HelpCmd) {
	if len(cmd.HelpTopic) > 0 {
		cc.outputStr(rt.help.outputCommandHelp(cmd.HelpTopic))
	} else {
		cc.outputStr(rt.help.outputGeneralHelp())
	}
}
