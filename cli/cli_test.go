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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseBytes(t *testing.T) {
	var cmd Command
	err := parseBytes([]byte("wrongcmd"), &cmd)
	assert.NotNil(t, err)

	assert.Nil(t, parseBytes([]byte("add pan"), &cmd))
	assert.True(t, cmd.Add != nil && cmd.Add.Role.Val == "pan")
	assert.Nil(t, parseBytes([]byte("add coord"), &cmd))
	assert.True(t, cmd.Add != nil && cmd.Add.Role.Val == "coord")
	assert.Nil(t, parseBytes([]byte("add dev x 100 y 200"), &cmd))
	assert.True(t, *cmd.Add.X == 100 && *cmd.Add.Y == 200)
	assert.Nil(t, parseBytes([]byte("add dev id 100 rr 1234"), &cmd))
	assert.True(t, cmd.Add.Id.Val == 100 && cmd.Add.RadioRange.Val == 1234)
	assert.Nil(t, parseBytes([]byte("add dev sleepy poll 500 traffic 1000 ds 40 prio 1 gts 2 seed 7"), &cmd))
	assert.NotNil(t, cmd.Add.Sleepy)
	assert.Equal(t, 500, cmd.Add.Poll.Val)
	assert.Equal(t, 1000, cmd.Add.Traffic.Val)
	assert.Equal(t, 40, cmd.Add.DataSize.Val)
	assert.Equal(t, 1, cmd.Add.Priority.Val)
	assert.Equal(t, 2, cmd.Add.Gts.Val)
	assert.Equal(t, int64(7), *cmd.Add.Seed)
	assert.NotNil(t, parseBytes([]byte("add router"), &cmd))

	assert.True(t, parseBytes([]byte("bcast 1"), &cmd) == nil && cmd.Bcast != nil && cmd.Bcast.DataSize == nil)
	assert.True(t, parseBytes([]byte("bcast 1 ds 10"), &cmd) == nil && cmd.Bcast.DataSize.Val == 10)

	assert.True(t, parseBytes([]byte("counters"), &cmd) == nil && cmd.Counters != nil && cmd.Counters.Node == nil)
	assert.True(t, parseBytes([]byte("counters 3"), &cmd) == nil && cmd.Counters.Node.Id == 3)

	assert.True(t, parseBytes([]byte("del 1"), &cmd) == nil && cmd.Del != nil)
	assert.True(t, parseBytes([]byte("del 1 2 3"), &cmd) == nil && len(cmd.Del.Nodes) == 3)
	assert.True(t, parseBytes([]byte("del all"), &cmd) == nil && cmd.Del.Nodes[0].All != nil)
	assert.True(t, parseBytes([]byte("del"), &cmd) != nil)

	assert.True(t, parseBytes([]byte("exit"), &cmd) == nil && cmd.Exit != nil)

	assert.Nil(t, parseBytes([]byte("go 1"), &cmd))
	assert.NotNil(t, cmd.Go)
	assert.Nil(t, parseBytes([]byte("go 1.1"), &cmd))
	assert.NotNil(t, cmd.Go)
	assert.Nil(t, parseBytes([]byte("go 64us"), &cmd))
	assert.NotNil(t, cmd.Go)
	parsedDuration, _ := time.ParseDuration("64us")
	assert.Equal(t, 64*time.Microsecond, parsedDuration)
	assert.Nil(t, parseBytes([]byte("go ever"), &cmd))
	assert.NotNil(t, cmd.Go.Ever)
	assert.Nil(t, parseBytes([]byte("go 100 speed 0.5"), &cmd))
	assert.Equal(t, 0.5, *cmd.Go.Speed)

	assert.True(t, parseBytes([]byte("gts 2 3"), &cmd) == nil && cmd.Gts != nil && cmd.Gts.Length == 3)
	assert.True(t, parseBytes([]byte("gts 2 3 rx dealloc"), &cmd) == nil && cmd.Gts.Rx != nil && cmd.Gts.Dealloc != nil)

	assert.True(t, parseBytes([]byte("help"), &cmd) == nil && cmd.Help != nil)
	assert.True(t, parseBytes([]byte("help scan"), &cmd) == nil && cmd.Help.HelpTopic == "scan")

	assert.True(t, parseBytes([]byte("kpi"), &cmd) == nil && cmd.Kpi != nil && cmd.Kpi.Action == "")
	assert.True(t, parseBytes([]byte("kpi start"), &cmd) == nil && cmd.Kpi.Action == "start")
	assert.True(t, parseBytes([]byte("kpi save \"kpi.json\""), &cmd) == nil && cmd.Kpi.Filename != nil)

	assert.True(t, parseBytes([]byte("load \"net.yaml\""), &cmd) == nil && cmd.Load != nil)
	assert.Equal(t, "net.yaml", unquote(cmd.Load.Filename))
	assert.True(t, parseBytes([]byte("save \"net.yaml\""), &cmd) == nil && cmd.Save != nil)

	assert.True(t, parseBytes([]byte("log"), &cmd) == nil && cmd.LogLevel != nil)
	assert.True(t, parseBytes([]byte("log debug"), &cmd) == nil && cmd.LogLevel.Level == "debug")
	assert.True(t, parseBytes([]byte("log fatal"), &cmd) != nil)

	assert.True(t, parseBytes([]byte("move 1 200 300"), &cmd) == nil && cmd.Move != nil)

	assert.True(t, parseBytes([]byte("node 1"), &cmd) == nil && cmd.Node != nil && cmd.Node.Node.Id == 1)
	assert.True(t, parseBytes([]byte("nodes"), &cmd) == nil && cmd.Nodes != nil)

	assert.True(t, parseBytes([]byte("pib 1"), &cmd) == nil && cmd.Pib != nil && cmd.Pib.Attr == nil)
	assert.True(t, parseBytes([]byte("pib 1 macPANId"), &cmd) == nil && *cmd.Pib.Attr == "macPANId" && cmd.Pib.Value == nil)
	assert.True(t, parseBytes([]byte("pib 1 macPANId 0x1234"), &cmd) == nil && cmd.Pib.Value.Int != nil)
	assert.True(t, parseBytes([]byte("pib 1 macRxOnWhenIdle false"), &cmd) == nil && *cmd.Pib.Value.Bool == "false")
	assert.True(t, parseBytes([]byte("pib 1 macBeaconPayload \"abc\""), &cmd) == nil && cmd.Pib.Value.Str != nil)

	assert.True(t, parseBytes([]byte("plr"), &cmd) == nil && cmd.Plr != nil && cmd.Plr.Val == nil)
	assert.True(t, parseBytes([]byte("plr 1"), &cmd) == nil && cmd.Plr != nil && *cmd.Plr.Val == 1)
	assert.True(t, parseBytes([]byte("plr 0.78910"), &cmd) == nil && cmd.Plr != nil && *cmd.Plr.Val == 0.78910)

	assert.True(t, parseBytes([]byte("poll 2"), &cmd) == nil && cmd.Poll != nil)
	assert.True(t, parseBytes([]byte("reset 1 2"), &cmd) == nil && len(cmd.Reset.Nodes) == 2)

	assert.True(t, parseBytes([]byte("scan 1"), &cmd) == nil && cmd.Scan != nil && cmd.Scan.Type == "")
	assert.True(t, parseBytes([]byte("scan 1 ed ch 0x3800 dur 5"), &cmd) == nil && cmd.Scan.Type == "ed" &&
		*cmd.Scan.Channels == "0x3800" && *cmd.Scan.Duration == 5)
	assert.True(t, parseBytes([]byte("scan 1 orphan"), &cmd) == nil && cmd.Scan.Type == "orphan")

	assert.True(t, parseBytes([]byte("send 1 2"), &cmd) == nil && cmd.Send != nil && cmd.Send.Dst.Id == 2)
	assert.True(t, parseBytes([]byte("send 1 2 datasize 100"), &cmd) == nil && cmd.Send.DataSize.Val == 100)

	assert.True(t, parseBytes([]byte("speed"), &cmd) == nil && cmd.Speed != nil && cmd.Speed.Speed == nil)
	assert.True(t, parseBytes([]byte("speed 1.5"), &cmd) == nil && cmd.Speed != nil && *cmd.Speed.Speed == 1.5)
	assert.True(t, parseBytes([]byte("speed max"), &cmd) == nil && cmd.Speed.Max != nil)

	assert.True(t, parseBytes([]byte("time"), &cmd) == nil && cmd.Time != nil)

	assert.True(t, parseBytes([]byte("watch 1 2"), &cmd) == nil && cmd.Watch != nil && cmd.Watch.Level == "")
	assert.True(t, parseBytes([]byte("watch all debug"), &cmd) == nil && cmd.Watch.Level == "debug")
}

func TestGetUniqueAndSorted(t *testing.T) {
	all := "all"
	sels := getUniqueAndSorted([]NodeSelector{{Id: 5}, {Id: 2}, {Id: 5}})
	assert.Equal(t, []NodeSelector{{Id: 2}, {Id: 5}}, sels)
	sels = getUniqueAndSorted([]NodeSelector{{Id: 5}, {All: &all}})
	assert.Equal(t, 1, len(sels))
	assert.NotNil(t, sels[0].All)
}

func TestScanPeriod(t *testing.T) {
	// 3 channels of 960 * (2^3 + 1) symbols
	assert.Equal(t, uint64(3*138240+scanMarginUs), scanPeriodUs(parseScanType("active"), 0x3800, 3))
	assert.Equal(t, uint64(32*960*16+scanMarginUs), scanPeriodUs(parseScanType("orphan"), 0x800, 3))
	assert.Equal(t, uint64(scanMarginUs), scanPeriodUs(parseScanType("ed"), 0x7ff, 3))
}

func TestHelp(t *testing.T) {
	help := newHelp()
	assert.Contains(t, help.outputGeneralHelp(), "scan")
	assert.Contains(t, help.outputCommandHelp("add"), "Definition:")
	assert.Contains(t, help.outputCommandHelp("nosuchcmd"), "Non-existent")
}
