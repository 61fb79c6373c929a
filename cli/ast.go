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
	"strconv"

	"github.com/alecthomas/participle"
)

// noinspection GoStructTag
type Command struct {
	Add      *AddCmd      `  @@` //nolint
	Bcast    *BcastCmd    `| @@` //nolint
	Counters *CountersCmd `| @@` //nolint
	Del      *DelCmd      `| @@` //nolint
	Exit     *ExitCmd     `| @@` //nolint
	Go       *GoCmd       `| @@` //nolint
	Gts      *GtsCmd      `| @@` //nolint
	Help     *HelpCmd     `| @@` //nolint
	Kpi      *KpiCmd      `| @@` //nolint
	Load     *LoadCmd     `| @@` //nolint
	LogLevel *LogLevelCmd `| @@` //nolint
	Move     *MoveCmd     `| @@` //nolint
	Node     *NodeCmd     `| @@` //nolint
	Nodes    *NodesCmd    `| @@` //nolint
	Pib      *PibCmd      `| @@` //nolint
	Plr      *PlrCmd      `| @@` //nolint
	Poll     *PollCmd     `| @@` //nolint
	Reset    *ResetCmd    `| @@` //nolint
	Save     *SaveCmd     `| @@` //nolint
	Scan     *ScanCmd     `| @@` //nolint
	Send     *SendCmd     `| @@` //nolint
	Speed    *SpeedCmd    `| @@` //nolint
	Time     *TimeCmd     `| @@` //nolint
	Watch    *WatchCmd    `| @@` //nolint
}

// noinspection GoStructTag
type GoCmd struct {
	Cmd   struct{}  `"go"`                                     //nolint
	Time  string    `( @((Int|Float)["h"|"us"|"m"|"ms"|"s"]) ` //nolint
	Ever  *EverFlag `| @@ )`                                   //nolint
	Speed *float64  `[ "speed" (@Int|@Float) ]`                //nolint
}

// noinspection GoStructTag
type NodeSelector struct {
	All *string `( @"all"` //nolint
	Id  int     `| @Int )` //nolint
}

func (ns *NodeSelector) String() string {
	if ns.All != nil {
		return "all"
	}
	return strconv.Itoa(ns.Id)
}

// noinspection GoStructTag
type DataSizeFlag struct {
	Val int `("datasize"|"ds") @Int` //nolint
}

// noinspection GoStructTag
type AddCmd struct {
	Cmd        struct{}          `"add"`            //nolint
	Role       NodeRoleFlag      `@@`               //nolint
	X          *int              `( "x" @Int `      //nolint
	Y          *int              `| "y" @Int `      //nolint
	Id         *AddNodeId        `| @@`             //nolint
	RadioRange *RadioRangeFlag   `| @@`             //nolint
	Sleepy     *SleepyFlag       `| @@`             //nolint
	Poll       *PollIntervalFlag `| @@`             //nolint
	Traffic    *TrafficFlag      `| @@`             //nolint
	DataSize   *DataSizeFlag     `| @@`             //nolint
	Priority   *PriorityFlag     `| @@`             //nolint
	Gts        *GtsSlotsFlag     `| @@`             //nolint
	Seed       *int64            `| "seed" @Int )*` //nolint
}

// noinspection GoStructTag
type NodeRoleFlag struct {
	Val string `@("pan"|"coord"|"dev")` //nolint
}

// noinspection GoStructTag
type AddNodeId struct {
	Val int `"id" @Int` //nolint
}

// noinspection GoStructTag
type RadioRangeFlag struct {
	Val int `"rr" @Int` //nolint
}

// noinspection GoStructTag
type SleepyFlag struct {
	Dummy struct{} `"sleepy"` //nolint
}

// noinspection GoStructTag
type PollIntervalFlag struct {
	Val int `"poll" @Int` //nolint
}

// noinspection GoStructTag
type TrafficFlag struct {
	Val int `"traffic" @Int` //nolint
}

// noinspection GoStructTag
type PriorityFlag struct {
	Val int `("priority"|"prio") @Int` //nolint
}

// noinspection GoStructTag
type GtsSlotsFlag struct {
	Val int `"gts" @Int` //nolint
}

// noinspection GoStructTag
type DelCmd struct {
	Cmd   struct{}       `"del"`   //nolint
	Nodes []NodeSelector `( @@ )+` //nolint
}

// noinspection GoStructTag
type NodeCmd struct {
	Cmd  struct{}     `"node"` //nolint
	Node NodeSelector `@@`     //nolint
}

// noinspection GoStructTag
type NodesCmd struct {
	Cmd struct{} `"nodes"` //nolint
}

// noinspection GoStructTag
type PibCmd struct {
	Cmd   struct{}     `"pib"`      //nolint
	Node  NodeSelector `@@`         //nolint
	Attr  *string      `[ @Ident`   //nolint
	Value *PibValue    `  [ @@ ] ]` //nolint
}

// noinspection GoStructTag
type PibValue struct {
	Bool *string `  @("true"|"false")` //nolint
	Int  *string `| @Int`              //nolint
	Str  *string `| @String`           //nolint
}

// noinspection GoStructTag
type CountersCmd struct {
	Cmd  struct{}      `"counters"` //nolint
	Node *NodeSelector `[ @@ ]`     //nolint
}

// noinspection GoStructTag
type SendCmd struct {
	Cmd      struct{}      `"send"` //nolint
	Src      NodeSelector  `@@`     //nolint
	Dst      NodeSelector  `@@`     //nolint
	DataSize *DataSizeFlag `[ @@ ]` //nolint
}

// noinspection GoStructTag
type BcastCmd struct {
	Cmd      struct{}      `"bcast"` //nolint
	Src      NodeSelector  `@@`      //nolint
	DataSize *DataSizeFlag `[ @@ ]`  //nolint
}

// noinspection GoStructTag
type PollCmd struct {
	Cmd  struct{}     `"poll"` //nolint
	Node NodeSelector `@@`     //nolint
}

// noinspection GoStructTag
type GtsCmd struct {
	Cmd     struct{}     `"gts"`           //nolint
	Node    NodeSelector `@@`              //nolint
	Length  int          `@Int`            //nolint
	Rx      *string      `( @"rx"`         //nolint
	Dealloc *string      `| @"dealloc" )*` //nolint
}

// noinspection GoStructTag
type ScanCmd struct {
	Cmd      struct{}     `"scan"`                                  //nolint
	Node     NodeSelector `@@`                                      //nolint
	Type     string       `[ @("ed"|"active"|"passive"|"orphan") ]` //nolint
	Channels *string      `( "ch" @Int`                             //nolint
	Duration *int         `| "dur" @Int )*`                         //nolint
}

// noinspection GoStructTag
type ResetCmd struct {
	Cmd   struct{}       `"reset"` //nolint
	Nodes []NodeSelector `( @@ )+` //nolint
}

// noinspection GoStructTag
type MoveCmd struct {
	Cmd    struct{}     `"move"` //nolint
	Target NodeSelector `@@`     //nolint
	X      int          `@Int`   //nolint
	Y      int          `@Int`   //nolint
}

// noinspection GoStructTag
type SpeedCmd struct {
	Cmd   struct{}      `"speed"`               //nolint
	Max   *MaxSpeedFlag `( @@`                  //nolint
	Speed *float64      `| [ (@Int|@Float) ] )` //nolint
}

// noinspection MaxSpeedFlag
type MaxSpeedFlag struct {
	Dummy struct{} `( "max" | "inf")` //nolint
}

// noinspection GoStructTag
type TimeCmd struct {
	Cmd struct{} `"time"` //nolint
}

// noinspection GoStructTag
type PlrCmd struct {
	Cmd struct{} `"plr"`             //nolint
	Val *float64 `[ (@Int|@Float) ]` //nolint
}

type LogLevelCmd struct {
	Cmd   struct{} `"log"`                                                                                     //nolint
	Level string   `[@( "micro"|"trace"|"debug"|"info"|"note"|"warn"|"error"|"off"|"T"|"D"|"I"|"N"|"W"|"E" )]` //nolint
}

// noinspection GoStructTag
type WatchCmd struct {
	Cmd   struct{}       `"watch"`                                                                                   //nolint
	Nodes []NodeSelector `( @@ )+`                                                                                   //nolint
	Level string         `[@( "micro"|"trace"|"debug"|"info"|"note"|"warn"|"error"|"off"|"T"|"D"|"I"|"N"|"W"|"E" )]` //nolint
}

// noinspection GoStructTag
type KpiCmd struct {
	Cmd      struct{} `"kpi"`                               //nolint
	Action   string   `[ @("start"|"stop"|"save"|"show") ]` //nolint
	Filename *string  `[ @String ]`                         //nolint
}

// noinspection GoStructTag
type LoadCmd struct {
	Cmd      struct{} `"load"`  //nolint
	Filename string   `@String` //nolint
}

// noinspection GoStructTag
type SaveCmd struct {
	Cmd      struct{} `"save"`  //nolint
	Filename string   `@String` //nolint
}

// noinspection GoStructTag
type EverFlag struct {
	Dummy struct{} `"ever"` //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `"exit"` //nolint
}

// noinspection GoStructTag
type HelpCmd struct {
	Cmd       struct{} `"help"`       //nolint
	HelpTopic string   `[ (@Ident) ]` //nolint
}

var (
	commandParser = participle.MustBuild(&Command{})
)

func parseBytes(b []byte, cmd *Command) error {
	return commandParser.ParseBytes(b, cmd)
}
