// Copyright (c) 2023-2024, The OTNS Authors.
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

package logger

import (
	"fmt"

	. "github.com/openthread/ot-mac/types"
)

// NodeLogger is the logger of one MAC interface. Each entry is prefixed with the simulated time and the
// node name; the level can be set per node, independent of the global level.
type NodeLogger struct {
	Id    NodeId
	level Level
	now   func() uint64
}

// NewNodeLogger creates a NodeLogger for node id. The now func supplies the simulated time in us.
func NewNodeLogger(id NodeId, now func() uint64) *NodeLogger {
	return &NodeLogger{
		Id:    id,
		level: currentLevel,
		now:   now,
	}
}

func (nl *NodeLogger) SetLevel(level Level) {
	nl.level = level
}

func (nl *NodeLogger) Level() Level {
	return nl.level
}

func (nl *NodeLogger) Logf(level Level, format string, args []interface{}) {
	if level > nl.level {
		return
	}
	var ts uint64
	if nl.now != nil {
		ts = nl.now()
	}
	logAlways(level, fmt.Sprintf("%11d %s%s", ts, GetNodeName(nl.Id), getMessage(format, args)))
}

func (nl *NodeLogger) Tracef(format string, args ...interface{}) {
	nl.Logf(TraceLevel, format, args)
}

func (nl *NodeLogger) Debugf(format string, args ...interface{}) {
	nl.Logf(DebugLevel, format, args)
}

func (nl *NodeLogger) Infof(format string, args ...interface{}) {
	nl.Logf(InfoLevel, format, args)
}

func (nl *NodeLogger) Warnf(format string, args ...interface{}) {
	nl.Logf(WarnLevel, format, args)
}

func (nl *NodeLogger) Errorf(format string, args ...interface{}) {
	nl.Logf(ErrorLevel, format, args)
}
