// Copyright (c) 2020-2024, The OTNS Authors.
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
	"sort"
	"strconv"
	"strings"

	"github.com/openthread/ot-mac/simulation"
	. "github.com/openthread/ot-mac/types"
)

// getUniqueAndSorted returns a unique-ID'd and sorted version of []NodeSelector.
func getUniqueAndSorted(input []NodeSelector) []NodeSelector {
	u := make([]int, 0, len(input))
	m := make(map[int]NodeSelector, len(input))

	for _, ns := range input {
		if ns.All != nil { // if 'all' nodes are selected, return only the 'all' selector.
			return []NodeSelector{ns}
		}
		m[ns.Id] = ns
	}

	for id := range m {
		u = append(u, id)
	}
	sort.Ints(u)

	n := make([]NodeSelector, 0, len(u))
	for _, id := range u {
		n = append(n, m[id])
	}
	return n
}

// selectNodes resolves node selectors to existing nodes. Unknown ids are returned separately.
func selectNodes(sim *simulation.Simulation, input []NodeSelector) ([]*simulation.Node, []NodeId) {
	var nodes []*simulation.Node
	var missing []NodeId
	for _, sel := range getUniqueAndSorted(input) {
		if sel.All != nil {
			nodes = nodes[:0]
			for _, id := range sim.GetNodes() {
				nodes = append(nodes, sim.GetNode(id))
			}
			return nodes, nil
		}
		if node := sim.GetNode(sel.Id); node != nil {
			nodes = append(nodes, node)
		} else {
			missing = append(missing, sel.Id)
		}
	}
	return nodes, missing
}

// unquote strips the quotes of a string literal, if still present.
func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		if uq, err := strconv.Unquote(s); err == nil {
			return uq
		}
	}
	return s
}
