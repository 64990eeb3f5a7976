package circuit

import (
	"strings"

	"github.com/Kuree/canal/graph"
	"github.com/Kuree/canal/hw"
)

// muxSelName returns the name of the configuration register that holds
// a node's select value.
func muxSelName(node graph.Node) string {
	return node.Name() + "_sel"
}

// NewMux synthesizes the selector element for a node's fan-in. A node
// with more than one source becomes a true selector and gets a MUX
// instance name; anything else degenerates to a passthrough wire with
// a WIRE name, which downstream logic uses to skip configuration. The
// result is a pure function of the node's fan-in.
func NewMux(node graph.Node) (mux *hw.Module, name string) {
	height := len(node.Sources())
	nodeName := node.Name()

	if height > 1 {
		if strings.Contains(nodeName, "MUX") {
			name = nodeName
		} else {
			name = "MUX_" + nodeName
		}
	} else {
		name = "WIRE_" + nodeName
	}

	return hw.Mux(height, node.Width()), name
}
