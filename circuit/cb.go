package circuit

import (
	"fmt"

	"github.com/Kuree/canal/graph"
	"github.com/Kuree/canal/hw"
)

// A CB is a compiled connection box: the selector that chooses which
// incoming signal reaches one core input port. The I array port is
// wired one-to-one to the port node's sources; O carries the selected
// value. A port with a single source compiles to a plain wire with no
// configuration, clock, or reset ports.
type CB struct {
	*configurable

	Node *graph.PortNode

	mux *hw.Instance
}

// NewCB compiles the connection box for a core input port.
func NewCB(node graph.Node, addrWidth, dataWidth int) (*CB, error) {
	port, ok := node.(*graph.PortNode)
	if !ok {
		return nil, fmt.Errorf("%w: connection box needs a port node, got %s",
			ErrWrongNodeKind, node.Name())
	}

	height := len(port.Sources())
	cb := &CB{
		configurable: newConfigurable(port.Name(), addrWidth, dataWidth),
		Node:         port,
	}
	m := cb.Module()

	muxMod, instName := NewMux(port)
	cb.mux = m.AddInstance(instName, muxMod)

	size := height
	if size < 1 {
		size = 1
	}
	m.AddArrayPort("I", hw.In, port.Width(), size)
	m.AddPort("O", hw.Out, port.Width())
	m.Wire(m.Self("I"), cb.mux.Port("I"))
	m.Wire(cb.mux.Port("O"), m.Self("O"))

	if height > 1 {
		cb.addConfigSurface()

		configName := muxSelName(port)
		if err := cb.AddConfig(configName, hw.SelWidth(height)); err != nil {
			return nil, err
		}
		cb.bindNode(configName, port)
		m.Wire(cb.regs[configName].inst.Port("O"), cb.mux.Port("S"))

		cb.finalizeConfig()
	}

	return cb, nil
}
