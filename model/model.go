// Package model provides two functional views of a configured fabric:
// a graph-level route model that interprets configuration writes
// against the published address map, and a netlist-level evaluator
// that executes the compiled hardware directly.
package model

import (
	"fmt"

	"github.com/Kuree/canal/circuit"
	"github.com/Kuree/canal/graph"
	"github.com/Kuree/canal/interconnect"
	bitutil "github.com/Kuree/canal/util"
)

// A Compiler accumulates configuration writes and resolves them into
// per-node selections through the fabric's address map.
type Compiler struct {
	ic     *interconnect.Interconnect
	writes []interconnect.ConfigWrite
}

// NewCompiler creates a compiler for the given fabric.
func NewCompiler(ic *interconnect.Interconnect) *Compiler {
	return &Compiler{ic: ic}
}

// Configure records one configuration write. The address must resolve
// to an existing register; later writes to the same register win.
func (c *Compiler) Configure(addr, data uint32) error {
	if _, err := c.resolve(addr); err != nil {
		return err
	}
	c.writes = append(c.writes, interconnect.ConfigWrite{Addr: addr, Data: data})

	return nil
}

// ConfigureAll records a whole bitstream.
func (c *Compiler) ConfigureAll(writes []interconnect.ConfigWrite) error {
	for _, w := range writes {
		if err := c.Configure(w.Addr, w.Data); err != nil {
			return err
		}
	}

	return nil
}

// Compile resolves the accumulated writes into an immutable selection
// state and returns the runnable model.
func (c *Compiler) Compile() (*Model, error) {
	sel := make(map[graph.Node]int)
	for _, w := range c.writes {
		node, err := c.resolve(w.Addr)
		if err != nil {
			return nil, err
		}
		if node == nil {
			// core configuration space, outside the routing graph
			continue
		}
		sel[node] = int(w.Data)
	}

	return &Model{
		ic:    c.ic,
		sel:   sel,
		drive: make(map[graph.Node]uint64),
		regs:  make(map[graph.Node]uint64),
	}, nil
}

// resolve maps a full address to the graph node its register controls.
// The node is nil for addresses inside a core's own register space.
func (c *Compiler) resolve(addr uint32) (graph.Node, error) {
	tileID, featAddr, regIdx := c.ic.Layout().Split(addr)

	var tc *circuit.TileCircuit
	for _, coord := range c.ic.Coords() {
		if c.ic.TileID(coord.X, coord.Y) == tileID {
			tc = c.ic.TileAt(coord.X, coord.Y)
			break
		}
	}
	if tc == nil {
		return nil, fmt.Errorf("address 0x%08X: no tile with id 0x%04X",
			addr, tileID)
	}

	feats := tc.Features()
	if featAddr >= len(feats) {
		return nil, fmt.Errorf("address 0x%08X: feature %d out of range %d",
			addr, featAddr, len(feats))
	}
	feat := feats[featAddr]

	names := feat.RegisterNames()
	if regIdx >= len(names) {
		if names == nil {
			// the core manages its own registers
			return nil, nil
		}
		return nil, fmt.Errorf("address 0x%08X: register %d out of range %d",
			addr, regIdx, len(names))
	}

	return feat.NodeForConfig(names[regIdx]), nil
}

// A Model evaluates a configured fabric at the routing-graph level.
// Values driven at boundary nodes flow through the selected mux edges;
// pipeline registers advance on Tick.
type Model struct {
	ic  *interconnect.Interconnect
	sel map[graph.Node]int

	drive map[graph.Node]uint64
	regs  map[graph.Node]uint64
}

// Drive sets the value of a fabric-boundary input by its lifted port
// name.
func (m *Model) Drive(name string, value uint64) error {
	node, ok := m.ic.Interface()[name]
	if !ok {
		return fmt.Errorf("no boundary port %s", name)
	}
	m.DriveNode(node, value)

	return nil
}

// DriveNode sets the value of an arbitrary node, overriding whatever
// the graph would produce there.
func (m *Model) DriveNode(node graph.Node, value uint64) {
	m.drive[node] = value & bitutil.Mask(node.Width())
}

// Peek evaluates the value at a node. Unconfigured muxes fall back to
// source 0; unreachable nodes read as zero.
func (m *Model) Peek(node graph.Node) uint64 {
	return m.peek(node, make(map[graph.Node]bool))
}

// PeekPort evaluates the named core input port of the tile at (x, y).
func (m *Model) PeekPort(x, y int, name string) (uint64, error) {
	var node *graph.PortNode
	for _, width := range m.ic.BitWidths() {
		if n := m.ic.Graph(width).GetPort(x, y, name); n != nil {
			node = n
			break
		}
	}
	if node == nil {
		return 0, fmt.Errorf("no port %s at (%d, %d)", name, x, y)
	}

	return m.Peek(node), nil
}

func (m *Model) peek(node graph.Node, visiting map[graph.Node]bool) uint64 {
	if v, ok := m.drive[node]; ok {
		return v
	}
	if _, ok := node.(*graph.RegisterNode); ok {
		return m.regs[node]
	}
	if visiting[node] {
		return 0
	}
	visiting[node] = true
	defer delete(visiting, node)

	sources := node.Sources()
	if len(sources) == 0 {
		return 0
	}

	idx := m.sel[node]
	if idx < 0 || idx >= len(sources) {
		return 0
	}

	return m.peek(sources[idx], visiting) & bitutil.Mask(node.Width())
}

// Tick advances every pipeline register by one cycle. All next values
// are evaluated against the old state before any register commits.
func (m *Model) Tick() {
	next := make(map[graph.Node]uint64)

	for _, width := range m.ic.BitWidths() {
		g := m.ic.Graph(width)
		for _, coord := range g.Coords() {
			box := g.GetTile(coord.X, coord.Y).SwitchBox
			for _, reg := range box.Registers() {
				sources := reg.Sources()
				if len(sources) != 1 {
					continue
				}
				next[reg] = m.Peek(sources[0]) & bitutil.Mask(reg.Width())
			}
		}
	}

	for reg, v := range next {
		m.regs[reg] = v
	}
}
