// Package interconnect assembles per-bit-width routing graphs into a
// complete fabric: one tile circuit per coordinate, wired together and
// addressed through the shared configuration bus. It also turns routed
// nets back into the configuration writes that realize them.
package interconnect

import (
	"fmt"
	"sort"

	"github.com/Kuree/canal/circuit"
	"github.com/Kuree/canal/graph"
	"github.com/Kuree/canal/hw"
)

// A ConfigWrite is one word of bitstream: a full configuration address
// and the data to store there.
type ConfigWrite struct {
	Addr uint32
	Data uint32
}

// Builder creates interconnect fabrics.
type Builder struct {
	graphs map[int]*graph.Graph

	addrWidth     int
	dataWidth     int
	tileIDWidth   int
	fullAddrWidth int
	stallWidth    int
	liftPorts     bool
}

// NewBuilder creates a fabric builder with the default 32-bit address
// layout.
func NewBuilder() Builder {
	return Builder{
		addrWidth:     8,
		dataWidth:     32,
		tileIDWidth:   16,
		fullAddrWidth: 32,
		stallWidth:    4,
		liftPorts:     true,
	}
}

// WithGraphs sets the routing graphs, keyed by bit width.
func (b Builder) WithGraphs(graphs map[int]*graph.Graph) Builder {
	b.graphs = graphs
	return b
}

// WithAddrWidth sets the feature-level configuration address width.
func (b Builder) WithAddrWidth(w int) Builder {
	b.addrWidth = w
	return b
}

// WithDataWidth sets the configuration data width.
func (b Builder) WithDataWidth(w int) Builder {
	b.dataWidth = w
	return b
}

// WithTileIDWidth sets the tile identifier width.
func (b Builder) WithTileIDWidth(w int) Builder {
	b.tileIDWidth = w
	return b
}

// WithFullAddrWidth sets the full configuration address width.
func (b Builder) WithFullAddrWidth(w int) Builder {
	b.fullAddrWidth = w
	return b
}

// WithStallWidth sets the stall signal width.
func (b Builder) WithStallWidth(w int) Builder {
	b.stallWidth = w
	return b
}

// WithLiftPorts controls whether dangling boundary switch ports are
// lifted to the fabric boundary.
func (b Builder) WithLiftPorts(lift bool) Builder {
	b.liftPorts = lift
	return b
}

// Build compiles the fabric.
func (b Builder) Build(name string) (*Interconnect, error) {
	ic := &Interconnect{
		mod:    hw.NewModule(name),
		graphs: b.graphs,
		layout: circuit.AddrLayout{
			FullWidth:       b.fullAddrWidth,
			TileIDWidth:     b.tileIDWidth,
			ConfigAddrWidth: b.addrWidth,
		},
		dataWidth: b.dataWidth,
		tiles:     make(map[graph.Coord]*circuit.TileCircuit),
		tileInsts: make(map[graph.Coord]*hw.Instance),
		iface:     make(map[string]graph.Node),
	}

	if err := ic.buildTiles(b); err != nil {
		return nil, err
	}
	ic.addFabricPorts(b)
	ic.wireSharedSignals()
	ic.wireTiles()
	if b.liftPorts {
		ic.liftBoundaryPorts()
	}

	return ic, nil
}

// An Interconnect is the compiled fabric.
type Interconnect struct {
	mod    *hw.Module
	graphs map[int]*graph.Graph

	layout    circuit.AddrLayout
	dataWidth int

	tiles     map[graph.Coord]*circuit.TileCircuit
	tileInsts map[graph.Coord]*hw.Instance
	iface     map[string]graph.Node
}

// BitWidths returns the routing graph bit widths in ascending order.
func (ic *Interconnect) BitWidths() []int {
	widths := make([]int, 0, len(ic.graphs))
	for w := range ic.graphs {
		widths = append(widths, w)
	}
	sort.Ints(widths)

	return widths
}

// Graph returns the routing graph for one bit width, or nil.
func (ic *Interconnect) Graph(width int) *graph.Graph {
	return ic.graphs[width]
}

// Coords returns all tile coordinates sorted by x, then y.
func (ic *Interconnect) Coords() []graph.Coord {
	coords := make([]graph.Coord, 0, len(ic.tiles))
	for coord := range ic.tiles {
		coords = append(coords, coord)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].X != coords[j].X {
			return coords[i].X < coords[j].X
		}
		return coords[i].Y < coords[j].Y
	})

	return coords
}

// TileAt returns the compiled tile at the coordinate, or nil.
func (ic *Interconnect) TileAt(x, y int) *circuit.TileCircuit {
	return ic.tiles[graph.Coord{X: x, Y: y}]
}

// Module returns the compiled fabric netlist.
func (ic *Interconnect) Module() *hw.Module { return ic.mod }

// Layout returns the fabric's configuration address layout.
func (ic *Interconnect) Layout() circuit.AddrLayout { return ic.layout }

// DataWidth returns the configuration data width.
func (ic *Interconnect) DataWidth() int { return ic.dataWidth }

// Interface returns the fabric-boundary nodes keyed by lifted port
// name: dangling switch inputs (fabric inputs) and dangling switch
// outputs (fabric outputs).
func (ic *Interconnect) Interface() map[string]graph.Node {
	return ic.iface
}

// Hash returns the structural content hash of the compiled fabric.
func (ic *Interconnect) Hash() uint64 {
	return hw.Hash(ic.mod)
}

// TileID returns the identifier wired into the tile at (x, y): the
// packed coordinate, with y in the high half of the id field.
func (ic *Interconnect) TileID(x, y int) int {
	return y<<(ic.layout.TileIDWidth/2) | x
}

func (ic *Interconnect) buildTiles(b Builder) error {
	for _, coord := range ic.allCoords() {
		byWidth := make(map[int]*graph.Tile)
		for width, g := range ic.graphs {
			if tile := g.GetTile(coord.X, coord.Y); tile != nil {
				byWidth[width] = tile
			}
		}

		tc, err := circuit.NewTileCircuit(byWidth, b.addrWidth, b.dataWidth,
			circuit.WithTileIDWidth(b.tileIDWidth),
			circuit.WithFullAddrWidth(b.fullAddrWidth),
			circuit.WithStallWidth(b.stallWidth))
		if err != nil {
			return err
		}
		if err := tc.Finalize(); err != nil {
			return err
		}

		ic.tiles[coord] = tc
		ic.tileInsts[coord] = ic.mod.AddInstance(tc.InstanceName(), tc.Module())
	}

	return nil
}

// allCoords unions the coordinates of every routing graph.
func (ic *Interconnect) allCoords() []graph.Coord {
	seen := make(map[graph.Coord]bool)
	var coords []graph.Coord
	for _, g := range ic.graphs {
		for _, coord := range g.Coords() {
			if !seen[coord] {
				seen[coord] = true
				coords = append(coords, coord)
			}
		}
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].X != coords[j].X {
			return coords[i].X < coords[j].X
		}
		return coords[i].Y < coords[j].Y
	})

	return coords
}

func (ic *Interconnect) addFabricPorts(b Builder) {
	ic.mod.AddClock("clk")
	ic.mod.AddReset("reset")
	ic.mod.AddPort("stall", hw.In, b.stallWidth)
	ic.mod.AddPort("config_addr", hw.In, b.fullAddrWidth)
	ic.mod.AddPort("config_data", hw.In, b.dataWidth)
	ic.mod.AddPort("read", hw.In, 1)
	ic.mod.AddPort("write", hw.In, 1)
	ic.mod.AddPort("read_config_data", hw.Out, b.dataWidth)
}

// wireSharedSignals fans the clock, reset, stall, and configuration
// bus out to every tile, gives each tile its identifier, and folds the
// tiles' read-back outputs together. A tile whose id does not match
// the address reads back zero, so a plain OR combines them.
func (ic *Interconnect) wireSharedSignals() {
	var readback hw.PortRef
	haveReadback := false

	for _, coord := range ic.Coords() {
		inst := ic.tileInsts[coord]
		mod := inst.Module

		for _, port := range []string{
			"clk", "reset", "stall",
			"config_addr", "config_data", "read", "write",
		} {
			if mod.HasPort(port) {
				ic.mod.Wire(ic.mod.Self(port), inst.Port(port))
			}
		}

		id := ic.mod.AddInstance(
			fmt.Sprintf("tile_id_X%02X_Y%02X", coord.X, coord.Y),
			hw.Const(ic.TileID(coord.X, coord.Y), ic.layout.TileIDWidth))
		ic.mod.Wire(id.Port("O"), inst.Port("tile_id"))

		if !mod.HasPort("read_config_data") {
			continue
		}
		if !haveReadback {
			readback = inst.Port("read_config_data")
			haveReadback = true
			continue
		}

		or := ic.mod.AddInstance(
			fmt.Sprintf("read_or_X%02X_Y%02X", coord.X, coord.Y),
			hw.Or(ic.dataWidth))
		ic.mod.Wire(readback, or.Port("I0"))
		ic.mod.Wire(inst.Port("read_config_data"), or.Port("I1"))
		readback = or.Port("O")
	}

	if haveReadback {
		ic.mod.Wire(readback, ic.mod.Self("read_config_data"))
	}
}

// wireTiles connects switch ports and core ports across tile
// boundaries, following the cross-coordinate edges of the routing
// graphs.
func (ic *Interconnect) wireTiles() {
	for _, width := range ic.BitWidths() {
		g := ic.graphs[width]
		for _, coord := range g.Coords() {
			tile := g.GetTile(coord.X, coord.Y)
			dstInst := ic.tileInsts[coord]

			for _, node := range tile.SwitchBox.AllSwitchNodes() {
				if node.IO != graph.SwitchIn {
					continue
				}
				for idx, src := range node.Sources() {
					ic.wireCrossTileEdge(src, dstInst, node.Name(), idx,
						coord)
				}
			}

			for _, portName := range tile.PortNames() {
				portNode := tile.Port(portName)
				if !dstInst.Module.HasPort(portName) {
					continue
				}
				for idx, src := range portNode.Sources() {
					ic.wireCrossTileEdge(src, dstInst, portName, idx, coord)
				}
			}
		}
	}
}

// wireCrossTileEdge wires one fan-in element of a lifted tile port
// from the source node's own tile. Same-coordinate sources are already
// wired inside the tile and are skipped here.
func (ic *Interconnect) wireCrossTileEdge(
	src graph.Node,
	dstInst *hw.Instance,
	dstPort string,
	idx int,
	dstCoord graph.Coord,
) {
	srcCoord := graph.Coord{X: src.X(), Y: src.Y()}
	if srcCoord == dstCoord {
		return
	}
	srcInst := ic.tileInsts[srcCoord]
	if srcInst == nil {
		return
	}

	srcPort := ""
	switch s := src.(type) {
	case *graph.SwitchNode:
		srcPort = s.Name()
	case *graph.RegisterMuxNode:
		// the register mux value leaves its tile under the paired
		// switch output's name
		for _, rmSrc := range s.Sources() {
			if sn, ok := rmSrc.(*graph.SwitchNode); ok {
				srcPort = sn.Name()
			}
		}
	case *graph.PortNode:
		srcPort = s.Port
	}
	if srcPort == "" || !srcInst.Module.HasPort(srcPort) {
		return
	}

	ic.mod.Wire(srcInst.Port(srcPort), dstInst.Port(dstPort).At(idx))
}

// liftBoundaryPorts exposes dangling switch ports at the fabric
// boundary: inputs nothing drives and outputs nothing consumes.
func (ic *Interconnect) liftBoundaryPorts() {
	for _, width := range ic.BitWidths() {
		g := ic.graphs[width]
		for _, coord := range g.Coords() {
			tile := g.GetTile(coord.X, coord.Y)
			inst := ic.tileInsts[coord]

			for _, node := range tile.SwitchBox.AllSwitchNodes() {
				name := fmt.Sprintf("X%02X_Y%02X_%s",
					coord.X, coord.Y, node.Name())

				switch {
				case node.IO == graph.SwitchIn && len(node.Sources()) == 0:
					ic.mod.AddPort(name, hw.In, node.Width())
					ic.mod.Wire(ic.mod.Self(name),
						inst.Port(node.Name()).At(0))
					ic.iface[name] = node
				case node.IO == graph.SwitchOut && danglingOut(node):
					ic.mod.AddPort(name, hw.Out, node.Width())
					ic.mod.Wire(inst.Port(node.Name()), ic.mod.Self(name))
					// a spliced pipeline register moves the
					// observable value to the register mux
					ic.iface[name] = outValueNode(node)
				}
			}
		}
	}
}

// outValueNode picks the node whose value appears on the lifted
// output port: the register mux when a pipeline register is spliced
// in, the switch output itself otherwise.
func outValueNode(node *graph.SwitchNode) graph.Node {
	for _, sink := range node.Sinks() {
		if rm, ok := sink.(*graph.RegisterMuxNode); ok {
			return rm
		}
	}

	return node
}

// danglingOut reports whether nothing downstream consumes the switch
// output, looking through a spliced pipeline register pair.
func danglingOut(node *graph.SwitchNode) bool {
	for _, sink := range node.Sinks() {
		switch s := sink.(type) {
		case *graph.RegisterNode:
		case *graph.RegisterMuxNode:
			if len(s.Sinks()) > 0 {
				return false
			}
		default:
			return false
		}
	}

	return true
}

// RouteBitstream compiles one routed net, given as a node walk, into
// the configuration writes that realize it. Edges into passthrough
// wires and into pipeline registers carry no configuration and are
// skipped; every other edge becomes one write.
func (ic *Interconnect) RouteBitstream(route []graph.Node) ([]ConfigWrite, error) {
	var writes []ConfigWrite

	for i := 1; i < len(route); i++ {
		src, dst := route[i-1], route[i]
		if _, isReg := dst.(*graph.RegisterNode); isReg {
			continue
		}
		if len(dst.Sources()) <= 1 {
			continue
		}

		coord := graph.Coord{X: dst.X(), Y: dst.Y()}
		tc := ic.tiles[coord]
		if tc == nil {
			return nil, fmt.Errorf("%w: no tile at (%d, %d)",
				circuit.ErrRouteNotConnected, dst.X(), dst.Y())
		}

		entry, err := tc.RouteConfig(src, dst)
		if err != nil {
			return nil, err
		}

		writes = append(writes, ConfigWrite{
			Addr: ic.layout.Compose(ic.TileID(dst.X(), dst.Y()),
				entry.FeatureAddress, entry.RegisterIndex),
			Data: uint32(entry.ConfigData),
		})
	}

	return writes, nil
}
