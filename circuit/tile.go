package circuit

import (
	"fmt"
	"sort"

	"github.com/Kuree/canal/graph"
	"github.com/Kuree/canal/hw"
)

// A Feature is one addressable unit within a tile: the core (when it
// carries configuration), a connection box, or a switch box. The
// position of a feature in the tile's feature list is its feature
// address.
type Feature struct {
	name string
	inst *hw.Instance
	cfg  *configurable
}

// Name returns the feature's name.
func (f *Feature) Name() string { return f.name }

// RegisterNames returns the feature's configuration register names in
// address order, or nil for features compiled elsewhere (the core).
func (f *Feature) RegisterNames() []string {
	if f.cfg == nil {
		return nil
	}

	return f.cfg.RegisterNames()
}

// RegisterWidth returns the width of the named register, or 0.
func (f *Feature) RegisterWidth(name string) int {
	if f.cfg == nil {
		return 0
	}

	return f.cfg.RegisterWidth(name)
}

// NodeForConfig returns the graph node the named register controls,
// or nil.
func (f *Feature) NodeForConfig(name string) graph.Node {
	if f.cfg == nil {
		return nil
	}

	return f.cfg.NodeForConfig(name)
}

// RouteEntry is the configuration write that realizes one routed edge:
// which register of which feature must hold which select value.
type RouteEntry struct {
	RegisterIndex  int
	FeatureAddress int
	ConfigData     int
}

// tileParams collects the optional tile construction parameters.
type tileParams struct {
	tileIDWidth   int
	fullAddrWidth int
	stallWidth    int
}

// TileOption adjusts tile construction parameters.
type TileOption func(*tileParams)

// WithTileIDWidth sets the tile identifier width.
func WithTileIDWidth(w int) TileOption {
	return func(p *tileParams) { p.tileIDWidth = w }
}

// WithFullAddrWidth sets the full configuration address width.
func WithFullAddrWidth(w int) TileOption {
	return func(p *tileParams) { p.fullAddrWidth = w }
}

// WithStallWidth sets the stall signal width.
func WithStallWidth(w int) TileOption {
	return func(p *tileParams) { p.stallWidth = w }
}

// A TileCircuit merges all bit-width variants of one coordinate into a
// single addressable unit: connection boxes per connected core input,
// one switch box per bit width, and the tile-level address decode that
// routes configuration reads and writes to the right feature.
type TileCircuit struct {
	mod *hw.Module

	tiles map[int]*graph.Tile
	x, y  int
	core  graph.Core

	layout     AddrLayout
	stallWidth int

	coreInst *hw.Instance
	cbs      map[string]*CB
	cbInsts  map[string]*hw.Instance
	sbs      map[int]*SB
	sbInsts  map[int]*hw.Instance
	features []*Feature

	finalized bool
}

// NewTileCircuit compiles the tiles that share one coordinate. The map
// is keyed by bit width; all tiles must agree on coordinate and core.
func NewTileCircuit(
	tiles map[int]*graph.Tile,
	addrWidth, dataWidth int,
	opts ...TileOption,
) (*TileCircuit, error) {
	params := tileParams{tileIDWidth: 16, fullAddrWidth: 32, stallWidth: 4}
	for _, opt := range opts {
		opt(&params)
	}

	t := &TileCircuit{
		tiles: tiles,
		layout: AddrLayout{
			FullWidth:       params.fullAddrWidth,
			TileIDWidth:     params.tileIDWidth,
			ConfigAddrWidth: addrWidth,
		},
		stallWidth: params.stallWidth,
		cbs:        make(map[string]*CB),
		cbInsts:    make(map[string]*hw.Instance),
		sbs:        make(map[int]*SB),
		sbInsts:    make(map[int]*hw.Instance),
	}
	t.layout.validate()

	if err := t.checkTiles(); err != nil {
		return nil, err
	}

	t.mod = hw.NewModule(t.moduleName())
	t.mod.AddPort("tile_id", hw.In, params.tileIDWidth)
	t.mod.AddPort("stall", hw.In, params.stallWidth)
	t.mod.AddReset("reset")

	if t.core != nil {
		t.coreInst = t.mod.AddInstance("core",
			coreModule(t.core, params.stallWidth, addrWidth, dataWidth))
	}

	if err := t.createCBs(addrWidth, dataWidth); err != nil {
		return nil, err
	}
	if err := t.createSBs(addrWidth, dataWidth); err != nil {
		return nil, err
	}

	t.liftSBPorts()
	t.connectCBInputs()
	t.connectCoreOutputs()
	t.liftEmptySBPorts()
	t.collectFeatures()

	return t, nil
}

// checkTiles enforces that every bit-width variant sits at the same
// coordinate with the same core.
func (t *TileCircuit) checkTiles() error {
	if len(t.tiles) == 0 {
		return fmt.Errorf("%w: tile circuit needs at least one tile",
			ErrCoordinateMismatch)
	}

	first := true
	for _, width := range t.widths() {
		tile := t.tiles[width]
		if tile.Width() != width {
			return fmt.Errorf("%w: tile width %d registered under %d",
				ErrCoordinateMismatch, tile.Width(), width)
		}

		if first {
			t.x, t.y = tile.X(), tile.Y()
			t.core = tile.Core()
			first = false
			continue
		}
		if tile.X() != t.x || tile.Y() != t.y {
			return fmt.Errorf("%w: tile at (%d, %d) merged into (%d, %d)",
				ErrCoordinateMismatch, tile.X(), tile.Y(), t.x, t.y)
		}
		if tile.Core() != t.core {
			return fmt.Errorf("%w: tiles at (%d, %d) disagree on core",
				ErrCoordinateMismatch, t.x, t.y)
		}
	}

	return nil
}

func (t *TileCircuit) moduleName() string {
	if t.core != nil {
		return "Tile_" + t.core.Name()
	}

	return "Tile_Empty"
}

// InstanceName returns the name a containing fabric uses for this
// tile's instance.
func (t *TileCircuit) InstanceName() string {
	return fmt.Sprintf("Tile_X%02X_Y%02X", t.x, t.y)
}

func (t *TileCircuit) widths() []int {
	widths := make([]int, 0, len(t.tiles))
	for w := range t.tiles {
		widths = append(widths, w)
	}
	sort.Ints(widths)

	return widths
}

// createCBs compiles one connection box per connected core input port
// and wires its output into the core.
func (t *TileCircuit) createCBs(addrWidth, dataWidth int) error {
	for _, width := range t.widths() {
		tile := t.tiles[width]
		for _, portName := range tile.PortNames() {
			node := tile.Port(portName)
			if len(node.Sinks()) > 0 {
				// core output; must not have fan-in of its own
				if len(node.Sources()) != 0 {
					return fmt.Errorf(
						"%w: core output %s has incoming edges",
						ErrInvalidTopology, node.Name())
				}
				continue
			}
			if len(node.Sources()) == 0 {
				continue
			}

			cb, err := NewCB(node, addrWidth, dataWidth)
			if err != nil {
				return err
			}
			inst := t.mod.AddInstance(node.Name(), cb.Module())
			t.mod.Wire(inst.Port("O"), t.coreInst.Port(portName))
			t.cbs[portName] = cb
			t.cbInsts[portName] = inst
		}
	}

	return nil
}

func (t *TileCircuit) createSBs(addrWidth, dataWidth int) error {
	coreName := ""
	if t.core != nil {
		coreName = t.core.Name()
	}

	for _, width := range t.widths() {
		sb, err := NewSB(t.tiles[width].SwitchBox, addrWidth, dataWidth,
			coreName, t.stallWidth)
		if err != nil {
			return err
		}
		t.sbs[width] = sb
		t.sbInsts[width] = t.mod.AddInstance(
			fmt.Sprintf("SB_%d", width), sb.Module())
	}

	return nil
}

// liftSBPorts re-exposes every switch-node port of every switch box at
// the tile boundary under the same name.
func (t *TileCircuit) liftSBPorts() {
	for _, width := range t.widths() {
		sb := t.sbs[width]
		inst := t.sbInsts[width]

		for _, node := range sb.Box.AllSwitchNodes() {
			port := sb.Module().Port(node.Name())
			if node.IO == graph.SwitchIn {
				t.mod.AddArrayPort(node.Name(), hw.In,
					port.Width, port.Size)
				t.mod.Wire(t.mod.Self(node.Name()), inst.Port(node.Name()))
			} else {
				t.mod.AddPort(node.Name(), hw.Out, port.Width)
				t.mod.Wire(inst.Port(node.Name()), t.mod.Self(node.Name()))
			}
		}
	}
}

// connectCBInputs wires each connection box's input elements from the
// switch boxes. Sources at other coordinates are deliberately left
// unconnected; the containing fabric resolves them.
func (t *TileCircuit) connectCBInputs() {
	for _, portName := range sortedKeys(t.cbs) {
		cb := t.cbs[portName]
		inst := t.cbInsts[portName]

		for idx, src := range cb.Node.Sources() {
			if src.X() != t.x || src.Y() != t.y {
				continue
			}

			sbInst := t.sbInsts[src.Width()]
			switch s := src.(type) {
			case *graph.SwitchNode:
				if s.IO == graph.SwitchIn {
					t.mod.Wire(sbInst.Port(s.Name()+"_O"),
						inst.Port("I").At(idx))
				} else {
					t.mod.Wire(sbInst.Port(s.Name()),
						inst.Port("I").At(idx))
				}
			case *graph.RegisterMuxNode:
				// the register mux's value leaves the switch box on
				// the paired output's lifted port
				outNode, err := regMuxSwitchSource(s)
				if err == nil {
					t.mod.Wire(sbInst.Port(outNode.Name()),
						inst.Port("I").At(idx))
				}
			case *graph.PortNode:
				t.mod.Wire(t.coreInst.Port(s.Port), inst.Port("I").At(idx))
			}
		}
	}
}

// connectCoreOutputs feeds the core's output ports into the switch
// boxes that consume them.
func (t *TileCircuit) connectCoreOutputs() {
	for _, width := range t.widths() {
		tile := t.tiles[width]
		for _, portName := range tile.PortNames() {
			node := tile.Port(portName)
			if len(node.Sinks()) == 0 {
				continue
			}

			wired := make(map[int]bool)
			for _, sink := range node.Sinks() {
				sn, ok := sink.(*graph.SwitchNode)
				if !ok || sn.X() != t.x || sn.Y() != t.y {
					continue
				}
				if wired[sn.Width()] {
					continue
				}

				sbInst := t.sbInsts[sn.Width()]
				if sbInst.Module.HasPort(portName) {
					t.mod.Wire(t.coreInst.Port(portName),
						sbInst.Port(portName))
					wired[sn.Width()] = true
				}
			}
		}
	}
}

// liftEmptySBPorts handles bit widths whose switch box has zero
// tracks: the core's ports for that width are lifted straight to the
// tile boundary, bypassing the fabric for that width entirely.
func (t *TileCircuit) liftEmptySBPorts() {
	if t.core == nil {
		return
	}

	for _, width := range t.widths() {
		if t.sbs[width].Box.NumTrack() > 0 {
			continue
		}

		for _, decl := range t.core.Inputs() {
			if decl.Width != width {
				continue
			}

			node := t.tiles[width].Port(decl.Name)
			if node != nil && len(node.Sources()) > 0 {
				cbPort := t.cbs[decl.Name].Module().Port("I")
				t.mod.AddArrayPort(decl.Name, hw.In,
					cbPort.Width, cbPort.Size)
				t.mod.Wire(t.mod.Self(decl.Name),
					t.cbInsts[decl.Name].Port("I"))
			} else {
				t.mod.AddPort(decl.Name, hw.In, width)
				t.mod.Wire(t.mod.Self(decl.Name),
					t.coreInst.Port(decl.Name))
			}
		}
		for _, decl := range t.core.Outputs() {
			if decl.Width != width {
				continue
			}

			t.mod.AddPort(decl.Name, hw.Out, width)
			t.mod.Wire(t.coreInst.Port(decl.Name), t.mod.Self(decl.Name))
		}
	}
}

// collectFeatures fixes the feature address order: core first, then
// connection boxes by name, then switch boxes by bit width.
func (t *TileCircuit) collectFeatures() {
	if t.core != nil && t.core.Configurable() {
		t.features = append(t.features, &Feature{
			name: t.core.Name(),
			inst: t.coreInst,
		})
	}
	for _, name := range sortedKeys(t.cbs) {
		t.features = append(t.features, &Feature{
			name: t.cbs[name].Module().Name(),
			inst: t.cbInsts[name],
			cfg:  t.cbs[name].configurable,
		})
	}
	for _, width := range t.widths() {
		t.features = append(t.features, &Feature{
			name: t.sbs[width].Module().Name(),
			inst: t.sbInsts[width],
			cfg:  t.sbs[width].configurable,
		})
	}
}

// Module returns the compiled tile.
func (t *TileCircuit) Module() *hw.Module { return t.mod }

// Features returns the tile's features in address order.
func (t *TileCircuit) Features() []*Feature { return t.features }

func (t *TileCircuit) X() int { return t.x }
func (t *TileCircuit) Y() int { return t.y }

// Layout returns the tile's address layout.
func (t *TileCircuit) Layout() AddrLayout { return t.layout }

// Finalize builds the tile-level configuration decode: the tile-id
// gate, the per-feature one-hot write enables, and the read-back
// selector. It must be called exactly once; when no feature exposes a
// configuration surface, the tile itself exposes none either.
func (t *TileCircuit) Finalize() error {
	if t.finalized {
		return fmt.Errorf("%w: tile at (%d, %d)", ErrAlreadyFinalized, t.x, t.y)
	}
	t.finalized = true

	for _, inst := range t.mod.Instances() {
		if inst.Module.HasPort("stall") {
			t.mod.Wire(t.mod.Self("stall"), inst.Port("stall"))
		}
		if inst.Module.HasPort("reset") {
			t.mod.Wire(t.mod.Self("reset"), inst.Port("reset"))
		}
	}

	if !t.needsConfig() {
		return nil
	}

	t.mod.AddClock("clk")
	for _, inst := range t.mod.Instances() {
		if inst.Module.HasPort("clk") {
			t.mod.Wire(t.mod.Self("clk"), inst.Port("clk"))
		}
	}

	addrWidth := t.layout.ConfigAddrWidth
	dataWidth := t.dataWidth()
	t.mod.AddPort("config_addr", hw.In, t.layout.FullWidth)
	t.mod.AddPort("config_data", hw.In, dataWidth)
	t.mod.AddPort("read", hw.In, 1)
	t.mod.AddPort("write", hw.In, 1)
	t.mod.AddPort("read_config_data", hw.Out, dataWidth)

	regLo, regHi := t.layout.RegisterSlice()
	featLo, featHi := t.layout.FeatureSlice()
	tileLo, tileHi := t.layout.TileIDSlice()

	readDataMux := t.mod.AddInstance("read_data_mux",
		hw.MuxWithDefault(len(t.features), dataWidth, addrWidth, 0))
	t.mod.Wire(t.mod.Self("config_addr").Slice(featLo, featHi),
		readDataMux.Port("S"))
	t.mod.Wire(readDataMux.Port("O"), t.mod.Self("read_config_data"))

	eqTile := t.mod.AddInstance("tile_id_eq", hw.Eq(t.layout.TileIDWidth))
	t.mod.Wire(t.mod.Self("tile_id"), eqTile.Port("I0"))
	t.mod.Wire(t.mod.Self("config_addr").Slice(tileLo, tileHi),
		eqTile.Port("I1"))

	readAndTile := t.mod.AddInstance("read_and_tile", hw.And2())
	t.mod.Wire(eqTile.Port("O"), readAndTile.Port("I0"))
	t.mod.Wire(t.mod.Self("read"), readAndTile.Port("I1"))
	t.mod.Wire(readAndTile.Port("O"), readDataMux.Port("EN"))

	writeAndTile := t.mod.AddInstance("write_and_tile", hw.And2())
	t.mod.Wire(eqTile.Port("O"), writeAndTile.Port("I0"))
	t.mod.Wire(t.mod.Self("write"), writeAndTile.Port("I1"))

	for i, feat := range t.features {
		if feat.inst.Module.HasPort("config_addr") {
			t.mod.Wire(t.mod.Self("config_addr").Slice(regLo, regHi),
				feat.inst.Port("config_addr"))
			t.mod.Wire(t.mod.Self("config_data"),
				feat.inst.Port("config_data"))
		}

		if feat.inst.Module.HasPort("read_config_data") {
			t.mod.Wire(feat.inst.Port("read_config_data"),
				readDataMux.Port("I").At(i))
		} else {
			zero := t.mod.AddInstance(fmt.Sprintf("READ_ZERO_%d", i),
				hw.Const(0, dataWidth))
			t.mod.Wire(zero.Port("O"), readDataMux.Port("I").At(i))
		}

		decode := t.mod.AddInstance(fmt.Sprintf("DECODE_FEATURE_%d", i),
			hw.Decode(i, addrWidth))
		t.mod.Wire(t.mod.Self("config_addr").Slice(featLo, featHi),
			decode.Port("I"))

		featAnd := t.mod.AddInstance(fmt.Sprintf("FEATURE_AND_%d", i),
			hw.And2())
		t.mod.Wire(decode.Port("O"), featAnd.Port("I0"))
		t.mod.Wire(writeAndTile.Port("O"), featAnd.Port("I1"))
		if feat.inst.Module.HasPort("config_en") {
			t.mod.Wire(featAnd.Port("O"), feat.inst.Port("config_en"))
		}
	}

	return nil
}

// needsConfig reports whether any feature exposes a configuration
// surface.
func (t *TileCircuit) needsConfig() bool {
	for _, feat := range t.features {
		if feat.inst.Module.HasPort("config_addr") {
			return true
		}
	}

	return false
}

func (t *TileCircuit) dataWidth() int {
	for _, sb := range t.sbs {
		return sb.dataWidth
	}
	for _, cb := range t.cbs {
		return cb.dataWidth
	}

	panic("tile has no features to take the data width from")
}

// RouteConfig resolves the configuration write that realizes the edge
// from src to dst. ConfigData is the position of src within dst's
// fan-in; the register and feature indices locate the select register
// that must hold it.
func (t *TileCircuit) RouteConfig(src, dst graph.Node) (RouteEntry, error) {
	if src.Width() != dst.Width() {
		return RouteEntry{}, fmt.Errorf(
			"%w: width mismatch between %s and %s",
			ErrRouteNotConnected, src.Name(), dst.Name())
	}
	if dst.X() != t.x || dst.Y() != t.y {
		return RouteEntry{}, fmt.Errorf("%w: %s is not at (%d, %d)",
			ErrRouteNotConnected, dst.Name(), t.x, t.y)
	}

	configData := graph.SourceIndex(dst, src)
	if configData < 0 {
		return RouteEntry{}, fmt.Errorf("%w: %s does not feed %s",
			ErrRouteNotConnected, src.Name(), dst.Name())
	}

	var cfg *configurable
	switch d := dst.(type) {
	case *graph.SwitchNode, *graph.RegisterMuxNode:
		sb, ok := t.sbs[dst.Width()]
		if !ok {
			return RouteEntry{}, fmt.Errorf(
				"%w: no switch box for width %d",
				ErrRouteNotConnected, dst.Width())
		}
		cfg = sb.configurable
	case *graph.PortNode:
		cb, ok := t.cbs[d.Port]
		if !ok {
			return RouteEntry{}, fmt.Errorf(
				"%w: no connection box for port %s",
				ErrRouteNotConnected, d.Port)
		}
		cfg = cb.configurable
	default:
		return RouteEntry{}, fmt.Errorf(
			"%w: cannot route into %s", ErrWrongNodeKind, dst.Name())
	}

	regIndex := cfg.RegisterIndex(muxSelName(dst))
	if regIndex < 0 {
		return RouteEntry{}, fmt.Errorf(
			"%w: %s has no select register", ErrRouteNotConnected, dst.Name())
	}

	featureAddr := -1
	for i, feat := range t.features {
		if feat.cfg == cfg {
			featureAddr = i
			break
		}
	}
	if featureAddr < 0 {
		return RouteEntry{}, fmt.Errorf(
			"%w: owning feature of %s not addressable",
			ErrRouteNotConnected, dst.Name())
	}

	return RouteEntry{
		RegisterIndex:  regIndex,
		FeatureAddress: featureAddr,
		ConfigData:     configData,
	}, nil
}

// coreModule builds the black-box shell for a functional core.
func coreModule(core graph.Core, stallWidth, addrWidth, dataWidth int) *hw.Module {
	m := hw.NewBlackbox(core.Name())
	m.AddClock("clk")
	m.AddReset("reset")
	m.AddPort("stall", hw.In, stallWidth)

	for _, decl := range core.Inputs() {
		m.AddPort(decl.Name, hw.In, decl.Width)
	}
	for _, decl := range core.Outputs() {
		m.AddPort(decl.Name, hw.Out, decl.Width)
	}

	if core.Configurable() {
		m.AddPort("config_addr", hw.In, addrWidth)
		m.AddPort("config_data", hw.In, dataWidth)
		m.AddPort("config_en", hw.In, 1)
		m.AddPort("read_config_data", hw.Out, dataWidth)
	}

	return m
}
