package circuit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Kuree/canal/graph"
	"github.com/Kuree/canal/hw"
)

// An SB is a compiled switch box: one selector per switch node, the
// internal crossbar mesh, and the pipeline registers with their bypass
// selectors. Switch-node ports are lifted to the unit boundary under
// the node's own name; when a register mux sits behind an output, the
// lifted port carries the register mux's value instead.
type SB struct {
	*configurable

	Box *graph.SwitchBox

	stallWidth int

	sbMuxs  map[string]*hw.Instance // switch node name -> selector
	regMuxs map[string]*hw.Instance // paired OUT node name -> selector
	regs    map[string]*hw.Instance // register short name -> register
}

func sbModuleName(box *graph.SwitchBox, coreName string) string {
	name := fmt.Sprintf("SB_ID%d_%dTRACKS_B%d_%s",
		box.ID, box.NumTrack(), box.Width(), coreName)

	return strings.TrimSuffix(name, "_")
}

// NewSB compiles a switch box. An intentionally empty box (zero switch
// nodes) compiles to a unit with no ports at all.
func NewSB(
	box *graph.SwitchBox,
	addrWidth, dataWidth int,
	coreName string,
	stallWidth int,
) (*SB, error) {
	sb := &SB{
		configurable: newConfigurable(
			sbModuleName(box, coreName), addrWidth, dataWidth),
		Box:        box,
		stallWidth: stallWidth,
		sbMuxs:     make(map[string]*hw.Instance),
		regMuxs:    make(map[string]*hw.Instance),
		regs:       make(map[string]*hw.Instance),
	}

	nodes := box.AllSwitchNodes()
	if len(nodes) > 0 {
		sb.addConfigSurface()
	}

	if err := sb.createRegs(); err != nil {
		return nil, err
	}
	for _, node := range nodes {
		muxMod, instName := NewMux(node)
		sb.sbMuxs[node.Name()] = sb.mod.AddInstance(instName, muxMod)
	}
	if err := sb.createRegMuxs(); err != nil {
		return nil, err
	}

	for _, node := range nodes {
		sb.liftNode(node)
	}
	sb.connectSBOut()
	if err := sb.connectRegs(); err != nil {
		return nil, err
	}

	if err := sb.setupConfig(nodes); err != nil {
		return nil, err
	}

	return sb, nil
}

// createRegs instantiates the pipeline registers and fans the shared
// stall gate out to their clock enables. All registers are gated by
// bit 0 of the stall signal, whatever its width.
func (sb *SB) createRegs() error {
	names := sortedKeys(sb.Box.Registers())
	if len(names) == 0 {
		return nil
	}

	sb.mod.AddPort("stall", hw.In, sb.stallWidth)
	inv := sb.mod.AddInstance("stall_inv", hw.Inv())
	sb.mod.Wire(sb.mod.Self("stall").Bit(0), inv.Port("I"))

	for _, name := range names {
		node := sb.Box.Registers()[name]
		if len(node.Sources()) != 1 || len(node.Sinks()) != 1 {
			return fmt.Errorf(
				"%w: register %s must have exactly one source and one sink",
				ErrInvalidTopology, node.Name())
		}

		reg := sb.mod.AddInstance(node.Name(), hw.Register(node.Width()))
		sb.mod.Wire(sb.mod.Self("clk"), reg.Port("clk"))
		sb.mod.Wire(inv.Port("O"), reg.Port("clk_en"))
		sb.regs[name] = reg
	}

	return nil
}

// createRegMuxs validates each register mux's fan-in shape and builds
// its fixed two-input selector. The entry is keyed by the paired
// switch output's name so that port lifting can substitute it.
func (sb *SB) createRegMuxs() error {
	for _, name := range sortedKeys(sb.Box.RegisterMuxes()) {
		node := sb.Box.RegisterMuxes()[name]
		outNode, err := regMuxSwitchSource(node)
		if err != nil {
			return err
		}

		muxMod, instName := NewMux(node)
		sb.regMuxs[outNode.Name()] = sb.mod.AddInstance(instName, muxMod)
	}

	return nil
}

// regMuxSwitchSource returns the switch output feeding a register mux,
// checking that the fan-in is exactly one register and one switch
// output.
func regMuxSwitchSource(node *graph.RegisterMuxNode) (*graph.SwitchNode, error) {
	sources := node.Sources()
	if len(sources) != 2 {
		return nil, fmt.Errorf("%w: register mux %s has %d sources, want 2",
			ErrInvalidTopology, node.Name(), len(sources))
	}

	var regNode *graph.RegisterNode
	var outNode *graph.SwitchNode
	for _, src := range sources {
		switch n := src.(type) {
		case *graph.RegisterNode:
			regNode = n
		case *graph.SwitchNode:
			outNode = n
		}
	}
	if regNode == nil || outNode == nil || outNode.IO != graph.SwitchOut {
		return nil, fmt.Errorf(
			"%w: register mux %s must be fed by a register and a switch output",
			ErrInvalidTopology, node.Name())
	}

	return outNode, nil
}

// liftNode lifts one switch node's boundary ports and wires the
// selector's inputs. Inputs fed by switch nodes of this box are wired
// internally; inputs fed by the local core come in through a port
// named after the core port; everything else comes in through the
// node's lifted input array.
func (sb *SB) liftNode(node *graph.SwitchNode) {
	mux := sb.sbMuxs[node.Name()]

	if node.IO == graph.SwitchIn {
		size := len(node.Sources())
		if size < 1 {
			size = 1
		}
		sb.mod.AddArrayPort(node.Name(), hw.In, node.Width(), size)

		// an input selected here may feed the local core; expose the
		// selected value so the tile can reach it
		for _, sink := range node.Sinks() {
			if pn, ok := sink.(*graph.PortNode); ok && sb.sameCoord(pn) {
				sb.mod.AddPort(node.Name()+"_O", hw.Out, node.Width())
				sb.mod.Wire(mux.Port("O"), sb.mod.Self(node.Name()+"_O"))
				break
			}
		}
	} else {
		sb.mod.AddPort(node.Name(), hw.Out, node.Width())
		driver := mux
		if regMux, ok := sb.regMuxs[node.Name()]; ok {
			driver = regMux
		}
		sb.mod.Wire(driver.Port("O"), sb.mod.Self(node.Name()))
	}

	sb.wireMuxInputs(node, mux)
}

func (sb *SB) wireMuxInputs(node *graph.SwitchNode, mux *hw.Instance) {
	sources := node.Sources()
	if len(sources) == 0 {
		// dangling fabric input; pass the lifted element through. A
		// dangling output has no driver and its selector input stays
		// unconnected.
		if node.IO == graph.SwitchIn {
			sb.mod.Wire(sb.mod.Self(node.Name()).At(0), mux.Port("I").At(0))
		}
		return
	}

	for idx, src := range sources {
		switch s := src.(type) {
		case *graph.SwitchNode:
			if sb.ownNode(s) {
				sb.mod.Wire(sb.sbMuxs[s.Name()].Port("O"),
					mux.Port("I").At(idx))
				continue
			}
		case *graph.PortNode:
			if sb.sameCoord(s) {
				if !sb.mod.HasPort(s.Port) {
					sb.mod.AddPort(s.Port, hw.In, s.Width())
				}
				sb.mod.Wire(sb.mod.Self(s.Port), mux.Port("I").At(idx))
				continue
			}
		}

		// external source; reachable through the lifted array only
		if node.IO == graph.SwitchIn {
			sb.mod.Wire(sb.mod.Self(node.Name()).At(idx),
				mux.Port("I").At(idx))
		}
	}
}

// connectSBOut wires each switch output into its pipeline register and
// register mux, forming two of the three bypass wires:
//
//	     REG
//	 1 /     \ 3
//	OUT ----- RMUX
//	      2
func (sb *SB) connectSBOut() {
	for _, node := range sb.Box.AllSwitchNodes() {
		if node.IO != graph.SwitchOut {
			continue
		}

		mux := sb.sbMuxs[node.Name()]
		for _, sink := range node.Sinks() {
			switch s := sink.(type) {
			case *graph.RegisterNode:
				sb.mod.Wire(mux.Port("O"),
					sb.regs[s.RegName].Port("I"))
			case *graph.RegisterMuxNode:
				idx := graph.SourceIndex(s, node)
				sb.mod.Wire(mux.Port("O"),
					sb.regMuxs[node.Name()].Port("I").At(idx))
			}
		}
	}
}

// connectRegs adds the third bypass wire, from each register's output
// into its register mux.
func (sb *SB) connectRegs() error {
	for _, name := range sortedKeys(sb.Box.Registers()) {
		regNode := sb.Box.Registers()[name]
		regMuxNode, ok := regNode.Sinks()[0].(*graph.RegisterMuxNode)
		if !ok {
			return fmt.Errorf("%w: register %s must feed a register mux",
				ErrInvalidTopology, regNode.Name())
		}

		outNode, err := regMuxSwitchSource(regMuxNode)
		if err != nil {
			return err
		}
		idx := graph.SourceIndex(regMuxNode, regNode)
		sb.mod.Wire(sb.regs[name].Port("O"),
			sb.regMuxs[outNode.Name()].Port("I").At(idx))
	}

	return nil
}

// setupConfig allocates the select registers: one per true switch
// selector, and a fixed 1-bit register per register mux.
func (sb *SB) setupConfig(nodes []*graph.SwitchNode) error {
	for _, node := range nodes {
		height := len(node.Sources())
		if height <= 1 {
			continue
		}

		configName := muxSelName(node)
		if err := sb.AddConfig(configName, hw.SelWidth(height)); err != nil {
			return err
		}
		sb.bindNode(configName, node)
		sb.mod.Wire(sb.selOut(configName), sb.sbMuxs[node.Name()].Port("S"))
	}

	for _, name := range sortedKeys(sb.Box.RegisterMuxes()) {
		node := sb.Box.RegisterMuxes()[name]
		outNode, err := regMuxSwitchSource(node)
		if err != nil {
			return err
		}

		configName := muxSelName(node)
		if err := sb.AddConfig(configName, 1); err != nil {
			return err
		}
		sb.bindNode(configName, node)
		sb.mod.Wire(sb.selOut(configName), sb.regMuxs[outNode.Name()].Port("S"))
	}

	if len(nodes) > 0 {
		sb.finalizeConfig()
	}

	return nil
}

// selOut returns the output of the configuration register that drives
// a selector's S input.
func (sb *SB) selOut(configName string) hw.PortRef {
	return sb.configurable.regs[configName].inst.Port("O")
}

func (sb *SB) sameCoord(node graph.Node) bool {
	return node.X() == sb.Box.X() && node.Y() == sb.Box.Y()
}

// ownNode reports whether a switch node belongs to this box.
func (sb *SB) ownNode(node *graph.SwitchNode) bool {
	return sb.sameCoord(node) &&
		sb.Box.Get(node.Side, node.Track, node.IO) == node
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
