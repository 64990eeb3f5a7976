// Package circuit lowers the routing graph into configurable hardware:
// connection boxes, switch boxes, and tiles built out of hw primitives,
// together with the address map a runtime needs to program them.
package circuit

import (
	"fmt"
	"sort"

	"github.com/Kuree/canal/graph"
	"github.com/Kuree/canal/hw"
)

// configurable is the shared base of every compiled unit that owns
// configuration registers. Registers accumulate through AddConfig; a
// single finalizeConfig call assigns their addresses and wires the
// shared bus. Addresses follow sorted register names, so the map only
// depends on the name set, never on registration order.
type configurable struct {
	mod *hw.Module

	addrWidth int
	dataWidth int

	regs         map[string]*configReg
	nodeByConfig map[string]graph.Node
}

type configReg struct {
	inst  *hw.Instance
	width int
}

func newConfigurable(name string, addrWidth, dataWidth int) *configurable {
	return &configurable{
		mod:          hw.NewModule(name),
		addrWidth:    addrWidth,
		dataWidth:    dataWidth,
		regs:         make(map[string]*configReg),
		nodeByConfig: make(map[string]graph.Node),
	}
}

// Module returns the compiled hardware unit.
func (c *configurable) Module() *hw.Module {
	return c.mod
}

// AddConfig registers one configuration register of the given width.
func (c *configurable) AddConfig(name string, width int) error {
	if _, ok := c.regs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateConfig, name)
	}

	inst := c.mod.AddInstance(name,
		hw.ConfigRegister(width, c.addrWidth, c.dataWidth))
	c.regs[name] = &configReg{inst: inst, width: width}

	return nil
}

// bindNode records which graph node a configuration register controls,
// so that a resolved route can be traced back to its register.
func (c *configurable) bindNode(configName string, node graph.Node) {
	c.nodeByConfig[configName] = node
}

// NodeForConfig returns the graph node controlled by the named
// configuration register, or nil.
func (c *configurable) NodeForConfig(name string) graph.Node {
	return c.nodeByConfig[name]
}

// RegisterNames returns all configuration register names in address
// order.
func (c *configurable) RegisterNames() []string {
	names := make([]string, 0, len(c.regs))
	for name := range c.regs {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// RegisterIndex returns the address of the named register, or -1.
func (c *configurable) RegisterIndex(name string) int {
	for i, n := range c.RegisterNames() {
		if n == name {
			return i
		}
	}

	return -1
}

// RegisterWidth returns the width of the named register, or 0.
func (c *configurable) RegisterWidth(name string) int {
	if reg, ok := c.regs[name]; ok {
		return reg.width
	}

	return 0
}

// NumRegisters returns the number of configuration registers.
func (c *configurable) NumRegisters() int {
	return len(c.regs)
}

// addConfigSurface adds the configuration-facing ports. Units that end
// up with no configuration never call this, so a degenerate unit has
// no clock, reset, or configuration ports at all.
func (c *configurable) addConfigSurface() {
	c.mod.AddClock("clk")
	c.mod.AddReset("reset")
	c.mod.AddPort("config_addr", hw.In, c.addrWidth)
	c.mod.AddPort("config_data", hw.In, c.dataWidth)
	c.mod.AddPort("config_en", hw.In, 1)
	c.mod.AddPort("read_config_data", hw.Out, c.dataWidth)
}

// finalizeConfig assigns addresses in sorted-name order, wires the
// shared configuration bus to every register, and builds the read-back
// path: a selector over all register outputs when there is more than
// one, a direct wire for exactly one, nothing at all for zero.
func (c *configurable) finalizeConfig() {
	names := c.RegisterNames()
	for idx, name := range names {
		reg := c.regs[name]
		reg.inst.SetParam("ADDR", idx)
		c.mod.Wire(c.mod.Self("clk"), reg.inst.Port("clk"))
		c.mod.Wire(c.mod.Self("reset"), reg.inst.Port("reset"))
		c.mod.Wire(c.mod.Self("config_addr"), reg.inst.Port("config_addr"))
		c.mod.Wire(c.mod.Self("config_data"), reg.inst.Port("config_data"))
		c.mod.Wire(c.mod.Self("config_en"), reg.inst.Port("config_en"))
	}

	switch {
	case len(names) > 1:
		mux := c.mod.AddInstance("read_config_data_mux",
			hw.Mux(len(names), c.dataWidth))
		selBits := hw.SelWidth(len(names))
		c.mod.Wire(c.mod.Self("config_addr").Slice(0, selBits),
			mux.Port("S"))
		c.mod.Wire(mux.Port("O"), c.mod.Self("read_config_data"))

		for idx, name := range names {
			reg := c.regs[name]
			c.mod.Wire(reg.inst.Port("O"), mux.Port("I").At(idx))
		}
	case len(names) == 1:
		reg := c.regs[names[0]]
		c.mod.Wire(reg.inst.Port("O"), c.mod.Self("read_config_data"))
	}
}
