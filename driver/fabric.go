package driver

import (
	"log/slog"
	"sort"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/Kuree/canal/graph"
	"github.com/Kuree/canal/interconnect"
	"github.com/Kuree/canal/model"
)

// A FabricComp wraps a compiled interconnect as a simulation
// component. Configuration messages on the config port program the
// routing, data messages on the boundary ports stream values through
// the programmed routes.
type FabricComp struct {
	*sim.TickingComponent

	ic       *interconnect.Interconnect
	compiler *model.Compiler
	mdl      *model.Model
	dirty    bool

	// regs mirrors the written configuration space for read back
	regs map[uint32]uint32

	configPort sim.Port
	dataPorts  map[string]sim.Port
	inputs     []string
	outputs    []string

	// consumers maps an output boundary port to the remote port that
	// receives its values
	consumers map[string]sim.RemotePort
}

// ConfigPort returns the port that accepts configuration messages.
func (f *FabricComp) ConfigPort() sim.Port {
	return f.configPort
}

// DataPort returns the port bound to one boundary port of the fabric.
func (f *FabricComp) DataPort(name string) sim.Port {
	return f.dataPorts[name]
}

// InputNames lists the boundary ports that accept data, sorted.
func (f *FabricComp) InputNames() []string {
	return f.inputs
}

// OutputNames lists the boundary ports that produce data, sorted.
func (f *FabricComp) OutputNames() []string {
	return f.outputs
}

// SetConsumer directs the values leaving an output boundary port to a
// remote port.
func (f *FabricComp) SetConsumer(name string, dst sim.RemotePort) {
	f.consumers[name] = dst
}

// Tick applies at most one configuration message and then moves data
// through the fabric.
func (f *FabricComp) Tick() bool {
	progress := f.doConfig()
	progress = f.doData() || progress

	return progress
}

func (f *FabricComp) doConfig() bool {
	item := f.configPort.PeekIncoming()
	if item == nil {
		return false
	}

	switch msg := item.(type) {
	case *ConfigWriteMsg:
		if err := f.compiler.Configure(msg.Addr, msg.Data); err != nil {
			slog.Warn("dropping config write",
				"addr", msg.Addr, "err", err)
		} else {
			f.regs[msg.Addr] = msg.Data
			f.dirty = true
		}
		f.configPort.RetrieveIncoming()

		return true
	case *ConfigReadMsg:
		if !f.configPort.CanSend() {
			return false
		}

		rsp := ConfigReadRspBuilder{}.
			WithSrc(f.configPort.AsRemote()).
			WithDst(msg.Src).
			WithAddr(msg.Addr).
			WithData(f.regs[msg.Addr]).
			Build()
		f.configPort.Send(rsp)
		f.configPort.RetrieveIncoming()

		return true
	default:
		panic("unexpected message on config port")
	}
}

// doData consumes at most one value per input port, then, if anything
// arrived, emits the settled outputs and advances the pipeline
// registers by one cycle.
func (f *FabricComp) doData() bool {
	arrived := false
	for _, name := range f.inputs {
		port := f.dataPorts[name]
		item := port.PeekIncoming()
		if item == nil {
			continue
		}

		msg := item.(*DataMsg)
		if err := f.model().Drive(name, msg.Data); err != nil {
			slog.Warn("dropping data message", "port", name, "err", err)
		}
		port.RetrieveIncoming()
		arrived = true
	}

	if !arrived {
		return false
	}

	m := f.model()
	for _, name := range f.outputs {
		dst, ok := f.consumers[name]
		if !ok {
			continue
		}

		port := f.dataPorts[name]
		if !port.CanSend() {
			continue
		}

		msg := DataMsgBuilder{}.
			WithSrc(port.AsRemote()).
			WithDst(dst).
			WithPort(name).
			WithData(m.Peek(f.ic.Interface()[name])).
			Build()
		port.Send(msg)
	}
	m.Tick()

	return true
}

// model compiles the accumulated configuration on first use and after
// every accepted write. Recompiling resets the data state, so all
// configuration must land before the first data message.
func (f *FabricComp) model() *model.Model {
	if f.mdl == nil || f.dirty {
		m, err := f.compiler.Compile()
		if err != nil {
			panic(err)
		}
		f.mdl = m
		f.dirty = false
	}

	return f.mdl
}

// FabricBuilder can build fabric components.
type FabricBuilder struct {
	engine sim.Engine
	freq   sim.Freq
	ic     *interconnect.Interconnect
}

// MakeFabricBuilder creates a builder with default parameters.
func MakeFabricBuilder() FabricBuilder {
	return FabricBuilder{
		freq: 1 * sim.GHz,
	}
}

// WithEngine sets the engine that drives the component.
func (b FabricBuilder) WithEngine(engine sim.Engine) FabricBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the tick frequency.
func (b FabricBuilder) WithFreq(freq sim.Freq) FabricBuilder {
	b.freq = freq
	return b
}

// WithInterconnect sets the compiled fabric the component wraps.
func (b FabricBuilder) WithInterconnect(ic *interconnect.Interconnect) FabricBuilder {
	b.ic = ic
	return b
}

// Build creates the fabric component with one port per boundary port
// of the interconnect plus a configuration port.
func (b FabricBuilder) Build(name string) *FabricComp {
	f := &FabricComp{
		ic:        b.ic,
		compiler:  model.NewCompiler(b.ic),
		regs:      make(map[uint32]uint32),
		dataPorts: make(map[string]sim.Port),
		consumers: make(map[string]sim.RemotePort),
	}
	f.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, f)

	f.configPort = NewPort(f, 4, 4, name+".Config")
	f.AddPort("Config", f.configPort)

	names := make([]string, 0, len(b.ic.Interface()))
	for n := range b.ic.Interface() {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		port := NewPort(f, 4, 4, name+"."+n)
		f.AddPort(n, port)
		f.dataPorts[n] = port

		// spliced outputs surface as register mux nodes
		if sn, ok := b.ic.Interface()[n].(*graph.SwitchNode); ok &&
			sn.IO == graph.SwitchIn {
			f.inputs = append(f.inputs, n)
		} else {
			f.outputs = append(f.outputs, n)
		}
	}

	return f
}
