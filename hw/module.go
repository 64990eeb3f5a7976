// Package hw models structural hardware: modules with typed ports,
// child instances, and point-to-point connections. The compiled
// interconnect is built out of these and handed to the Verilog writer
// or to the functional evaluator.
package hw

import "fmt"

// Dir is the direction of a port.
type Dir int

const (
	In Dir = iota
	Out
)

// PortKind distinguishes data ports from clock and reset ports so that
// emission and evaluation can treat them specially.
type PortKind int

const (
	Data PortKind = iota
	Clock
	Reset
)

// A Port is one named port of a module. Array ports hold Size elements
// of Width bits each and are connected element-wise.
type Port struct {
	Name  string
	Dir   Dir
	Width int
	Size  int
	Array bool
	Kind  PortKind
}

// An Instance is one placement of a module inside another. Instances
// may override module parameters, which is how shared primitive
// modules carry per-instance configuration addresses.
type Instance struct {
	Name   string
	Module *Module

	params map[string]int
}

// SetParam overrides a module parameter for this instance only.
func (i *Instance) SetParam(name string, value int) {
	if _, ok := i.Module.params[name]; !ok {
		panic(fmt.Sprintf("module %s has no parameter %s", i.Module.name, name))
	}
	if i.params == nil {
		i.params = make(map[string]int)
	}
	i.params[name] = value
}

// Param returns the effective parameter value for this instance.
func (i *Instance) Param(name string) int {
	if v, ok := i.params[name]; ok {
		return v
	}
	v, ok := i.Module.params[name]
	if !ok {
		panic(fmt.Sprintf("module %s has no parameter %s", i.Module.name, name))
	}

	return v
}

// Port returns a reference to one of the instance's ports.
func (i *Instance) Port(name string) PortRef {
	return PortRef{Instance: i, Port: name, Index: -1}
}

// A PortRef points at a port, or a part of one: an array element, a
// bit slice, or both. A nil Instance refers to the enclosing module's
// own port. Index -1 selects the whole array; Hi 0 selects the full
// width.
type PortRef struct {
	Instance *Instance
	Port     string
	Index    int
	Lo, Hi   int
}

// At narrows the reference to one array element.
func (r PortRef) At(index int) PortRef {
	r.Index = index
	return r
}

// Slice narrows the reference to the bit range [lo, hi).
func (r PortRef) Slice(lo, hi int) PortRef {
	r.Lo = lo
	r.Hi = hi
	return r
}

// Bit narrows the reference to a single bit.
func (r PortRef) Bit(i int) PortRef {
	return r.Slice(i, i+1)
}

// A Conn is one directed connection. When the source is narrower than
// the destination, the value is zero extended.
type Conn struct {
	Src PortRef
	Dst PortRef
}

// A Module is a hardware unit: a port list plus either structural
// contents (instances and connections), a primitive behavior tagged by
// Kind, or nothing at all for a black box.
type Module struct {
	name     string
	kind     string
	blackbox bool

	params   map[string]int
	ports    []*Port
	portIdx  map[string]*Port
	children []*Instance
	childIdx map[string]*Instance
	conns    []Conn
}

// NewModule creates an empty structural module.
func NewModule(name string) *Module {
	return &Module{
		name:     name,
		params:   make(map[string]int),
		portIdx:  make(map[string]*Port),
		childIdx: make(map[string]*Instance),
	}
}

// NewBlackbox creates a module whose implementation lives outside the
// generated output. Only its port list is emitted.
func NewBlackbox(name string) *Module {
	m := NewModule(name)
	m.blackbox = true
	return m
}

func newPrimitive(name, kind string) *Module {
	m := NewModule(name)
	m.kind = kind
	return m
}

func (m *Module) Name() string { return m.name }

// Kind returns the primitive tag, or the empty string for structural
// and black-box modules.
func (m *Module) Kind() string { return m.kind }

func (m *Module) IsBlackbox() bool { return m.blackbox }

// SetParam declares a module parameter with its default value.
func (m *Module) SetParam(name string, value int) {
	m.params[name] = value
}

// Param returns a module parameter's default value.
func (m *Module) Param(name string) int {
	v, ok := m.params[name]
	if !ok {
		panic(fmt.Sprintf("module %s has no parameter %s", m.name, name))
	}

	return v
}

func (m *Module) addPort(p *Port) *Port {
	if _, ok := m.portIdx[p.Name]; ok {
		panic(fmt.Sprintf("module %s already has port %s", m.name, p.Name))
	}
	m.ports = append(m.ports, p)
	m.portIdx[p.Name] = p

	return p
}

// AddPort adds a scalar data port.
func (m *Module) AddPort(name string, dir Dir, width int) *Port {
	return m.addPort(&Port{Name: name, Dir: dir, Width: width, Size: 1})
}

// AddArrayPort adds an array data port with the given element count.
func (m *Module) AddArrayPort(name string, dir Dir, width, size int) *Port {
	return m.addPort(&Port{
		Name: name, Dir: dir, Width: width, Size: size, Array: true,
	})
}

// AddClock adds a 1-bit clock input.
func (m *Module) AddClock(name string) *Port {
	return m.addPort(&Port{Name: name, Dir: In, Width: 1, Size: 1, Kind: Clock})
}

// AddReset adds a 1-bit asynchronous reset input.
func (m *Module) AddReset(name string) *Port {
	return m.addPort(&Port{Name: name, Dir: In, Width: 1, Size: 1, Kind: Reset})
}

// HasPort reports whether the named port exists.
func (m *Module) HasPort(name string) bool {
	_, ok := m.portIdx[name]
	return ok
}

// Port returns the named port, or nil.
func (m *Module) Port(name string) *Port {
	return m.portIdx[name]
}

// Ports returns all ports in declaration order.
func (m *Module) Ports() []*Port {
	return m.ports
}

// Self returns a reference to one of the module's own ports.
func (m *Module) Self(port string) PortRef {
	return PortRef{Port: port, Index: -1}
}

// AddInstance places a child module under the given instance name.
func (m *Module) AddInstance(name string, child *Module) *Instance {
	if _, ok := m.childIdx[name]; ok {
		panic(fmt.Sprintf("module %s already has instance %s", m.name, name))
	}

	inst := &Instance{Name: name, Module: child}
	m.children = append(m.children, inst)
	m.childIdx[name] = inst

	return inst
}

// Instance returns the named child instance, or nil.
func (m *Module) Instance(name string) *Instance {
	return m.childIdx[name]
}

// Instances returns all child instances in creation order.
func (m *Module) Instances() []*Instance {
	return m.children
}

// Wire connects src to dst. Both references are validated against this
// module; an unresolvable reference is a construction bug and panics.
func (m *Module) Wire(src, dst PortRef) {
	m.resolve(src)
	m.resolve(dst)
	m.conns = append(m.conns, Conn{Src: src, Dst: dst})
}

// Conns returns all connections in creation order.
func (m *Module) Conns() []Conn {
	return m.conns
}

// resolve returns the port a reference points at, panicking when the
// reference does not fit this module.
func (m *Module) resolve(ref PortRef) *Port {
	owner := m
	where := m.name
	if ref.Instance != nil {
		if m.childIdx[ref.Instance.Name] != ref.Instance {
			panic(fmt.Sprintf("instance %s does not belong to module %s",
				ref.Instance.Name, m.name))
		}
		owner = ref.Instance.Module
		where = m.name + "." + ref.Instance.Name
	}

	port := owner.Port(ref.Port)
	if port == nil {
		panic(fmt.Sprintf("%s has no port %s", where, ref.Port))
	}
	if ref.Index >= 0 && ref.Index >= port.Size {
		panic(fmt.Sprintf("%s.%s index %d out of range %d",
			where, ref.Port, ref.Index, port.Size))
	}
	if ref.Hi > 0 && (ref.Lo < 0 || ref.Hi > port.Width || ref.Lo >= ref.Hi) {
		panic(fmt.Sprintf("%s.%s slice [%d, %d) out of range %d",
			where, ref.Port, ref.Lo, ref.Hi, port.Width))
	}

	return port
}

// RefWidth returns the bit width a reference selects.
func (m *Module) RefWidth(ref PortRef) int {
	port := m.resolve(ref)
	if ref.Hi > 0 {
		return ref.Hi - ref.Lo
	}
	if port.Array && ref.Index < 0 {
		return port.Width * port.Size
	}

	return port.Width
}
