package model

import (
	"fmt"

	"github.com/Kuree/canal/hw"
	bitutil "github.com/Kuree/canal/util"
)

// evalIterationCap bounds the combinational settle loop so that an
// accidental combinational cycle cannot hang a test run.
const evalIterationCap = 10000

// An Evaluator executes a compiled netlist. Top-level inputs are set
// with Poke, Eval settles the combinational logic, and Step advances
// every register by one clock edge. Black boxes hold their outputs at
// zero.
type Evaluator struct {
	root *scope
	regs []*scope
}

// scope is one elaborated instance of a module: its own port values
// plus one child scope per instance.
type scope struct {
	mod      *hw.Module
	inst     *hw.Instance
	children []*scope
	childIdx map[string]*scope

	// vals holds one value per port element
	vals map[string][]uint64

	// state is the latched value of register primitives
	state uint64
}

// NewEvaluator elaborates the module tree rooted at top.
func NewEvaluator(top *hw.Module) *Evaluator {
	e := &Evaluator{}
	e.root = e.elaborate(top, nil)

	return e
}

func (e *Evaluator) elaborate(mod *hw.Module, inst *hw.Instance) *scope {
	s := &scope{
		mod:      mod,
		inst:     inst,
		childIdx: make(map[string]*scope),
		vals:     make(map[string][]uint64),
	}
	for _, p := range mod.Ports() {
		s.vals[p.Name] = make([]uint64, p.Size)
	}
	for _, child := range mod.Instances() {
		cs := e.elaborate(child.Module, child)
		s.children = append(s.children, cs)
		s.childIdx[child.Name] = cs
	}

	switch mod.Kind() {
	case "register", "configregister":
		e.regs = append(e.regs, s)
	}

	return s
}

// Poke sets a top-level input port.
func (e *Evaluator) Poke(port string, value uint64) {
	p := e.root.mod.Port(port)
	if p == nil {
		panic(fmt.Sprintf("no port %s on %s", port, e.root.mod.Name()))
	}

	e.root.vals[port][0] = value & bitutil.Mask(p.Width)
}

// Peek reads a top-level port after the last Eval.
func (e *Evaluator) Peek(port string) uint64 {
	p := e.root.mod.Port(port)
	if p == nil {
		panic(fmt.Sprintf("no port %s on %s", port, e.root.mod.Name()))
	}

	return e.root.vals[port][0]
}

// PokeAt sets one element of a top-level array input.
func (e *Evaluator) PokeAt(port string, index int, value uint64) {
	p := e.root.mod.Port(port)
	if p == nil {
		panic(fmt.Sprintf("no port %s on %s", port, e.root.mod.Name()))
	}

	e.root.vals[port][index] = value & bitutil.Mask(p.Width)
}

// Eval settles the combinational logic.
func (e *Evaluator) Eval() {
	for i := 0; i < evalIterationCap; i++ {
		if !e.sweep(e.root) {
			return
		}
	}

	panic("netlist did not settle, combinational cycle")
}

// Step performs one clock edge: every register evaluates its next
// value against the settled state, then all registers commit at once,
// then the logic settles again.
func (e *Evaluator) Step() {
	e.Eval()

	next := make([]uint64, len(e.regs))
	for i, s := range e.regs {
		next[i] = e.regNext(s)
	}
	for i, s := range e.regs {
		s.state = next[i]
	}

	e.Eval()
}

// regNext computes the register's value after the coming clock edge.
func (e *Evaluator) regNext(s *scope) uint64 {
	width := s.mod.Port("O").Width

	switch s.mod.Kind() {
	case "register":
		if s.vals["clk_en"][0] != 0 {
			return s.vals["I"][0] & bitutil.Mask(width)
		}
		return s.state
	case "configregister":
		if s.vals["reset"][0] != 0 {
			return 0
		}
		addr := uint64(s.inst.Param("ADDR"))
		if s.vals["config_en"][0] != 0 && s.vals["config_addr"][0] == addr {
			return s.vals["config_data"][0] & bitutil.Mask(width)
		}
		return s.state
	default:
		return s.state
	}
}

// sweep propagates values through one scope tree pass and reports
// whether anything changed.
func (e *Evaluator) sweep(s *scope) bool {
	changed := false

	if s.mod.Kind() != "" {
		if e.primitive(s) {
			changed = true
		}
	}

	for _, child := range s.children {
		if e.sweep(child) {
			changed = true
		}
	}

	for _, conn := range s.mod.Conns() {
		if e.transfer(s, conn) {
			changed = true
		}
	}

	return changed
}

// transfer applies one connection. Whole-array-to-whole-array wires
// are copied element by element so that wide arrays never have to be
// flattened into a single value.
func (e *Evaluator) transfer(s *scope, conn hw.Conn) bool {
	srcOwner := e.owner(s, conn.Src)
	dstOwner := e.owner(s, conn.Dst)
	srcPort := srcOwner.mod.Port(conn.Src.Port)
	dstPort := dstOwner.mod.Port(conn.Dst.Port)

	if srcPort.Array && conn.Src.Index < 0 && conn.Src.Hi == 0 &&
		dstPort.Array && conn.Dst.Index < 0 {
		srcVals := srcOwner.vals[conn.Src.Port]
		dstVals := dstOwner.vals[conn.Dst.Port]

		changed := false
		for i := range dstVals {
			var v uint64
			if i < len(srcVals) {
				v = srcVals[i] & bitutil.Mask(dstPort.Width)
			}
			if dstVals[i] != v {
				dstVals[i] = v
				changed = true
			}
		}

		return changed
	}

	return e.write(s, conn.Dst, e.read(s, conn.Src))
}

func (e *Evaluator) owner(s *scope, ref hw.PortRef) *scope {
	if ref.Instance != nil {
		return s.childIdx[ref.Instance.Name]
	}

	return s
}

// primitive computes a primitive scope's outputs from its current
// inputs, returning whether an output changed.
func (e *Evaluator) primitive(s *scope) bool {
	width := s.mod.Port("O").Width
	var out uint64

	switch s.mod.Kind() {
	case "mux":
		if s.mod.Param("HEIGHT") > 1 {
			sel := s.vals["S"][0]
			if int(sel) < len(s.vals["I"]) {
				out = s.vals["I"][sel]
			}
		} else {
			out = s.vals["I"][0]
		}
	case "muxdefault":
		height := uint64(paramOf(s, "HEIGHT"))
		sel := s.vals["S"][0]
		if s.vals["EN"][0] != 0 && sel < height {
			out = s.vals["I"][sel]
		} else {
			out = uint64(paramOf(s, "DEF"))
		}
	case "register", "configregister":
		out = s.state
	case "const":
		out = uint64(paramOf(s, "VALUE"))
	case "eq":
		if s.vals["I0"][0] == s.vals["I1"][0] {
			out = 1
		}
	case "and":
		out = s.vals["I0"][0] & s.vals["I1"][0]
	case "or":
		out = s.vals["I0"][0] | s.vals["I1"][0]
	case "decode":
		if s.vals["I"][0] == uint64(paramOf(s, "VALUE")) {
			out = 1
		}
	case "inv":
		out = ^s.vals["I"][0]
	default:
		panic("unknown primitive kind " + s.mod.Kind())
	}

	out &= bitutil.Mask(width)
	if s.vals["O"][0] == out {
		return false
	}
	s.vals["O"][0] = out

	return true
}

// paramOf reads a parameter through the instance override.
func paramOf(s *scope, name string) int {
	if s.inst != nil {
		return s.inst.Param(name)
	}

	return s.mod.Param(name)
}

// read resolves a source reference within scope s.
func (e *Evaluator) read(s *scope, ref hw.PortRef) uint64 {
	owner := s
	if ref.Instance != nil {
		owner = s.childIdx[ref.Instance.Name]
	}

	port := owner.mod.Port(ref.Port)
	vals := owner.vals[ref.Port]

	var v uint64
	var width int
	switch {
	case port.Array && ref.Index < 0:
		// whole array read: concatenate elements, element 0 lowest.
		// Arrays wider than one value cannot be flattened; those
		// connections go through transfer's element-wise path.
		if port.Width*port.Size > 64 {
			panic(fmt.Sprintf(
				"cannot flatten %d elements of width %d on port %s",
				port.Size, port.Width, port.Name))
		}
		for i := len(vals) - 1; i >= 0; i-- {
			v = v<<port.Width | vals[i]&bitutil.Mask(port.Width)
		}
		width = port.Width * port.Size
	case ref.Index >= 0:
		v = vals[ref.Index]
		width = port.Width
	default:
		v = vals[0]
		width = port.Width
	}

	if ref.Hi > 0 {
		v = v >> ref.Lo & bitutil.Mask(ref.Hi-ref.Lo)
		width = ref.Hi - ref.Lo
	}

	return v & bitutil.Mask(width)
}

// write stores a value at a destination reference, spreading whole
// array writes across the elements. It reports whether the stored
// value changed.
func (e *Evaluator) write(s *scope, ref hw.PortRef, v uint64) bool {
	owner := s
	if ref.Instance != nil {
		owner = s.childIdx[ref.Instance.Name]
	}

	port := owner.mod.Port(ref.Port)
	vals := owner.vals[ref.Port]

	if port.Array && ref.Index < 0 {
		changed := false
		for i := range vals {
			elem := v >> (i * port.Width) & bitutil.Mask(port.Width)
			if vals[i] != elem {
				vals[i] = elem
				changed = true
			}
		}
		return changed
	}

	idx := 0
	if ref.Index >= 0 {
		idx = ref.Index
	}
	v &= bitutil.Mask(port.Width)
	if vals[idx] == v {
		return false
	}
	vals[idx] = v

	return true
}
