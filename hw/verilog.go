package hw

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteVerilog emits the module tree rooted at top as synthesizable
// Verilog. Structurally identical modules are emitted once even when
// they are distinct values; modules that share a name but differ in
// structure are uniquified with an _unq suffix, the way the original
// hardware generators resolve such collisions. Black boxes come out as
// empty shells so the output parses on its own.
func WriteVerilog(w io.Writer, top *Module) error {
	e := &emitter{w: w, names: make(map[*Module]string)}

	var order []*Module
	byName := make(map[string][]*Module)
	hashes := make(map[*Module]uint64)

	var visit func(m *Module)
	visit = func(m *Module) {
		if _, ok := e.names[m]; ok {
			return
		}

		h := Hash(m)
		for _, prev := range byName[m.name] {
			if hashes[prev] == h {
				e.names[m] = e.names[prev]
				return
			}
		}

		name := m.name
		if n := len(byName[m.name]); n > 0 {
			name = fmt.Sprintf("%s_unq%d", m.name, n-1)
		}
		byName[m.name] = append(byName[m.name], m)
		hashes[m] = h
		e.names[m] = name

		for _, child := range m.children {
			visit(child.Module)
		}
		order = append(order, m)
	}

	visit(top)

	for i, m := range order {
		if i > 0 {
			e.printf("\n")
		}
		if err := e.module(m); err != nil {
			return err
		}
	}

	return e.err
}

type emitter struct {
	w     io.Writer
	names map[*Module]string
	err   error
}

func (e *emitter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

// regOutputs lists the output ports a primitive drives from an always
// block. Those are declared as reg instead of wire.
func regOutputs(kind string) map[string]bool {
	switch kind {
	case "register", "configregister":
		return map[string]bool{"O": true}
	default:
		return nil
	}
}

func totalBits(p *Port) int {
	if p.Array {
		return p.Width * p.Size
	}

	return p.Width
}

func portDecl(p *Port, asReg bool) string {
	dir := "input"
	if p.Dir == Out {
		dir = "output"
	}
	net := "wire"
	if asReg {
		net = "reg"
	}

	bits := totalBits(p)
	if bits == 1 {
		return fmt.Sprintf("%s %s %s", dir, net, p.Name)
	}

	return fmt.Sprintf("%s %s [%d:0] %s", dir, net, bits-1, p.Name)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

func (e *emitter) module(m *Module) error {
	e.printf("module %s", m.name)

	if len(m.params) > 0 {
		e.printf(" #(\n")
		names := sortedKeys(m.params)
		for i, name := range names {
			sep := ","
			if i == len(names)-1 {
				sep = ""
			}
			e.printf("    parameter %s = %d%s\n", name, m.params[name], sep)
		}
		e.printf(")")
	}

	e.printf(" (\n")
	regs := regOutputs(m.kind)
	for i, p := range m.ports {
		sep := ","
		if i == len(m.ports)-1 {
			sep = ""
		}
		e.printf("    %s%s\n", portDecl(p, regs[p.Name]), sep)
	}
	e.printf(");\n")

	switch {
	case m.blackbox:
	case m.kind != "":
		e.behavior(m)
	default:
		if err := e.structure(m); err != nil {
			return err
		}
	}

	e.printf("endmodule\n")

	return e.err
}

func (e *emitter) behavior(m *Module) {
	switch m.kind {
	case "mux":
		w := m.Port("O").Width
		if m.Param("HEIGHT") > 1 {
			e.printf("    assign O = I[S * %d +: %d];\n", w, w)
		} else {
			e.printf("    assign O = I;\n")
		}
	case "muxdefault":
		w := m.Port("O").Width
		e.printf("    assign O = (EN && (S < HEIGHT)) ? I[S * %d +: %d] : DEF;\n",
			w, w)
	case "register":
		e.printf("    always @(posedge clk) begin\n")
		e.printf("        if (clk_en) begin\n")
		e.printf("            O <= I;\n")
		e.printf("        end\n")
		e.printf("    end\n")
	case "configregister":
		w := m.Port("O").Width
		e.printf("    always @(posedge clk or posedge reset) begin\n")
		e.printf("        if (reset) begin\n")
		e.printf("            O <= %d'd0;\n", w)
		e.printf("        end else if (config_en && (config_addr == ADDR)) begin\n")
		e.printf("            O <= config_data[%d:0];\n", w-1)
		e.printf("        end\n")
		e.printf("    end\n")
	case "const":
		e.printf("    assign O = VALUE;\n")
	case "eq":
		e.printf("    assign O = (I0 == I1);\n")
	case "and":
		e.printf("    assign O = I0 & I1;\n")
	case "or":
		e.printf("    assign O = I0 | I1;\n")
	case "decode":
		e.printf("    assign O = (I == VALUE);\n")
	case "inv":
		e.printf("    assign O = ~I;\n")
	default:
		panic("unknown primitive kind " + m.kind)
	}
}

func netName(inst *Instance, port string) string {
	return inst.Name + "__" + port
}

type dstKey struct {
	inst string
	port string
}

func (e *emitter) structure(m *Module) error {
	for _, inst := range m.children {
		for _, p := range inst.Module.ports {
			if p.Dir != Out {
				continue
			}
			bits := totalBits(p)
			if bits == 1 {
				e.printf("    wire %s;\n", netName(inst, p.Name))
			} else {
				e.printf("    wire [%d:0] %s;\n", bits-1, netName(inst, p.Name))
			}
		}
	}

	drivers := make(map[dstKey][]Conn)
	for _, c := range m.conns {
		k := dstKey{port: c.Dst.Port}
		if c.Dst.Instance != nil {
			k.inst = c.Dst.Instance.Name
		}
		drivers[k] = append(drivers[k], c)
	}

	for _, inst := range m.children {
		e.printf("\n    %s", inst.Module.name)
		if len(inst.params) > 0 {
			e.printf(" #(")
			names := sortedKeys(inst.params)
			for i, name := range names {
				if i > 0 {
					e.printf(", ")
				}
				e.printf(".%s(%d)", name, inst.params[name])
			}
			e.printf(")")
		}
		e.printf(" %s (\n", inst.Name)

		ports := inst.Module.ports
		for i, p := range ports {
			var expr string
			if p.Dir == Out {
				expr = netName(inst, p.Name)
			} else {
				var err error
				expr, err = e.inputExpr(m, p,
					drivers[dstKey{inst: inst.Name, port: p.Name}])
				if err != nil {
					return fmt.Errorf("%s.%s.%s: %w", m.name, inst.Name, p.Name, err)
				}
			}
			sep := ","
			if i == len(ports)-1 {
				sep = ""
			}
			e.printf("        .%s(%s)%s\n", p.Name, expr, sep)
		}
		e.printf("    );\n")
	}

	wroteAssign := false
	for _, p := range m.ports {
		if p.Dir != Out {
			continue
		}
		conns := drivers[dstKey{port: p.Name}]
		if len(conns) == 0 {
			continue
		}
		expr, err := e.inputExpr(m, p, conns)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", m.name, p.Name, err)
		}
		if !wroteAssign {
			e.printf("\n")
			wroteAssign = true
		}
		e.printf("    assign %s = %s;\n", p.Name, expr)
	}

	return nil
}

// inputExpr builds the expression driving one destination port from
// its connections. Array destinations may be driven whole or
// element-wise; undriven elements read as zero.
func (e *emitter) inputExpr(m *Module, p *Port, conns []Conn) (string, error) {
	if len(conns) == 0 {
		return fmt.Sprintf("%d'd0", totalBits(p)), nil
	}

	whole := true
	for _, c := range conns {
		if c.Dst.Hi > 0 {
			return "", fmt.Errorf("bit-sliced destination not supported")
		}
		if c.Dst.Index >= 0 {
			whole = false
		}
	}

	if whole {
		if len(conns) > 1 {
			return "", fmt.Errorf("multiple drivers")
		}
		return e.srcExpr(m, conns[0].Src, totalBits(p))
	}

	slots := make([]string, p.Size)
	for _, c := range conns {
		if c.Dst.Index < 0 {
			return "", fmt.Errorf("mixed whole and element drivers")
		}
		if slots[c.Dst.Index] != "" {
			return "", fmt.Errorf("element %d driven twice", c.Dst.Index)
		}
		expr, err := e.srcExpr(m, c.Src, p.Width)
		if err != nil {
			return "", err
		}
		slots[c.Dst.Index] = expr
	}
	for i, s := range slots {
		if s == "" {
			slots[i] = fmt.Sprintf("%d'd0", p.Width)
		}
	}
	if len(slots) == 1 {
		return slots[0], nil
	}

	// Verilog concatenation lists the most significant part first.
	rev := make([]string, len(slots))
	for i, s := range slots {
		rev[len(slots)-1-i] = s
	}

	return "{" + strings.Join(rev, ", ") + "}", nil
}

func (e *emitter) srcExpr(m *Module, ref PortRef, want int) (string, error) {
	port := m.resolve(ref)

	base := ref.Port
	if ref.Instance != nil {
		base = netName(ref.Instance, ref.Port)
	}

	var expr string
	var width int
	switch {
	case port.Array && ref.Index >= 0:
		lo := ref.Index * port.Width
		width = port.Width
		if ref.Hi > 0 {
			lo += ref.Lo
			width = ref.Hi - ref.Lo
		}
		expr = fmt.Sprintf("%s[%d:%d]", base, lo+width-1, lo)
	case ref.Hi > 0:
		width = ref.Hi - ref.Lo
		if width == port.Width {
			expr = base
		} else {
			expr = fmt.Sprintf("%s[%d:%d]", base, ref.Hi-1, ref.Lo)
		}
	default:
		width = totalBits(port)
		expr = base
	}

	if width > want {
		return "", fmt.Errorf("cannot narrow %d bits into %d", width, want)
	}
	if width < want {
		expr = fmt.Sprintf("{%d'd0, %s}", want-width, expr)
	}

	return expr, nil
}
