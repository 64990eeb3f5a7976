package hw

import (
	"fmt"
	"sync"

	bitutil "github.com/Kuree/canal/util"
)

// Primitive modules are shared: two calls with the same arguments
// return the same *Module. Primitives never change after creation, so
// sharing them is safe even when tiles are compiled in parallel.
var primitives = struct {
	sync.Mutex
	byName map[string]*Module
}{byName: make(map[string]*Module)}

func primitive(name string, build func() *Module) *Module {
	primitives.Lock()
	defer primitives.Unlock()

	if m, ok := primitives.byName[name]; ok {
		return m
	}
	m := build()
	primitives.byName[name] = m

	return m
}

// Mux returns a selector with height data inputs. A height of 1 or 0
// is a passthrough: the I array holds a single element, there is no
// select input, and O mirrors I[0].
func Mux(height, width int) *Module {
	name := fmt.Sprintf("Mux_%d_%d", height, width)

	return primitive(name, func() *Module {
		m := newPrimitive(name, "mux")
		m.SetParam("HEIGHT", height)

		size := height
		if size < 1 {
			size = 1
		}
		m.AddArrayPort("I", In, width, size)
		if height > 1 {
			m.AddPort("S", In, bitutil.ClogBase2(height))
		}
		m.AddPort("O", Out, width)

		return m
	})
}

// SelWidth returns the select width of a Mux of the given height, or 0
// when the mux degenerates to a passthrough.
func SelWidth(height int) int {
	if height <= 1 {
		return 0
	}

	return bitutil.ClogBase2(height)
}

// MuxWithDefault returns a selector that yields a fixed default value
// when not enabled or when the select value is out of range.
func MuxWithDefault(height, width, selWidth, def int) *Module {
	name := fmt.Sprintf("MuxWithDefault_%d_%d_%d_%d", height, width, selWidth, def)

	return primitive(name, func() *Module {
		m := newPrimitive(name, "muxdefault")
		m.SetParam("HEIGHT", height)
		m.SetParam("DEF", def)

		m.AddArrayPort("I", In, width, height)
		m.AddPort("S", In, selWidth)
		m.AddPort("EN", In, 1)
		m.AddPort("O", Out, width)

		return m
	})
}

// Register returns a clock-enabled register.
func Register(width int) *Module {
	name := fmt.Sprintf("Register_%d", width)

	return primitive(name, func() *Module {
		m := newPrimitive(name, "register")
		m.AddClock("clk")
		m.AddPort("clk_en", In, 1)
		m.AddPort("I", In, width)
		m.AddPort("O", Out, width)

		return m
	})
}

// ConfigRegister returns a configuration register that self-decodes
// its address. The address lives in the per-instance ADDR parameter so
// that all registers of the same shape share one module.
func ConfigRegister(width, addrWidth, dataWidth int) *Module {
	name := fmt.Sprintf("ConfigRegister_%d_%d_%d", width, addrWidth, dataWidth)

	return primitive(name, func() *Module {
		m := newPrimitive(name, "configregister")
		m.SetParam("ADDR", 0)

		m.AddClock("clk")
		m.AddReset("reset")
		m.AddPort("config_addr", In, addrWidth)
		m.AddPort("config_data", In, dataWidth)
		m.AddPort("config_en", In, 1)
		m.AddPort("O", Out, width)

		return m
	})
}

// Const returns a constant driver.
func Const(value, width int) *Module {
	name := fmt.Sprintf("Const_%d_%d", value, width)

	return primitive(name, func() *Module {
		m := newPrimitive(name, "const")
		m.SetParam("VALUE", value)
		m.AddPort("O", Out, width)

		return m
	})
}

// Eq returns a width-bit equality comparator with a 1-bit result.
func Eq(width int) *Module {
	name := fmt.Sprintf("Eq_%d", width)

	return primitive(name, func() *Module {
		m := newPrimitive(name, "eq")
		m.AddPort("I0", In, width)
		m.AddPort("I1", In, width)
		m.AddPort("O", Out, 1)

		return m
	})
}

// And2 returns a 2-input AND gate.
func And2() *Module {
	return primitive("And2", func() *Module {
		m := newPrimitive("And2", "and")
		m.AddPort("I0", In, 1)
		m.AddPort("I1", In, 1)
		m.AddPort("O", Out, 1)

		return m
	})
}

// Or returns a 2-input bitwise OR of the given width.
func Or(width int) *Module {
	name := fmt.Sprintf("Or_%d", width)

	return primitive(name, func() *Module {
		m := newPrimitive(name, "or")
		m.AddPort("I0", In, width)
		m.AddPort("I1", In, width)
		m.AddPort("O", Out, width)

		return m
	})
}

// Decode returns a comparator that raises O when its input equals the
// fixed value.
func Decode(value, width int) *Module {
	name := fmt.Sprintf("Decode_%d_%d", value, width)

	return primitive(name, func() *Module {
		m := newPrimitive(name, "decode")
		m.SetParam("VALUE", value)
		m.AddPort("I", In, width)
		m.AddPort("O", Out, 1)

		return m
	})
}

// Inv returns a 1-bit inverter.
func Inv() *Module {
	return primitive("Inv", func() *Module {
		m := newPrimitive("Inv", "inv")
		m.AddPort("I", In, 1)
		m.AddPort("O", Out, 1)

		return m
	})
}
