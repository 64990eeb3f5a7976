package graph

import (
	"fmt"
	"sort"
)

// A Tile groups one bit width's switch box with the core port nodes at
// one coordinate.
type Tile struct {
	SwitchBox *SwitchBox

	x, y   int
	width  int
	height int

	core  Core
	ports map[string]*PortNode
}

// NewTile creates a tile around the given switch box. The switch box
// must sit at the tile's coordinate and match its bit width.
func NewTile(x, y, width int, sb *SwitchBox) *Tile {
	if sb.X() != x || sb.Y() != y {
		panic(fmt.Sprintf("switch box at (%d, %d) does not match tile (%d, %d)",
			sb.X(), sb.Y(), x, y))
	}
	if sb.Width() != width {
		panic(fmt.Sprintf("switch box width %d does not match tile width %d",
			sb.Width(), width))
	}

	return &Tile{
		SwitchBox: sb,
		x:         x,
		y:         y,
		width:     width,
		height:    1,
		ports:     make(map[string]*PortNode),
	}
}

func (t *Tile) X() int      { return t.x }
func (t *Tile) Y() int      { return t.y }
func (t *Tile) Width() int  { return t.width }
func (t *Tile) Height() int { return t.height }

// SetCore attaches a core and creates a port node for every core port
// whose width matches the tile. A nil core leaves the tile empty.
func (t *Tile) SetCore(core Core) {
	t.core = core
	if core == nil {
		return
	}

	for _, decl := range core.Inputs() {
		if decl.Width == t.width {
			t.ports[decl.Name] = NewPortNode(decl.Name, t.x, t.y, decl.Width)
		}
	}
	for _, decl := range core.Outputs() {
		if decl.Width == t.width {
			t.ports[decl.Name] = NewPortNode(decl.Name, t.x, t.y, decl.Width)
		}
	}
}

// Core returns the attached core, or nil for an empty tile.
func (t *Tile) Core() Core {
	return t.core
}

// CoreHasInput reports whether the attached core declares an input port
// with the given name.
func (t *Tile) CoreHasInput(name string) bool {
	if t.core == nil {
		return false
	}

	for _, decl := range t.core.Inputs() {
		if decl.Name == name {
			return true
		}
	}

	return false
}

// CoreHasOutput reports whether the attached core declares an output
// port with the given name.
func (t *Tile) CoreHasOutput(name string) bool {
	if t.core == nil {
		return false
	}

	for _, decl := range t.core.Outputs() {
		if decl.Name == name {
			return true
		}
	}

	return false
}

// Port returns the port node for the named core port, or nil.
func (t *Tile) Port(name string) *PortNode {
	return t.ports[name]
}

// Ports returns all port nodes keyed by port name.
func (t *Tile) Ports() map[string]*PortNode {
	return t.ports
}

// PortNames returns the port names in sorted order.
func (t *Tile) PortNames() []string {
	names := make([]string, 0, len(t.ports))
	for name := range t.ports {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
