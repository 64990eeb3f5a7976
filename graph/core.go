package graph

import "fmt"

// PortDecl declares one core port as a width and a name.
type PortDecl struct {
	Width int
	Name  string
}

// A Core is the functional unit a tile wraps. The interconnect only
// needs the port declarations. The core logic itself is a black box.
type Core interface {
	Name() string
	Inputs() []PortDecl
	Outputs() []PortDecl

	// Configurable reports whether the core carries its own
	// configuration registers. A configurable core occupies the first
	// feature slot of its tile.
	Configurable() bool
}

// DummyCore is a passthrough core with one input and one output per bit
// width. It is used in tests and sample fabrics.
type DummyCore struct {
	widths []int
}

// NewDummyCore creates a dummy core for the given bit widths.
func NewDummyCore(widths ...int) *DummyCore {
	return &DummyCore{widths: widths}
}

func (c *DummyCore) Name() string {
	return "DummyCore"
}

func (c *DummyCore) Inputs() []PortDecl {
	decls := make([]PortDecl, 0, len(c.widths))
	for _, w := range c.widths {
		decls = append(decls, PortDecl{Width: w, Name: fmt.Sprintf("data_in_%db", w)})
	}

	return decls
}

func (c *DummyCore) Outputs() []PortDecl {
	decls := make([]PortDecl, 0, len(c.widths))
	for _, w := range c.widths {
		decls = append(decls, PortDecl{Width: w, Name: fmt.Sprintf("data_out_%db", w)})
	}

	return decls
}

func (c *DummyCore) Configurable() bool {
	return true
}
