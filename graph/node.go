package graph

import "fmt"

// A Node is a vertex in the routing graph.
type Node interface {
	// Name returns the symbolic form used for hardware naming.
	Name() string
	// String returns the place-and-route text form.
	String() string

	Width() int
	X() int
	Y() int

	// Sources returns the ordered fan-in list. The index of a source
	// within the list is the select value for that edge. Callers must
	// not mutate the returned slice.
	Sources() []Node
	// Sinks returns the ordered fan-out list. Callers must not mutate
	// the returned slice.
	Sinks() []Node

	base() *nodeBase
}

type nodeBase struct {
	x, y    int
	width   int
	sources []Node
	sinks   []Node
}

func (b *nodeBase) Width() int      { return b.width }
func (b *nodeBase) X() int          { return b.x }
func (b *nodeBase) Y() int          { return b.y }
func (b *nodeBase) Sources() []Node { return b.sources }
func (b *nodeBase) Sinks() []Node   { return b.sinks }
func (b *nodeBase) base() *nodeBase { return b }

// Connect adds a directed edge from src to dst. The edge takes the next
// position in dst's fan-in list.
func Connect(src, dst Node) {
	src.base().sinks = append(src.base().sinks, dst)
	dst.base().sources = append(dst.base().sources, src)
}

// Disconnect removes the edge from src to dst if it exists.
func Disconnect(src, dst Node) {
	src.base().sinks = removeNode(src.base().sinks, dst)
	dst.base().sources = removeNode(dst.base().sources, src)
}

func removeNode(nodes []Node, target Node) []Node {
	for i, n := range nodes {
		if n == target {
			return append(nodes[:i], nodes[i+1:]...)
		}
	}

	return nodes
}

// SourceIndex returns the position of src within dst's fan-in list, or
// -1 when the edge does not exist.
func SourceIndex(dst, src Node) int {
	for i, n := range dst.Sources() {
		if n == src {
			return i
		}
	}

	return -1
}

// replaceSource rewires the edge from->sink into to->sink, keeping the
// edge's position in sink's fan-in list.
func replaceSource(sink, from, to Node) {
	idx := SourceIndex(sink, from)
	if idx < 0 {
		return
	}

	sink.base().sources[idx] = to
	from.base().sinks = removeNode(from.base().sinks, sink)
	to.base().sinks = append(to.base().sinks, sink)
}

// A SwitchNode is one directional track terminal of a switch box.
type SwitchNode struct {
	nodeBase

	Track int
	Side  Side
	IO    IO
}

// NewSwitchNode creates a switch node on the given track, side, and
// direction.
func NewSwitchNode(x, y, track, width int, side Side, io IO) *SwitchNode {
	return &SwitchNode{
		nodeBase: nodeBase{x: x, y: y, width: width},
		Track:    track,
		Side:     side,
		IO:       io,
	}
}

func (n *SwitchNode) Name() string {
	return fmt.Sprintf("SB_T%d_%s_%s_B%d",
		n.Track, n.Side.Name(), n.IO.Name(), n.width)
}

func (n *SwitchNode) String() string {
	return fmt.Sprintf("SB (%d, %d, %d, %d, %d, %d)",
		n.Track, n.x, n.y, int(n.Side), int(n.IO), n.width)
}

// A PortNode is a functional-core port. A port with fan-in is a core
// input fed through a connection box. A port with fan-out is a core
// output driving switch nodes.
type PortNode struct {
	nodeBase

	Port string
}

// NewPortNode creates a port node for the named core port.
func NewPortNode(name string, x, y, width int) *PortNode {
	return &PortNode{
		nodeBase: nodeBase{x: x, y: y, width: width},
		Port:     name,
	}
}

func (n *PortNode) Name() string {
	return "CB_" + n.Port
}

func (n *PortNode) String() string {
	return fmt.Sprintf("PORT %s (%d, %d, %d)", n.Port, n.x, n.y, n.width)
}

// A RegisterNode is a pipeline register spliced behind a switch output.
// It always has exactly one source and one sink.
type RegisterNode struct {
	nodeBase

	RegName string
	Track   int
}

// NewRegisterNode creates a register node with the given short name.
func NewRegisterNode(name string, x, y, track, width int) *RegisterNode {
	return &RegisterNode{
		nodeBase: nodeBase{x: x, y: y, width: width},
		RegName:  name,
		Track:    track,
	}
}

func (n *RegisterNode) Name() string {
	return fmt.Sprintf("REG_%s_B%d", n.RegName, n.width)
}

func (n *RegisterNode) String() string {
	return fmt.Sprintf("REG %s (%d, %d, %d, %d)",
		n.RegName, n.Track, n.x, n.y, n.width)
}

// A RegisterMuxNode selects between the registered and the bypass value
// of one switch output. It always has exactly two sources: the switch
// output and the paired register.
type RegisterMuxNode struct {
	nodeBase

	Track int
	Side  Side
}

// NewRegisterMuxNode creates a register mux node for the given track
// and side.
func NewRegisterMuxNode(x, y, track, width int, side Side) *RegisterMuxNode {
	return &RegisterMuxNode{
		nodeBase: nodeBase{x: x, y: y, width: width},
		Track:    track,
		Side:     side,
	}
}

// MuxName returns the short name that keys this node within its switch
// box. The paired register node shares the same short name.
func (n *RegisterMuxNode) MuxName() string {
	return fmt.Sprintf("T%d_%s", n.Track, n.Side.Name())
}

func (n *RegisterMuxNode) Name() string {
	return fmt.Sprintf("RMUX_T%d_%s_B%d", n.Track, n.Side.Name(), n.width)
}

func (n *RegisterMuxNode) String() string {
	return fmt.Sprintf("RMUX %s (%d, %d, %d)",
		n.MuxName(), n.x, n.y, n.width)
}
