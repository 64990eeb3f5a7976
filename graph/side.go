// Package graph defines the routing graph of the interconnect fabric.
//
// Nodes carry a coordinate, a bit width, and an ordered fan-in list.
// The fan-in order is load bearing: the position of a source within a
// node's fan-in is the select value that realizes that edge in
// hardware.
package graph

// Side defines the side of a tile.
type Side int

const (
	North Side = iota
	South
	East
	West
)

// Sides lists all sides in their canonical order.
var Sides = [4]Side{North, South, East, West}

// Name returns the name of the side as it appears in hardware names.
func (s Side) Name() string {
	switch s {
	case North:
		return "NORTH"
	case South:
		return "SOUTH"
	case East:
		return "EAST"
	case West:
		return "WEST"
	default:
		panic("invalid side")
	}
}

// Opposite returns the side that faces s on a neighboring tile.
func (s Side) Opposite() Side {
	switch s {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	default:
		panic("invalid side")
	}
}

// Offset returns the coordinate delta of the neighboring tile on side s.
func (s Side) Offset() (dx, dy int) {
	switch s {
	case North:
		return 0, -1
	case South:
		return 0, 1
	case East:
		return 1, 0
	case West:
		return -1, 0
	default:
		panic("invalid side")
	}
}

// IO tags a switch node as entering or leaving its switch box.
type IO int

const (
	SwitchIn IO = iota
	SwitchOut
)

// IOs lists both directions in their canonical order.
var IOs = [2]IO{SwitchIn, SwitchOut}

// Name returns the name of the direction as it appears in hardware
// names.
func (io IO) Name() string {
	switch io {
	case SwitchIn:
		return "SB_IN"
	case SwitchOut:
		return "SB_OUT"
	default:
		panic("invalid io")
	}
}
