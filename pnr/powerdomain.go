package pnr

import (
	"github.com/Kuree/canal/graph"
	"github.com/Kuree/canal/interconnect"
)

// A PowerDomainFixer decides which tiles of a fabric can be gated off
// for a given placement and routing. A tile counts as used when a
// placed block or a routed node lands on it. Because configuration
// flows through columns, every tile from the top of a column down to
// its lowest used tile must stay powered.
type PowerDomainFixer struct {
	ic        *interconnect.Interconnect
	placement map[string]graph.Coord
	routes    map[string][][]graph.Node
}

// NewPowerDomainFixer creates a fixer over a fabric, a placement, and
// a routing result.
func NewPowerDomainFixer(
	ic *interconnect.Interconnect,
	placement map[string]graph.Coord,
	routes map[string][][]graph.Node,
) *PowerDomainFixer {
	return &PowerDomainFixer{
		ic:        ic,
		placement: placement,
		routes:    routes,
	}
}

// OnOffTiles splits the fabric's tiles into the set that must stay on
// and the set that can be powered off.
func (f *PowerDomainFixer) OnOffTiles() (
	alwaysOn, alwaysOff map[graph.Coord]bool,
) {
	used := make(map[graph.Coord]bool)
	for _, loc := range f.placement {
		used[loc] = true
	}
	for _, segments := range f.routes {
		for _, segment := range segments {
			for _, node := range segment {
				used[graph.Coord{X: node.X(), Y: node.Y()}] = true
			}
		}
	}

	// per column, everything down to the largest used row stays on
	maxY := make(map[int]int)
	for loc := range used {
		if y, ok := maxY[loc.X]; !ok || loc.Y > y {
			maxY[loc.X] = loc.Y
		}
	}

	alwaysOn = make(map[graph.Coord]bool)
	alwaysOff = make(map[graph.Coord]bool)
	for _, coord := range f.ic.Coords() {
		if y, ok := maxY[coord.X]; ok && coord.Y <= y {
			alwaysOn[coord] = true
		} else {
			alwaysOff[coord] = true
		}
	}

	return alwaysOn, alwaysOff
}
