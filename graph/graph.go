package graph

import (
	"fmt"
	"sort"
)

// Coord addresses one tile position in the fabric.
type Coord struct {
	X, Y int
}

// A Graph is the routing graph for one bit width: a set of tiles plus
// the inter-tile edges between their switch nodes.
type Graph struct {
	width int
	tiles map[Coord]*Tile
}

// NewGraph creates an empty routing graph for the given bit width.
func NewGraph(width int) *Graph {
	return &Graph{
		width: width,
		tiles: make(map[Coord]*Tile),
	}
}

// BitWidth returns the bit width all tiles in this graph share.
func (g *Graph) BitWidth() int {
	return g.width
}

// AddTile adds a tile at its own coordinate.
func (g *Graph) AddTile(t *Tile) {
	if t.Width() != g.width {
		panic(fmt.Sprintf("tile width %d does not match graph width %d",
			t.Width(), g.width))
	}

	coord := Coord{X: t.X(), Y: t.Y()}
	if _, ok := g.tiles[coord]; ok {
		panic(fmt.Sprintf("duplicate tile at (%d, %d)", t.X(), t.Y()))
	}
	g.tiles[coord] = t
}

// GetTile returns the tile at the coordinate, or nil.
func (g *Graph) GetTile(x, y int) *Tile {
	return g.tiles[Coord{X: x, Y: y}]
}

// GetSB returns the switch node at the coordinate, or nil when either
// the tile or the track does not exist.
func (g *Graph) GetSB(x, y int, side Side, track int, io IO) *SwitchNode {
	tile := g.GetTile(x, y)
	if tile == nil {
		return nil
	}

	return tile.SwitchBox.Get(side, track, io)
}

// GetPort returns the port node at the coordinate, or nil.
func (g *Graph) GetPort(x, y int, name string) *PortNode {
	tile := g.GetTile(x, y)
	if tile == nil {
		return nil
	}

	return tile.Port(name)
}

// Coords returns the tile coordinates sorted by x, then y.
func (g *Graph) Coords() []Coord {
	coords := make([]Coord, 0, len(g.tiles))
	for coord := range g.tiles {
		coords = append(coords, coord)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].X != coords[j].X {
			return coords[i].X < coords[j].X
		}
		return coords[i].Y < coords[j].Y
	})

	return coords
}

// Size returns the fabric extent as the maximum coordinate plus one.
func (g *Graph) Size() (width, height int) {
	for coord := range g.tiles {
		if coord.X+1 > width {
			width = coord.X + 1
		}
		if coord.Y+1 > height {
			height = coord.Y + 1
		}
	}

	return width, height
}
