package graph

import "fmt"

// PortConn tells the uniform fabric builder which switch nodes a core
// port connects to on every tile.
type PortConn struct {
	Side Side
	IO   IO
}

// PipelineReg names one switch output that receives a pipeline register
// on every tile.
type PipelineReg struct {
	Track int
	Side  Side
}

// Builder creates uniform fabrics: a full grid of identical tiles with
// disjoint switch boxes and length-1 tracks.
type Builder struct {
	width, height int
	bitWidth      int
	numTracks     int
	coreFactory   func(x, y int) Core
	portConns     map[string][]PortConn
	pipelineRegs  []PipelineReg
}

// NewBuilder creates a fabric builder with a 1x1 grid, 16-bit tracks,
// and one track per side as defaults.
func NewBuilder() Builder {
	return Builder{
		width:     1,
		height:    1,
		bitWidth:  16,
		numTracks: 1,
	}
}

// WithSize sets the grid extent.
func (b Builder) WithSize(width, height int) Builder {
	b.width = width
	b.height = height
	return b
}

// WithBitWidth sets the track bit width.
func (b Builder) WithBitWidth(width int) Builder {
	b.bitWidth = width
	return b
}

// WithNumTracks sets the number of routing tracks per side.
func (b Builder) WithNumTracks(n int) Builder {
	b.numTracks = n
	return b
}

// WithCoreFactory sets the function that supplies the core for each
// tile position.
func (b Builder) WithCoreFactory(factory func(x, y int) Core) Builder {
	b.coreFactory = factory
	return b
}

// WithPortConns sets, per core port name, the switch-node connections
// applied on every tile and track.
func (b Builder) WithPortConns(conns map[string][]PortConn) Builder {
	b.portConns = conns
	return b
}

// WithPipelineRegs sets the switch outputs that receive a pipeline
// register on every tile.
func (b Builder) WithPipelineRegs(regs []PipelineReg) Builder {
	b.pipelineRegs = regs
	return b
}

// Build creates the routing graph. Tiles are created first, then core
// ports are connected, then neighboring switch boxes, and pipeline
// registers are spliced in last so that they take over the finished
// edges.
func (b Builder) Build() *Graph {
	g := NewGraph(b.bitWidth)

	for x := 0; x < b.width; x++ {
		for y := 0; y < b.height; y++ {
			sb := NewSwitchBox(x, y, b.numTracks, b.bitWidth,
				DisjointWires(b.numTracks))
			tile := NewTile(x, y, b.bitWidth, sb)
			if b.coreFactory != nil {
				tile.SetCore(b.coreFactory(x, y))
			}
			g.AddTile(tile)
		}
	}

	b.connectCorePorts(g)
	b.connectTiles(g)

	for _, reg := range b.pipelineRegs {
		for _, coord := range g.Coords() {
			tile := g.GetTile(coord.X, coord.Y)
			if reg.Track < tile.SwitchBox.NumTrack() {
				tile.SwitchBox.AddPipelineRegister(reg.Track, reg.Side)
			}
		}
	}

	return g
}

func (b Builder) connectCorePorts(g *Graph) {
	for _, coord := range g.Coords() {
		tile := g.GetTile(coord.X, coord.Y)
		for _, name := range tile.PortNames() {
			conns, ok := b.portConns[name]
			if !ok {
				continue
			}

			isInput := tile.CoreHasInput(name)
			isOutput := tile.CoreHasOutput(name)
			if isInput == isOutput {
				panic(fmt.Sprintf("port %s must be either input or output", name))
			}

			port := tile.Port(name)
			for track := 0; track < tile.SwitchBox.NumTrack(); track++ {
				for _, conn := range conns {
					node := tile.SwitchBox.Get(conn.Side, track, conn.IO)
					if node == nil {
						continue
					}
					if isInput {
						Connect(node, port)
					} else {
						Connect(port, node)
					}
				}
			}
		}
	}
}

func (b Builder) connectTiles(g *Graph) {
	for _, coord := range g.Coords() {
		tile := g.GetTile(coord.X, coord.Y)
		for _, side := range Sides {
			dx, dy := side.Offset()
			neighbor := g.GetTile(coord.X+dx, coord.Y+dy)
			if neighbor == nil {
				continue
			}

			opposite := side.Opposite()
			for track := 0; track < tile.SwitchBox.NumTrack(); track++ {
				out := tile.SwitchBox.Get(side, track, SwitchOut)
				in := neighbor.SwitchBox.Get(opposite, track, SwitchIn)
				if out == nil || in == nil {
					continue
				}
				Connect(out, in)
			}
		}
	}
}
