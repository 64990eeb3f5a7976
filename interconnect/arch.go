package interconnect

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Kuree/canal/graph"
)

// An Arch is the YAML description of a uniform fabric: the grid size,
// the address layout, and one routing layer per bit width.
type Arch struct {
	Name   string `yaml:"name"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`

	ConfigAddrWidth int `yaml:"config_addr_width"`
	ConfigDataWidth int `yaml:"config_data_width"`
	TileIDWidth     int `yaml:"tile_id_width"`
	FullAddrWidth   int `yaml:"full_addr_width"`
	StallWidth      int `yaml:"stall_width"`

	Layers []ArchLayer `yaml:"layers"`
}

// An ArchLayer describes the routing resources for one bit width.
type ArchLayer struct {
	BitWidth  int `yaml:"bit_width"`
	NumTracks int `yaml:"num_tracks"`

	// PortConns maps core port names to the switch-node connections
	// applied on every tile. An empty map connects every core port of
	// this bit width to all four sides.
	PortConns    map[string][]ArchPortConn `yaml:"port_conns"`
	PipelineRegs []ArchPipelineReg         `yaml:"pipeline_regs"`
}

// An ArchPortConn names one switch-node connection of a core port.
type ArchPortConn struct {
	Side string `yaml:"side"`
	IO   string `yaml:"io"`
}

// An ArchPipelineReg names one switch output that receives a pipeline
// register on every tile.
type ArchPipelineReg struct {
	Track int    `yaml:"track"`
	Side  string `yaml:"side"`
}

// LoadArch reads a fabric description from a YAML file and fills in
// the default address layout for omitted fields.
func LoadArch(path string) (*Arch, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read arch: %w", err)
	}

	var arch Arch
	if err := yaml.Unmarshal(raw, &arch); err != nil {
		return nil, fmt.Errorf("parse arch: %w", err)
	}
	arch.applyDefaults()

	if err := arch.validate(); err != nil {
		return nil, err
	}

	return &arch, nil
}

func (a *Arch) applyDefaults() {
	if a.Name == "" {
		a.Name = "Interconnect"
	}
	if a.Width == 0 {
		a.Width = 1
	}
	if a.Height == 0 {
		a.Height = 1
	}
	if a.ConfigAddrWidth == 0 {
		a.ConfigAddrWidth = 8
	}
	if a.ConfigDataWidth == 0 {
		a.ConfigDataWidth = 32
	}
	if a.TileIDWidth == 0 {
		a.TileIDWidth = 16
	}
	if a.FullAddrWidth == 0 {
		a.FullAddrWidth = 32
	}
	if a.StallWidth == 0 {
		a.StallWidth = 4
	}
}

func (a *Arch) validate() error {
	if len(a.Layers) == 0 {
		return fmt.Errorf("arch %s declares no layers", a.Name)
	}

	seen := make(map[int]bool)
	for _, layer := range a.Layers {
		if layer.BitWidth <= 0 {
			return fmt.Errorf("arch %s: layer bit width must be positive", a.Name)
		}
		if seen[layer.BitWidth] {
			return fmt.Errorf("arch %s: duplicate layer for %d bits",
				a.Name, layer.BitWidth)
		}
		seen[layer.BitWidth] = true

		for port, conns := range layer.PortConns {
			for _, conn := range conns {
				if _, err := parseSide(conn.Side); err != nil {
					return fmt.Errorf("arch %s port %s: %w", a.Name, port, err)
				}
				if _, err := parseIO(conn.IO); err != nil {
					return fmt.Errorf("arch %s port %s: %w", a.Name, port, err)
				}
			}
		}
		for _, reg := range layer.PipelineRegs {
			if _, err := parseSide(reg.Side); err != nil {
				return fmt.Errorf("arch %s pipeline register: %w", a.Name, err)
			}
		}
	}

	return nil
}

// BitWidths returns the layer bit widths in declaration order.
func (a *Arch) BitWidths() []int {
	widths := make([]int, 0, len(a.Layers))
	for _, layer := range a.Layers {
		widths = append(widths, layer.BitWidth)
	}

	return widths
}

// Build compiles the fabric the description names. The core factory
// supplies the functional unit at each coordinate; a nil factory
// places a dummy core spanning all layer bit widths on every tile.
func (a *Arch) Build(coreFor func(x, y int) graph.Core) (*Interconnect, error) {
	if coreFor == nil {
		widths := a.BitWidths()
		coreFor = func(x, y int) graph.Core {
			return graph.NewDummyCore(widths...)
		}
	}

	graphs := make(map[int]*graph.Graph)
	for _, layer := range a.Layers {
		g, err := a.buildLayer(layer, coreFor)
		if err != nil {
			return nil, err
		}
		graphs[layer.BitWidth] = g
	}

	return NewBuilder().
		WithGraphs(graphs).
		WithAddrWidth(a.ConfigAddrWidth).
		WithDataWidth(a.ConfigDataWidth).
		WithTileIDWidth(a.TileIDWidth).
		WithFullAddrWidth(a.FullAddrWidth).
		WithStallWidth(a.StallWidth).
		Build(a.Name)
}

func (a *Arch) buildLayer(
	layer ArchLayer,
	coreFor func(x, y int) graph.Core,
) (*graph.Graph, error) {
	portConns, err := layer.portConns(coreFor(0, 0))
	if err != nil {
		return nil, err
	}

	regs := make([]graph.PipelineReg, 0, len(layer.PipelineRegs))
	for _, reg := range layer.PipelineRegs {
		side, err := parseSide(reg.Side)
		if err != nil {
			return nil, err
		}
		regs = append(regs, graph.PipelineReg{Track: reg.Track, Side: side})
	}

	return graph.NewBuilder().
		WithSize(a.Width, a.Height).
		WithBitWidth(layer.BitWidth).
		WithNumTracks(layer.NumTracks).
		WithCoreFactory(coreFor).
		WithPortConns(portConns).
		WithPipelineRegs(regs).
		Build(), nil
}

// portConns translates the layer's port connections, or derives the
// all-sides default from the core's port declarations.
func (l ArchLayer) portConns(core graph.Core) (map[string][]graph.PortConn, error) {
	conns := make(map[string][]graph.PortConn)

	if len(l.PortConns) == 0 {
		if core == nil {
			return conns, nil
		}
		for _, decl := range core.Inputs() {
			if decl.Width == l.BitWidth {
				conns[decl.Name] = allSides(graph.SwitchIn)
			}
		}
		for _, decl := range core.Outputs() {
			if decl.Width == l.BitWidth {
				conns[decl.Name] = allSides(graph.SwitchOut)
			}
		}

		return conns, nil
	}

	for port, raw := range l.PortConns {
		list := make([]graph.PortConn, 0, len(raw))
		for _, c := range raw {
			side, err := parseSide(c.Side)
			if err != nil {
				return nil, err
			}
			io, err := parseIO(c.IO)
			if err != nil {
				return nil, err
			}
			list = append(list, graph.PortConn{Side: side, IO: io})
		}
		conns[port] = list
	}

	return conns, nil
}

func allSides(io graph.IO) []graph.PortConn {
	conns := make([]graph.PortConn, 0, len(graph.Sides))
	for _, side := range graph.Sides {
		conns = append(conns, graph.PortConn{Side: side, IO: io})
	}

	return conns
}

func parseSide(s string) (graph.Side, error) {
	switch s {
	case "north":
		return graph.North, nil
	case "south":
		return graph.South, nil
	case "east":
		return graph.East, nil
	case "west":
		return graph.West, nil
	default:
		return 0, fmt.Errorf("unknown side %q", s)
	}
}

func parseIO(s string) (graph.IO, error) {
	switch s {
	case "in":
		return graph.SwitchIn, nil
	case "out":
		return graph.SwitchOut, nil
	default:
		return 0, fmt.Errorf("unknown io %q", s)
	}
}
