package graph

import "fmt"

// A Wire describes one internal switch-box connection from an IN track
// to an OUT track.
type Wire struct {
	FromTrack int
	FromSide  Side
	ToTrack   int
	ToSide    Side
}

// DisjointWires returns the internal wiring of a disjoint switch box.
// Every IN node connects to the OUT nodes of the same track on all
// other sides.
func DisjointWires(numTracks int) []Wire {
	var wires []Wire
	for track := 0; track < numTracks; track++ {
		for _, from := range Sides {
			for _, to := range Sides {
				if from == to {
					continue
				}
				wires = append(wires, Wire{
					FromTrack: track,
					FromSide:  from,
					ToTrack:   track,
					ToSide:    to,
				})
			}
		}
	}

	return wires
}

// A SwitchBox owns all switch nodes at one coordinate for one bit
// width, plus the pipeline registers spliced into its outputs.
type SwitchBox struct {
	// ID distinguishes switch boxes that share track count and width
	// but differ in topology. It becomes part of the hardware name.
	ID int

	x, y     int
	numTrack int
	width    int

	nodes     [len(Sides)][len(IOs)][]*SwitchNode
	wires     []Wire
	registers map[string]*RegisterNode
	regMuxes  map[string]*RegisterMuxNode
}

// NewSwitchBox creates a switch box and applies the internal wire
// pattern. Wires always run from an IN node to an OUT node.
func NewSwitchBox(x, y, numTrack, width int, wires []Wire) *SwitchBox {
	s := &SwitchBox{
		x:         x,
		y:         y,
		numTrack:  numTrack,
		width:     width,
		wires:     wires,
		registers: make(map[string]*RegisterNode),
		regMuxes:  make(map[string]*RegisterMuxNode),
	}

	for _, side := range Sides {
		for _, io := range IOs {
			nodes := make([]*SwitchNode, numTrack)
			for t := 0; t < numTrack; t++ {
				nodes[t] = NewSwitchNode(x, y, t, width, side, io)
			}
			s.nodes[side][io] = nodes
		}
	}

	for _, w := range wires {
		from := s.Get(w.FromSide, w.FromTrack, SwitchIn)
		to := s.Get(w.ToSide, w.ToTrack, SwitchOut)
		if from == nil || to == nil {
			panic(fmt.Sprintf("internal wire out of range: %+v", w))
		}
		Connect(from, to)
	}

	return s
}

func (s *SwitchBox) X() int        { return s.x }
func (s *SwitchBox) Y() int        { return s.y }
func (s *SwitchBox) NumTrack() int { return s.numTrack }
func (s *SwitchBox) Width() int    { return s.width }

// Wires returns the internal wire pattern the box was built with.
func (s *SwitchBox) Wires() []Wire { return s.wires }

// Get returns the switch node on the given side, track, and direction,
// or nil when the track is out of range.
func (s *SwitchBox) Get(side Side, track int, io IO) *SwitchNode {
	if track < 0 || track >= s.numTrack {
		return nil
	}

	return s.nodes[side][io][track]
}

// AllSwitchNodes returns every switch node ordered by side, then
// direction, then track.
func (s *SwitchBox) AllSwitchNodes() []*SwitchNode {
	result := make([]*SwitchNode, 0, len(Sides)*len(IOs)*s.numTrack)
	for _, side := range Sides {
		for _, io := range IOs {
			result = append(result, s.nodes[side][io]...)
		}
	}

	return result
}

// Registers returns the pipeline registers keyed by short name.
func (s *SwitchBox) Registers() map[string]*RegisterNode {
	return s.registers
}

// RegisterMuxes returns the register muxes keyed by short name.
func (s *SwitchBox) RegisterMuxes() map[string]*RegisterMuxNode {
	return s.regMuxes
}

// AddPipelineRegister splices a register and a register mux behind the
// OUT node on the given track and side. The register mux takes over the
// OUT node's downstream edges at their original fan-in positions, so
// select values of downstream nodes do not change. The OUT node ends up
// feeding both the register and the mux, and the register feeds the
// mux, forming the bypass topology:
//
//	     REG
//	   /     \
//	OUT ----- RMUX --- original sinks
func (s *SwitchBox) AddPipelineRegister(track int, side Side) {
	out := s.Get(side, track, SwitchOut)
	if out == nil {
		return
	}

	reg := NewRegisterNode(fmt.Sprintf("T%d_%s", track, side.Name()),
		out.X(), out.Y(), track, out.Width())
	regMux := NewRegisterMuxNode(out.X(), out.Y(), track, out.Width(), side)

	sinks := append([]Node(nil), out.Sinks()...)
	for _, sink := range sinks {
		switch sink.(type) {
		case *SwitchNode, *PortNode:
			replaceSource(sink, out, regMux)
		}
	}

	Connect(out, reg)
	Connect(out, regMux)
	Connect(reg, regMux)

	s.registers[reg.RegName] = reg
	s.regMuxes[regMux.MuxName()] = regMux
}
