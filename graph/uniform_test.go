package graph_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Kuree/canal/graph"
)

func allSidePortConns() map[string][]graph.PortConn {
	inConns := make([]graph.PortConn, 0, len(graph.Sides))
	outConns := make([]graph.PortConn, 0, len(graph.Sides))
	for _, side := range graph.Sides {
		inConns = append(inConns, graph.PortConn{Side: side, IO: graph.SwitchIn})
		outConns = append(outConns, graph.PortConn{Side: side, IO: graph.SwitchOut})
	}

	return map[string][]graph.PortConn{
		"data_in_16b":  inConns,
		"data_out_16b": outConns,
	}
}

var _ = Describe("Uniform Builder", func() {
	It("should build a full grid of tiles", func() {
		g := graph.NewBuilder().
			WithSize(2, 2).
			WithBitWidth(16).
			WithNumTracks(2).
			WithCoreFactory(func(x, y int) graph.Core {
				return graph.NewDummyCore(16)
			}).
			WithPortConns(allSidePortConns()).
			Build()

		width, height := g.Size()
		Expect(width).To(Equal(2))
		Expect(height).To(Equal(2))
		Expect(g.Coords()).To(HaveLen(4))
		Expect(g.GetTile(1, 1)).NotTo(BeNil())
		Expect(g.GetTile(2, 0)).To(BeNil())
	})

	It("should connect neighboring switch boxes on matching tracks", func() {
		g := graph.NewBuilder().
			WithSize(2, 1).
			WithNumTracks(1).
			Build()

		out := g.GetSB(0, 0, graph.East, 0, graph.SwitchOut)
		in := g.GetSB(1, 0, graph.West, 0, graph.SwitchIn)

		Expect(in.Sources()).To(Equal([]graph.Node{out}))
		Expect(out.Sinks()).To(ContainElement(graph.Node(in)))
	})

	It("should leave boundary IN nodes without sources", func() {
		g := graph.NewBuilder().
			WithSize(2, 2).
			WithNumTracks(1).
			Build()

		Expect(g.GetSB(0, 0, graph.North, 0, graph.SwitchIn).Sources()).
			To(BeEmpty())
		Expect(g.GetSB(0, 0, graph.West, 0, graph.SwitchIn).Sources()).
			To(BeEmpty())
		Expect(g.GetSB(0, 0, graph.East, 0, graph.SwitchIn).Sources()).
			To(HaveLen(1))
	})

	It("should wire core ports track-major in the declared order", func() {
		g := graph.NewBuilder().
			WithSize(1, 1).
			WithNumTracks(2).
			WithCoreFactory(func(x, y int) graph.Core {
				return graph.NewDummyCore(16)
			}).
			WithPortConns(allSidePortConns()).
			Build()

		port := g.GetPort(0, 0, "data_in_16b")
		Expect(port.Sources()).To(HaveLen(8))

		first, ok := port.Sources()[0].(*graph.SwitchNode)
		Expect(ok).To(BeTrue())
		Expect(first.Track).To(Equal(0))
		Expect(first.Side).To(Equal(graph.North))

		fifth, ok := port.Sources()[4].(*graph.SwitchNode)
		Expect(ok).To(BeTrue())
		Expect(fifth.Track).To(Equal(1))
		Expect(fifth.Side).To(Equal(graph.North))

		outPort := g.GetPort(0, 0, "data_out_16b")
		Expect(outPort.Sources()).To(BeEmpty())
		Expect(outPort.Sinks()).To(HaveLen(8))
	})

	It("should splice pipeline registers after all wiring", func() {
		g := graph.NewBuilder().
			WithSize(2, 1).
			WithNumTracks(1).
			WithPipelineRegs([]graph.PipelineReg{{Track: 0, Side: graph.East}}).
			Build()

		sb := g.GetTile(0, 0).SwitchBox
		regMux := sb.RegisterMuxes()["T0_EAST"]
		Expect(regMux).NotTo(BeNil())

		neighborIn := g.GetSB(1, 0, graph.West, 0, graph.SwitchIn)
		Expect(neighborIn.Sources()).To(Equal([]graph.Node{regMux}))

		out := g.GetSB(0, 0, graph.East, 0, graph.SwitchOut)
		Expect(regMux.Sources()).To(Equal([]graph.Node{
			out, sb.Registers()["T0_EAST"],
		}))
	})
})
