package graph_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Kuree/canal/graph"
)

var _ = Describe("SwitchBox", func() {
	var sb *graph.SwitchBox

	BeforeEach(func() {
		sb = graph.NewSwitchBox(0, 0, 2, 16, graph.DisjointWires(2))
	})

	It("should connect each IN node to the other sides' OUT nodes", func() {
		for _, side := range graph.Sides {
			for track := 0; track < 2; track++ {
				out := sb.Get(side, track, graph.SwitchOut)
				Expect(out.Sources()).To(HaveLen(3))
				for _, src := range out.Sources() {
					in, ok := src.(*graph.SwitchNode)
					Expect(ok).To(BeTrue())
					Expect(in.IO).To(Equal(graph.SwitchIn))
					Expect(in.Side).NotTo(Equal(side))
					Expect(in.Track).To(Equal(track))
				}
			}
		}
	})

	It("should enumerate nodes by side, direction, and track", func() {
		nodes := sb.AllSwitchNodes()

		Expect(nodes).To(HaveLen(16))
		Expect(nodes[0].Side).To(Equal(graph.North))
		Expect(nodes[0].IO).To(Equal(graph.SwitchIn))
		Expect(nodes[0].Track).To(Equal(0))
		Expect(nodes[1].Track).To(Equal(1))
		Expect(nodes[2].IO).To(Equal(graph.SwitchOut))
		Expect(nodes[4].Side).To(Equal(graph.South))
	})

	It("should return nil for out-of-range tracks", func() {
		Expect(sb.Get(graph.North, 2, graph.SwitchIn)).To(BeNil())
		Expect(sb.Get(graph.North, -1, graph.SwitchIn)).To(BeNil())
	})

	Describe("AddPipelineRegister", func() {
		It("should splice the bypass topology behind the OUT node", func() {
			out := sb.Get(graph.North, 0, graph.SwitchOut)
			sink := graph.NewSwitchNode(0, -1, 0, 16, graph.South, graph.SwitchIn)
			graph.Connect(out, sink)

			sb.AddPipelineRegister(0, graph.North)

			reg := sb.Registers()["T0_NORTH"]
			regMux := sb.RegisterMuxes()["T0_NORTH"]
			Expect(reg).NotTo(BeNil())
			Expect(regMux).NotTo(BeNil())

			Expect(reg.Sources()).To(Equal([]graph.Node{out}))
			Expect(reg.Sinks()).To(Equal([]graph.Node{regMux}))
			Expect(regMux.Sources()).To(Equal([]graph.Node{out, reg}))
			Expect(regMux.Sinks()).To(Equal([]graph.Node{sink}))
		})

		It("should keep the sink's fan-in position", func() {
			out := sb.Get(graph.East, 1, graph.SwitchOut)
			sink := graph.NewSwitchNode(1, 0, 1, 16, graph.West, graph.SwitchIn)
			other := graph.NewSwitchNode(1, 0, 1, 16, graph.North, graph.SwitchOut)
			graph.Connect(other, sink)
			graph.Connect(out, sink)

			sb.AddPipelineRegister(1, graph.East)

			regMux := sb.RegisterMuxes()["T1_EAST"]
			Expect(graph.SourceIndex(sink, regMux)).To(Equal(1))
			Expect(graph.SourceIndex(sink, out)).To(Equal(-1))
		})

		It("should ignore out-of-range tracks", func() {
			sb.AddPipelineRegister(5, graph.North)

			Expect(sb.Registers()).To(BeEmpty())
			Expect(sb.RegisterMuxes()).To(BeEmpty())
		})
	})
})
