package model_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Kuree/canal/graph"
	"github.com/Kuree/canal/interconnect"
	"github.com/Kuree/canal/model"
)

// buildFabric compiles a uniform 16-bit grid with dummy cores reachable
// from all sides.
func buildFabric(width, height, numTracks int) (*graph.Graph, *interconnect.Interconnect) {
	g := graph.NewBuilder().
		WithSize(width, height).
		WithBitWidth(16).
		WithNumTracks(numTracks).
		WithCoreFactory(func(x, y int) graph.Core {
			return graph.NewDummyCore(16)
		}).
		WithPortConns(map[string][]graph.PortConn{
			"data_in_16b": {
				{Side: graph.North, IO: graph.SwitchIn},
				{Side: graph.South, IO: graph.SwitchIn},
				{Side: graph.East, IO: graph.SwitchIn},
				{Side: graph.West, IO: graph.SwitchIn},
			},
			"data_out_16b": {
				{Side: graph.North, IO: graph.SwitchOut},
				{Side: graph.South, IO: graph.SwitchOut},
				{Side: graph.East, IO: graph.SwitchOut},
				{Side: graph.West, IO: graph.SwitchOut},
			},
		}).
		Build()

	ic, err := interconnect.NewBuilder().
		WithGraphs(map[int]*graph.Graph{16: g}).
		Build("Fabric")
	Expect(err).NotTo(HaveOccurred())

	return g, ic
}

var _ = Describe("Compiler", func() {
	var (
		g  *graph.Graph
		ic *interconnect.Interconnect
	)

	BeforeEach(func() {
		g, ic = buildFabric(2, 2, 2)
	})

	It("should reject an address outside the fabric", func() {
		c := model.NewCompiler(ic)

		err := c.Configure(ic.Layout().Compose(0xBEEF, 0, 0), 1)

		Expect(err).To(HaveOccurred())
	})

	It("should reject a register index past the feature's registers", func() {
		c := model.NewCompiler(ic)

		err := c.Configure(ic.Layout().Compose(ic.TileID(0, 0), 1, 0xFF), 1)

		Expect(err).To(HaveOccurred())
	})

	It("should carry a routed value across tiles", func() {
		in := g.GetSB(0, 0, graph.North, 0, graph.SwitchIn)
		out := g.GetSB(0, 0, graph.South, 0, graph.SwitchOut)
		hop := g.GetSB(0, 1, graph.North, 0, graph.SwitchIn)
		port := g.GetPort(0, 1, "data_in_16b")

		writes, err := ic.RouteBitstream([]graph.Node{in, out, hop, port})
		Expect(err).NotTo(HaveOccurred())

		c := model.NewCompiler(ic)
		Expect(c.ConfigureAll(writes)).To(Succeed())
		m, err := c.Compile()
		Expect(err).NotTo(HaveOccurred())

		Expect(m.Drive("X00_Y00_SB_T0_NORTH_SB_IN_B16", 42)).To(Succeed())

		v, err := m.PeekPort(0, 1, "data_in_16b")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint64(42)))
	})

	It("should reject driving an unknown boundary port", func() {
		m, err := model.NewCompiler(ic).Compile()
		Expect(err).NotTo(HaveOccurred())

		Expect(m.Drive("no_such_port", 1)).NotTo(Succeed())
	})
})

var _ = Describe("Model", func() {
	It("should delay the registered path by one tick", func() {
		g, _ := buildFabric(2, 1, 1)
		box := g.GetTile(0, 0).SwitchBox
		box.AddPipelineRegister(0, graph.East)

		ic, err := interconnect.NewBuilder().
			WithGraphs(map[int]*graph.Graph{16: g}).
			Build("Fabric")
		Expect(err).NotTo(HaveOccurred())

		in := g.GetSB(0, 0, graph.West, 0, graph.SwitchIn)
		out := box.Get(graph.East, 0, graph.SwitchOut)
		reg := box.Registers()["T0_EAST"]
		regMux := box.RegisterMuxes()["T0_EAST"]
		hop := g.GetSB(1, 0, graph.West, 0, graph.SwitchIn)

		writes, err := ic.RouteBitstream(
			[]graph.Node{in, out, reg, regMux, hop})
		Expect(err).NotTo(HaveOccurred())

		c := model.NewCompiler(ic)
		Expect(c.ConfigureAll(writes)).To(Succeed())
		m, err := c.Compile()
		Expect(err).NotTo(HaveOccurred())

		m.DriveNode(in, 7)
		Expect(m.Peek(hop)).To(Equal(uint64(0)))

		m.Tick()
		Expect(m.Peek(hop)).To(Equal(uint64(7)))
	})

	It("should track the driven value combinationally on the bypass", func() {
		g, ic := buildFabric(1, 1, 1)

		in := g.GetSB(0, 0, graph.North, 0, graph.SwitchIn)
		port := g.GetPort(0, 0, "data_in_16b")

		writes, err := ic.RouteBitstream([]graph.Node{in, port})
		Expect(err).NotTo(HaveOccurred())

		c := model.NewCompiler(ic)
		Expect(c.ConfigureAll(writes)).To(Succeed())
		m, err := c.Compile()
		Expect(err).NotTo(HaveOccurred())

		m.DriveNode(in, 3)
		Expect(m.Peek(port)).To(Equal(uint64(3)))

		m.DriveNode(in, 9)
		Expect(m.Peek(port)).To(Equal(uint64(9)))
	})

	It("should mask values to the node width", func() {
		g, ic := buildFabric(1, 1, 1)
		in := g.GetSB(0, 0, graph.North, 0, graph.SwitchIn)

		m, err := model.NewCompiler(ic).Compile()
		Expect(err).NotTo(HaveOccurred())

		m.DriveNode(in, 0x1FFFF)
		Expect(m.Peek(in)).To(Equal(uint64(0xFFFF)))
	})
})
