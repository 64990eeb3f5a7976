package interconnect_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Kuree/canal/graph"
	"github.com/Kuree/canal/hw"
	"github.com/Kuree/canal/interconnect"
)

// buildGraph creates a uniform 16-bit grid with dummy cores whose
// input is reachable from every side and whose output drives every
// side.
func buildGraph(width, height, numTracks int) *graph.Graph {
	return graph.NewBuilder().
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
}

func hasConn(m *hw.Module, src, dst hw.PortRef) bool {
	for _, c := range m.Conns() {
		if c.Src == src && c.Dst == dst {
			return true
		}
	}

	return false
}

var _ = Describe("Interconnect", func() {
	var (
		g  *graph.Graph
		ic *interconnect.Interconnect
	)

	BeforeEach(func() {
		g = buildGraph(2, 2, 2)

		var err error
		ic, err = interconnect.NewBuilder().
			WithGraphs(map[int]*graph.Graph{16: g}).
			Build("Fabric")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should place one tile instance per coordinate", func() {
		Expect(ic.Coords()).To(HaveLen(4))

		m := ic.Module()
		for _, name := range []string{
			"Tile_X00_Y00", "Tile_X00_Y01", "Tile_X01_Y00", "Tile_X01_Y01",
		} {
			Expect(m.Instance(name)).NotTo(BeNil())
		}
	})

	It("should give each tile its packed coordinate as id", func() {
		Expect(ic.TileID(1, 1)).To(Equal(0x0101))

		m := ic.Module()
		id := m.Instance("tile_id_X01_Y01")
		Expect(id).NotTo(BeNil())
		Expect(id.Module.Param("VALUE")).To(Equal(0x0101))
		Expect(hasConn(m, id.Port("O"),
			m.Instance("Tile_X01_Y01").Port("tile_id"))).To(BeTrue())
	})

	It("should fan the configuration bus out to every tile", func() {
		m := ic.Module()
		for _, coord := range ic.Coords() {
			inst := m.Instance(ic.TileAt(coord.X, coord.Y).InstanceName())
			for _, port := range []string{
				"clk", "reset", "stall",
				"config_addr", "config_data", "read", "write",
			} {
				Expect(hasConn(m, m.Self(port), inst.Port(port))).To(BeTrue())
			}
		}
	})

	It("should fold the tiles' read-back outputs with an OR chain", func() {
		m := ic.Module()

		ors := 0
		for _, inst := range m.Instances() {
			if inst.Module.Kind() == "or" {
				ors++
			}
		}
		Expect(ors).To(Equal(3))

		last := m.Instance("read_or_X01_Y01")
		Expect(last).NotTo(BeNil())
		Expect(hasConn(m, last.Port("O"), m.Self("read_config_data"))).
			To(BeTrue())
	})

	It("should wire neighboring switch ports track by track", func() {
		m := ic.Module()
		upper := m.Instance("Tile_X00_Y00")
		lower := m.Instance("Tile_X00_Y01")

		out := g.GetSB(0, 0, graph.South, 0, graph.SwitchOut)
		in := g.GetSB(0, 1, graph.North, 0, graph.SwitchIn)
		idx := graph.SourceIndex(in, out)
		Expect(idx).To(BeNumerically(">=", 0))

		Expect(hasConn(m, upper.Port(out.Name()),
			lower.Port(in.Name()).At(idx))).To(BeTrue())
	})

	It("should lift dangling boundary ports to the fabric", func() {
		m := ic.Module()

		in := "X00_Y00_SB_T0_NORTH_SB_IN_B16"
		out := "X00_Y00_SB_T0_NORTH_SB_OUT_B16"
		Expect(m.HasPort(in)).To(BeTrue())
		Expect(m.Port(in).Dir).To(Equal(hw.In))
		Expect(m.HasPort(out)).To(BeTrue())
		Expect(m.Port(out).Dir).To(Equal(hw.Out))

		Expect(ic.Interface()).To(HaveKey(in))
		Expect(ic.Interface()).To(HaveKey(out))

		// interior ports have drivers and consumers and stay internal
		Expect(m.HasPort("X00_Y00_SB_T0_SOUTH_SB_IN_B16")).To(BeFalse())
	})

	It("should honor WithLiftPorts(false)", func() {
		bare, err := interconnect.NewBuilder().
			WithGraphs(map[int]*graph.Graph{16: buildGraph(2, 2, 2)}).
			WithLiftPorts(false).
			Build("Fabric")

		Expect(err).NotTo(HaveOccurred())
		Expect(bare.Interface()).To(BeEmpty())
		Expect(bare.Module().HasPort("X00_Y00_SB_T0_NORTH_SB_IN_B16")).
			To(BeFalse())
	})

	It("should compile identical fabrics to the same hash", func() {
		other, err := interconnect.NewBuilder().
			WithGraphs(map[int]*graph.Graph{16: buildGraph(2, 2, 2)}).
			Build("Fabric")

		Expect(err).NotTo(HaveOccurred())
		Expect(other.Hash()).To(Equal(ic.Hash()))
	})

	Describe("RouteBitstream", func() {
		It("should emit one write per configured hop", func() {
			in := g.GetSB(0, 0, graph.North, 0, graph.SwitchIn)
			out := g.GetSB(0, 0, graph.South, 0, graph.SwitchOut)
			hop := g.GetSB(0, 1, graph.North, 0, graph.SwitchIn)
			port := g.GetPort(0, 1, "data_in_16b")

			writes, err := ic.RouteBitstream(
				[]graph.Node{in, out, hop, port})

			Expect(err).NotTo(HaveOccurred())
			// the single-source hop carries no configuration
			Expect(writes).To(HaveLen(2))

			layout := ic.Layout()
			tileID, _, _ := layout.Split(writes[0].Addr)
			Expect(tileID).To(Equal(ic.TileID(0, 0)))
			Expect(writes[0].Data).To(
				Equal(uint32(graph.SourceIndex(out, in))))

			tileID, _, _ = layout.Split(writes[1].Addr)
			Expect(tileID).To(Equal(ic.TileID(0, 1)))
			Expect(writes[1].Data).To(
				Equal(uint32(graph.SourceIndex(port, hop))))
		})

		It("should select the registered path through a pipeline register", func() {
			box := g.GetTile(0, 0).SwitchBox
			box.AddPipelineRegister(0, graph.South)

			registered, err := interconnect.NewBuilder().
				WithGraphs(map[int]*graph.Graph{16: g}).
				Build("Fabric")
			Expect(err).NotTo(HaveOccurred())

			out := box.Get(graph.South, 0, graph.SwitchOut)
			reg := box.Registers()["T0_SOUTH"]
			regMux := box.RegisterMuxes()["T0_SOUTH"]

			writes, err := registered.RouteBitstream(
				[]graph.Node{out, reg, regMux})

			Expect(err).NotTo(HaveOccurred())
			Expect(writes).To(HaveLen(1))
			Expect(writes[0].Data).To(Equal(uint32(1)))
		})

		It("should fault on an edge the graph does not have", func() {
			out := g.GetSB(0, 0, graph.South, 0, graph.SwitchOut)
			far := g.GetPort(1, 1, "data_in_16b")

			_, err := ic.RouteBitstream([]graph.Node{out, far})

			Expect(err).To(HaveOccurred())
		})
	})
})
