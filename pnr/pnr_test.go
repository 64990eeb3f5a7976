package pnr_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Kuree/canal/graph"
	"github.com/Kuree/canal/interconnect"
	"github.com/Kuree/canal/pnr"
)

// buildFabric compiles a uniform 16-bit grid with dummy cores.
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

func writeFile(name, content string) string {
	path := filepath.Join(GinkgoT().TempDir(), name)
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())

	return path
}

var _ = Describe("LoadPlacement", func() {
	It("should load block locations and names", func() {
		path := writeFile("design.place",
			"Block Name\t\tX\tY\t\t#Block ID\n"+
				"---------------------------\n"+
				"add0\t1\t0\t#p0\n"+
				"io_in\t0\t0\t#i1\n")

		placement, names, err := pnr.LoadPlacement(path)
		Expect(err).NotTo(HaveOccurred())

		Expect(placement).To(HaveLen(2))
		Expect(placement["p0"]).To(Equal(graph.Coord{X: 1, Y: 0}))
		Expect(placement["i1"]).To(Equal(graph.Coord{X: 0, Y: 0}))
		Expect(names["p0"]).To(Equal("add0"))
	})

	It("should report the line of a malformed row", func() {
		path := writeFile("design.place",
			"Block Name\t\tX\tY\t\t#Block ID\n"+
				"---------------------------\n"+
				"add0\t1\t0\n")

		_, _, err := pnr.LoadPlacement(path)

		Expect(err).To(MatchError(ContainSubstring(":3:")))
	})

	It("should reject a block id without the # prefix", func() {
		path := writeFile("design.place",
			"Block Name\t\tX\tY\t\t#Block ID\n"+
				"---------------------------\n"+
				"add0\t1\t0\tp0\n")

		_, _, err := pnr.LoadPlacement(path)

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("LoadRouting", func() {
	It("should resolve nodes against the routing graphs", func() {
		g, ic := buildFabric(2, 2, 2)
		path := writeFile("design.route",
			"Net ID: e0 Segment_size: 1\n"+
				"Segment: 0 Size: 4\n"+
				"SB (0, 0, 0, 0, 0, 16)\n"+
				"SB (0, 0, 0, 1, 1, 16)\n"+
				"SB (0, 0, 1, 0, 0, 16)\n"+
				"PORT (data_in_16b, 0, 1, 16)\n")

		routes, err := pnr.LoadRouting(path, ic)
		Expect(err).NotTo(HaveOccurred())

		Expect(routes).To(HaveKey("e0"))
		Expect(routes["e0"]).To(HaveLen(1))

		segment := routes["e0"][0]
		Expect(segment).To(HaveLen(4))
		Expect(segment[0]).To(Equal(
			g.GetSB(0, 0, graph.North, 0, graph.SwitchIn)))
		Expect(segment[1]).To(Equal(
			g.GetSB(0, 0, graph.South, 0, graph.SwitchOut)))
		Expect(segment[3]).To(Equal(g.GetPort(0, 1, "data_in_16b")))
	})

	It("should resolve register and register mux nodes", func() {
		g, _ := buildFabric(1, 1, 1)
		box := g.GetTile(0, 0).SwitchBox
		box.AddPipelineRegister(0, graph.South)

		ic, err := interconnect.NewBuilder().
			WithGraphs(map[int]*graph.Graph{16: g}).
			Build("Fabric")
		Expect(err).NotTo(HaveOccurred())

		path := writeFile("design.route",
			"Net ID: e0 Segment_size: 1\n"+
				"Segment: 0 Size: 4\n"+
				"SB (0, 0, 0, 0, 0, 16)\n"+
				"SB (0, 0, 0, 1, 1, 16)\n"+
				"REG (T0_SOUTH, 0, 0, 0, 16)\n"+
				"RMUX (T0_SOUTH, 0, 0, 16)\n")

		routes, err := pnr.LoadRouting(path, ic)
		Expect(err).NotTo(HaveOccurred())

		segment := routes["e0"][0]
		Expect(segment[2]).To(Equal(box.Registers()["T0_SOUTH"]))
		Expect(segment[3]).To(Equal(box.RegisterMuxes()["T0_SOUTH"]))
	})

	It("should feed resolved segments into route compilation", func() {
		_, ic := buildFabric(2, 2, 2)
		path := writeFile("design.route",
			"Net ID: e0 Segment_size: 1\n"+
				"Segment: 0 Size: 4\n"+
				"SB (0, 0, 0, 0, 0, 16)\n"+
				"SB (0, 0, 0, 1, 1, 16)\n"+
				"SB (0, 0, 1, 0, 0, 16)\n"+
				"PORT (data_in_16b, 0, 1, 16)\n")

		routes, err := pnr.LoadRouting(path, ic)
		Expect(err).NotTo(HaveOccurred())

		writes, err := ic.RouteBitstream(routes["e0"][0])
		Expect(err).NotTo(HaveOccurred())
		Expect(writes).NotTo(BeEmpty())
	})

	It("should report the line of an unknown node kind", func() {
		_, ic := buildFabric(1, 1, 1)
		path := writeFile("design.route",
			"Net ID: e0 Segment_size: 1\n"+
				"Segment: 0 Size: 1\n"+
				"BOGUS (0, 0, 0, 16)\n")

		_, err := pnr.LoadRouting(path, ic)

		Expect(err).To(MatchError(ContainSubstring(":3:")))
	})

	It("should reject a node the fabric does not have", func() {
		_, ic := buildFabric(1, 1, 1)
		path := writeFile("design.route",
			"Net ID: e0 Segment_size: 1\n"+
				"Segment: 0 Size: 1\n"+
				"SB (7, 0, 0, 0, 0, 16)\n")

		_, err := pnr.LoadRouting(path, ic)

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("PowerDomainFixer", func() {
	It("should keep a used column on from the top down", func() {
		_, ic := buildFabric(2, 2, 1)
		placement := map[string]graph.Coord{
			"p0": {X: 0, Y: 1},
		}

		fixer := pnr.NewPowerDomainFixer(ic, placement, nil)
		on, off := fixer.OnOffTiles()

		Expect(on).To(HaveKey(graph.Coord{X: 0, Y: 0}))
		Expect(on).To(HaveKey(graph.Coord{X: 0, Y: 1}))
		Expect(off).To(HaveKey(graph.Coord{X: 1, Y: 0}))
		Expect(off).To(HaveKey(graph.Coord{X: 1, Y: 1}))
	})

	It("should count routed tiles as used", func() {
		g, ic := buildFabric(2, 2, 1)
		routes := map[string][][]graph.Node{
			"e0": {{
				g.GetSB(1, 0, graph.North, 0, graph.SwitchIn),
			}},
		}

		fixer := pnr.NewPowerDomainFixer(ic, nil, routes)
		on, off := fixer.OnOffTiles()

		Expect(on).To(HaveKey(graph.Coord{X: 1, Y: 0}))
		Expect(off).To(HaveKey(graph.Coord{X: 1, Y: 1}))
		Expect(off).To(HaveKey(graph.Coord{X: 0, Y: 0}))
	})
})
