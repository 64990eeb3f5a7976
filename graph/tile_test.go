package graph_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Kuree/canal/graph"
)

var _ = Describe("Tile", func() {
	It("should reject a switch box at another coordinate", func() {
		sb := graph.NewSwitchBox(1, 0, 1, 16, graph.DisjointWires(1))

		Expect(func() {
			graph.NewTile(0, 0, 16, sb)
		}).To(Panic())
	})

	It("should reject a switch box of another width", func() {
		sb := graph.NewSwitchBox(0, 0, 1, 1, graph.DisjointWires(1))

		Expect(func() {
			graph.NewTile(0, 0, 16, sb)
		}).To(Panic())
	})

	It("should create port nodes only for matching widths", func() {
		sb := graph.NewSwitchBox(0, 0, 1, 16, graph.DisjointWires(1))
		tile := graph.NewTile(0, 0, 16, sb)

		tile.SetCore(graph.NewDummyCore(1, 16))

		Expect(tile.Port("data_in_16b")).NotTo(BeNil())
		Expect(tile.Port("data_out_16b")).NotTo(BeNil())
		Expect(tile.Port("data_in_1b")).To(BeNil())
		Expect(tile.PortNames()).To(Equal([]string{
			"data_in_16b", "data_out_16b",
		}))
	})

	It("should report core port directions", func() {
		sb := graph.NewSwitchBox(0, 0, 1, 16, graph.DisjointWires(1))
		tile := graph.NewTile(0, 0, 16, sb)
		tile.SetCore(graph.NewDummyCore(16))

		Expect(tile.CoreHasInput("data_in_16b")).To(BeTrue())
		Expect(tile.CoreHasOutput("data_in_16b")).To(BeFalse())
		Expect(tile.CoreHasOutput("data_out_16b")).To(BeTrue())
	})

	It("should stay empty without a core", func() {
		sb := graph.NewSwitchBox(0, 0, 0, 1, nil)
		tile := graph.NewTile(0, 0, 1, sb)
		tile.SetCore(nil)

		Expect(tile.Core()).To(BeNil())
		Expect(tile.Ports()).To(BeEmpty())
	})
})
