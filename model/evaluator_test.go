package model_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Kuree/canal/graph"
	"github.com/Kuree/canal/hw"
	"github.com/Kuree/canal/interconnect"
	"github.com/Kuree/canal/model"
)

// findAddr picks the address-map entry for one register of one tile.
func findAddr(ic *interconnect.Interconnect, x, y int, reg string) interconnect.AddrEntry {
	for _, e := range ic.AddressMap() {
		if e.X == x && e.Y == y && e.RegisterName == reg {
			return e
		}
	}
	Fail("no address map entry for " + reg)

	return interconnect.AddrEntry{}
}

var _ = Describe("Evaluator", func() {
	Describe("configuration round trip", func() {
		var (
			ic *interconnect.Interconnect
			ev *model.Evaluator
		)

		BeforeEach(func() {
			_, ic = buildFabric(1, 1, 2)
			ev = model.NewEvaluator(ic.Module())
		})

		writeConfig := func(addr uint32, data uint64) {
			ev.Poke("config_addr", uint64(addr))
			ev.Poke("config_data", data)
			ev.Poke("write", 1)
			ev.Step()
			ev.Poke("write", 0)
		}

		readConfig := func(addr uint32) uint64 {
			ev.Poke("config_addr", uint64(addr))
			ev.Poke("read", 1)
			ev.Eval()
			v := ev.Peek("read_config_data")
			ev.Poke("read", 0)

			return v
		}

		It("should read back a written register through the decode tree", func() {
			entry := findAddr(ic, 0, 0, "CB_data_in_16b_sel")

			writeConfig(entry.Addr, 3)

			Expect(readConfig(entry.Addr)).To(Equal(uint64(3)))
		})

		It("should ignore writes carrying a foreign tile id", func() {
			entry := findAddr(ic, 0, 0, "CB_data_in_16b_sel")
			writeConfig(entry.Addr, 3)

			foreign := ic.Layout().Compose(0xBEEF, entry.Feature, entry.Register)
			writeConfig(foreign, 7)

			Expect(readConfig(entry.Addr)).To(Equal(uint64(3)))
		})

		It("should keep distinct registers at distinct addresses", func() {
			cb := findAddr(ic, 0, 0, "CB_data_in_16b_sel")
			sb := findAddr(ic, 0, 0, "SB_T0_NORTH_SB_OUT_B16_sel")
			Expect(sb.Addr).NotTo(Equal(cb.Addr))

			writeConfig(cb.Addr, 2)
			writeConfig(sb.Addr, 1)

			Expect(readConfig(cb.Addr)).To(Equal(uint64(2)))
			Expect(readConfig(sb.Addr)).To(Equal(uint64(1)))
		})
	})

	It("should carry a programmed route through the compiled netlist", func() {
		g, ic := buildFabric(2, 2, 2)
		ev := model.NewEvaluator(ic.Module())

		in := g.GetSB(0, 0, graph.North, 0, graph.SwitchIn)
		out := g.GetSB(0, 0, graph.South, 0, graph.SwitchOut)
		hop := g.GetSB(0, 1, graph.North, 0, graph.SwitchIn)
		exit := g.GetSB(0, 1, graph.South, 0, graph.SwitchOut)

		writes, err := ic.RouteBitstream([]graph.Node{in, out, hop, exit})
		Expect(err).NotTo(HaveOccurred())
		Expect(writes).NotTo(BeEmpty())

		for _, w := range writes {
			ev.Poke("config_addr", uint64(w.Addr))
			ev.Poke("config_data", uint64(w.Data))
			ev.Poke("write", 1)
			ev.Step()
		}
		ev.Poke("write", 0)

		ev.Poke("X00_Y00_SB_T0_NORTH_SB_IN_B16", 42)
		ev.Eval()

		Expect(ev.Peek("X00_Y01_SB_T0_SOUTH_SB_OUT_B16")).To(Equal(uint64(42)))
	})

	Describe("whole array reads", func() {
		It("should concatenate elements that fit one value", func() {
			m := hw.NewModule("flatten")
			m.AddArrayPort("I", hw.In, 16, 2)
			m.AddPort("O", hw.Out, 32)
			m.Wire(m.Self("I"), m.Self("O"))

			ev := model.NewEvaluator(m)
			ev.PokeAt("I", 0, 0xBEEF)
			ev.PokeAt("I", 1, 0xDEAD)
			ev.Eval()

			Expect(ev.Peek("O")).To(Equal(uint64(0xDEADBEEF)))
		})

		It("should refuse arrays wider than one value", func() {
			m := hw.NewModule("flatten")
			m.AddArrayPort("I", hw.In, 32, 4)
			m.AddPort("O", hw.Out, 32)
			m.Wire(m.Self("I"), m.Self("O"))

			ev := model.NewEvaluator(m)

			Expect(func() { ev.Eval() }).To(
				PanicWith(ContainSubstring("cannot flatten")))
		})
	})

	It("should clear configuration registers on reset", func() {
		_, ic := buildFabric(1, 1, 2)
		ev := model.NewEvaluator(ic.Module())
		entry := findAddr(ic, 0, 0, "CB_data_in_16b_sel")

		ev.Poke("config_addr", uint64(entry.Addr))
		ev.Poke("config_data", 3)
		ev.Poke("write", 1)
		ev.Step()
		ev.Poke("write", 0)

		ev.Poke("reset", 1)
		ev.Step()
		ev.Poke("reset", 0)

		ev.Poke("read", 1)
		ev.Eval()
		Expect(ev.Peek("read_config_data")).To(Equal(uint64(0)))
	})
})
