package hw_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Kuree/canal/hw"
)

var _ = Describe("Module", func() {
	It("should keep ports in declaration order", func() {
		m := hw.NewModule("m")
		m.AddPort("a", hw.In, 4)
		m.AddArrayPort("b", hw.In, 8, 3)
		m.AddPort("c", hw.Out, 8)

		Expect(m.Ports()).To(HaveLen(3))
		Expect(m.Ports()[1].Name).To(Equal("b"))
		Expect(m.Port("b").Array).To(BeTrue())
		Expect(m.Port("b").Size).To(Equal(3))
		Expect(m.HasPort("d")).To(BeFalse())
	})

	It("should reject duplicate ports and instances", func() {
		m := hw.NewModule("m")
		m.AddPort("a", hw.In, 1)

		Expect(func() { m.AddPort("a", hw.Out, 1) }).To(Panic())

		child := hw.NewModule("child")
		m.AddInstance("u0", child)
		Expect(func() { m.AddInstance("u0", child) }).To(Panic())
	})

	It("should validate wire references", func() {
		m := hw.NewModule("m")
		m.AddPort("a", hw.In, 4)
		m.AddPort("o", hw.Out, 4)

		m.Wire(m.Self("a"), m.Self("o"))
		Expect(m.Conns()).To(HaveLen(1))

		Expect(func() {
			m.Wire(m.Self("missing"), m.Self("o"))
		}).To(Panic())
	})

	It("should reject out-of-range slices and indexes", func() {
		m := hw.NewModule("m")
		m.AddArrayPort("i", hw.In, 8, 2)
		m.AddPort("o", hw.Out, 8)

		Expect(func() {
			m.Wire(m.Self("i").At(2), m.Self("o"))
		}).To(Panic())
		Expect(func() {
			m.Wire(m.Self("i").At(0).Slice(4, 12), m.Self("o"))
		}).To(Panic())
	})

	It("should compute reference widths", func() {
		m := hw.NewModule("m")
		m.AddArrayPort("i", hw.In, 8, 4)

		Expect(m.RefWidth(m.Self("i"))).To(Equal(32))
		Expect(m.RefWidth(m.Self("i").At(1))).To(Equal(8))
		Expect(m.RefWidth(m.Self("i").At(1).Slice(0, 3))).To(Equal(3))
	})

	It("should resolve instance parameters through overrides", func() {
		reg := hw.ConfigRegister(2, 8, 32)
		m := hw.NewModule("m")
		inst := m.AddInstance("r0", reg)

		Expect(inst.Param("ADDR")).To(Equal(0))
		inst.SetParam("ADDR", 5)
		Expect(inst.Param("ADDR")).To(Equal(5))
		Expect(reg.Param("ADDR")).To(Equal(0))
	})
})

var _ = Describe("Primitives", func() {
	It("should share one module per shape", func() {
		Expect(hw.Mux(4, 16)).To(BeIdenticalTo(hw.Mux(4, 16)))
		Expect(hw.Mux(4, 16)).NotTo(BeIdenticalTo(hw.Mux(4, 1)))
	})

	It("should size the select input from the height", func() {
		Expect(hw.Mux(4, 16).Port("S").Width).To(Equal(2))
		Expect(hw.Mux(5, 16).Port("S").Width).To(Equal(3))
		Expect(hw.Mux(2, 16).Port("S").Width).To(Equal(1))
	})

	It("should degenerate to a passthrough for height below two", func() {
		Expect(hw.Mux(1, 16).HasPort("S")).To(BeFalse())
		Expect(hw.Mux(1, 16).Port("I").Size).To(Equal(1))
		Expect(hw.Mux(0, 16).Port("I").Size).To(Equal(1))
		Expect(hw.SelWidth(1)).To(Equal(0))
		Expect(hw.SelWidth(6)).To(Equal(3))
	})
})
