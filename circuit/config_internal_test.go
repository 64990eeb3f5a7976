package circuit

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("configurable", func() {
	It("should assign addresses in sorted-name order", func() {
		c := newConfigurable("unit", 8, 32)
		c.addConfigSurface()

		Expect(c.AddConfig("zeta_sel", 2)).To(Succeed())
		Expect(c.AddConfig("alpha_sel", 1)).To(Succeed())
		Expect(c.AddConfig("mid_sel", 3)).To(Succeed())
		c.finalizeConfig()

		Expect(c.RegisterNames()).To(Equal(
			[]string{"alpha_sel", "mid_sel", "zeta_sel"}))
		Expect(c.RegisterIndex("alpha_sel")).To(Equal(0))
		Expect(c.RegisterIndex("zeta_sel")).To(Equal(2))
		Expect(c.regs["mid_sel"].inst.Param("ADDR")).To(Equal(1))
	})

	It("should assign the same addresses for any insertion order", func() {
		names := []string{"d", "a", "c", "b", "e", "f"}

		build := func(order []string) []string {
			c := newConfigurable("unit", 8, 32)
			c.addConfigSurface()
			for _, name := range order {
				Expect(c.AddConfig(name, 1)).To(Succeed())
			}
			c.finalizeConfig()
			return c.RegisterNames()
		}

		want := build(names)
		rnd := rand.New(rand.NewSource(42))
		for trial := 0; trial < 5; trial++ {
			shuffled := append([]string(nil), names...)
			rnd.Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})
			Expect(build(shuffled)).To(Equal(want))
		}
	})

	It("should reject duplicate register names", func() {
		c := newConfigurable("unit", 8, 32)
		c.addConfigSurface()

		Expect(c.AddConfig("sel", 1)).To(Succeed())
		Expect(c.AddConfig("sel", 1)).To(MatchError(ErrDuplicateConfig))
	})

	It("should build a read-back selector only for multiple registers", func() {
		single := newConfigurable("single", 8, 32)
		single.addConfigSurface()
		Expect(single.AddConfig("only_sel", 1)).To(Succeed())
		single.finalizeConfig()
		Expect(single.Module().Instance("read_config_data_mux")).To(BeNil())

		multi := newConfigurable("multi", 8, 32)
		multi.addConfigSurface()
		Expect(multi.AddConfig("a_sel", 1)).To(Succeed())
		Expect(multi.AddConfig("b_sel", 1)).To(Succeed())
		multi.finalizeConfig()
		Expect(multi.Module().Instance("read_config_data_mux")).NotTo(BeNil())
	})
})

var _ = Describe("AddrLayout", func() {
	layout := DefaultLayout()

	It("should place the three fields at the documented offsets", func() {
		lo, hi := layout.TileIDSlice()
		Expect([2]int{lo, hi}).To(Equal([2]int{0, 16}))
		lo, hi = layout.FeatureSlice()
		Expect([2]int{lo, hi}).To(Equal([2]int{16, 24}))
		lo, hi = layout.RegisterSlice()
		Expect([2]int{lo, hi}).To(Equal([2]int{24, 32}))
	})

	It("should round trip through Compose and Split", func() {
		addr := layout.Compose(0x0102, 3, 7)

		Expect(addr).To(Equal(uint32(0x0703_0102)))

		tileID, feature, register := layout.Split(addr)
		Expect(tileID).To(Equal(0x0102))
		Expect(feature).To(Equal(3))
		Expect(register).To(Equal(7))
	})
})
