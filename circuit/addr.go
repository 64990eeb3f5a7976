package circuit

import (
	"fmt"

	bitutil "github.com/Kuree/canal/util"
)

// AddrLayout is the three-way split of a full configuration address.
// The tile identifier lives in the low bits, the feature address in
// the middle, and the per-feature register address in the high bits.
// The register slice is what each feature's own configuration logic
// decodes, so its width equals the feature-level address width.
type AddrLayout struct {
	FullWidth       int
	TileIDWidth     int
	ConfigAddrWidth int
}

// DefaultLayout returns the 32-bit layout with a 16-bit tile id and an
// 8-bit feature-level address.
func DefaultLayout() AddrLayout {
	return AddrLayout{FullWidth: 32, TileIDWidth: 16, ConfigAddrWidth: 8}
}

func (l AddrLayout) validate() {
	if l.TileIDWidth+l.ConfigAddrWidth > l.FullWidth {
		panic(fmt.Sprintf("address layout does not fit: %d + %d > %d",
			l.TileIDWidth, l.ConfigAddrWidth, l.FullWidth))
	}
}

// TileIDSlice returns the bit range [lo, hi) holding the tile id.
func (l AddrLayout) TileIDSlice() (lo, hi int) {
	return 0, l.TileIDWidth
}

// FeatureSlice returns the bit range [lo, hi) holding the feature
// address.
func (l AddrLayout) FeatureSlice() (lo, hi int) {
	return l.FullWidth - l.TileIDWidth, l.FullWidth - l.ConfigAddrWidth
}

// RegisterSlice returns the bit range [lo, hi) holding the register
// address within the selected feature.
func (l AddrLayout) RegisterSlice() (lo, hi int) {
	return l.FullWidth - l.ConfigAddrWidth, l.FullWidth
}

// FeatureWidth returns the width of the feature address field.
func (l AddrLayout) FeatureWidth() int {
	lo, hi := l.FeatureSlice()
	return hi - lo
}

// Compose packs the three fields into one full address.
func (l AddrLayout) Compose(tileID, feature, register int) uint32 {
	l.validate()

	featLo, _ := l.FeatureSlice()
	regLo, _ := l.RegisterSlice()

	addr := uint64(tileID) & bitutil.Mask(l.TileIDWidth)
	addr |= (uint64(feature) & bitutil.Mask(l.FeatureWidth())) << featLo
	addr |= (uint64(register) & bitutil.Mask(l.ConfigAddrWidth)) << regLo

	return uint32(addr)
}

// Split decomposes a full address into its three fields.
func (l AddrLayout) Split(addr uint32) (tileID, feature, register int) {
	l.validate()

	featLo, _ := l.FeatureSlice()
	regLo, _ := l.RegisterSlice()

	tileID = int(uint64(addr) & bitutil.Mask(l.TileIDWidth))
	feature = int((uint64(addr) >> featLo) & bitutil.Mask(l.FeatureWidth()))
	register = int((uint64(addr) >> regLo) & bitutil.Mask(l.ConfigAddrWidth))

	return tileID, feature, register
}
