package interconnect

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// An AddrEntry describes one configuration register of the fabric: its
// location, its decomposed address fields, and the fully composed
// address a controller writes to reach it.
type AddrEntry struct {
	X, Y         int
	TileID       int
	Feature      int
	FeatureName  string
	Register     int
	RegisterName string
	Width        int
	Addr         uint32
}

// AddressMap enumerates every configuration register in the fabric in
// address order: tiles by coordinate, features by feature address,
// registers by register index.
func (ic *Interconnect) AddressMap() []AddrEntry {
	var entries []AddrEntry

	for _, coord := range ic.Coords() {
		tc := ic.tiles[coord]
		tileID := ic.TileID(coord.X, coord.Y)

		for featAddr, feat := range tc.Features() {
			for regIdx, regName := range feat.RegisterNames() {
				entries = append(entries, AddrEntry{
					X:            coord.X,
					Y:            coord.Y,
					TileID:       tileID,
					Feature:      featAddr,
					FeatureName:  feat.Name(),
					Register:     regIdx,
					RegisterName: regName,
					Width:        feat.RegisterWidth(regName),
					Addr:         ic.layout.Compose(tileID, featAddr, regIdx),
				})
			}
		}
	}

	return entries
}

// WriteAddressMap renders the address map as a table.
func (ic *Interconnect) WriteAddressMap(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Configuration Address Map")
	t.AppendHeader(table.Row{
		"Tile", "Tile ID", "Feature", "Register", "Width", "Address",
	})

	for _, e := range ic.AddressMap() {
		t.AppendRow(table.Row{
			fmt.Sprintf("(%d, %d)", e.X, e.Y),
			fmt.Sprintf("0x%04X", e.TileID),
			fmt.Sprintf("%d: %s", e.Feature, e.FeatureName),
			fmt.Sprintf("%d: %s", e.Register, e.RegisterName),
			e.Width,
			fmt.Sprintf("0x%08X", e.Addr),
		})
	}

	t.Render()
}
