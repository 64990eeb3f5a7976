// This sample compiles a small uniform fabric, routes a value across
// it with the simulation driver, and prints the address map plus the
// generated Verilog.
package main

import (
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/Kuree/canal/driver"
	"github.com/Kuree/canal/graph"
	"github.com/Kuree/canal/hw"
	"github.com/Kuree/canal/interconnect"
)

func buildFabric() (*graph.Graph, *interconnect.Interconnect) {
	g := graph.NewBuilder().
		WithSize(2, 2).
		WithBitWidth(16).
		WithNumTracks(2).
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
	if err != nil {
		panic(err)
	}

	return g, ic
}

func streamThrough(g *graph.Graph, ic *interconnect.Interconnect) {
	engine := sim.NewSerialEngine()

	fabric := driver.MakeFabricBuilder().
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		WithInterconnect(ic).
		Build("Fabric")

	d := driver.MakeDriverBuilder().
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		Build("Driver")
	d.RegisterFabric(fabric)

	route := []graph.Node{
		g.GetSB(0, 0, graph.North, 0, graph.SwitchIn),
		g.GetSB(0, 0, graph.South, 0, graph.SwitchOut),
		g.GetSB(0, 1, graph.North, 0, graph.SwitchIn),
		g.GetSB(0, 1, graph.South, 0, graph.SwitchOut),
	}
	writes, err := ic.RouteBitstream(route)
	if err != nil {
		panic(err)
	}

	src := []uint64{1, 2, 3, 4}
	d.ProgramRoute(writes)
	d.FeedIn("X00_Y00_SB_T0_NORTH_SB_IN_B16", src)
	dst := d.Collect("X00_Y01_SB_T0_SOUTH_SB_OUT_B16", len(src))

	if err := d.Run(); err != nil {
		panic(err)
	}

	fmt.Println(src)
	fmt.Println(dst.Values)
}

func main() {
	g, ic := buildFabric()

	ic.WriteAddressMap(os.Stdout)

	if err := hw.WriteVerilog(os.Stdout, ic.Module()); err != nil {
		panic(err)
	}

	streamThrough(g, ic)

	atexit.Exit(0)
}
