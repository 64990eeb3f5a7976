package main

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Kuree/canal/interconnect"
	"github.com/Kuree/canal/pnr"
)

// routeCmd translates place-and-route results into a bitstream.
var routeCmd = &cobra.Command{
	Use:   "route [flags] arch_file placement_file routing_file",
	Short: "compile place-and-route results into a bitstream",
	Long: "Route resolves a routing result against the fabric's " +
		"routing graphs and emits one `addr data` line per " +
		"configuration write, in hex.",
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		configureLogging(cmd)

		arch, err := interconnect.LoadArch(args[0])
		if err != nil {
			fail(err)
		}
		ic, err := arch.Build(nil)
		if err != nil {
			fail(err)
		}

		placement, idToName, err := pnr.LoadPlacement(args[1])
		if err != nil {
			fail(err)
		}
		log.Debugf("placed %d blocks", len(idToName))

		routes, err := pnr.LoadRouting(args[2], ic)
		if err != nil {
			fail(err)
		}

		netIDs := make([]string, 0, len(routes))
		for id := range routes {
			netIDs = append(netIDs, id)
		}
		sort.Strings(netIDs)

		var writes []interconnect.ConfigWrite
		for _, id := range netIDs {
			for _, segment := range routes[id] {
				segWrites, err := ic.RouteBitstream(segment)
				if err != nil {
					fail(fmt.Errorf("net %s: %w", id, err))
				}
				writes = append(writes, segWrites...)
			}
		}

		fixer := pnr.NewPowerDomainFixer(ic, placement, routes)
		on, off := fixer.OnOffTiles()
		log.Debugf("power domains: %d tiles on, %d tiles off",
			len(on), len(off))

		output, _ := cmd.Flags().GetString("output")
		out, closeOut := openOutput(output)
		defer closeOut()
		for _, w := range writes {
			fmt.Fprintf(out, "%08X %08X\n", w.Addr, w.Data)
		}
	},
}

func init() {
	rootCmd.AddCommand(routeCmd)

	routeCmd.Flags().StringP(
		"output", "o", "", "bitstream output file (default stdout)")
}
