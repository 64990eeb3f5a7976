package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Kuree/canal/hw"
	"github.com/Kuree/canal/interconnect"
)

// generateCmd lowers a fabric description into Verilog plus the
// configuration address map.
var generateCmd = &cobra.Command{
	Use:   "generate [flags] arch_file",
	Short: "generate the structural netlist and address map of a fabric",
	Long: "Generate compiles a YAML fabric description into a " +
		"structural Verilog netlist and prints the configuration " +
		"address map every tile's registers occupy.",
	Args: cobra.ExactArgs(1),
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
		log.Debugf("compiled %s: %dx%d, hash %016x",
			arch.Name, arch.Width, arch.Height, ic.Hash())

		output, _ := cmd.Flags().GetString("output")
		out, closeOut := openOutput(output)
		if err := hw.WriteVerilog(out, ic.Module()); err != nil {
			fail(err)
		}
		closeOut()

		mapFile, _ := cmd.Flags().GetString("addr-map")
		if mapFile != "" || output != "" {
			mapOut, closeMap := openOutput(mapFile)
			ic.WriteAddressMap(mapOut)
			closeMap()
		}
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP(
		"output", "o", "", "Verilog output file (default stdout)")
	generateCmd.Flags().String(
		"addr-map", "", "address map output file (default stdout)")
}
