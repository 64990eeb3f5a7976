package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any
// subcommands.
var rootCmd = &cobra.Command{
	Use:   "canal",
	Short: "A structural compiler for reconfigurable routing fabrics.",
	Long: "Canal lowers a routing-fabric description into a structural " +
		"netlist with a deterministic configuration address map, and " +
		"translates place-and-route results into bitstreams.",
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func init() {
	rootCmd.PersistentFlags().BoolP(
		"verbose", "v", false, "increase logging verbosity")
}

// configureLogging applies the verbosity flag.
func configureLogging(cmd *cobra.Command) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}

// fail reports a command error and exits.
func fail(err error) {
	log.Error(err.Error())
	atexit.Exit(1)
}

// openOutput opens the output target, stdout when name is empty.
func openOutput(name string) (*os.File, func()) {
	if name == "" {
		return os.Stdout, func() {}
	}

	f, err := os.Create(name)
	if err != nil {
		fail(err)
	}

	return f, func() { f.Close() }
}
