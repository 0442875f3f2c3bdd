package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "anvil",
	Short: "Anvil - bare-metal boot volume provisioner",
	Long: `Anvil provisions iSCSI boot volumes for bare-metal OpenShift servers
on a TrueNAS storage controller.

Each run walks a discover/process/housekeep lifecycle: snapshot the
controller, converge the volume/target/extent/association chain toward
the desired state, then verify what was built and record it.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Anvil version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(artifactCmd)
}
