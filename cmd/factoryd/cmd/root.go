package cmd

import (
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "factoryd",
	Short:   "Pool factory registry daemon",
	Long:    `factoryd runs a pool registry that maps unordered token pairs to pools and serves it over JSON-RPC.`,
	Version: version,
	// errors are already printed by cobra; usage is noise for runtime failures
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (environment variables prefixed with FACTORY_ override it)")
	rootCmd.AddCommand(serveCmd, castCmd)
}
