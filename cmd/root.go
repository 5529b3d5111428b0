package cmd

import (
	"fmt"
	"os"

	"github.com/modkit/luahost/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "luahost",
	Short: "Capability-restricted host for Lua game/mod scripts",
	Long: `luahost runs semi-trusted Lua content inside a restricted environment:
no filesystem or process access, no host RNG, and every script failure is
intercepted and reported instead of crashing the host.`,
}

func init() {
	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("luahost %s\n", version.String()))
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
