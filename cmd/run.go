package cmd

import (
	"fmt"
	"time"

	"github.com/modkit/luahost/internal/sandbox"
	"github.com/modkit/luahost/internal/script"
	"github.com/spf13/cobra"
)

var scriptRoot string

var runCmd = &cobra.Command{
	Use:   "run <path>",
	Short: "Load a script file or directory tree into a fresh sandbox",
	Long: `Run builds a sandboxed Lua environment and loads the given path through it.
A directory is walked recursively and every .lua file in it is executed; a
single .lua file is executed alone. Script failures are reported and do not
stop sibling scripts from loading.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()

		diag := sandbox.NewLogDiag(cmd.ErrOrStderr())
		sb, err := sandbox.New(sandbox.Options{Diag: diag})
		if err != nil {
			return err
		}
		defer sb.Close()

		loader := script.NewLoader(sb, script.NewOSFileService(scriptRoot), diag)
		loadErr := loader.LoadPath(args[0])

		loaded, failed := loader.Stats()
		FormatRunSummary(cmd.OutOrStdout(), args[0], loaded, failed, time.Since(start))

		if loadErr != nil {
			return fmt.Errorf("load %q: %w", args[0], loadErr)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&scriptRoot, "root", ".", "Directory the file service serves scripts from")

	rootCmd.AddCommand(runCmd)
}
