package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/modkit/luahost/internal/sandbox"
	"github.com/modkit/luahost/internal/script"
	"github.com/spf13/cobra"
)

var watchRoot string

var watchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Run a script path and reload it whenever its files change",
	Long: `Watch loads the given path like run, then keeps watching the script tree.
Whenever a .lua file changes, a fresh sandbox is built and the whole path is
reloaded, so every reload starts from a clean environment.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()

		target := filepath.Join(watchRoot, filepath.FromSlash(args[0]))
		if err := watchTree(watcher, target); err != nil {
			return err
		}

		reload := func() {
			start := time.Now()
			diag := sandbox.NewLogDiag(cmd.ErrOrStderr())
			sb, err := sandbox.New(sandbox.Options{Diag: diag})
			if err != nil {
				diag.Errorf("build sandbox: %v", err)
				return
			}
			defer sb.Close()

			loader := script.NewLoader(sb, script.NewOSFileService(watchRoot), diag)
			if err := loader.LoadPath(args[0]); err != nil {
				diag.Errorf("reload %q: %v", args[0], err)
			}
			loaded, failed := loader.Stats()
			FormatRunSummary(cmd.OutOrStdout(), args[0], loaded, failed, time.Since(start))
		}
		reload()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if ev.Op.Has(fsnotify.Create) {
					if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
						// new subdirectory: watch it too
						if err := watchTree(watcher, ev.Name); err != nil {
							return err
						}
					}
				}
				if strings.HasSuffix(ev.Name, ".lua") &&
					ev.Op.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
					reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
			case <-sig:
				return nil
			}
		}
	},
}

// watchTree registers path and, when it is a directory, all of its
// subdirectories with the watcher.
func watchTree(watcher *fsnotify.Watcher, path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watch %q: %w", path, err)
	}
	if !st.IsDir() {
		return watcher.Add(filepath.Dir(path))
	}
	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
}

func init() {
	watchCmd.Flags().StringVar(&watchRoot, "root", ".", "Directory the file service serves scripts from")

	rootCmd.AddCommand(watchCmd)
}
