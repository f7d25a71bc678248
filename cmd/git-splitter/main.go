package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/operasoftware/git-splitter/internal/gitstore"
	"github.com/operasoftware/git-splitter/internal/splitter"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootCmd struct {
	*cobra.Command

	verbose bool
}

func newRootCmd() *rootCmd {
	c := &rootCmd{
		Command: &cobra.Command{
			Use:           "git-splitter",
			Short:         "split a subdirectory out of a git history, or replant a history under a prefix",
			SilenceUsage:  true,
			SilenceErrors: true,
		},
	}

	c.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", c.verbose, "log every processed commit")
	c.PersistentPreRun = func(*cobra.Command, []string) {
		c.setupLogging()
	}

	c.AddCommand(
		newRunCmd(splitter.ModeSplit, "extract the history of --prefix into its own branch").Command,
		newRunCmd(splitter.ModeReplant, "rewrite the history so all content lives under --prefix").Command,
	)

	return c
}

func (c *rootCmd) Execute() error {
	err := c.Command.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "git-splitter: %v\n", err)
	}
	return err
}

func (c *rootCmd) setupLogging() {
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	splitter.SetLogger(logger)
	gitstore.SetLogger(logger)
}
