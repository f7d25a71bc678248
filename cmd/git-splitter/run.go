package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/operasoftware/git-splitter/internal/config"
	"github.com/operasoftware/git-splitter/internal/gitstore"
	"github.com/operasoftware/git-splitter/internal/splitter"
)

type runCmd struct {
	*cobra.Command

	mode       splitter.Mode
	configPath string
	flags      config.Config
}

func newRunCmd(mode splitter.Mode, short string) *runCmd {
	r := &runCmd{
		Command: &cobra.Command{
			Use:   mode.String() + " [revisions...]",
			Short: short,
		},
		mode: mode,
	}

	f := r.Flags()
	f.StringVarP(&r.configPath, "config", "c", r.configPath, "path to a TOML file with a [split] table")
	f.StringVarP(&r.flags.Prefix, "prefix", "p", r.flags.Prefix, "subdirectory to split, or path to replant under")
	f.StringVarP(&r.flags.Branch, "branch", "b", splitter.DefaultBranch, "branch receiving the result")
	f.StringVar(&r.flags.Onto, "onto", r.flags.Onto, "existing derived history to continue")
	f.StringVarP(&r.flags.Tag, "tag", "t", r.flags.Tag, "tag prefix recording derived commits")
	f.StringVar(&r.flags.Push, "push", r.flags.Push, "repository to push the branch and tags to")
	f.StringVarP(&r.flags.Repo, "repo", "r", ".", "repository to read")
	f.StringVar(&r.flags.Annotate, "annotate", r.flags.Annotate, "text prepended to every derived commit message")

	r.RunE = func(cmd *cobra.Command, args []string) error {
		return r.run(args)
	}

	return r
}

// loadConfig layers the defaults, the environment, the config file and the
// command line, in that order.
func (r *runCmd) loadConfig(args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if r.configPath != "" {
		if err := cfg.Load(r.configPath); err != nil {
			return nil, err
		}
	}

	cfg.Override(&r.flags, func(key string) bool {
		return r.Flags().Changed(key)
	})
	if len(args) > 0 {
		cfg.Revisions = args
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *runCmd) run(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := r.loadConfig(args)
	if err != nil {
		return err
	}

	store, err := gitstore.Open(cfg.Repo)
	if err != nil {
		return err
	}
	if err := gitstore.CheckDestination(cfg.Push); err != nil {
		return err
	}
	if len(cfg.Revisions) == 0 {
		cfg.Revisions = []string{store.DefaultRevision()}
	}

	res, err := splitter.Dispatch(ctx, r.mode.String(), store, cfg.Options(r.mode))
	if err != nil {
		return err
	}

	printResult(r.OutOrStdout(), res)
	return nil
}

func printResult(w io.Writer, res *splitter.Result) {
	if res.Head.IsZero() {
		fmt.Fprintln(w, "No revisions found")
		return
	}
	fmt.Fprintf(w, "%s %s -> %s\n", res.Mode, res.Branch, res.Head)
	fmt.Fprintf(w, "  processed %d (created %d, reused %d, no content %d), memoized %d\n",
		res.Processed, res.Created, res.Reused, res.NoContent, res.Memoized)
	fmt.Fprintf(w, "  tags written %d, refspecs pushed %d\n", res.TagsWritten, res.RefspecsPushed)
}
