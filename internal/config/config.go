// Package config provides the configuration for git-splitter runs.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/operasoftware/git-splitter/internal/splitter"
)

// ErrNoDestination is returned by Validate when nothing tells where to push.
var ErrNoDestination = fmt.Errorf("%w: no push destination provided", splitter.ErrValidation)

// Config holds every option of a run. Zero values mean "not set".
type Config struct {
	Prefix    string   `toml:"prefix"`
	Branch    string   `toml:"branch"`
	Onto      string   `toml:"onto"`
	Tag       string   `toml:"tag"`
	Push      string   `toml:"push"`
	Repo      string   `toml:"repo"`
	Annotate  string   `toml:"annotate"`
	Revisions []string `toml:"revisions"`
}

type file struct {
	Split Config `toml:"split"`
}

// DefaultConfig returns the default configuration, reading from environment variables.
func DefaultConfig() *Config {
	c := &Config{
		Branch: splitter.DefaultBranch,
		Repo:   ".",
	}
	if v := os.Getenv("GIT_SPLITTER_BRANCH"); v != "" {
		c.Branch = v
	}
	c.Tag = os.Getenv("GIT_SPLITTER_TAG")
	c.Push = os.Getenv("GIT_SPLITTER_PUSH")
	c.Annotate = os.Getenv("GIT_SPLITTER_ANNOTATE")
	return c
}

// Load merges the [split] table of a TOML file into c. Only keys present in
// the file replace the current values.
func (c *Config) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	var f file
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%w: unknown key %q in %s", splitter.ErrValidation, undecoded[0].String(), path)
	}

	c.Override(&f.Split, func(key string) bool {
		return md.IsDefined("split", key)
	})
	return nil
}

// Override copies the values of o for which isSet reports true over c.
func (c *Config) Override(o *Config, isSet func(key string) bool) {
	set := func(key string, dst *string, v string) {
		if isSet(key) {
			*dst = v
		}
	}
	set("prefix", &c.Prefix, o.Prefix)
	set("branch", &c.Branch, o.Branch)
	set("onto", &c.Onto, o.Onto)
	set("tag", &c.Tag, o.Tag)
	set("push", &c.Push, o.Push)
	set("repo", &c.Repo, o.Repo)
	set("annotate", &c.Annotate, o.Annotate)
	if isSet("revisions") {
		c.Revisions = append([]string(nil), o.Revisions...)
	}
}

// Normalize cleans up values that have more than one accepted spelling.
func (c *Config) Normalize() {
	c.Prefix = splitter.NormalizePrefix(c.Prefix)
	if c.Branch == "" {
		c.Branch = splitter.DefaultBranch
	}
	if c.Repo == "" {
		c.Repo = "."
	}
}

// Validate checks that the required options are present.
func (c *Config) Validate() error {
	if c.Prefix == "" {
		return splitter.ErrNoPrefix
	}
	if c.Push == "" {
		return ErrNoDestination
	}
	return nil
}

// Options converts the configuration into the options of a run.
func (c *Config) Options(mode splitter.Mode) splitter.Options {
	return splitter.Options{
		Mode:        mode,
		Prefix:      c.Prefix,
		Branch:      c.Branch,
		Onto:        c.Onto,
		TagName:     c.Tag,
		Destination: c.Push,
		Annotate:    c.Annotate,
		Revisions:   append([]string(nil), c.Revisions...),
	}
}
