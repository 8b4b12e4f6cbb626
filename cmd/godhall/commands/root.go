// Package commands implements the godhall CLI. Every subcommand works
// on the binary wire form (.dhallb files); godhall never parses source
// text.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/godhall/godhall/binary"
	"github.com/godhall/godhall/core"
	"github.com/godhall/godhall/imports"

	_ "github.com/tliron/commonlog/simple"
)

var (
	// Global flags
	configDir string
	verbose   int
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit string) error {
	rootCmd := newRootCommand(version, commit)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "godhall: %v\n", err)
	}
	return err
}

func newRootCommand(version, commit string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "godhall",
		Short: "Evaluate binary-encoded configuration expressions",
		Long: `godhall type-checks, normalizes and hashes expressions in the
standard binary wire form. Input files hold a single CBOR-encoded
expression; output is written as CBOR to stdout or as readable text
with --pretty.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			commonlog.Configure(verbose, nil)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", ".", "directory to search for godhall.toml")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase log verbosity")

	rootCmd.AddCommand(newDecodeCommand())
	rootCmd.AddCommand(newTypeCommand())
	rootCmd.AddCommand(newNormalizeCommand())
	rootCmd.AddCommand(newHashCommand())
	rootCmd.AddCommand(newResolveCommand())

	return rootCmd
}

// readTerm loads and decodes one wire-form expression. "-" means stdin.
func readTerm(path string) (core.Term, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return binary.Decode(data)
}

// newResolverFor builds a resolver from the configuration found at the
// --config directory, opening the persistent cache when one is configured.
func newResolverFor(ctx context.Context) (*imports.Resolver, func(), error) {
	cfg, err := imports.FindConfig(configDir)
	if err != nil {
		return nil, nil, err
	}
	var cache imports.Cache
	cleanup := func() {}
	if path := cfg.CachePath(); path != "" {
		sqlCache, err := imports.OpenSQLiteCache(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		cache = sqlCache
		cleanup = func() { _ = sqlCache.Close() }
	}
	return imports.NewResolver(cfg, cache), cleanup, nil
}

// writeTerm emits a term to stdout, canonically encoded or pretty-printed.
func writeTerm(t core.Term, pretty bool) error {
	if pretty {
		fmt.Println(core.Render(t))
		return nil
	}
	data, err := binary.Encode(t)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
